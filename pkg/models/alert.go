// Package models defines the records published on the map channel.
package models

// Message type discriminators. Every payload on the wire carries one of
// these in its "type" field so clients can tell traffic from stats.
const (
	TypeTraffic = "Traffic"
	TypeStats   = "Stats"
)

// IPRepUnknown is the reputation label used when the source document
// carries no ip_rep field.
const IPRepUnknown = "reputation unknown"

// Alert is one normalized honeypot event, ready for display.
//
// EventCount and Type are zero until the publisher frames the alert for
// the wire; everything else is filled by the normalizer.
type Alert struct {
	Honeypot         string  `json:"honeypot"`
	HoneypotHostname string  `json:"honeypot_hostname"`
	SrcIP            string  `json:"src_ip"`
	SrcPort          int     `json:"src_port"`
	DstIP            string  `json:"dst_ip"`
	DstPort          int     `json:"dst_port"`
	Protocol         string  `json:"protocol"`
	Color            string  `json:"color"`
	Country          string  `json:"country"`
	CountryCode      string  `json:"country_code"`
	ISOCode          string  `json:"iso_code"`
	ContinentCode    string  `json:"continent_code"`
	DstCountryName   string  `json:"dst_country_name"`
	DstISOCode       string  `json:"dst_iso_code"`
	SrcLat           float64 `json:"src_lat"`
	SrcLong          float64 `json:"src_long"`
	DstLat           float64 `json:"dst_lat"`
	DstLong          float64 `json:"dst_long"`
	EventTime        string  `json:"event_time"`
	IPRep            string  `json:"ip_rep"`
	EventCount       uint64  `json:"event_count"`
	Type             string  `json:"type"`
}

// Stats holds aggregate event counts over the trailing windows. A nil
// field means that window's query failed this cycle and the key is left
// off the wire, so clients keep their last known value.
type Stats struct {
	Last1m  *int64 `json:"last_1m,omitempty"`
	Last1h  *int64 `json:"last_1h,omitempty"`
	Last24h *int64 `json:"last_24h,omitempty"`
	Type    string `json:"type"`
}

// NewStats returns a Stats record with no windows set.
func NewStats() Stats {
	return Stats{Type: TypeStats}
}

// Set records the count for a trailing window ("1m", "1h" or "24h").
// Unknown window labels are ignored.
func (s *Stats) Set(window string, count int64) {
	switch window {
	case "1m":
		s.Last1m = &count
	case "1h":
		s.Last1h = &count
	case "24h":
		s.Last24h = &count
	}
}
