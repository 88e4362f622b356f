package poller

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"attack-map/pkg/models"
	"attack-map/pkg/ports"
)

// rawGeo is the source-side geolocation block (geoip field).
// Pointer fields are required: a document missing them is dropped.
type rawGeo struct {
	CountryName   string   `json:"country_name"`
	CountryCode2  *string  `json:"country_code2"`
	ContinentCode string   `json:"continent_code"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

// rawGeoExt is the destination-side geolocation block (geoip_ext field).
type rawGeoExt struct {
	IP           *string  `json:"ip"`
	CountryCode2 string   `json:"country_code2"`
	CountryName  string   `json:"country_name"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// rawHit mirrors the honeypot document _source as indexed by logstash.
// Ports are kept raw because some honeypots index them as strings.
type rawHit struct {
	Type             string          `json:"type"`
	Timestamp        string          `json:"@timestamp"`
	HoneypotHostname *string         `json:"honeypot_hostname"`
	SrcIP            *string         `json:"src_ip"`
	SrcPort          json.RawMessage `json:"src_port"`
	DestPort         json.RawMessage `json:"dest_port"`
	IPRep            string          `json:"ip_rep"`
	Geo              *rawGeo         `json:"geoip"`
	GeoExt           *rawGeoExt      `json:"geoip_ext"`
}

// Normalize maps one raw backend document into an Alert. It returns an
// error for documents missing required fields (source IP, geolocation,
// hostname, destination port or timestamp); such documents are dropped
// individually by the caller, never retried.
func Normalize(source json.RawMessage) (*models.Alert, error) {
	var hit rawHit
	if err := json.Unmarshal(source, &hit); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}

	if hit.SrcIP == nil || *hit.SrcIP == "" {
		return nil, fmt.Errorf("empty src_ip")
	}
	if hit.Geo == nil || hit.Geo.Latitude == nil || hit.Geo.Longitude == nil || hit.Geo.CountryCode2 == nil {
		return nil, fmt.Errorf("missing geoip fields")
	}
	if hit.GeoExt == nil || hit.GeoExt.Latitude == nil || hit.GeoExt.Longitude == nil || hit.GeoExt.IP == nil {
		return nil, fmt.Errorf("missing geoip_ext fields")
	}
	if hit.HoneypotHostname == nil {
		return nil, fmt.Errorf("missing honeypot_hostname")
	}
	if len(hit.DestPort) == 0 {
		return nil, fmt.Errorf("missing dest_port")
	}

	eventTime, err := normalizeTimestamp(hit.Timestamp)
	if err != nil {
		return nil, err
	}

	dstPort := parsePort(hit.DestPort)
	protocol := ports.Protocol(dstPort)

	ipRep := hit.IPRep
	if ipRep == "" {
		ipRep = models.IPRepUnknown
	}

	return &models.Alert{
		Honeypot:         hit.Type,
		HoneypotHostname: *hit.HoneypotHostname,
		SrcIP:            *hit.SrcIP,
		SrcPort:          parsePort(hit.SrcPort),
		DstIP:            *hit.GeoExt.IP,
		DstPort:          dstPort,
		Protocol:         protocol,
		Color:            ports.Color(protocol),
		Country:          hit.Geo.CountryName,
		CountryCode:      *hit.Geo.CountryCode2,
		ISOCode:          *hit.Geo.CountryCode2,
		ContinentCode:    hit.Geo.ContinentCode,
		DstCountryName:   hit.GeoExt.CountryName,
		DstISOCode:       hit.GeoExt.CountryCode2,
		SrcLat:           *hit.Geo.Latitude,
		SrcLong:          *hit.Geo.Longitude,
		DstLat:           *hit.GeoExt.Latitude,
		DstLong:          *hit.GeoExt.Longitude,
		EventTime:        eventTime,
		IPRep:            ipRep,
	}, nil
}

// eventTimeLayout is the canonical display form, always UTC.
const eventTimeLayout = "2006-01-02 15:04:05"

// normalizeTimestamp converts the backend's @timestamp to the canonical
// form. Strict RFC 3339 parse first; on failure it falls back to slicing
// the date and time components out of the raw string, which keeps older
// timestamp formats working. The slice assumes "YYYY-MM-DDTHH:MM:SS..."
// layout and will mangle anything else silently.
func normalizeTimestamp(raw string) (string, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC().Format(eventTimeLayout), nil
	}
	if len(raw) >= 19 {
		return raw[0:10] + " " + raw[11:19], nil
	}
	return "", fmt.Errorf("unusable @timestamp %q", raw)
}

// parsePort parses a port that may be indexed as a number or a string.
// Anything unparseable comes back as 0.
func parsePort(data json.RawMessage) int {
	if len(data) == 0 {
		return 0
	}

	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		return num
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		val, _ := strconv.Atoi(str)
		return val
	}

	return 0
}
