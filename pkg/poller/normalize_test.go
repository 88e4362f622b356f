package poller

import (
	"encoding/json"
	"testing"

	"attack-map/pkg/models"
)

// fullDocument is a representative logstash honeypot document.
const fullDocument = `{
	"type": "Cowrie",
	"@timestamp": "2026-01-15T12:34:56.789Z",
	"honeypot_hostname": "sensor-01",
	"src_ip": "1.2.3.4",
	"src_port": 54321,
	"dest_port": 22,
	"ip_rep": "known attacker",
	"geoip": {
		"country_name": "Germany",
		"country_code2": "DE",
		"continent_code": "EU",
		"latitude": 52.52,
		"longitude": 13.405
	},
	"geoip_ext": {
		"ip": "198.51.100.7",
		"country_code2": "US",
		"country_name": "United States",
		"latitude": 40.71,
		"longitude": -74.0
	}
}`

func TestNormalize(t *testing.T) {
	alert, err := Normalize(json.RawMessage(fullDocument))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if alert.Honeypot != "Cowrie" {
		t.Errorf("expected honeypot Cowrie, got %s", alert.Honeypot)
	}
	if alert.SrcIP != "1.2.3.4" {
		t.Errorf("expected src_ip 1.2.3.4, got %s", alert.SrcIP)
	}
	if alert.SrcPort != 54321 {
		t.Errorf("expected src_port 54321, got %d", alert.SrcPort)
	}
	if alert.DstPort != 22 {
		t.Errorf("expected dst_port 22, got %d", alert.DstPort)
	}
	if alert.Protocol != "SSH" {
		t.Errorf("expected protocol SSH, got %s", alert.Protocol)
	}
	if alert.Color != "#FF9800" {
		t.Errorf("expected color #FF9800, got %s", alert.Color)
	}
	if alert.Country != "Germany" || alert.CountryCode != "DE" || alert.ISOCode != "DE" {
		t.Errorf("unexpected source country fields: %s/%s/%s", alert.Country, alert.CountryCode, alert.ISOCode)
	}
	if alert.DstIP != "198.51.100.7" || alert.DstISOCode != "US" {
		t.Errorf("unexpected destination fields: %s/%s", alert.DstIP, alert.DstISOCode)
	}
	if alert.SrcLat != 52.52 || alert.SrcLong != 13.405 {
		t.Errorf("unexpected source coordinates: %f/%f", alert.SrcLat, alert.SrcLong)
	}
	if alert.DstLat != 40.71 || alert.DstLong != -74.0 {
		t.Errorf("unexpected destination coordinates: %f/%f", alert.DstLat, alert.DstLong)
	}
	if alert.EventTime != "2026-01-15 12:34:56" {
		t.Errorf("expected event_time 2026-01-15 12:34:56, got %s", alert.EventTime)
	}
	if alert.IPRep != "known attacker" {
		t.Errorf("expected ip_rep preserved raw, got %s", alert.IPRep)
	}
	if alert.EventCount != 0 || alert.Type != "" {
		t.Error("event_count and type are assigned at publish time, not here")
	}
}

func TestNormalize_Drops(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			"empty src_ip",
			`{"type":"Cowrie","@timestamp":"2026-01-15T12:00:00Z","honeypot_hostname":"h","src_ip":"","dest_port":22,
			  "geoip":{"country_code2":"DE","latitude":1,"longitude":2},
			  "geoip_ext":{"ip":"9.9.9.9","latitude":3,"longitude":4}}`,
		},
		{
			"missing src_ip",
			`{"type":"Cowrie","@timestamp":"2026-01-15T12:00:00Z","honeypot_hostname":"h","dest_port":22,
			  "geoip":{"country_code2":"DE","latitude":1,"longitude":2},
			  "geoip_ext":{"ip":"9.9.9.9","latitude":3,"longitude":4}}`,
		},
		{
			"missing geoip",
			`{"type":"Cowrie","@timestamp":"2026-01-15T12:00:00Z","honeypot_hostname":"h","src_ip":"1.2.3.4","dest_port":22,
			  "geoip_ext":{"ip":"9.9.9.9","latitude":3,"longitude":4}}`,
		},
		{
			"geoip missing coordinates",
			`{"type":"Cowrie","@timestamp":"2026-01-15T12:00:00Z","honeypot_hostname":"h","src_ip":"1.2.3.4","dest_port":22,
			  "geoip":{"country_code2":"DE"},
			  "geoip_ext":{"ip":"9.9.9.9","latitude":3,"longitude":4}}`,
		},
		{
			"missing geoip_ext ip",
			`{"type":"Cowrie","@timestamp":"2026-01-15T12:00:00Z","honeypot_hostname":"h","src_ip":"1.2.3.4","dest_port":22,
			  "geoip":{"country_code2":"DE","latitude":1,"longitude":2},
			  "geoip_ext":{"latitude":3,"longitude":4}}`,
		},
		{
			"missing honeypot_hostname",
			`{"type":"Cowrie","@timestamp":"2026-01-15T12:00:00Z","src_ip":"1.2.3.4","dest_port":22,
			  "geoip":{"country_code2":"DE","latitude":1,"longitude":2},
			  "geoip_ext":{"ip":"9.9.9.9","latitude":3,"longitude":4}}`,
		},
		{
			"missing dest_port",
			`{"type":"Cowrie","@timestamp":"2026-01-15T12:00:00Z","honeypot_hostname":"h","src_ip":"1.2.3.4",
			  "geoip":{"country_code2":"DE","latitude":1,"longitude":2},
			  "geoip_ext":{"ip":"9.9.9.9","latitude":3,"longitude":4}}`,
		},
		{
			"unusable timestamp",
			`{"type":"Cowrie","@timestamp":"garbage","honeypot_hostname":"h","src_ip":"1.2.3.4","dest_port":22,
			  "geoip":{"country_code2":"DE","latitude":1,"longitude":2},
			  "geoip_ext":{"ip":"9.9.9.9","latitude":3,"longitude":4}}`,
		},
		{
			"not json",
			`{{{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert, err := Normalize(json.RawMessage(tt.doc))
			if err == nil {
				t.Errorf("expected document to be dropped, got alert %+v", alert)
			}
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	doc := `{"type":"Dionaea","@timestamp":"2026-01-15T12:00:00Z","honeypot_hostname":"h","src_ip":"1.2.3.4","dest_port":31337,
	  "geoip":{"country_code2":"DE","latitude":1,"longitude":2},
	  "geoip_ext":{"ip":"9.9.9.9","latitude":3,"longitude":4}}`

	alert, err := Normalize(json.RawMessage(doc))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if alert.SrcPort != 0 {
		t.Errorf("expected default src_port 0, got %d", alert.SrcPort)
	}
	if alert.IPRep != models.IPRepUnknown {
		t.Errorf("expected default ip_rep %q, got %q", models.IPRepUnknown, alert.IPRep)
	}
	if alert.Country != "" || alert.ContinentCode != "" || alert.DstCountryName != "" || alert.DstISOCode != "" {
		t.Error("expected empty-string defaults for optional country fields")
	}
	if alert.Protocol != "OTHER" || alert.Color != "#78909C" {
		t.Errorf("expected OTHER/#78909C for unknown port, got %s/%s", alert.Protocol, alert.Color)
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"rfc3339 with zulu", "2026-01-15T12:34:56Z", "2026-01-15 12:34:56", false},
		{"rfc3339 with millis", "2026-01-15T12:34:56.789Z", "2026-01-15 12:34:56", false},
		{"rfc3339 with offset", "2026-01-15T14:34:56+02:00", "2026-01-15 12:34:56", false},
		{"slicing fallback", "2026-01-15T12:34:56 weird trailer", "2026-01-15 12:34:56", false},
		{"too short for slicing", "2026-01-15", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeTimestamp(%q) failed: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("normalizeTimestamp(%q): expected %q, got %q", tt.input, tt.expected, got)
			}
		})
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"number", "22", 22},
		{"quoted string", `"2222"`, 2222},
		{"unparseable string", `"ssh"`, 0},
		{"null", "null", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parsePort(json.RawMessage(tt.input)); got != tt.expected {
				t.Errorf("parsePort(%s): expected %d, got %d", tt.input, tt.expected, got)
			}
		})
	}
}
