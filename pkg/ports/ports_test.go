package ports

import "testing"

func TestProtocol(t *testing.T) {
	tests := []struct {
		name     string
		port     int
		expected string
	}{
		{"ssh", 22, "SSH"},
		{"ssh alternate", 2222, "SSH"},
		{"telnet", 23, "TELNET"},
		{"http", 80, "HTTP"},
		{"http alternate", 8080, "HTTP"},
		{"https", 443, "HTTPS"},
		{"rdp", 3389, "RDP"},
		{"mongodb", 27017, "MONGODB"},
		{"scada", 50100, "SCADA"},
		{"unknown port", 31337, ProtocolOther},
		{"zero port", 0, ProtocolOther},
		{"negative port", -1, ProtocolOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Protocol(tt.port); got != tt.expected {
				t.Errorf("Protocol(%d): expected %s, got %s", tt.port, tt.expected, got)
			}
		})
	}
}

func TestColor(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		expected string
	}{
		{"ssh", "SSH", "#FF9800"},
		{"http", "HTTP", "#3F51B5"},
		{"https", "HTTPS", "#0080FF"},
		{"other", ProtocolOther, "#78909C"},
		{"unknown label", "GOPHER", "#78909C"},
		{"empty label", "", "#78909C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Color(tt.protocol); got != tt.expected {
				t.Errorf("Color(%s): expected %s, got %s", tt.protocol, tt.expected, got)
			}
		})
	}
}

func TestEveryProtocolHasColor(t *testing.T) {
	defaultColor := Color(ProtocolOther)
	for port, protocol := range portProtocols {
		if protocol == ProtocolOther {
			continue
		}
		if Color(protocol) == defaultColor {
			t.Errorf("port %d protocol %s falls back to the default color", port, protocol)
		}
	}
}
