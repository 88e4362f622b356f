// Package ports classifies destination ports into protocol labels and
// display colors for the map frontend.
package ports

// ProtocolOther is the label for ports not present in the table.
const ProtocolOther = "OTHER"

// portProtocols maps well-known honeypot destination ports to protocol
// labels. Ports outside the table classify as OTHER.
var portProtocols = map[int]string{
	19:    "CHARGEN",
	20:    "FTP-DATA",
	21:    "FTP",
	22:    "SSH",
	2222:  "SSH",
	23:    "TELNET",
	2223:  "TELNET",
	25:    "SMTP",
	42:    "WINS",
	53:    "DNS",
	67:    "DHCP",
	69:    "TFTP",
	80:    "HTTP",
	81:    "HTTP",
	104:   "DICOM",
	110:   "POP3",
	123:   "NTP",
	135:   "RPC",
	143:   "IMAP",
	161:   "SNMP",
	389:   "LDAP",
	443:   "HTTPS",
	445:   "SMB",
	465:   "SMTPS",
	587:   "EMAIL",
	623:   "IPMI",
	631:   "IPP",
	993:   "IMAPS",
	995:   "POP3S",
	1025:  "NFS",
	1080:  "SOCKS",
	1433:  "SQL",
	1521:  "ORACLE",
	1723:  "PPTP",
	1883:  "MQTT",
	1900:  "SSDP",
	2404:  "IEC104",
	2575:  "HL7",
	3306:  "MYSQL",
	3389:  "RDP",
	5000:  "IPSEC",
	5060:  "SIP",
	5061:  "SIP",
	5432:  "POSTGRESQL",
	5555:  "ADB",
	5900:  "VNC",
	6379:  "REDIS",
	6667:  "IRC",
	8080:  "HTTP",
	8888:  "HTTP",
	8443:  "HTTPS",
	9100:  "JETDIRECT",
	9200:  "ELASTICSEARCH",
	10001: "INDUSTRIAL",
	11112: "DICOM",
	11211: "MEMCACHED",
	27017: "MONGODB",
	50100: "SCADA",
}

// protocolColors maps protocol labels to the frontend's display colors.
var protocolColors = map[string]string{
	"CHARGEN":       "#4CAF50",
	"FTP-DATA":      "#F44336",
	"FTP":           "#FF5722",
	"SSH":           "#FF9800",
	"TELNET":        "#FFC107",
	"SMTP":          "#8BC34A",
	"WINS":          "#009688",
	"DNS":           "#00BCD4",
	"DHCP":          "#03A9F4",
	"TFTP":          "#2196F3",
	"HTTP":          "#3F51B5",
	"DICOM":         "#9C27B0",
	"POP3":          "#E91E63",
	"NTP":           "#795548",
	"RPC":           "#607D8B",
	"IMAP":          "#9E9E9E",
	"SNMP":          "#FF6B35",
	"LDAP":          "#FF8E53",
	"HTTPS":         "#0080FF",
	"SMB":           "#BF00FF",
	"SMTPS":         "#80FF00",
	"EMAIL":         "#00FF80",
	"IPMI":          "#00FFFF",
	"IPP":           "#8000FF",
	"IMAPS":         "#FF0080",
	"POP3S":         "#80FF80",
	"NFS":           "#FF8080",
	"SOCKS":         "#8080FF",
	"SQL":           "#00FF00",
	"ORACLE":        "#FFFF00",
	"PPTP":          "#FF00FF",
	"MQTT":          "#00FF40",
	"SSDP":          "#40FF00",
	"IEC104":        "#FF4000",
	"HL7":           "#4000FF",
	"MYSQL":         "#00FF00",
	"RDP":           "#FF0060",
	"IPSEC":         "#60FF00",
	"SIP":           "#FFCCFF",
	"POSTGRESQL":    "#00CCFF",
	"ADB":           "#FFCCCC",
	"VNC":           "#0000FF",
	"REDIS":         "#CC00FF",
	"IRC":           "#FFCC00",
	"JETDIRECT":     "#8000FF",
	"ELASTICSEARCH": "#FF8000",
	"INDUSTRIAL":    "#80FF40",
	"MEMCACHED":     "#40FF80",
	"MONGODB":       "#FF4080",
	"SCADA":         "#8040FF",
	ProtocolOther:   "#78909C",
}

// Protocol returns the protocol label for a destination port, or OTHER
// for ports not in the table.
func Protocol(port int) string {
	if proto, ok := portProtocols[port]; ok {
		return proto
	}
	return ProtocolOther
}

// Color returns the display color for a protocol label, or the OTHER
// color for unknown labels.
func Color(protocol string) string {
	if color, ok := protocolColors[protocol]; ok {
		return color
	}
	return protocolColors[ProtocolOther]
}
