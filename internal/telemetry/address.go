package telemetry

import "strings"

// CleanCodec strips the device index prefix from a codec name: "3:G.722.1"
// becomes "G.722.1", "24:H.264" becomes "H.264".
func CleanCodec(codec string) string {
	_, name := splitPrefix(codec)
	return name
}

// SplitScheme splits "sip:alice@example.com" into ("sip", "alice@example.com").
// Addresses without a scheme return an empty scheme and the input.
func SplitScheme(addr string) (scheme, rest string) {
	return splitPrefix(addr)
}

// SameRemote reports whether the remote party reported by the phone is the
// destination that was dialed. The phone may prepend the protocol scheme.
func SameRemote(reported, dialed string) bool {
	reported = strings.TrimSpace(reported)
	if reported == "" {
		return false
	}
	_, reported = SplitScheme(reported)
	return strings.EqualFold(reported, strings.TrimSpace(dialed))
}

// inferProtocol returns the protocol named by the address scheme, if it is one
// the phone supports.
func inferProtocol(addr string) (string, bool) {
	scheme, _ := SplitScheme(addr)
	for _, p := range []string{ProtocolSIP, ProtocolH323, ProtocolTEL} {
		if strings.EqualFold(scheme, p) {
			return p, true
		}
	}
	return "", false
}

// splitPrefix cuts at the first colon. A leading colon is not a prefix.
func splitPrefix(s string) (string, string) {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", s
	}
	return s[:i], s[i+1:]
}
