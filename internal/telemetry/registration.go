package telemetry

import "strings"

const (
	keyProxyAddress       = "ProxyAddress"
	keyRegistrationStatus = "RegistrationStatus"
	keySIPAddress         = "SIPAddress"
)

// ParseRegistration scans line info records until registrar, registration
// state and SIP details are all known. The first record supplying a field
// wins, whichever line it belongs to. It returns nil for an empty list.
func ParseRegistration(lines []Object) *RegistrationStatus {
	if len(lines) == 0 {
		return nil
	}
	out := &RegistrationStatus{}
	var haveRegistrar, haveRegistered, haveDetails bool
	for _, line := range lines {
		if !haveRegistrar {
			if registrar := line.Text(keyProxyAddress); registrar != "" {
				out.SIPRegistrar = registrar
				haveRegistrar = true
			}
		}
		if !haveRegistered {
			switch state := strings.TrimSpace(line.Text(keyRegistrationStatus)); {
			case strings.EqualFold(state, "registered"):
				out.SIPRegistered = boolPtr(true)
				haveRegistered = true
			case strings.EqualFold(state, "unregistered"):
				out.SIPRegistered = boolPtr(false)
				haveRegistered = true
			}
		}
		if !haveDetails {
			if addr := line.Text(keySIPAddress); addr != "" {
				out.SIPDetails = keySIPAddress + ": " + addr
				haveDetails = true
			}
		}
		if haveRegistrar && haveRegistered && haveDetails {
			break
		}
	}
	return out
}

const keyPhoneMuteState = "PhoneMuteState"

// ParseMuteStatus reads PhoneMuteState from a communication info payload.
// ok is false when the value is missing or not "True"/"False".
func ParseMuteStatus(data Object) (MuteStatus, bool) {
	if data == nil {
		return "", false
	}
	switch state := strings.TrimSpace(data.Text(keyPhoneMuteState)); {
	case strings.EqualFold(state, "true"):
		return Muted, true
	case strings.EqualFold(state, "false"):
		return Unmuted, true
	default:
		return "", false
	}
}

func boolPtr(b bool) *bool { return &b }
