package telemetry

import "strings"

const (
	keyCallHandle        = "CallHandle"
	keyCallState         = "CallState"
	keyProtocol          = "Protocol"
	keyRemotePartyNumber = "RemotePartyNumber"

	callStateConnected = "Connected"
)

// CallHandle returns the device call handle from a call status payload.
func CallHandle(data Object) string {
	if data == nil {
		return ""
	}
	return data.Text(keyCallHandle)
}

// RemoteParty returns the remote party number from a call status payload.
func RemoteParty(data Object) string {
	if data == nil {
		return ""
	}
	return data.Text(keyRemotePartyNumber)
}

// IsConnected reports whether a call status payload describes a connected
// call. Dialing, proceeding and other setup states are not connected.
func IsConnected(data Object) bool {
	if data == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(data.Text(keyCallState)), callStateConnected)
}

// ParseCallStats builds call statistics from a call status payload. It returns
// nil unless the call is connected. When the phone reports the protocol as
// "Auto" (or not at all) it is inferred from a SIP:, H323: or TEL: prefix on
// the remote address.
func ParseCallStats(data Object) *CallStats {
	if !IsConnected(data) {
		return nil
	}
	stats := &CallStats{
		CallID:        CallHandle(data),
		RemoteAddress: RemoteParty(data),
	}
	protocol, ok := data.String(keyProtocol)
	if !ok || protocol == ProtocolAuto {
		if p, found := inferProtocol(stats.RemoteAddress); found {
			protocol = p
		}
	}
	stats.Protocol = protocol
	return stats
}
