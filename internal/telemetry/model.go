package telemetry

// Protocol values reported by, or sent to, the phone.
const (
	ProtocolAuto = "Auto"
	ProtocolSIP  = "SIP"
	ProtocolH323 = "H323"
	ProtocolTEL  = "TEL"
)

// CallStats describes the connected call. Rate fields are kbps and are only
// known for video calls.
type CallStats struct {
	CallID              string   `json:"call_id"`
	RemoteAddress       string   `json:"remote_address,omitempty"`
	Protocol            string   `json:"protocol,omitempty"`
	CallRateRx          *int     `json:"call_rate_rx,omitempty"`
	CallRateTx          *int     `json:"call_rate_tx,omitempty"`
	RequestedCallRate   *int     `json:"requested_call_rate,omitempty"`
	PercentPacketLossRx *float64 `json:"percent_packet_loss_rx,omitempty"`
}

type AudioChannelStats struct {
	Codec        string   `json:"codec,omitempty"`
	JitterRx     *float64 `json:"jitter_rx,omitempty"`
	PacketLossRx *int     `json:"packet_loss_rx,omitempty"`
	MuteTx       *bool    `json:"mute_tx,omitempty"`
}

type VideoChannelStats struct {
	Codec        string   `json:"codec,omitempty"`
	JitterRx     *float64 `json:"jitter_rx,omitempty"`
	PacketLossRx *int     `json:"packet_loss_rx,omitempty"`
	BitRateRx    *int     `json:"bit_rate_rx,omitempty"`
	BitRateTx    *int     `json:"bit_rate_tx,omitempty"`
	FrameRateRx  *float64 `json:"frame_rate_rx,omitempty"`
	FrameRateTx  *float64 `json:"frame_rate_tx,omitempty"`
	FrameSizeRx  string   `json:"frame_size_rx,omitempty"`
	FrameSizeTx  string   `json:"frame_size_tx,omitempty"`
}

// RegistrationStatus is the SIP line registration state.
type RegistrationStatus struct {
	SIPRegistrar  string `json:"sip_registrar,omitempty"`
	SIPRegistered *bool  `json:"sip_registered,omitempty"`
	SIPDetails    string `json:"sip_details,omitempty"`
}

// EndpointStatistics is the typed part of a snapshot.
// Call, Audio and Video are only set while InCall is true.
type EndpointStatistics struct {
	InCall       bool                `json:"in_call"`
	Registration *RegistrationStatus `json:"registration,omitempty"`
	Call         *CallStats          `json:"call,omitempty"`
	Audio        *AudioChannelStats  `json:"audio,omitempty"`
	Video        *VideoChannelStats  `json:"video,omitempty"`
}

type MuteStatus string

const (
	Muted   MuteStatus = "muted"
	Unmuted MuteStatus = "unmuted"
)
