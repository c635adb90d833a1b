package audit

import "time"

// Event is an append-only record of a command sent to the phone.
//
// Invariants:
// - Events are never updated or deleted.
// - Device and Type are required.
// - Actor capture is best-effort; commands are never blocked on audit failures.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`

	// Device is the phone address the command was sent to.
	Device string `json:"device"`

	Actor     string `json:"actor,omitempty"`
	ActorRole string `json:"actor_role,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`

	CallID  string `json:"call_id,omitempty"`
	Message string `json:"message,omitempty"`

	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventTypeDial    EventType = "dial"
	EventTypeHangup  EventType = "hangup"
	EventTypeMute    EventType = "mute"
	EventTypeUnmute  EventType = "unmute"
	EventTypeRestart EventType = "restart"
	EventTypeReboot  EventType = "reboot"
)

type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// Actor identifies who issued a command.
type Actor struct {
	Subject string
	Role    string
	IP      string
}
