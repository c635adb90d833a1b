package telephony

import (
	"context"
	"errors"

	"trio-driver/internal/calls"
	"trio-driver/internal/snapshot"
	"trio-driver/internal/telemetry"
)

var (
	ErrNotImplemented = errors.New("telephony: not implemented")
	ErrUnknownControl = errors.New("telephony: unknown control")
	ErrInvalidControl = errors.New("telephony: invalid control request")
)

// CallController places and manages calls on an endpoint.
type CallController interface {
	Dial(ctx context.Context, req calls.DialRequest) (string, error)
	Hangup(ctx context.Context, callID string) error
	RetrieveCallStatus(ctx context.Context, callID string) (calls.CallStatus, error)
	SendMessage(ctx context.Context, callID, message string) error
	Mute(ctx context.Context) error
	Unmute(ctx context.Context) error
	RetrieveMuteStatus(ctx context.Context) (telemetry.MuteStatus, bool, error)
}

// Monitorable reports point-in-time statistics.
type Monitorable interface {
	Statistics(ctx context.Context) (snapshot.Snapshot, error)
}

// Controller applies controllable properties such as restart buttons.
type Controller interface {
	ControlProperty(ctx context.Context, p ControllableProperty) error
	ControlProperties(ctx context.Context, ps []ControllableProperty) error
}

// ControllableProperty is a control request from the monitoring side.
type ControllableProperty struct {
	Property string `json:"property"`
	Value    any    `json:"value,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
}

// Endpoint is everything a managed endpoint offers.
type Endpoint interface {
	CallController
	Monitorable
	Controller
	Name() string
	HealthCheck(ctx context.Context) error
	SoftwareVersion(ctx context.Context) (*telemetry.Version, error)
}
