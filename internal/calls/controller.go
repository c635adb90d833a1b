// Package calls drives calls on the phone and turns its call and media
// reports into call statistics.
package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"trio-driver/internal/device"
	"trio-driver/internal/metrics"
	"trio-driver/internal/profile"
	"trio-driver/internal/telemetry"
	"trio-driver/pkg/logger"
)

var ErrInvalidArgument = errors.New("calls: invalid argument")

const (
	DefaultPollAttempts = 5
	DefaultPollInterval = time.Second

	// UnknownCallID is returned by Dial when the placed call could not be
	// identified in time.
	UnknownCallID = "unknown"

	configVideoCallRate = "video.callRate"
)

// Device is the part of the phone API the controller needs.
type Device interface {
	CallStatus(ctx context.Context) (telemetry.Object, error)
	Dial(ctx context.Context, dest, line, protocol string) error
	EndCall(ctx context.Context, callHandle string) error
	SetMute(ctx context.Context, on bool) error
	DeviceInfo(ctx context.Context) (telemetry.Object, error)
	CommunicationInfo(ctx context.Context) (telemetry.Object, error)
	SessionStats(ctx context.Context) ([]telemetry.Object, error)
	ConfigValues(ctx context.Context, keys ...string) (map[string]device.ConfigValue, error)
}

type Options struct {
	// PollAttempts and PollInterval control how a dialed call is looked up.
	PollAttempts int
	PollInterval time.Duration
	Metrics      *metrics.Collector
}

func (o Options) withDefaults() Options {
	if o.PollAttempts <= 0 {
		o.PollAttempts = DefaultPollAttempts
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

type Controller struct {
	dev     Device
	profile profile.Profile
	opts    Options

	mu      sync.Mutex
	machine *fsm.FSM
}

func NewController(dev Device, p profile.Profile, opts Options) *Controller {
	opts = opts.withDefaults()
	if p == nil {
		p = profile.Trio{}
	}
	return &Controller{
		dev:     dev,
		profile: p,
		opts:    opts,
		machine: newMachine(opts.Metrics),
	}
}

// CallState is the connection state reported for a call.
type CallState string

const (
	Connected    CallState = "Connected"
	Disconnected CallState = "Disconnected"
)

type CallStatus struct {
	State  CallState `json:"state"`
	CallID string    `json:"call_id,omitempty"`
}

type DialRequest struct {
	Destination string `json:"destination"`
	// Protocol is SIP, H323, ISDN or empty to let the phone choose.
	Protocol string `json:"protocol,omitempty"`
}

// Dial places a call on line 1 and returns its handle. The phone does not
// return the handle, so call status is polled until a call to the dialed
// destination shows up. UnknownCallID means the call was placed but could
// not be identified in time.
func (c *Controller) Dial(ctx context.Context, req DialRequest) (string, error) {
	dest := strings.TrimSpace(req.Destination)
	if dest == "" {
		return "", fmt.Errorf("%w: destination is required", ErrInvalidArgument)
	}
	protocol, err := deviceProtocol(req.Protocol)
	if err != nil {
		return "", err
	}

	log := logger.From(ctx)
	c.fire(ctx, eventDial)
	if err := c.dev.Dial(ctx, dest, device.DefaultLine, protocol); err != nil {
		c.fire(ctx, eventDisconnect)
		return "", fmt.Errorf("dial %s: %w", dest, err)
	}

	for attempt := 1; attempt <= c.opts.PollAttempts; attempt++ {
		if err := sleep(ctx, c.opts.PollInterval); err != nil {
			return "", err
		}
		status, err := c.dev.CallStatus(ctx)
		if err != nil {
			return "", fmt.Errorf("resolve dialed call: %w", err)
		}
		handle := telemetry.CallHandle(status)
		if handle == "" || !telemetry.SameRemote(telemetry.RemoteParty(status), dest) {
			continue
		}
		if telemetry.IsConnected(status) {
			c.fire(ctx, eventConnect)
		}
		c.opts.Metrics.DialResolved(true)
		log.Info("dialed call resolved", "destination", dest, "call_id", handle, "attempt", attempt)
		return handle, nil
	}

	c.opts.Metrics.DialResolved(false)
	log.Warn("dialed call not found", "destination", dest, "attempts", c.opts.PollAttempts)
	return UnknownCallID, nil
}

// Hangup ends callID, or the current call when callID is empty or
// UnknownCallID. Ending a call that is already gone succeeds.
func (c *Controller) Hangup(ctx context.Context, callID string) error {
	callID = strings.TrimSpace(callID)
	if callID == "" || callID == UnknownCallID {
		status, err := c.dev.CallStatus(ctx)
		if err != nil {
			return fmt.Errorf("hangup: %w", err)
		}
		callID = telemetry.CallHandle(status)
		if callID == "" {
			logger.From(ctx).Debug("hangup without active call")
			return nil
		}
	}
	if err := c.dev.EndCall(ctx, callID); err != nil {
		return fmt.Errorf("hangup %s: %w", callID, err)
	}
	c.fire(ctx, eventDisconnect)
	return nil
}

func (c *Controller) Mute(ctx context.Context) error { return c.setMute(ctx, true) }

func (c *Controller) Unmute(ctx context.Context) error { return c.setMute(ctx, false) }

func (c *Controller) setMute(ctx context.Context, on bool) error {
	if err := c.dev.SetMute(ctx, on); err != nil {
		return fmt.Errorf("set mute %t: %w", on, err)
	}
	return nil
}

// RetrieveCallStatus reports whether a call is connected. With a non-empty
// expectedCallID other than UnknownCallID only that call counts as connected.
func (c *Controller) RetrieveCallStatus(ctx context.Context, expectedCallID string) (CallStatus, error) {
	status, err := c.dev.CallStatus(ctx)
	if err != nil {
		return CallStatus{}, fmt.Errorf("call status: %w", err)
	}
	if !telemetry.IsConnected(status) {
		c.fire(ctx, eventDisconnect)
		return CallStatus{State: Disconnected}, nil
	}
	c.fire(ctx, eventConnect)

	handle := telemetry.CallHandle(status)
	if expectedCallID != "" && expectedCallID != UnknownCallID && (handle == "" || !strings.EqualFold(handle, expectedCallID)) {
		return CallStatus{State: Disconnected}, nil
	}
	return CallStatus{State: Connected, CallID: handle}, nil
}

// RetrieveMuteStatus reads the microphone state. ok is false when the phone
// does not report it.
func (c *Controller) RetrieveMuteStatus(ctx context.Context) (status telemetry.MuteStatus, ok bool, err error) {
	data, err := c.dev.CommunicationInfo(ctx)
	if err != nil {
		return "", false, fmt.Errorf("mute status: %w", err)
	}
	status, ok = telemetry.ParseMuteStatus(data)
	return status, ok, nil
}

// SoftwareVersion returns the firmware version, or nil if the phone does not
// report a parseable one.
func (c *Controller) SoftwareVersion(ctx context.Context) (*telemetry.Version, error) {
	data, err := c.dev.DeviceInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("software version: %w", err)
	}
	return telemetry.VersionFromDeviceInfo(data), nil
}

func deviceProtocol(p string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(p)) {
	case "", strings.ToUpper(telemetry.ProtocolAuto):
		return "", nil
	case telemetry.ProtocolSIP:
		return telemetry.ProtocolSIP, nil
	case telemetry.ProtocolH323, "H.323":
		return telemetry.ProtocolH323, nil
	case "ISDN", telemetry.ProtocolTEL:
		return telemetry.ProtocolTEL, nil
	default:
		return "", fmt.Errorf("%w: unsupported protocol %q", ErrInvalidArgument, p)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
