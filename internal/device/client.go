package device

import (
	"context"
	"slices"

	"trio-driver/internal/telemetry"
	"trio-driver/pkg/logger"
)

// Endpoint paths relative to BasePath.
const (
	PathDeviceInfo        = "mgmt/device/info"
	PathNetworkStats      = "mgmt/network/stats"
	PathRunningConfig     = "mgmt/device/runningConfig"
	PathPollStatus        = "mgmt/pollForStatus"
	PathTransferType      = "mgmt/transferType/get"
	PathLineInfo          = "mgmt/lineInfo"
	PathCallStatus        = "webCallControl/callStatus"
	PathCommunicationInfo = "mgmt/media/communicationInfo"
	PathSessionStats      = "mgmt/media/sessionStats"
	PathConfigGet         = "mgmt/config/get"
	PathDial              = "callctrl/dial"
	PathEndCall           = "callctrl/endCall"
	PathMute              = "callctrl/mute"
	PathSafeRestart       = "mgmt/safeRestart"
	PathSafeReboot        = "mgmt/safeReboot"
)

// MaxConfigKeys is the most keys one config/get request may carry before the
// phone answers 4009.
const MaxConfigKeys = 20

// DefaultLine is the only line the driver dials on.
const DefaultLine = "1"

// ConfigValue is one entry returned by config/get.
type ConfigValue struct {
	Value  string
	Source string
}

// Client exposes one method per device endpoint. Every call goes through the
// gate. Methods return the untouched data member; parsing is left to callers.
type Client struct {
	gate *Gate
	host string
}

func NewClient(gate *Gate, host string) *Client {
	return &Client{gate: gate, host: host}
}

// New wires an HTTP transport, a gate and a client for one phone.
func New(cfg TransportConfig, opts ...GateOption) (*Client, error) {
	t, err := NewHTTPTransport(cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(NewGate(t, opts...), t.Host()), nil
}

func (c *Client) Host() string { return c.host }

func (c *Client) DeviceInfo(ctx context.Context) (telemetry.Object, error) {
	env, err := c.do(ctx, Get(PathDeviceInfo), StatusCallDoesNotExist)
	if err != nil {
		return nil, err
	}
	return env.Object(), nil
}

func (c *Client) NetworkStats(ctx context.Context) (telemetry.Object, error) {
	return c.object(ctx, PathNetworkStats)
}

func (c *Client) RunningConfig(ctx context.Context) (telemetry.Object, error) {
	return c.object(ctx, PathRunningConfig)
}

func (c *Client) PollStatus(ctx context.Context) (telemetry.Object, error) {
	return c.object(ctx, PathPollStatus)
}

func (c *Client) TransferType(ctx context.Context) (telemetry.Object, error) {
	return c.object(ctx, PathTransferType)
}

func (c *Client) LineInfo(ctx context.Context) ([]telemetry.Object, error) {
	env, err := c.do(ctx, Get(PathLineInfo))
	if err != nil {
		return nil, err
	}
	return env.Objects(), nil
}

// CallStatus returns the current call, or nil when the phone reports that
// no call exists.
func (c *Client) CallStatus(ctx context.Context) (telemetry.Object, error) {
	env, err := c.do(ctx, Get(PathCallStatus), StatusCallDoesNotExist)
	if err != nil {
		return nil, err
	}
	if env.Status == StatusCallDoesNotExist {
		return nil, nil
	}
	return env.Object(), nil
}

func (c *Client) CommunicationInfo(ctx context.Context) (telemetry.Object, error) {
	return c.object(ctx, PathCommunicationInfo)
}

// SessionStats returns one record per media session, each with its streams.
func (c *Client) SessionStats(ctx context.Context) ([]telemetry.Object, error) {
	env, err := c.do(ctx, Get(PathSessionStats))
	if err != nil {
		return nil, err
	}
	return env.Objects(), nil
}

// ConfigValues reads configuration parameters, splitting keys into batches
// the phone accepts. Keys the phone does not know are absent from the result.
func (c *Client) ConfigValues(ctx context.Context, keys ...string) (map[string]ConfigValue, error) {
	out := make(map[string]ConfigValue, len(keys))
	for batch := range slices.Chunk(keys, MaxConfigKeys) {
		env, err := c.do(ctx, Post(PathConfigGet, message{Data: batch}))
		if err != nil {
			return nil, err
		}
		for k, v := range env.Object() {
			entry := telemetry.AsObject(v)
			if entry == nil {
				continue
			}
			out[k] = ConfigValue{Value: entry.Text("Value"), Source: entry.Text("Source")}
		}
	}
	return out, nil
}

// Dial places a call on line. protocol may be empty to let the phone decide.
func (c *Client) Dial(ctx context.Context, dest, line, protocol string) error {
	body := map[string]string{"Dest": dest, "Line": line}
	if protocol != "" {
		body["Type"] = protocol
	}
	_, err := c.do(ctx, Post(PathDial, message{Data: body}))
	return err
}

// EndCall hangs up the call with the given handle. A call that no longer
// exists is not an error.
func (c *Client) EndCall(ctx context.Context, callHandle string) error {
	_, err := c.do(ctx, Post(PathEndCall, message{Data: map[string]string{"Ref": callHandle}}), StatusCallDoesNotExist)
	return err
}

// SetMute changes the local microphone state.
func (c *Client) SetMute(ctx context.Context, on bool) error {
	state := "0"
	if on {
		state = "1"
	}
	_, err := c.do(ctx, Post(PathMute, message{Data: map[string]string{"state": state}}), StatusCallDoesNotExist)
	return err
}

func (c *Client) Restart(ctx context.Context) error {
	_, err := c.do(ctx, Post(PathSafeRestart, nil))
	return err
}

func (c *Client) Reboot(ctx context.Context) error {
	_, err := c.do(ctx, Post(PathSafeReboot, nil))
	return err
}

func (c *Client) object(ctx context.Context, path string) (telemetry.Object, error) {
	env, err := c.do(ctx, Get(path))
	if err != nil {
		return nil, err
	}
	return env.Object(), nil
}

// do executes req and turns any status other than success or one of
// ignorable into a CommandError.
func (c *Client) do(ctx context.Context, req Request, ignorable ...Status) (Envelope, error) {
	env, err := c.gate.Execute(ctx, req)
	if err != nil {
		logger.From(ctx).Debug("device request failed", "host", c.host, "path", req.Path, "err", err)
		return Envelope{}, err
	}
	if env.Status == StatusSuccess || slices.Contains(ignorable, env.Status) {
		return env, nil
	}
	logger.From(ctx).Debug("device rejected request",
		"host", c.host,
		"path", req.Path,
		"status", string(env.Status),
		"status_text", env.Status.Text(),
	)
	return env, &CommandError{Host: c.host, Path: req.Path, Status: env.Status}
}
