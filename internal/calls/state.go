package calls

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"trio-driver/internal/metrics"
	"trio-driver/pkg/logger"
)

// State is the call state as perceived by the driver from what the phone
// reports. The phone remains the source of truth.
type State string

const (
	StateIdle         State = "idle"
	StateDialing      State = "dialing"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

const (
	eventDial       = "dial"
	eventConnect    = "connect"
	eventDisconnect = "disconnect"
)

func newMachine(m *metrics.Collector) *fsm.FSM {
	return fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: eventDial, Src: []string{string(StateIdle), string(StateConnected), string(StateDisconnected)}, Dst: string(StateDialing)},
			{Name: eventConnect, Src: []string{string(StateIdle), string(StateDialing), string(StateDisconnected)}, Dst: string(StateConnected)},
			{Name: eventDisconnect, Src: []string{string(StateDialing), string(StateConnected)}, Dst: string(StateDisconnected)},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				logger.From(ctx).Info("call state changed", "event", e.Event, "from", e.Src, "to", e.Dst)
				m.StateTransition(e.Src, e.Dst)
			},
		},
	)
}

// fire moves the perceived state. Events that do not apply to the current
// state are dropped: the phone may change state on its own.
func (c *Controller) fire(ctx context.Context, event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.machine.Event(ctx, event)
	if err == nil {
		return
	}
	var noop fsm.NoTransitionError
	if errors.As(err, &noop) {
		return
	}
	logger.From(ctx).Debug("call state event ignored", "event", event, "state", c.machine.Current(), "err", err)
}

// State returns the perceived call state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State(c.machine.Current())
}
