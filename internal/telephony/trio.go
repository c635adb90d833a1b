package telephony

import (
	"context"
	"fmt"

	"trio-driver/internal/audit"
	"trio-driver/internal/calls"
	"trio-driver/internal/device"
	"trio-driver/internal/profile"
	"trio-driver/internal/snapshot"
	"trio-driver/internal/telemetry"
	"trio-driver/pkg/logger"
)

// TrioProvider drives one phone of the Trio family (or a VVX, depending on
// the profile) over its REST API.
type TrioProvider struct {
	client    *device.Client
	calls     *calls.Controller
	assembler *snapshot.Assembler
	profile   profile.Profile
	audit     *audit.Service
}

func NewTrioProvider(client *device.Client, p profile.Profile, ctrl *calls.Controller, asm *snapshot.Assembler, auditSvc *audit.Service) *TrioProvider {
	return &TrioProvider{client: client, calls: ctrl, assembler: asm, profile: p, audit: auditSvc}
}

var _ Endpoint = (*TrioProvider)(nil)

func (p *TrioProvider) Name() string { return "polycom-" + p.profile.Name() }

// HealthCheck verifies the phone answers an authenticated request.
func (p *TrioProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.PollStatus(ctx); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

func (p *TrioProvider) Statistics(ctx context.Context) (snapshot.Snapshot, error) {
	return p.assembler.Assemble(ctx)
}

func (p *TrioProvider) SoftwareVersion(ctx context.Context) (*telemetry.Version, error) {
	return p.calls.SoftwareVersion(ctx)
}

func (p *TrioProvider) Dial(ctx context.Context, req calls.DialRequest) (string, error) {
	handle, err := p.calls.Dial(ctx, req)
	p.record(ctx, audit.EventTypeDial, handle, "dial "+req.Destination, err)
	return handle, err
}

func (p *TrioProvider) Hangup(ctx context.Context, callID string) error {
	err := p.calls.Hangup(ctx, callID)
	p.record(ctx, audit.EventTypeHangup, callID, "", err)
	return err
}

func (p *TrioProvider) RetrieveCallStatus(ctx context.Context, callID string) (calls.CallStatus, error) {
	return p.calls.RetrieveCallStatus(ctx, callID)
}

// SendMessage is not supported by the phone API.
func (p *TrioProvider) SendMessage(context.Context, string, string) error {
	return ErrNotImplemented
}

func (p *TrioProvider) Mute(ctx context.Context) error {
	err := p.calls.Mute(ctx)
	p.record(ctx, audit.EventTypeMute, "", "", err)
	return err
}

func (p *TrioProvider) Unmute(ctx context.Context) error {
	err := p.calls.Unmute(ctx)
	p.record(ctx, audit.EventTypeUnmute, "", "", err)
	return err
}

func (p *TrioProvider) RetrieveMuteStatus(ctx context.Context) (telemetry.MuteStatus, bool, error) {
	return p.calls.RetrieveMuteStatus(ctx)
}

// ControlProperty presses one of the snapshot's controls.
func (p *TrioProvider) ControlProperty(ctx context.Context, cp ControllableProperty) error {
	var (
		typ audit.EventType
		run func(context.Context) error
	)
	switch cp.Property {
	case snapshot.ControlRestart:
		typ, run = audit.EventTypeRestart, p.client.Restart
	case snapshot.ControlReboot:
		typ, run = audit.EventTypeReboot, p.client.Reboot
	default:
		return fmt.Errorf("%w: %q", ErrUnknownControl, cp.Property)
	}

	logger.From(ctx).Info("applying control", "property", cp.Property, "device", p.client.Host())
	err := run(ctx)
	p.record(ctx, typ, "", cp.Property, err)
	if err != nil {
		return fmt.Errorf("control %s: %w", cp.Property, err)
	}
	return nil
}

// ControlProperties applies controls in order and stops at the first failure.
func (p *TrioProvider) ControlProperties(ctx context.Context, cps []ControllableProperty) error {
	if len(cps) == 0 {
		return fmt.Errorf("%w: no properties", ErrInvalidControl)
	}
	for _, cp := range cps {
		if err := p.ControlProperty(ctx, cp); err != nil {
			return err
		}
	}
	return nil
}

func (p *TrioProvider) record(ctx context.Context, typ audit.EventType, callID, msg string, err error) {
	p.audit.RecordCommand(ctx, audit.Command{Type: typ, Device: p.client.Host(), CallID: callID, Message: msg}, err)
}
