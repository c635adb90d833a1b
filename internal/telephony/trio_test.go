package telephony

import (
	"context"
	"errors"
	"testing"
	"time"

	"trio-driver/internal/audit"
	"trio-driver/internal/calls"
	"trio-driver/internal/device"
	"trio-driver/internal/device/devicetest"
	"trio-driver/internal/profile"
	"trio-driver/internal/snapshot"
)

func newProvider(t *testing.T) (*TrioProvider, *devicetest.Server, *audit.MemoryRepo) {
	t.Helper()
	srv := devicetest.NewServer(t)
	client, err := device.New(device.TransportConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("device.New: %v", err)
	}
	mapper, err := snapshot.LoadMapper("")
	if err != nil {
		t.Fatalf("LoadMapper: %v", err)
	}
	ctrl := calls.NewController(client, profile.Trio{}, calls.Options{PollInterval: time.Millisecond})
	repo := audit.NewMemoryRepo()
	p := NewTrioProvider(client, profile.Trio{}, ctrl, snapshot.NewAssembler(client, ctrl, mapper), audit.NewService(repo))
	return p, srv, repo
}

func TestControlProperty_RestartAndReboot(t *testing.T) {
	p, srv, repo := newProvider(t)
	srv.Handle("POST", device.PathSafeRestart, devicetest.OK(nil))
	srv.Handle("POST", device.PathSafeReboot, devicetest.OK(nil))

	ctx := audit.WithActor(context.Background(), audit.Actor{Subject: "admin-1", Role: "admin"})
	if err := p.ControlProperty(ctx, ControllableProperty{Property: snapshot.ControlRestart}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := p.ControlProperty(ctx, ControllableProperty{Property: snapshot.ControlReboot}); err != nil {
		t.Fatalf("reboot: %v", err)
	}
	if len(srv.Calls(device.PathSafeRestart)) != 1 || len(srv.Calls(device.PathSafeReboot)) != 1 {
		t.Fatalf("expected one restart and one reboot request, got %v", srv.Calls(""))
	}

	evs := repo.Events()
	if len(evs) != 2 || evs[0].Type != audit.EventTypeRestart || evs[1].Type != audit.EventTypeReboot {
		t.Fatalf("unexpected audit events: %+v", evs)
	}
	if evs[0].Actor != "admin-1" || evs[0].Device == "" {
		t.Fatalf("expected actor and device on audit event: %+v", evs[0])
	}
}

func TestControlProperty_Unknown(t *testing.T) {
	p, srv, repo := newProvider(t)

	err := p.ControlProperty(context.Background(), ControllableProperty{Property: "FactoryReset"})
	if !errors.Is(err, ErrUnknownControl) {
		t.Fatalf("expected ErrUnknownControl, got %v", err)
	}
	if len(srv.Calls("")) != 0 || len(repo.Events()) != 0 {
		t.Fatalf("unknown control must not reach the device")
	}
}

func TestControlProperties(t *testing.T) {
	p, srv, _ := newProvider(t)
	srv.Handle("POST", device.PathSafeRestart, devicetest.Status("4003"))
	srv.Handle("POST", device.PathSafeReboot, devicetest.OK(nil))

	if err := p.ControlProperties(context.Background(), nil); !errors.Is(err, ErrInvalidControl) {
		t.Fatalf("expected ErrInvalidControl, got %v", err)
	}

	err := p.ControlProperties(context.Background(), []ControllableProperty{
		{Property: snapshot.ControlRestart},
		{Property: snapshot.ControlReboot},
	})
	if !errors.Is(err, device.ErrCommand) {
		t.Fatalf("expected command failure, got %v", err)
	}
	if len(srv.Calls(device.PathSafeReboot)) != 0 {
		t.Fatalf("controls after a failure must not run")
	}
}

func TestSendMessageNotImplemented(t *testing.T) {
	p, _, _ := newProvider(t)
	err := p.SendMessage(context.Background(), "0x1", "hello")
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	if errors.Is(err, device.ErrTransport) || errors.Is(err, device.ErrCommand) {
		t.Fatalf("not implemented must be distinguishable from device failures")
	}
}

func TestCallCommandsAreAudited(t *testing.T) {
	p, srv, repo := newProvider(t)
	srv.Handle("POST", device.PathMute, devicetest.OK(nil))
	srv.Handle("POST", device.PathEndCall, devicetest.Status("5000"))

	if err := p.Mute(context.Background()); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if err := p.Unmute(context.Background()); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if err := p.Hangup(context.Background(), "0x1"); err == nil {
		t.Fatalf("expected hangup failure")
	}

	evs := repo.Events()
	if len(evs) != 3 {
		t.Fatalf("expected 3 audit events, got %d", len(evs))
	}
	if evs[2].Type != audit.EventTypeHangup || evs[2].Outcome != audit.OutcomeFailed || evs[2].CallID != "0x1" {
		t.Fatalf("unexpected hangup event: %+v", evs[2])
	}
}

func TestHealthCheck(t *testing.T) {
	p, srv, _ := newProvider(t)
	srv.Handle("GET", device.PathPollStatus, devicetest.OK(map[string]any{"State": "Idle"}), devicetest.Status("5000"))

	if err := p.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Fatalf("expected health check failure")
	}
	if p.Name() != "polycom-trio" {
		t.Fatalf("unexpected name %q", p.Name())
	}
}
