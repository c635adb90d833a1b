// Package snapshot assembles one point-in-time view of the phone: flat
// device statistics, available controls and endpoint statistics.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trio-driver/internal/metrics"
	"trio-driver/internal/telemetry"
	"trio-driver/pkg/logger"
)

// Controls the phone accepts.
const (
	ControlRestart = "RestartDevice"
	ControlReboot  = "RebootDevice"
)

// MaxDeviceRequests is the most device requests one Assemble issues: five
// mapped groups, line info, call status, firmware version, session stats,
// mute state and the configured call rate.
const MaxDeviceRequests = 11

const controlGracePeriod = 30 * time.Second

// Control describes a button the monitoring side may press.
type Control struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Label        string `json:"label"`
	LabelPressed string `json:"label_pressed"`
	// GracePeriodMs is how long the caller should wait for the phone to
	// come back after pressing.
	GracePeriodMs int64 `json:"grace_period_ms"`
}

type Snapshot struct {
	ID          string                       `json:"id"`
	CollectedAt time.Time                    `json:"collected_at"`
	Statistics  map[string]string            `json:"statistics"`
	Controls    []Control                    `json:"controls"`
	Endpoint    telemetry.EndpointStatistics `json:"endpoint"`
}

// Device is the part of the phone API the assembler reads.
type Device interface {
	DeviceInfo(ctx context.Context) (telemetry.Object, error)
	NetworkStats(ctx context.Context) (telemetry.Object, error)
	RunningConfig(ctx context.Context) (telemetry.Object, error)
	PollStatus(ctx context.Context) (telemetry.Object, error)
	TransferType(ctx context.Context) (telemetry.Object, error)
	LineInfo(ctx context.Context) ([]telemetry.Object, error)
}

// CallStats fills call and media statistics.
type CallStats interface {
	PopulateCallStats(ctx context.Context, stats *telemetry.EndpointStatistics) error
}

type Assembler struct {
	dev     Device
	calls   CallStats
	mapper  *Mapper
	metrics *metrics.Collector
	now     func() time.Time
}

type Option func(*Assembler)

func WithMetrics(m *metrics.Collector) Option { return func(a *Assembler) { a.metrics = m } }

func WithClock(now func() time.Time) Option { return func(a *Assembler) { a.now = now } }

func NewAssembler(dev Device, calls CallStats, mapper *Mapper, opts ...Option) *Assembler {
	a := &Assembler{dev: dev, calls: calls, mapper: mapper, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble collects a full snapshot. Any failing request aborts it; partial
// snapshots are never returned.
func (a *Assembler) Assemble(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	snap, err := a.assemble(ctx)
	a.metrics.ObserveSnapshot(time.Since(start), err)
	if err != nil {
		logger.From(ctx).Warn("snapshot failed", "err", err)
		return Snapshot{}, err
	}
	logger.From(ctx).Debug("snapshot collected",
		"snapshot_id", snap.ID,
		"in_call", snap.Endpoint.InCall,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}

func (a *Assembler) assemble(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		ID:          uuid.NewString(),
		CollectedAt: a.now().UTC(),
		Statistics:  map[string]string{},
	}

	sources := []struct {
		group string
		fetch func(context.Context) (telemetry.Object, error)
	}{
		{GroupDeviceInfo, a.dev.DeviceInfo},
		{GroupNetworkInfo, a.dev.NetworkStats},
		{GroupRunningConfig, a.dev.RunningConfig},
		{GroupDeviceStatus, a.dev.PollStatus},
		{GroupTransferType, a.dev.TransferType},
	}
	for _, src := range sources {
		data, err := src.fetch(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("snapshot %s: %w", src.group, err)
		}
		a.mapper.Apply(snap.Statistics, src.group, data)
	}
	for _, key := range []string{GroupDeviceInfo + "#Uptime", GroupNetworkInfo + "#Uptime"} {
		if v, ok := snap.Statistics[key]; ok {
			snap.Statistics[key] = telemetry.NormalizeUptime(v)
		}
	}

	snap.Controls = controls()
	for _, c := range snap.Controls {
		snap.Statistics[c.Name] = ""
	}

	lines, err := a.dev.LineInfo(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot line info: %w", err)
	}
	snap.Endpoint.Registration = telemetry.ParseRegistration(lines)

	if err := a.calls.PopulateCallStats(ctx, &snap.Endpoint); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot call stats: %w", err)
	}
	return snap, nil
}

func controls() []Control {
	return []Control{
		button(ControlRestart, "Restart", "Restarting..."),
		button(ControlReboot, "Reboot", "Rebooting..."),
	}
}

func button(name, label, pressed string) Control {
	return Control{
		Name:          name,
		Type:          "button",
		Label:         label,
		LabelPressed:  pressed,
		GracePeriodMs: controlGracePeriod.Milliseconds(),
	}
}
