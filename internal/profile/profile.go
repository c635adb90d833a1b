// Package profile holds the behavior that differs between phone families
// sharing the same REST API.
package profile

import (
	"context"
	"fmt"
	"strings"

	"trio-driver/internal/telemetry"
)

// VersionFunc fetches the firmware version; nil means unknown.
type VersionFunc func(ctx context.Context) (*telemetry.Version, error)

type Profile interface {
	Name() string
	// ReportedVideoCallRate returns the requested call rate if the model
	// reports a trustworthy one on the video stream, else nil.
	ReportedVideoCallRate(stream telemetry.Object) *int
	// CanRetrieveInCallStats reports whether sessionStats may be queried.
	CanRetrieveInCallStats(ctx context.Context, version VersionFunc) (bool, error)
}

const (
	ModelTrio = "trio"
	ModelVVX  = "vvx"
)

// ForModel returns the profile for a model family name.
func ForModel(model string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(model)) {
	case "", ModelTrio:
		return Trio{}, nil
	case ModelVVX:
		return VVX{}, nil
	default:
		return nil, fmt.Errorf("profile: unknown model %q", model)
	}
}

// Trio firmware before 5.8 freezes when sessionStats is queried during a
// call, and every release so far reports a bogus configured video rate.
type Trio struct{}

const (
	trioStatsMajor = 5
	trioStatsMinor = 8
)

func (Trio) Name() string { return ModelTrio }

func (Trio) ReportedVideoCallRate(telemetry.Object) *int { return nil }

func (Trio) CanRetrieveInCallStats(ctx context.Context, version VersionFunc) (bool, error) {
	v, err := version(ctx)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	return v.AtLeast(trioStatsMajor, trioStatsMinor), nil
}

// VVX reports the configured video rate and has no sessionStats bug.
type VVX struct{}

func (VVX) Name() string { return ModelVVX }

func (VVX) ReportedVideoCallRate(stream telemetry.Object) *int {
	return stream.Int(telemetry.KeyVideoTxConfigBitrate)
}

func (VVX) CanRetrieveInCallStats(context.Context, VersionFunc) (bool, error) { return true, nil }
