package calls

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"trio-driver/internal/telemetry"
	"trio-driver/pkg/logger"
)

// PopulateCallStats fills the call, audio and video statistics of stats.
// Media statistics are only queried when the profile allows it for the
// connected phone.
func (c *Controller) PopulateCallStats(ctx context.Context, stats *telemetry.EndpointStatistics) error {
	status, err := c.dev.CallStatus(ctx)
	if err != nil {
		return fmt.Errorf("call stats: %w", err)
	}
	call := telemetry.ParseCallStats(status)
	if call == nil {
		stats.InCall = false
		stats.Call = nil
		return nil
	}
	stats.InCall = true
	stats.Call = call
	c.fire(ctx, eventConnect)

	allowed, err := c.profile.CanRetrieveInCallStats(ctx, c.SoftwareVersion)
	if err != nil {
		return fmt.Errorf("call stats: %w", err)
	}
	if !allowed {
		logger.From(ctx).Debug("in-call statistics not supported by firmware", "profile", c.profile.Name())
		return nil
	}

	sessions, err := c.dev.SessionStats(ctx)
	if err != nil {
		return fmt.Errorf("session stats: %w", err)
	}
	return c.applySessions(ctx, stats, sessions)
}

// applySessions merges media session statistics into stats. An empty session
// list means the call ended between the two requests.
func (c *Controller) applySessions(ctx context.Context, stats *telemetry.EndpointStatistics, sessions []telemetry.Object) error {
	if len(sessions) == 0 {
		stats.InCall = false
		stats.Call = nil
		return nil
	}
	call := stats.Call
	streams, ok := telemetry.SelectStreams(sessions, call.CallID)
	if !ok {
		return nil
	}

	var audio *telemetry.AudioChannelStats
	if streams.Audio != nil {
		a := telemetry.ParseAudioChannel(streams.Audio)
		mute, known, err := c.RetrieveMuteStatus(ctx)
		if err != nil {
			return err
		}
		if known {
			muted := mute == telemetry.Muted
			a.MuteTx = &muted
		}
		audio = &a
	}

	var (
		video       *telemetry.VideoChannelStats
		videoStream telemetry.Object
		requested   *int
	)
	for _, s := range streams.Video {
		reported := c.profile.ReportedVideoCallRate(s)
		if reported != nil && *reported <= 0 {
			// a zero rate is a firmware placeholder; fall back to configuration
			reported = nil
		}
		if v := telemetry.ParseVideoChannel(s, reported); v != nil {
			video, videoStream, requested = v, s, reported
			break
		}
	}
	if video != nil {
		if requested == nil {
			rate, err := c.configuredCallRate(ctx)
			if err != nil {
				return err
			}
			requested = rate
		}
		call.CallRateRx = video.BitRateRx
		call.CallRateTx = video.BitRateTx
		call.RequestedCallRate = requested
	}

	var audioLost, videoLost *int
	if audio != nil {
		audioLost = audio.PacketLossRx
	}
	if video != nil {
		videoLost = video.PacketLossRx
	}
	call.PercentPacketLossRx = telemetry.PacketLossPercent(
		audioLost, videoLost,
		telemetry.PacketsExpected(streams.Audio), telemetry.PacketsExpected(videoStream),
	)

	stats.Audio = audio
	stats.Video = video
	return nil
}

// configuredCallRate reads the video call rate from the phone configuration.
func (c *Controller) configuredCallRate(ctx context.Context) (*int, error) {
	values, err := c.dev.ConfigValues(ctx, configVideoCallRate)
	if err != nil {
		return nil, fmt.Errorf("video call rate: %w", err)
	}
	v, ok := values[configVideoCallRate]
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.Value))
	if err != nil {
		logger.From(ctx).Debug("unparseable video call rate", "value", v.Value)
		return nil, nil
	}
	return &n, nil
}
