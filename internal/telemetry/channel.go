package telemetry

import "strings"

const (
	keyRef             = "Ref"
	keyStreams         = "Streams"
	keyCategory        = "Category"
	keyTxCodec         = "TxCodec"
	keyJitter          = "Jitter"
	keyPacketsLost     = "PacketsLost"
	keyPacketsExpected = "PacketsExpected"
	keyPacketsSent     = "PacketsSent"
	keyPacketsReceived = "PacketsReceived"

	keyVideoRxBitrate     = "VideoRxActBitrateKbps"
	keyVideoTxBitrate     = "VideoTxActBitrateKbps"
	keyVideoRxFramerate   = "VideoRxFramerate"
	keyVideoTxFramerate   = "VideoTxFramerate"
	keyVideoRxFrameWidth  = "VideoRxFrameWidth"
	keyVideoRxFrameHeight = "VideoRxFrameHeight"
	keyVideoTxFrameWidth  = "VideoTxFrameWidth"
	keyVideoTxFrameHeight = "VideoTxFrameHeight"

	// KeyVideoTxConfigBitrate is the configured video rate some models report
	// on the video stream.
	KeyVideoTxConfigBitrate = "VideoTxConfigBitrateKbps"

	categoryVoice = "Voice"
	categoryVideo = "Video"
)

// Streams holds the media streams picked for one call.
type Streams struct {
	Audio Object
	// Video lists the video streams in session order. The first one that
	// carries traffic is reported.
	Video []Object
}

// SelectStreams finds the media session of the call and returns its voice and
// video streams. The category carries an undocumented numeric prefix
// ("0:Voice", "1:Video"), so only the suffix is compared. ok is false when no
// session matches the call handle.
func SelectStreams(sessions []Object, callID string) (Streams, bool) {
	for _, session := range sessions {
		if session.Text(keyRef) != callID {
			continue
		}
		var out Streams
		for _, stream := range session.Objects(keyStreams) {
			category := stream.Text(keyCategory)
			switch {
			case strings.HasSuffix(category, categoryVoice):
				if out.Audio == nil {
					out.Audio = stream
				}
			case strings.HasSuffix(category, categoryVideo):
				out.Video = append(out.Video, stream)
			}
		}
		return out, true
	}
	return Streams{}, false
}

// ParseAudioChannel parses a voice stream. The codec is the same in both
// directions so only TxCodec is read.
func ParseAudioChannel(stream Object) AudioChannelStats {
	var out AudioChannelStats
	if codec := stream.Text(keyTxCodec); codec != "" {
		out.Codec = CleanCodec(codec)
	}
	out.JitterRx = stream.Float(keyJitter)
	out.PacketLossRx = stream.Int(keyPacketsLost)
	return out
}

// HasVideoTraffic reports whether a video stream actually carries media. The
// phone reports a zero-filled video stream on audio-only calls, so presence of
// the stream means nothing. Counters are checked in order: expected, sent,
// received; a positive requested rate also counts as video.
func HasVideoTraffic(stream Object, requestedRate *int) bool {
	for _, key := range []string{keyPacketsExpected, keyPacketsSent, keyPacketsReceived} {
		if n := stream.Int(key); n != nil && *n > 0 {
			return true
		}
	}
	return requestedRate != nil && *requestedRate > 0
}

// ParseVideoChannel parses a video stream, or returns nil if the stream has no
// traffic. requestedRate is the model-specific requested call rate, if any.
func ParseVideoChannel(stream Object, requestedRate *int) *VideoChannelStats {
	if !HasVideoTraffic(stream, requestedRate) {
		return nil
	}
	out := &VideoChannelStats{
		BitRateRx:    stream.Int(keyVideoRxBitrate),
		BitRateTx:    stream.Int(keyVideoTxBitrate),
		FrameRateRx:  stream.Float(keyVideoRxFramerate),
		FrameRateTx:  stream.Float(keyVideoTxFramerate),
		FrameSizeRx:  frameSize(stream, keyVideoRxFrameWidth, keyVideoRxFrameHeight),
		FrameSizeTx:  frameSize(stream, keyVideoTxFrameWidth, keyVideoTxFrameHeight),
		JitterRx:     stream.Float(keyJitter),
		PacketLossRx: stream.Int(keyPacketsLost),
	}
	if codec := stream.Text(keyTxCodec); codec != "" {
		out.Codec = CleanCodec(codec)
	}
	return out
}

// PacketsExpected returns the expected packet counter of a stream.
func PacketsExpected(stream Object) *int {
	if stream == nil {
		return nil
	}
	return stream.Int(keyPacketsExpected)
}

// PacketLossPercent derives receive packet loss across audio and video:
// (audioLost + videoLost) / (audioExpected + videoExpected) * 100.
// Missing components contribute zero. The result is nil when nothing was
// expected or no loss counter is known.
func PacketLossPercent(audioLost, videoLost, audioExpected, videoExpected *int) *float64 {
	if audioLost == nil && videoLost == nil {
		return nil
	}
	expected := valueOr(audioExpected) + valueOr(videoExpected)
	if expected <= 0 {
		return nil
	}
	lost := valueOr(audioLost) + valueOr(videoLost)
	pct := float64(lost) / float64(expected) * 100
	return &pct
}

func frameSize(stream Object, widthKey, heightKey string) string {
	w, h := stream.Text(widthKey), stream.Text(heightKey)
	if w == "" || h == "" {
		return ""
	}
	return w + "x" + h
}

func valueOr(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
