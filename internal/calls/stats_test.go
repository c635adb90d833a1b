package calls

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trio-driver/internal/device"
	"trio-driver/internal/device/devicetest"
	"trio-driver/internal/profile"
	"trio-driver/internal/telemetry"
)

func voiceStream() map[string]any {
	return map[string]any{
		"Ref": callID, "Jitter": "1", "Category": "0:Voice",
		"PacketsSent": "243", "PacketsExpected": "245", "PacketsReceived": "244",
		"RxCodec": "3:G.722.1", "TxCodec": "3:G.722.1", "PacketsLost": "1",
	}
}

func videoStream() map[string]any {
	return map[string]any{
		"Ref": callID, "Jitter": "1", "Category": "1:Video",
		"PacketsSent": "0", "PacketsExpected": "136", "PacketsReceived": "136", "PacketsLost": "1",
		"VideoRxFrameWidth": "320", "VideoRxFrameHeight": "180", "VideoRxFramerate": "16",
		"VideoTxFrameWidth": "1280", "VideoTxFrameHeight": "720", "VideoTxFramerate": "0",
		"VideoRxActBitrateKbps": "319", "VideoTxActBitrateKbps": "0", "VideoTxConfigBitrateKbps": "448",
		"RxCodec": "24:H.264", "TxCodec": "24:H.264",
	}
}

func idleVideoStream() map[string]any {
	return map[string]any{
		"Category": "1:Video", "PacketsSent": "0", "PacketsExpected": "0", "PacketsReceived": "0",
	}
}

func session(ref string, streams ...map[string]any) map[string]any {
	list := make([]any, 0, len(streams))
	for _, s := range streams {
		list = append(list, s)
	}
	return map[string]any{"Ref": ref, "Streams": list}
}

func scriptInCall(srv *devicetest.Server, firmware string, sessions ...any) {
	srv.Handle("GET", device.PathCallStatus, devicetest.OK(connectedCall("SIP:room@example.com")))
	srv.Handle("GET", device.PathDeviceInfo, devicetest.OK(map[string]any{"FirmwareRelease": firmware}))
	srv.Handle("GET", device.PathSessionStats, devicetest.OK(sessions))
	srv.Handle("GET", device.PathCommunicationInfo, devicetest.OK(map[string]any{"PhoneMuteState": "True"}))
	srv.Handle("POST", device.PathConfigGet, devicetest.OK(map[string]any{
		"video.callRate": map[string]any{"Value": "1024", "Source": "default"},
	}))
}

func TestPopulateCallStats_AudioAndVideo(t *testing.T) {
	ctrl, srv := newController(t, profile.Trio{})
	scriptInCall(srv, "5.9.0.12345",
		session("0xother", voiceStream()),
		session(callID, voiceStream(), videoStream()),
	)

	var stats telemetry.EndpointStatistics
	require.NoError(t, ctrl.PopulateCallStats(context.Background(), &stats))

	assert.True(t, stats.InCall)
	require.NotNil(t, stats.Call)
	assert.Equal(t, callID, stats.Call.CallID)
	assert.Equal(t, "SIP", stats.Call.Protocol)
	assert.Equal(t, 319, *stats.Call.CallRateRx)
	assert.Equal(t, 0, *stats.Call.CallRateTx)
	// trio does not trust the reported rate; it comes from configuration
	assert.Equal(t, 1024, *stats.Call.RequestedCallRate)
	require.NotNil(t, stats.Call.PercentPacketLossRx)
	assert.InDelta(t, 0.5249344, *stats.Call.PercentPacketLossRx, 1e-6)

	require.NotNil(t, stats.Audio)
	assert.Equal(t, "G.722.1", stats.Audio.Codec)
	require.NotNil(t, stats.Audio.MuteTx)
	assert.True(t, *stats.Audio.MuteTx)

	require.NotNil(t, stats.Video)
	assert.Equal(t, "H.264", stats.Video.Codec)
	assert.Equal(t, "320x180", stats.Video.FrameSizeRx)
	assert.Equal(t, "1280x720", stats.Video.FrameSizeTx)
	assert.Len(t, srv.Calls(device.PathConfigGet), 1)
}

func TestPopulateCallStats_VVXUsesReportedRate(t *testing.T) {
	ctrl, srv := newController(t, profile.VVX{})
	scriptInCall(srv, "", session(callID, voiceStream(), videoStream()))

	var stats telemetry.EndpointStatistics
	require.NoError(t, ctrl.PopulateCallStats(context.Background(), &stats))

	assert.Equal(t, 448, *stats.Call.RequestedCallRate)
	assert.Empty(t, srv.Calls(device.PathConfigGet))
	assert.Empty(t, srv.Calls(device.PathDeviceInfo), "vvx never checks the firmware version")
}

func TestPopulateCallStats_VVXZeroReportedRateUsesConfig(t *testing.T) {
	ctrl, srv := newController(t, profile.VVX{})
	video := videoStream()
	video["VideoTxConfigBitrateKbps"] = "0"
	scriptInCall(srv, "", session(callID, voiceStream(), video))

	var stats telemetry.EndpointStatistics
	require.NoError(t, ctrl.PopulateCallStats(context.Background(), &stats))

	require.NotNil(t, stats.Video)
	require.NotNil(t, stats.Call.RequestedCallRate)
	assert.Equal(t, 1024, *stats.Call.RequestedCallRate)
	assert.Len(t, srv.Calls(device.PathConfigGet), 1)
}

func TestPopulateCallStats_OldFirmwareSkipsSessions(t *testing.T) {
	ctrl, srv := newController(t, profile.Trio{})
	scriptInCall(srv, "5.7.2.1000", session(callID, voiceStream()))

	var stats telemetry.EndpointStatistics
	require.NoError(t, ctrl.PopulateCallStats(context.Background(), &stats))

	assert.True(t, stats.InCall)
	assert.NotNil(t, stats.Call)
	assert.Nil(t, stats.Audio)
	assert.Nil(t, stats.Video)
	assert.Empty(t, srv.Calls(device.PathSessionStats))
}

func TestPopulateCallStats_AudioOnlyCall(t *testing.T) {
	ctrl, srv := newController(t, profile.Trio{})
	scriptInCall(srv, "5.8.0.1", session(callID, voiceStream(), idleVideoStream()))

	var stats telemetry.EndpointStatistics
	require.NoError(t, ctrl.PopulateCallStats(context.Background(), &stats))

	require.NotNil(t, stats.Audio)
	assert.Nil(t, stats.Video)
	assert.Nil(t, stats.Call.CallRateRx)
	assert.Nil(t, stats.Call.RequestedCallRate)
	require.NotNil(t, stats.Call.PercentPacketLossRx)
	assert.InDelta(t, 1.0/245*100, *stats.Call.PercentPacketLossRx, 1e-9)
	assert.Empty(t, srv.Calls(device.PathConfigGet))
}

func TestPopulateCallStats_EmptySessionsEndsCall(t *testing.T) {
	ctrl, srv := newController(t, profile.Trio{})
	scriptInCall(srv, "5.9.0.1")

	stats := telemetry.EndpointStatistics{}
	require.NoError(t, ctrl.PopulateCallStats(context.Background(), &stats))
	assert.False(t, stats.InCall)
	assert.Nil(t, stats.Call)
}

func TestPopulateCallStats_NoCall(t *testing.T) {
	ctrl, srv := newController(t, profile.Trio{})
	srv.Handle("GET", device.PathCallStatus, devicetest.Status("4007"))

	stats := telemetry.EndpointStatistics{InCall: true}
	require.NoError(t, ctrl.PopulateCallStats(context.Background(), &stats))
	assert.False(t, stats.InCall)
	assert.Nil(t, stats.Call)
	assert.Len(t, srv.Calls(""), 1)
}

func TestPopulateCallStats_NotConnectedIsNotInCall(t *testing.T) {
	ctrl, srv := newController(t, profile.Trio{})
	srv.Handle("GET", device.PathCallStatus, devicetest.OK(map[string]any{"CallHandle": callID, "CallState": "Dialing"}))

	var stats telemetry.EndpointStatistics
	require.NoError(t, ctrl.PopulateCallStats(context.Background(), &stats))
	assert.False(t, stats.InCall)
}

func TestPopulateCallStats_SessionFailurePropagates(t *testing.T) {
	ctrl, srv := newController(t, profile.Trio{})
	scriptInCall(srv, "5.9.0.1")
	srv.Handle("GET", device.PathSessionStats, devicetest.Status("5000"))

	var stats telemetry.EndpointStatistics
	err := ctrl.PopulateCallStats(context.Background(), &stats)
	assert.ErrorIs(t, err, device.ErrCommand)
}
