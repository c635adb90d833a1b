package telemetry

import (
	"encoding/json"
	"math"
	"testing"
)

func mustObject(t *testing.T, raw string) Object {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return Object(m)
}

const voiceStream = `{
	"Ref": "0xb4e5dfa0", "Jitter": "1", "Category": "0:Voice",
	"PacketsSent": "243", "PacketsExpected": "245", "PacketsReceived": "244",
	"RxCodec": "3:G.722.1", "TxCodec": "3:G.722.1", "PacketsLost": "1"
}`

const videoStream = `{
	"Ref": "0xb4e5dfa0", "VideoRxFrameWidth": "320", "Jitter": "1", "Category": "1:Video",
	"PacketsSent": "0", "PacketsExpected": "136", "VideoTxFramerate": "0", "VideoRxFramerate": "16",
	"PacketsReceived": "136", "VideoTxActBitrateKbps": "0", "RxCodec": "24:H.264", "PacketsLost": "1",
	"TxCodec": "24:H.264", "VideoTxFrameWidth": "1280", "VideoTxFrameHeight": "720",
	"VideoTxConfigBitrateKbps": "448", "VideoRxFrameHeight": "180", "VideoRxActBitrateKbps": "319"
}`

const idleVideoStream = `{
	"Category": "1:Video", "PacketsSent": "0", "PacketsExpected": "0", "PacketsReceived": "0",
	"TxCodec": "3:G.722.1"
}`

func TestNormalizeUptime(t *testing.T) {
	cases := map[string]string{
		"0 day 0:34:33":   "0 day(s) 0 hour(s) 34 minute(s) 33 second(s)",
		"0 Day 22:02:09":  "0 day(s) 22 hour(s) 02 minute(s) 09 second(s)",
		"12 DAY 1:2:3":    "12 day(s) 1 hour(s) 2 minute(s) 3 second(s)",
		"garbage":         "garbage",
		"":                "",
		"3 days 01:02:03": "3 days 01:02:03",
	}
	for in, want := range cases {
		if got := NormalizeUptime(in); got != want {
			t.Fatalf("NormalizeUptime(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanCodec(t *testing.T) {
	cases := map[string]string{
		"3:G.722.1": "G.722.1",
		"24:H.264":  "H.264",
		"noColon":   "noColon",
		":leading":  ":leading",
		"1:a:b":     "a:b",
	}
	for in, want := range cases {
		if got := CleanCodec(in); got != want {
			t.Fatalf("CleanCodec(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	v, ok := ParseVersion("5.7.1.4145")
	if !ok {
		t.Fatalf("expected version")
	}
	if v.Major != 5 || v.Minor != 7 || v.Patch != 1 || v.Build != 4145 {
		t.Fatalf("unexpected version: %+v", v)
	}
	if v.String() != "5.7.1.4145" {
		t.Fatalf("unexpected string %q", v.String())
	}

	short, ok := ParseVersion("6.1")
	if !ok || short.Major != 6 || short.Minor != 1 || short.Patch != 0 {
		t.Fatalf("unexpected short version: %+v ok=%v", short, ok)
	}
	if _, ok := ParseVersion(""); ok {
		t.Fatalf("empty string must not parse")
	}
	if _, ok := ParseVersion("beta"); ok {
		t.Fatalf("non-numeric major must not parse")
	}
}

func TestVersionOrdering(t *testing.T) {
	a, _ := ParseVersion("5.8.0.100")
	b, _ := ParseVersion("5.10.0.1")
	if a.Compare(b) >= 0 {
		t.Fatalf("expected 5.8 < 5.10")
	}
	if !a.AtLeast(5, 8) || a.AtLeast(5, 9) {
		t.Fatalf("AtLeast mismatch for %s", a)
	}
	if a.Compare(a) != 0 {
		t.Fatalf("version must equal itself")
	}
}

func TestVersionFromDeviceInfo(t *testing.T) {
	if VersionFromDeviceInfo(nil) != nil {
		t.Fatalf("nil data must give nil version")
	}
	if VersionFromDeviceInfo(Object{}) != nil {
		t.Fatalf("empty data must give nil version")
	}
	data := mustObject(t, `{"ModelNumber": "Trio 8800", "FirmwareRelease": "5.7.1.4145", "AttachedHardware": {}}`)
	v := VersionFromDeviceInfo(data)
	if v == nil || v.Major != 5 || v.Minor != 7 || v.Build != 4145 {
		t.Fatalf("unexpected version: %+v", v)
	}
}

func TestParseCallStats_Connected(t *testing.T) {
	data := mustObject(t, `{
		"CallHandle": "0xb53e57c0", "Type": "Incoming", "Protocol": "Auto",
		"CallState": "Connected", "LineId": "1", "RemotePartyName": "nh-sx80@nh.vnoc1.com",
		"RemotePartyNumber": "nh-sx80", "DurationInSeconds": "308"
	}`)
	stats := ParseCallStats(data)
	if stats == nil {
		t.Fatalf("expected call stats")
	}
	if stats.CallID != "0xb53e57c0" || stats.Protocol != "Auto" || stats.RemoteAddress != "nh-sx80" {
		t.Fatalf("unexpected call stats: %+v", stats)
	}
	if stats.CallRateRx != nil || stats.CallRateTx != nil || stats.RequestedCallRate != nil || stats.PercentPacketLossRx != nil {
		t.Fatalf("rates must stay unset: %+v", stats)
	}
}

func TestParseCallStats_InfersProtocolFromPrefix(t *testing.T) {
	data := mustObject(t, `{"CallHandle": "0x1", "Protocol": "Auto", "CallState": "connected", "RemotePartyNumber": "sip:NH-SX80@nh.vnoc1.com"}`)
	stats := ParseCallStats(data)
	if stats == nil || stats.Protocol != ProtocolSIP {
		t.Fatalf("expected SIP, got %+v", stats)
	}

	data = mustObject(t, `{"CallHandle": "0x1", "CallState": "Connected", "RemotePartyNumber": "h323:room"}`)
	if stats := ParseCallStats(data); stats == nil || stats.Protocol != ProtocolH323 {
		t.Fatalf("expected H323 when protocol missing, got %+v", stats)
	}

	data = mustObject(t, `{"CallHandle": "0x1", "Protocol": "Sip", "CallState": "Connected", "RemotePartyNumber": "tel:123"}`)
	if stats := ParseCallStats(data); stats == nil || stats.Protocol != "Sip" {
		t.Fatalf("explicit protocol must be kept, got %+v", stats)
	}
}

func TestParseCallStats_NotConnected(t *testing.T) {
	for _, state := range []string{"Dialing", "Proceeding", "Disconnected", ""} {
		data := Object{"CallHandle": "0x1", "CallState": state}
		if stats := ParseCallStats(data); stats != nil {
			t.Fatalf("state %q must not produce call stats", state)
		}
	}
	if ParseCallStats(nil) != nil {
		t.Fatalf("nil payload must not produce call stats")
	}
}

func TestParseAudioChannel(t *testing.T) {
	audio := ParseAudioChannel(mustObject(t, voiceStream))
	if audio.Codec != "G.722.1" {
		t.Fatalf("codec = %q", audio.Codec)
	}
	if audio.JitterRx == nil || *audio.JitterRx != 1 {
		t.Fatalf("jitter = %v", audio.JitterRx)
	}
	if audio.PacketLossRx == nil || *audio.PacketLossRx != 1 {
		t.Fatalf("packet loss = %v", audio.PacketLossRx)
	}
}

func TestParseVideoChannel(t *testing.T) {
	video := ParseVideoChannel(mustObject(t, videoStream), nil)
	if video == nil {
		t.Fatalf("expected video stats")
	}
	if video.Codec != "H.264" || video.FrameSizeRx != "320x180" || video.FrameSizeTx != "1280x720" {
		t.Fatalf("unexpected video stats: %+v", video)
	}
	if *video.BitRateRx != 319 || *video.BitRateTx != 0 || *video.FrameRateRx != 16 || *video.FrameRateTx != 0 {
		t.Fatalf("unexpected rates: %+v", video)
	}
	if *video.PacketLossRx != 1 || *video.JitterRx != 1 {
		t.Fatalf("unexpected loss/jitter: %+v", video)
	}
}

func TestParseVideoChannel_NoTraffic(t *testing.T) {
	idle := mustObject(t, idleVideoStream)
	if ParseVideoChannel(idle, nil) != nil {
		t.Fatalf("zero-filled stream must not produce video stats")
	}
	zero := 0
	if ParseVideoChannel(idle, &zero) != nil {
		t.Fatalf("zero requested rate must not count as video")
	}
	rate := 448
	if ParseVideoChannel(idle, &rate) == nil {
		t.Fatalf("positive requested rate must count as video")
	}
}

func TestHasVideoTraffic_Precedence(t *testing.T) {
	cases := []struct {
		name string
		obj  Object
		want bool
	}{
		{"expected", Object{"PacketsExpected": "5", "PacketsSent": "0"}, true},
		{"sent", Object{"PacketsExpected": "0", "PacketsSent": "3"}, true},
		{"received", Object{"PacketsReceived": "2"}, true},
		{"unparseable", Object{"PacketsExpected": "v"}, false},
		{"none", Object{}, false},
	}
	for _, tc := range cases {
		if got := HasVideoTraffic(tc.obj, nil); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSelectStreams_FirstMatchBySuffix(t *testing.T) {
	session := Object{
		"Ref": "0xb53e57c0",
		"Streams": []any{
			map[string]any(mustObject(t, voiceStream)),
			map[string]any(mustObject(t, idleVideoStream)),
			map[string]any(mustObject(t, videoStream)),
			map[string]any{"Category": "7:Voice", "TxCodec": "9:G.711"},
		},
	}
	other := Object{"Ref": "0xdead", "Streams": []any{}}

	streams, ok := SelectStreams([]Object{other, session}, "0xb53e57c0")
	if !ok {
		t.Fatalf("expected matching session")
	}
	if streams.Audio.Text("TxCodec") != "3:G.722.1" {
		t.Fatalf("expected first voice stream, got %v", streams.Audio)
	}
	if len(streams.Video) != 2 {
		t.Fatalf("expected both video streams, got %d", len(streams.Video))
	}

	if _, ok := SelectStreams([]Object{other}, "0xb53e57c0"); ok {
		t.Fatalf("unexpected match")
	}
}

func TestPacketLossPercent(t *testing.T) {
	one, audioExp, videoExp := 1, 245, 136
	got := PacketLossPercent(&one, &one, &audioExp, &videoExp)
	want := float64(1+1) / float64(245+136) * 100
	if got == nil || math.Abs(*got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
	if math.Abs(*got-0.5249344) > 1e-6 {
		t.Fatalf("unexpected value %v", *got)
	}

	if got := PacketLossPercent(&one, nil, &audioExp, nil); got == nil || math.Abs(*got-100.0/245) > 1e-9 {
		t.Fatalf("audio only: got %v", got)
	}
	if PacketLossPercent(nil, nil, &audioExp, &videoExp) != nil {
		t.Fatalf("no loss counters must give nil")
	}
	zero := 0
	if PacketLossPercent(&one, nil, &zero, nil) != nil {
		t.Fatalf("zero expected must give nil")
	}
}

func TestParseRegistration(t *testing.T) {
	lines := []Object{
		{"SIPAddress": "7771991022@nh.vnoc1.com", "RegistrationStatus": "unregistered", "LineNumber": "1"},
		{"ProxyAddress": "proxy.example.com", "RegistrationStatus": "Registered", "SIPAddress": "other@x"},
	}
	reg := ParseRegistration(lines)
	if reg == nil {
		t.Fatalf("expected registration")
	}
	if reg.SIPRegistrar != "proxy.example.com" {
		t.Fatalf("registrar = %q", reg.SIPRegistrar)
	}
	if reg.SIPRegistered == nil || *reg.SIPRegistered {
		t.Fatalf("first line's state must win: %v", reg.SIPRegistered)
	}
	if reg.SIPDetails != "SIPAddress: 7771991022@nh.vnoc1.com" {
		t.Fatalf("details = %q", reg.SIPDetails)
	}
	if ParseRegistration(nil) != nil {
		t.Fatalf("empty list must give nil")
	}
}

func TestParseMuteStatus(t *testing.T) {
	if s, ok := ParseMuteStatus(Object{"PhoneMuteState": "True"}); !ok || s != Muted {
		t.Fatalf("expected muted, got %v %v", s, ok)
	}
	if s, ok := ParseMuteStatus(Object{"PhoneMuteState": "false"}); !ok || s != Unmuted {
		t.Fatalf("expected unmuted, got %v %v", s, ok)
	}
	if _, ok := ParseMuteStatus(Object{"PhoneMuteState": " "}); ok {
		t.Fatalf("blank must be unknown")
	}
	if _, ok := ParseMuteStatus(nil); ok {
		t.Fatalf("nil must be unknown")
	}
}

func TestObjectExtractors(t *testing.T) {
	o := mustObject(t, `{"s": "42", "n": 7, "f": "16.5", "bad": "v", "list": [{"a": "1"}, 3, {"b": "2"}], "nested": {"x": "y"}}`)
	if n := o.Int("s"); n == nil || *n != 42 {
		t.Fatalf("Int(s) = %v", n)
	}
	if n := o.Int("n"); n == nil || *n != 7 {
		t.Fatalf("Int(n) = %v", n)
	}
	if f := o.Float("f"); f == nil || *f != 16.5 {
		t.Fatalf("Float(f) = %v", f)
	}
	if o.Int("bad") != nil || o.Float("bad") != nil || o.Int("missing") != nil {
		t.Fatalf("invalid values must be nil")
	}
	if got := len(o.Objects("list")); got != 2 {
		t.Fatalf("Objects(list) len = %d", got)
	}
	if o.Object("nested").Text("x") != "y" {
		t.Fatalf("nested lookup failed")
	}
}
