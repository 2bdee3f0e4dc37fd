// internal/decoder/decoder_test.go
package decoder

import (
	"strconv"
	"testing"
	"time"

	"github.com/tamzrod/printer-mirror/internal/clock"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

func mustPrint(t *testing.T, s string) *tree.Object {
	t.Helper()
	o, err := tree.ParseObject([]byte(s))
	if err != nil {
		t.Fatalf("ParseObject(%s) err=%v", s, err)
	}
	return o
}

func newTestDecoder() (*Decoder, *clock.Fake) {
	clk := clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	return New(nil, clk), clk
}

// ---- version dispatch ----

func TestDetectVersion(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want Version
	}{
		{"flat", `{"nozzle_temper":20}`, V1_0},
		{"home flag", `{"home_flag":7}`, V2_0},
		{"compact", `{"cfg":"0","fun":"0","aux":"0","stat":"0","home_flag":7}`, V3_0},
		{"compact missing stat", `{"cfg":"0","fun":"0","aux":"0","home_flag":7}`, V2_0},
		{"compact missing stat, no home flag", `{"cfg":"0","fun":"0","aux":"0"}`, V1_0},
	}
	for _, tc := range cases {
		if got := DetectVersion(mustPrint(t, tc.doc)); got != tc.want {
			t.Fatalf("%s: got=%s want=%s", tc.name, got, tc.want)
		}
	}
}

func TestDecode_PartialCompactTakesLegacyPath(t *testing.T) {
	d, _ := newTestDecoder()

	// cfg says prompt sound on; home_flag says off. Without stat, cfg is ignored.
	st := d.Decode(mustPrint(t, `{"cfg":"2","fun":"0","aux":"0","home_flag":7}`), Status{})
	if st.Version != V2_0 {
		t.Fatalf("expected 2.0 path, got %s", st.Version)
	}
	if !st.Flags.HomedX || !st.Flags.HomedY || !st.Flags.HomedZ {
		t.Fatalf("home_flag not applied: %+v", st.Flags)
	}
	if st.Flags.AllowPromptSound {
		t.Fatalf("cfg must not be read without stat")
	}
}

// ---- flat fields ----

func TestDecode_FlatFields(t *testing.T) {
	d, _ := newTestDecoder()

	st := d.Decode(mustPrint(t, `{
		"nozzle_temper": 215.5, "nozzle_target_temper": 220,
		"bed_temper": 60, "bed_target_temper": 60, "ctt": 35,
		"gcode_state": "RUNNING", "mc_percent": "42", "mc_remaining_time": 15,
		"layer_num": 3, "total_layer_num": 120,
		"wifi_signal": "-40dBm", "sdcard": true,
		"lights_report": [{"node":"chamber_light","mode":"on"},{"node":"work_light","mode":"flashing"}],
		"support_ams_humidity": true
	}`), Status{})

	if st.Temperatures.Nozzle != 215.5 || st.Temperatures.NozzleTarget != 220 || st.Temperatures.ChamberTarget != 35 {
		t.Fatalf("temperatures: %+v", st.Temperatures)
	}
	if st.Job.GcodeState != "RUNNING" || st.Job.Percent != 42 || st.Job.RemainingSeconds != 900 {
		t.Fatalf("job: %+v", st.Job)
	}
	if !st.Job.LayerSupported || st.Job.TotalLayers != 120 {
		t.Fatalf("layers: %+v", st.Job)
	}
	if st.SDCard != SDCardNormal {
		t.Fatalf("sdcard: got=%d", st.SDCard)
	}
	if st.Lights.Chamber != "on" || st.Lights.Work != "flashing" {
		t.Fatalf("lights: %+v", st.Lights)
	}
	if !st.Capabilities.AmsHumidity || st.Capabilities.PrintAll {
		t.Fatalf("capabilities: %+v", st.Capabilities)
	}
	if st.Version != V1_0 {
		t.Fatalf("version: got=%s", st.Version)
	}
}

func TestDecode_MalformedFieldKeepsPrevious(t *testing.T) {
	d, _ := newTestDecoder()

	prev := Status{}
	prev.Temperatures.Nozzle = 200
	prev.Temperatures.Bed = 50
	prev.Job.GcodeState = "IDLE"

	st := d.Decode(mustPrint(t, `{"nozzle_temper":"hot","bed_temper":61,"gcode_state":7}`), prev)

	if st.Temperatures.Nozzle != 200 {
		t.Fatalf("malformed nozzle_temper must keep previous, got %v", st.Temperatures.Nozzle)
	}
	if st.Temperatures.Bed != 61 {
		t.Fatalf("neighbour field must still decode, got %v", st.Temperatures.Bed)
	}
	if st.Job.GcodeState != "IDLE" {
		t.Fatalf("wrong-kind gcode_state must keep previous, got %q", st.Job.GcodeState)
	}
	if prev.Temperatures.Bed != 50 {
		t.Fatalf("Decode must not modify prev")
	}
}

func TestDecode_Fans(t *testing.T) {
	d, _ := newTestDecoder()

	st := d.Decode(mustPrint(t, `{"cooling_fan_speed":"15","big_fan1_speed":"7","big_fan2_speed":"0","heatbreak_fan_speed":"10"}`), Status{})
	if st.Fans.Cooling != 255 || st.Fans.BigFan1 != 102 || st.Fans.BigFan2 != 0 || st.Fans.Heatbreak != 10 {
		t.Fatalf("legacy fans: %+v", st.Fans)
	}

	st = d.Decode(mustPrint(t, `{"fan_gear":16744512,"cooling_fan_speed":"15"}`), st) // 0xFF8040
	if st.Fans.Cooling != 0x40 || st.Fans.BigFan1 != 0x80 || st.Fans.BigFan2 != 0xFF {
		t.Fatalf("fan_gear: %+v", st.Fans)
	}
}

func TestDecode_XCamLegacyProtocol(t *testing.T) {
	d, _ := newTestDecoder()

	st := d.Decode(mustPrint(t, `{"xcam":{"spaghetti_detector":true,"print_halt":true,"first_layer_inspector":true}}`), Status{})
	if !st.XCam.AIMonitoring || st.XCam.Sensitivity != "medium" || !st.XCam.FirstLayerInspector {
		t.Fatalf("xcam: %+v", st.XCam)
	}
	if st.Capabilities.BuildPlateMarkerDetect {
		t.Fatalf("buildplate marker support must follow key presence")
	}

	st = d.Decode(mustPrint(t, `{"xcam":{"printing_monitor":false,"halt_print_sensitivity":"high","buildplate_marker_detector":true}}`), st)
	if st.XCam.AIMonitoring || st.XCam.Sensitivity != "high" {
		t.Fatalf("xcam new protocol: %+v", st.XCam)
	}
	if !st.XCam.BuildplateMarkerDetector || !st.Capabilities.BuildPlateMarkerDetect {
		t.Fatalf("buildplate marker: %+v", st.XCam)
	}
}

func TestDecode_Camera(t *testing.T) {
	d, _ := newTestDecoder()

	st := d.Decode(mustPrint(t, `{"ipcam":{"ipcam_dev":"1","ipcam_record":"enable","timelapse":"disable","resolution":"1080p","resolution_supported":["720p","1080p"]}}`), Status{})
	if !st.Camera.HasIPCam || !st.Camera.RecordWhenPrinting || st.Camera.Timelapse || st.Camera.Resolution != "1080p" {
		t.Fatalf("camera: %+v", st.Camera)
	}
	if len(st.Camera.ResolutionSupported) != 2 {
		t.Fatalf("resolution_supported: %v", st.Camera.ResolutionSupported)
	}
}

// ---- AMS ----

func TestDecode_Ams(t *testing.T) {
	d, _ := newTestDecoder()

	st := d.Decode(mustPrint(t, `{"ams":{
		"ams_exist_bits":"1","tray_exist_bits":"3",
		"ams":[
			{"id":"0","info":"0103","humidity":"4","tray":[{"id":"0","tray_type":"PLA"},{"id":"1"},{"id":"2"}]},
			{"id":"1","info":103},
			{"id":"2","info":"0E01"}
		]}}`), Status{})

	if st.Ams.ExistBits != 1 || st.Ams.TrayExistBits != 3 {
		t.Fatalf("exist bits: %+v", st.Ams)
	}
	if len(st.Ams.Units) != 2 {
		t.Fatalf("uninitialised unit must be skipped, got %d units", len(st.Ams.Units))
	}

	u0 := st.Ams.Units[0]
	if u0.Type != 3 || u0.ExtruderID != 1 || !u0.Exists || u0.Humidity != 4 {
		t.Fatalf("unit 0: %+v", u0)
	}
	if len(u0.Trays) != 3 || !u0.Trays[0].Exists || !u0.Trays[1].Exists || u0.Trays[2].Exists {
		t.Fatalf("trays: %+v", u0.Trays)
	}
	if u0.Trays[0].Type != "PLA" {
		t.Fatalf("tray type: %+v", u0.Trays[0])
	}

	// numeric info 103 reads as 0x103
	u1 := st.Ams.Units[1]
	if u1.Type != 3 || u1.ExtruderID != 1 || u1.Exists {
		t.Fatalf("unit 1: %+v", u1)
	}
}

// ---- 2.0 home_flag ----

func TestDecode_HomeFlag(t *testing.T) {
	d, _ := newTestDecoder()

	var flag int64 = 1<<0 | 1<<1 | 1<<2 | 1<<3 | 2<<8 | 1<<17 | 1<<18 | 1<<19 | 1<<21 | 1<<26 | 1<<27
	st := d.Decode(mustPrint(t, `{"home_flag":`+itoa(flag)+`}`), Status{})

	if !st.Flags.HomedX || !st.Flags.HomedY || !st.Flags.HomedZ || !st.Flags.Is220V {
		t.Fatalf("axes: %+v", st.Flags)
	}
	if st.SDCard != SDCardAbnormal {
		t.Fatalf("sdcard: got=%d", st.SDCard)
	}
	if !st.Flags.AllowPromptSound || !st.Flags.NetworkWired {
		t.Fatalf("flags: %+v", st.Flags)
	}
	if !st.Capabilities.PromptSound || !st.Capabilities.FilamentTangleDetect || !st.Capabilities.MotorNoiseCali || !st.Capabilities.P1SPlus {
		t.Fatalf("capabilities: %+v", st.Capabilities)
	}

	// sticky support bits survive a report that clears them
	st = d.Decode(mustPrint(t, `{"home_flag":0}`), st)
	if !st.Capabilities.PromptSound || !st.Capabilities.MotorNoiseCali || !st.Capabilities.P1SPlus {
		t.Fatalf("sticky capabilities cleared: %+v", st.Capabilities)
	}
	if st.Capabilities.FilamentTangleDetect || st.Flags.HomedX {
		t.Fatalf("non-sticky bits must follow the report: %+v", st.Flags)
	}
}

func TestDecode_NegativeHomeFlag(t *testing.T) {
	d, _ := newTestDecoder()

	st := d.Decode(mustPrint(t, `{"home_flag":-1}`), Status{})
	if !st.Flags.HomedX || st.SDCard != SDCardReadOnly {
		t.Fatalf("two's complement word: %+v sd=%d", st.Flags, st.SDCard)
	}
}

// ---- 3.0 compact ----

func TestDecode_Compact(t *testing.T) {
	d, _ := newTestDecoder()

	st := d.Decode(mustPrint(t, `{
		"stat":"0x1087",
		"cfg":"A2",
		"aux":"0AFF8040",
		"fun":"100000001",
		"home_flag":0
	}`), Status{})

	if st.Version != V3_0 {
		t.Fatalf("version: %s", st.Version)
	}
	if !st.Flags.HomedX || !st.Flags.HomedY || !st.Flags.HomedZ || !st.Flags.NetworkWired || st.Flags.Is220V {
		t.Fatalf("stat: %+v", st.Flags)
	}
	if st.Lights.Chamber != "on" || st.Lights.Work != "off" {
		t.Fatalf("lights: %+v", st.Lights)
	}
	if !st.Flags.AllowPromptSound || st.Flags.AutoRecoveryStepLoss {
		t.Fatalf("cfg flags: %+v", st.Flags)
	}
	if !st.XCam.AIMonitoring || st.XCam.Sensitivity != "high" {
		t.Fatalf("cfg xcam: %+v", st.XCam)
	}
	if st.Fans.Cooling != 0x40 || st.Fans.BigFan1 != 0x80 || st.Fans.BigFan2 != 0xFF || st.Fans.Heatbreak != 0x0A {
		t.Fatalf("aux: %+v", st.Fans)
	}
	if !st.Capabilities.ChamberTempEdit || !st.Capabilities.TunnelMqtt || st.Capabilities.ExtrusionCali {
		t.Fatalf("fun: %+v", st.Capabilities)
	}
}

func TestDecode_CompactNumericWords(t *testing.T) {
	d, _ := newTestDecoder()

	st := d.Decode(mustPrint(t, `{"stat":7,"cfg":0,"aux":64,"fun":1}`), Status{})
	if !st.Flags.HomedZ || st.Fans.Cooling != 64 || !st.Capabilities.ChamberTempEdit {
		t.Fatalf("numeric words: %+v %+v", st.Flags, st.Fans)
	}
}

// ---- holds ----

func TestHold_BoundedByReportCount(t *testing.T) {
	d, clk := newTestDecoder()

	st := d.Decode(mustPrint(t, `{"home_flag":0}`), Status{})
	d.Hold(OptPromptSound, true, &st)
	if !st.Flags.AllowPromptSound || !d.Holding(OptPromptSound) {
		t.Fatalf("Hold must apply locally and arm")
	}

	off := mustPrint(t, `{"home_flag":0}`)
	for i := 0; i < HoldCount; i++ {
		clk.Advance(100 * time.Millisecond)
		st = d.Decode(off, st)
		if !st.Flags.AllowPromptSound {
			t.Fatalf("report %d overrode a held option", i+1)
		}
	}

	st = d.Decode(off, st)
	if st.Flags.AllowPromptSound {
		t.Fatalf("hold must end after %d ignored reports", HoldCount)
	}
}

func TestHold_BoundedByWindow(t *testing.T) {
	d, clk := newTestDecoder()

	var st Status
	d.Hold(OptFilamentTangleDetect, true, &st)

	clk.Advance(HoldWindow)
	st = d.Decode(mustPrint(t, `{"home_flag":0}`), st)
	if st.Flags.FilamentTangleDetect {
		t.Fatalf("hold must expire after the window")
	}
}

func TestHold_CameraBudget(t *testing.T) {
	d, _ := newTestDecoder()

	var st Status
	d.Hold(OptTimelapse, true, &st)

	off := mustPrint(t, `{"ipcam":{"timelapse":"disable"}}`)
	for i := 0; i < HoldCountCamera; i++ {
		st = d.Decode(off, st)
		if !st.Camera.Timelapse {
			t.Fatalf("camera hold ended early at report %d", i+1)
		}
	}
	st = d.Decode(off, st)
	if st.Camera.Timelapse {
		t.Fatalf("camera hold must end after %d reports", HoldCountCamera)
	}
}

func TestHold_IndependentPerOption(t *testing.T) {
	d, _ := newTestDecoder()

	var st Status
	d.Hold(OptAutoRecoveryStepLoss, true, &st)

	// tangle detect is not held and follows the report immediately
	var flag int64 = 1 << 20
	st = d.Decode(mustPrint(t, `{"home_flag":`+itoa(flag)+`}`), st)
	if !st.Flags.AutoRecoveryStepLoss {
		t.Fatalf("held option overridden")
	}
	if !st.Flags.FilamentTangleDetect {
		t.Fatalf("unheld option must follow report")
	}
}

func TestHold_CompactCfg(t *testing.T) {
	d, _ := newTestDecoder()

	var st Status
	d.HoldAIMonitoring(AISetting{On: true, Sensitivity: "low"}, &st)

	st = d.Decode(mustPrint(t, `{"stat":"0","cfg":"0","aux":"0","fun":"0"}`), st)
	if !st.XCam.AIMonitoring || st.XCam.Sensitivity != "low" {
		t.Fatalf("held AI setting overridden: %+v", st.XCam)
	}
}

func TestHold_NozzleHeldTogether(t *testing.T) {
	d, _ := newTestDecoder()

	var st Status
	d.HoldNozzle(Nozzle{Diameter: 0.6, Type: "hardened_steel"}, &st)

	st = d.Decode(mustPrint(t, `{"nozzle_diameter":"0.4","nozzle_type":"stainless_steel"}`), st)
	if st.Nozzle.Diameter != 0.6 || st.Nozzle.Type != "hardened_steel" {
		t.Fatalf("nozzle hold: %+v", st.Nozzle)
	}
}

func TestHold_NozzleBudgetPerKey(t *testing.T) {
	d, _ := newTestDecoder()

	var st Status
	d.HoldNozzle(Nozzle{Diameter: 0.6, Type: "hardened_steel"}, &st)

	both := mustPrint(t, `{"nozzle_diameter":"0.4","nozzle_type":"stainless_steel"}`)
	for i := 0; i < HoldCountNozzle/2; i++ {
		st = d.Decode(both, st)
		if st.Nozzle.Diameter != 0.6 {
			t.Fatalf("report %d: got=%+v want held", i+1, st.Nozzle)
		}
	}
	st = d.Decode(both, st)
	if st.Nozzle.Diameter != 0.4 || st.Nozzle.Type != "stainless_steel" {
		t.Fatalf("budget spent: got=%+v want=%+v", st.Nozzle, Nozzle{Diameter: 0.4, Type: "stainless_steel"})
	}

	d.HoldNozzle(Nozzle{Diameter: 0.8, Type: "hardened_steel"}, &st)
	single := mustPrint(t, `{"nozzle_diameter":"0.2"}`)
	for i := 0; i < HoldCountNozzle; i++ {
		st = d.Decode(single, st)
		if st.Nozzle.Diameter != 0.8 {
			t.Fatalf("single-key report %d: got=%v want=0.8", i+1, st.Nozzle.Diameter)
		}
	}
	if st = d.Decode(single, st); st.Nozzle.Diameter != 0.2 {
		t.Fatalf("single-key budget spent: got=%v want=0.2", st.Nozzle.Diameter)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
