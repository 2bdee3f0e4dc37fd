// internal/decoder/legacy.go
package decoder

import (
	"math"
	"strconv"

	"github.com/tamzrod/printer-mirror/internal/bitfield"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

// Flat fields shared by every telemetry generation.

func (d *Decoder) decodeTemperatures(f fields, st *Status) {
	t := &st.Temperatures
	f.float("nozzle_temper", &t.Nozzle)
	f.float("nozzle_target_temper", &t.NozzleTarget)
	f.float("bed_temper", &t.Bed)
	f.float("bed_target_temper", &t.BedTarget)
	f.float("chamber_temper", &t.Chamber)
	f.float("ctt", &t.ChamberTarget)
	f.float("frame_temper", &t.Frame)
}

// legacyFanDuty converts the old 0-15 fan step string to a 0-255 duty.
func legacyFanDuty(step int) int {
	return int(math.Round(math.Floor(float64(step)/1.5) * 25.5))
}

func (d *Decoder) decodeFans(f fields, st *Status) {
	fans := &st.Fans

	if v, ok := f.packed("fan_gear"); ok {
		if n, isInt := v.IntValue(); isInt {
			fans.Cooling = int(bitfield.ExtractInt(n, gearCoolingFan.start, gearCoolingFan.count))
			fans.BigFan1 = int(bitfield.ExtractInt(n, gearBigFan1.start, gearBigFan1.count))
			fans.BigFan2 = int(bitfield.ExtractInt(n, gearBigFan2.start, gearBigFan2.count))
		} else {
			fans.Cooling = int(bitfield.Bits(v, gearCoolingFan.start, gearCoolingFan.count))
			fans.BigFan1 = int(bitfield.Bits(v, gearBigFan1.start, gearBigFan1.count))
			fans.BigFan2 = int(bitfield.Bits(v, gearBigFan2.start, gearBigFan2.count))
		}
	} else {
		var step int
		if f.integer("cooling_fan_speed", &step) {
			fans.Cooling = legacyFanDuty(step)
		}
		if f.integer("big_fan1_speed", &step) {
			fans.BigFan1 = legacyFanDuty(step)
		}
		if f.integer("big_fan2_speed", &step) {
			fans.BigFan2 = legacyFanDuty(step)
		}
	}

	f.integer("heatbreak_fan_speed", &fans.Heatbreak)
}

func (d *Decoder) decodeJob(f fields, st *Status) {
	j := &st.Job

	f.str("gcode_state", &j.GcodeState)
	f.integer("mc_percent", &j.Percent)

	var minutes int
	if f.integer("mc_remaining_time", &minutes) {
		j.RemainingSeconds = minutes * 60
	}

	f.integer("mc_print_stage", &j.Stage)
	f.integer("mc_print_sub_stage", &j.SubStage)
	f.integer("mc_print_error_code", &j.ErrorCode)
	f.integer("print_error", &j.PrintError)
	f.integer("mc_print_line_number", &j.LineNumber)

	f.integer("layer_num", &j.Layer)
	if f.integer("total_layer_num", &j.TotalLayers) {
		j.LayerSupported = true
	} else if !f.has("total_layer_num") {
		j.LayerSupported = false
	}

	f.integer("spd_lvl", &j.SpeedLevel)
	f.integer("spd_mag", &j.SpeedMagnitude)
	f.integer("queue_number", &j.QueueNumber)

	f.str("print_type", &j.PrintType)
	f.str("subtask_name", &j.SubtaskName)
	f.str("job_id", &j.JobID)
	f.str("task_id", &j.TaskID)
	f.str("gcode_file", &j.GcodeFile)
}

func (d *Decoder) decodeSignals(f fields, st *Status) {
	f.str("wifi_signal", &st.Signals.Wifi)
	f.str("link_th_state", &st.Signals.LinkTH)
	f.str("link_ams_state", &st.Signals.LinkAMS)
}

func (d *Decoder) decodeNozzle(f fields, st *Status) {
	if !f.has("nozzle_diameter") && !f.has("nozzle_type") {
		return
	}

	remote := st.Nozzle
	f.float("nozzle_diameter", &remote.Diameter)
	f.str("nozzle_type", &remote.Type)

	now := d.clock.Now()
	for _, key := range [...]string{"nozzle_diameter", "nozzle_type"} {
		if f.has(key) {
			st.Nozzle = d.nozzle.Observe(remote, now)
		}
	}
}

func (d *Decoder) decodeMedia(f fields, st *Status) {
	var present bool
	switch {
	case f.boolean("sdcard", &present):
		if present {
			st.SDCard = SDCardNormal
		} else {
			st.SDCard = SDCardNone
		}
	case !f.has("sdcard"):
		st.SDCard = SDCardNone
	}

	arr, ok := f.array("lights_report")
	if !ok {
		return
	}
	for i, item := range arr {
		o, isObj := item.Obj()
		if !isObj {
			continue
		}
		light := fields{obj: o, log: f.log, section: f.section + ".lights_report[" + strconv.Itoa(i) + "]"}

		var node, mode string
		if !light.str("node", &node) || !light.str("mode", &mode) {
			continue
		}
		switch node {
		case "chamber_light":
			st.Lights.Chamber = mode
		case "work_light":
			st.Lights.Work = mode
		}
	}
}

// decodeCamera reads the ipcam object. In compact reports the held
// camera options come from cfg instead.
func (d *Decoder) decodeCamera(f fields, st *Status, compact bool) {
	cam, ok := f.object("ipcam")
	if !ok {
		return
	}
	now := d.clock.Now()

	var dev string
	if cam.str("ipcam_dev", &dev) {
		st.Camera.HasIPCam = dev == "1"
	}

	if arr, ok := cam.array("resolution_supported"); ok {
		supported := make([]string, 0, len(arr))
		for _, v := range arr {
			if s, isStr := v.Str(); isStr {
				supported = append(supported, s)
			}
		}
		st.Camera.ResolutionSupported = supported
	}

	if compact {
		return
	}

	var on bool
	if cam.enabled("ipcam_record", &on) {
		st.Camera.RecordWhenPrinting = d.recordWhenPrinting.Observe(on, now)
	}
	if cam.enabled("timelapse", &on) {
		st.Camera.Timelapse = d.timelapse.Observe(on, now)
	}
	var res string
	if cam.str("resolution", &res) {
		st.Camera.Resolution = d.resolution.Observe(res, now)
	}
}

// decodeXCam reads the camera-based detectors. Older firmware reports the
// AI monitor as spaghetti_detector with print_halt.
func (d *Decoder) decodeXCam(f fields, st *Status, compact bool) {
	x, ok := f.object("xcam")
	if !ok || compact {
		return
	}
	now := d.clock.Now()

	ai := AISetting{On: st.XCam.AIMonitoring, Sensitivity: st.XCam.Sensitivity}
	seen := false
	if x.boolean("printing_monitor", &ai.On) {
		seen = true
	} else if x.boolean("spaghetti_detector", &ai.On) {
		seen = true
		var halt bool
		if x.boolean("print_halt", &halt) && halt {
			ai.Sensitivity = "medium"
		}
	}
	if x.str("halt_print_sensitivity", &ai.Sensitivity) {
		seen = true
	}
	if seen {
		got := d.aiMonitoring.Observe(ai, now)
		st.XCam.AIMonitoring = got.On
		st.XCam.Sensitivity = got.Sensitivity
	}

	var on bool
	if x.boolean("first_layer_inspector", &on) {
		st.XCam.FirstLayerInspector = d.firstLayer.Observe(on, now)
	}

	if x.boolean("buildplate_marker_detector", &on) {
		st.XCam.BuildplateMarkerDetector = d.buildplateMarker.Observe(on, now)
		st.Capabilities.BuildPlateMarkerDetect = true
	} else if !x.has("buildplate_marker_detector") {
		st.Capabilities.BuildPlateMarkerDetect = false
	}
}

func (d *Decoder) decodeCapabilities(f fields, st *Status) {
	for _, c := range capabilities {
		f.boolean(c.key, c.field(&st.Capabilities))
	}
}

// decodeAms reads the filament unit block.
func (d *Decoder) decodeAms(f fields, st *Status) {
	a, ok := f.object("ams")
	if !ok {
		return
	}

	a.hex("ams_exist_bits", &st.Ams.ExistBits)
	a.hex("tray_exist_bits", &st.Ams.TrayExistBits)

	arr, ok := a.array("ams")
	if !ok {
		return
	}

	prev := make(map[string]AmsUnit, len(st.Ams.Units))
	for _, u := range st.Ams.Units {
		prev[u.ID] = u
	}

	units := make([]AmsUnit, 0, len(arr))
	for i, item := range arr {
		o, isObj := item.Obj()
		if !isObj {
			continue
		}
		uf := fields{obj: o, log: f.log, section: a.section + ".ams[" + strconv.Itoa(i) + "]"}

		var id string
		if !uf.str("id", &id) {
			continue
		}
		u, seen := prev[id]
		if !seen {
			u = AmsUnit{ID: id, Type: 1}
		}

		if v, ok := uf.packed("info"); ok {
			u.Type, u.ExtruderID = amsInfo(v)
		}
		if u.ExtruderID == 0xE {
			// unit not initialised yet
			continue
		}

		uf.integer("humidity", &u.Humidity)
		uf.integer("dry_time", &u.DryTime)

		u.Exists = amsExists(st.Ams.ExistBits, id, u.Type)
		u.Trays = decodeTrays(uf, u.Trays, st.Ams.TrayExistBits, id)

		units = append(units, u)
	}
	st.Ams.Units = units
}

// amsInfo splits the unit info word into type (bits 0-3) and extruder
// (bits 8-11). A numeric info carries hex digits written as a decimal
// number and is reinterpreted accordingly.
func amsInfo(v tree.Value) (typ, extruder int) {
	if s, ok := v.Str(); ok {
		return int(bitfield.Extract(s, 0, 4)), int(bitfield.Extract(s, 8, 4))
	}
	n, _ := v.IntValue()
	return int(bitfield.ExtractIntBase(n, 0, 4, 16)), int(bitfield.ExtractIntBase(n, 8, 4, 16))
}

// amsExists tests the unit's bit in ams_exist_bits. Single-tray units
// (type 4) are numbered from 128 and use the bits above the first four.
func amsExists(bits uint32, id string, typ int) bool {
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return false
	}
	if typ == 4 && n >= 128 {
		n = 4 + (n - 128)
	}
	if n >= 32 {
		return false
	}
	return bits&(1<<uint(n)) != 0
}

func decodeTrays(uf fields, prev []AmsTray, trayBits uint32, unitID string) []AmsTray {
	arr, ok := uf.array("tray")
	if !ok {
		return prev
	}
	unit, err := strconv.Atoi(unitID)
	if err != nil {
		unit = -1
	}

	byID := make(map[string]AmsTray, len(prev))
	for _, t := range prev {
		byID[t.ID] = t
	}

	trays := make([]AmsTray, 0, len(arr))
	for i, item := range arr {
		o, isObj := item.Obj()
		if !isObj {
			continue
		}
		tf := fields{obj: o, log: uf.log, section: uf.section + ".tray[" + strconv.Itoa(i) + "]"}

		var id string
		if !tf.str("id", &id) {
			continue
		}
		t := byID[id]
		t.ID = id
		tf.str("tray_type", &t.Type)
		tf.str("tray_color", &t.Color)
		tf.integer("remain", &t.Remain)

		t.Exists = false
		if n, err := strconv.Atoi(id); err == nil && unit >= 0 && unit < 8 && n >= 0 && n < 4 {
			t.Exists = trayBits&(1<<uint(unit*4+n)) != 0
		}
		trays = append(trays, t)
	}
	return trays
}

func (d *Decoder) decodeUpgrade(f fields, st *Status) {
	u, ok := f.object("upgrade_state")
	if !ok {
		return
	}
	up := &st.Upgrade

	u.str("status", &up.Status)
	u.str("progress", &up.Progress)
	u.str("module", &up.Module)
	u.str("message", &up.Message)
	u.integer("dis_state", &up.DisplayState)
	u.integer("err_code", &up.ErrCode)

	var state int
	if u.integer("new_version_state", &state) {
		up.NewVersion = state == 1
	}
}

// decodeHomeFlag reads the 2.0 machine-state word.
func (d *Decoder) decodeHomeFlag(f fields, st *Status) {
	v, ok := f.value("home_flag")
	if !ok {
		return
	}
	word, ok := v.IntValue()
	if !ok {
		f.reject("home_flag", v, "integer")
		return
	}
	now := d.clock.Now()
	on := func(s span) bool { return bitfield.ExtractInt(word, s.start, s.count) != 0 }

	fl := &st.Flags
	caps := &st.Capabilities

	fl.HomedX = on(homeHomedX)
	fl.HomedY = on(homeHomedY)
	fl.HomedZ = on(homeHomedZ)
	fl.Is220V = on(home220V)
	fl.CameraRecording = on(homeCameraRecording)
	fl.AmsCalibrateRemain = on(homeAmsCalibrateRemain)
	st.SDCard = SDCardState(bitfield.ExtractInt(word, homeSDCard.start, homeSDCard.count))

	fl.AutoRecoveryStepLoss = d.autoRecovery.Observe(on(homeAutoRecovery), now)
	fl.AmsAutoSwitchFilament = d.amsAutoSwitch.Observe(on(homeAmsAutoSwitch), now)
	fl.AllowPromptSound = d.promptSound.Observe(on(homeAllowPromptSound), now)
	fl.FilamentTangleDetect = d.tangleDetect.Observe(on(homeTangleDetect), now)
	fl.NozzleBlobDetection = d.nozzleBlob.Observe(on(homeNozzleBlob), now)

	// bit 18 doubles as the wired-network indicator on this firmware line
	fl.NetworkWired = on(homeSupportPromptSound)
	if on(homeSupportPromptSound) {
		caps.PromptSound = true
	}
	if on(homeSupportMotorNoise) {
		caps.MotorNoiseCali = true
	}
	if !caps.P1SPlus {
		caps.P1SPlus = on(homeP1SPlusInstalled) && on(homeP1SPlusSupported)
	}

	caps.FilamentTangleDetect = on(homeSupportTangle)
	caps.UserPreset = on(homeSupportUserPreset)
	caps.NozzleBlobDetection = on(homeSupportNozzleBlob)
	caps.AirPrintDetection = on(homeSupportAirPrintDect)
	fl.AmsAirPrintStatus = on(homeAmsAirPrintStatus)
}
