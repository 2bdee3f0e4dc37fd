// internal/decoder/decoder.go
package decoder

import (
	"log/slog"

	"github.com/tamzrod/printer-mirror/internal/clock"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

// DetectVersion picks the decode path for one print object.
// The compact form needs all four of cfg, fun, aux and stat; any subset
// falls back to the flat forms.
func DetectVersion(report *tree.Object) Version {
	if report.Has("cfg") && report.Has("fun") && report.Has("aux") && report.Has("stat") {
		return V3_0
	}
	if report.Has("home_flag") {
		return V2_0
	}
	return V1_0
}

// AISetting is the AI print monitor switch and its halt sensitivity.
// They are set by one command and held together.
type AISetting struct {
	On          bool
	Sensitivity string
}

// Decoder turns print objects into Status values for one printer.
// It owns the hold state of every user-settable option and is not safe for
// concurrent use; the device session serialises calls.
type Decoder struct {
	log   *slog.Logger
	clock clock.Clock

	autoRecovery  *Debounced[bool]
	promptSound   *Debounced[bool]
	tangleDetect  *Debounced[bool]
	amsAutoSwitch *Debounced[bool]
	nozzleBlob    *Debounced[bool]

	aiMonitoring     *Debounced[AISetting]
	firstLayer       *Debounced[bool]
	buildplateMarker *Debounced[bool]

	recordWhenPrinting *Debounced[bool]
	timelapse          *Debounced[bool]
	resolution         *Debounced[string]

	nozzle *Debounced[Nozzle]
}

// New returns a decoder. A nil logger discards field diagnostics; a nil
// clock uses the wall clock.
func New(log *slog.Logger, clk clock.Clock) *Decoder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Decoder{
		log:   log,
		clock: clk,

		autoRecovery:  NewDebounced[bool](HoldWindow, HoldCount),
		promptSound:   NewDebounced[bool](HoldWindow, HoldCount),
		tangleDetect:  NewDebounced[bool](HoldWindow, HoldCount),
		amsAutoSwitch: NewDebounced[bool](HoldWindow, HoldCount),
		nozzleBlob:    NewDebounced[bool](HoldWindow, HoldCount),

		aiMonitoring:     NewDebounced[AISetting](HoldWindow, HoldCount),
		firstLayer:       NewDebounced[bool](HoldWindow, HoldCount),
		buildplateMarker: NewDebounced[bool](HoldWindow, HoldCount),

		recordWhenPrinting: NewDebounced[bool](HoldWindow, HoldCountCamera),
		timelapse:          NewDebounced[bool](HoldWindow, HoldCountCamera),
		resolution:         NewDebounced[string](HoldWindow, HoldCountCamera),

		nozzle: NewDebounced[Nozzle](HoldWindow, HoldCountNozzle),
	}
}

// Decode applies one print object on top of prev and returns the result.
//
// Fields are decoded independently: a field that is missing or malformed
// keeps its previous value and never affects its neighbours.
func (d *Decoder) Decode(report *tree.Object, prev Status) Status {
	st := prev
	f := fields{obj: report, log: d.log, section: "print"}

	st.Version = DetectVersion(report)
	compact := st.Version == V3_0

	d.decodeTemperatures(f, &st)
	d.decodeFans(f, &st)
	d.decodeJob(f, &st)
	d.decodeSignals(f, &st)
	d.decodeNozzle(f, &st)
	d.decodeMedia(f, &st)
	d.decodeCamera(f, &st, compact)
	d.decodeXCam(f, &st, compact)
	d.decodeCapabilities(f, &st)
	d.decodeAms(f, &st)
	d.decodeUpgrade(f, &st)

	switch st.Version {
	case V3_0:
		d.decodeCompact(f, &st)
	case V2_0:
		d.decodeHomeFlag(f, &st)
	}

	return st
}

// ---- local changes ----

// Option is a user-settable boolean that is held after a local change.
type Option uint8

const (
	OptAutoRecoveryStepLoss Option = iota
	OptPromptSound
	OptFilamentTangleDetect
	OptAmsAutoSwitch
	OptNozzleBlobDetection
	OptFirstLayerInspector
	OptBuildplateMarkerDetector
	OptRecordWhenPrinting
	OptTimelapse
)

func (o Option) String() string {
	switch o {
	case OptAutoRecoveryStepLoss:
		return "auto_recovery_step_loss"
	case OptPromptSound:
		return "prompt_sound"
	case OptFilamentTangleDetect:
		return "filament_tangle_detect"
	case OptAmsAutoSwitch:
		return "ams_auto_switch"
	case OptNozzleBlobDetection:
		return "nozzle_blob_detection"
	case OptFirstLayerInspector:
		return "first_layer_inspector"
	case OptBuildplateMarkerDetector:
		return "buildplate_marker_detector"
	case OptRecordWhenPrinting:
		return "ipcam_record"
	case OptTimelapse:
		return "timelapse"
	default:
		return "unknown"
	}
}

func (d *Decoder) option(opt Option, st *Status) (*Debounced[bool], *bool) {
	switch opt {
	case OptAutoRecoveryStepLoss:
		return d.autoRecovery, &st.Flags.AutoRecoveryStepLoss
	case OptPromptSound:
		return d.promptSound, &st.Flags.AllowPromptSound
	case OptFilamentTangleDetect:
		return d.tangleDetect, &st.Flags.FilamentTangleDetect
	case OptAmsAutoSwitch:
		return d.amsAutoSwitch, &st.Flags.AmsAutoSwitchFilament
	case OptNozzleBlobDetection:
		return d.nozzleBlob, &st.Flags.NozzleBlobDetection
	case OptFirstLayerInspector:
		return d.firstLayer, &st.XCam.FirstLayerInspector
	case OptBuildplateMarkerDetector:
		return d.buildplateMarker, &st.XCam.BuildplateMarkerDetector
	case OptRecordWhenPrinting:
		return d.recordWhenPrinting, &st.Camera.RecordWhenPrinting
	case OptTimelapse:
		return d.timelapse, &st.Camera.Timelapse
	}
	return nil, nil
}

// Hold records a locally requested option value in st and suppresses
// printer reports for that option until the hold expires.
func (d *Decoder) Hold(opt Option, on bool, st *Status) {
	flag, field := d.option(opt, st)
	if flag == nil {
		return
	}
	flag.SetLocal(on, d.clock.Now())
	*field = on
}

// HoldAIMonitoring holds the AI monitor switch and its sensitivity together.
func (d *Decoder) HoldAIMonitoring(ai AISetting, st *Status) {
	d.aiMonitoring.SetLocal(ai, d.clock.Now())
	st.XCam.AIMonitoring = ai.On
	st.XCam.Sensitivity = ai.Sensitivity
}

// HoldResolution holds the camera resolution. Changing resolution restarts
// recording on the printer, so the recording switch is held as well.
func (d *Decoder) HoldResolution(res string, st *Status) {
	now := d.clock.Now()
	d.resolution.SetLocal(res, now)
	d.recordWhenPrinting.SetLocal(st.Camera.RecordWhenPrinting, now)
	st.Camera.Resolution = res
}

// HoldNozzle holds nozzle diameter and type together.
func (d *Decoder) HoldNozzle(n Nozzle, st *Status) {
	d.nozzle.SetLocal(n, d.clock.Now())
	st.Nozzle = n
}

// Holding reports whether opt currently ignores printer reports.
func (d *Decoder) Holding(opt Option) bool {
	var st Status
	flag, _ := d.option(opt, &st)
	return flag != nil && flag.Holding(d.clock.Now())
}
