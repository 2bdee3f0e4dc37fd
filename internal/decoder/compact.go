// internal/decoder/compact.go
package decoder

import (
	"github.com/tamzrod/printer-mirror/internal/bitfield"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

// decodeCompact reads the four 3.0 bitfields. Each word is decoded on its
// own so a malformed word only costs its own fields.
func (d *Decoder) decodeCompact(f fields, st *Status) {
	if v, ok := f.packed("stat"); ok {
		d.decodeStat(v, st)
	}
	if v, ok := f.packed("cfg"); ok {
		d.decodeCfg(v, st)
	}
	if v, ok := f.packed("aux"); ok {
		decodeAux(v, st)
	}
	if v, ok := f.packed("fun"); ok {
		decodeFun(v, st)
	}
}

func read(v tree.Value, s span) uint32 {
	return bitfield.Bits(v, s.start, s.count)
}

func set(v tree.Value, s span) bool {
	return read(v, s) != 0
}

func (d *Decoder) decodeStat(v tree.Value, st *Status) {
	fl := &st.Flags

	fl.HomedX = set(v, statHomedX)
	fl.HomedY = set(v, statHomedY)
	fl.HomedZ = set(v, statHomedZ)
	fl.Is220V = set(v, stat220V)
	fl.CameraRecording = set(v, statCameraRecording)
	fl.NetworkWired = set(v, statNetworkWired)
	fl.AmsCalibrateRemain = set(v, statAmsCalibrateRemain)
	fl.AmsAirPrintStatus = set(v, statAmsAirPrintStatus)

	st.SDCard = SDCardState(read(v, statSDCard))

	st.Lights.Chamber = enumName(lightModeNames[:], read(v, statChamberLight))
	st.Lights.Work = enumName(lightModeNames[:], read(v, statWorkLight))
}

func (d *Decoder) decodeCfg(v tree.Value, st *Status) {
	now := d.clock.Now()
	fl := &st.Flags

	fl.AutoRecoveryStepLoss = d.autoRecovery.Observe(set(v, cfgAutoRecovery), now)
	fl.AllowPromptSound = d.promptSound.Observe(set(v, cfgPromptSound), now)
	fl.FilamentTangleDetect = d.tangleDetect.Observe(set(v, cfgTangleDetect), now)
	fl.NozzleBlobDetection = d.nozzleBlob.Observe(set(v, cfgNozzleBlob), now)
	fl.AmsAutoSwitchFilament = d.amsAutoSwitch.Observe(set(v, cfgAmsAutoSwitch), now)

	ai := d.aiMonitoring.Observe(AISetting{
		On:          set(v, cfgAIMonitoring),
		Sensitivity: enumName(aiSensitivityNames[:], read(v, cfgAISensitivity)),
	}, now)
	st.XCam.AIMonitoring = ai.On
	st.XCam.Sensitivity = ai.Sensitivity

	st.XCam.FirstLayerInspector = d.firstLayer.Observe(set(v, cfgFirstLayer), now)
	st.XCam.BuildplateMarkerDetector = d.buildplateMarker.Observe(set(v, cfgBuildplateMarker), now)

	st.Camera.Timelapse = d.timelapse.Observe(set(v, cfgTimelapse), now)
	st.Camera.RecordWhenPrinting = d.recordWhenPrinting.Observe(set(v, cfgRecordWhenPrinting), now)
	st.Camera.Resolution = d.resolution.Observe(enumName(resolutionNames[:], read(v, cfgCameraResolution)), now)
}

func decodeAux(v tree.Value, st *Status) {
	st.Fans.Cooling = int(read(v, auxCoolingFan))
	st.Fans.BigFan1 = int(read(v, auxBigFan1))
	st.Fans.BigFan2 = int(read(v, auxBigFan2))
	st.Fans.Heatbreak = int(read(v, auxHeatbreakFan))
}

// decodeFun reads the capability word. It is wider than 32 bits, so string
// forms go through the unbounded reader.
func decodeFun(v tree.Value, st *Status) {
	s, isStr := v.Str()
	for _, c := range capabilities {
		var on bool
		if isStr {
			on = bitfield.ExtractNoBorder(s, c.funBit, 1) != 0
		} else {
			on = set(v, bit(c.funBit))
		}
		*c.field(&st.Capabilities) = on
	}
}
