// internal/decoder/layout.go
package decoder

// Bit layouts for packed telemetry.
//
// home_flag is the 2.0 machine-state word. The compact 3.0 form splits the
// same information into four hex bitfields:
//
//	stat  machine state           (32 bits)
//	cfg   user options, held      (32 bits)
//	aux   fans                    (32 bits)
//	fun   capability flags        (wider than 32 bits)
//
// Every reader in this package takes its positions from here. The 3.0
// positions are provisional: firmware publishes no layout for them, so they
// are kept in one place to be corrected against captured reports.

type span struct {
	start int
	count int
}

func bit(n int) span { return span{start: n, count: 1} }

// ---- home_flag (2.0) ----

var (
	homeHomedX              = bit(0)
	homeHomedY              = bit(1)
	homeHomedZ              = bit(2)
	home220V                = bit(3)
	homeAutoRecovery        = bit(4)
	homeCameraRecording     = bit(5)
	homeAmsCalibrateRemain  = bit(7)
	homeSDCard              = span{start: 8, count: 2}
	homeAmsAutoSwitch       = bit(10)
	homeAllowPromptSound    = bit(17)
	homeSupportPromptSound  = bit(18)
	homeSupportTangle       = bit(19)
	homeTangleDetect        = bit(20)
	homeSupportMotorNoise   = bit(21)
	homeSupportUserPreset   = bit(22)
	homeNozzleBlob          = bit(24)
	homeSupportNozzleBlob   = bit(25)
	homeP1SPlusInstalled    = bit(26)
	homeP1SPlusSupported    = bit(27)
	homeAmsAirPrintStatus   = bit(28)
	homeSupportAirPrintDect = bit(29)
)

// ---- stat (3.0) ----

var (
	statHomedX             = bit(0)
	statHomedY             = bit(1)
	statHomedZ             = bit(2)
	stat220V               = bit(3)
	statSDCard             = span{start: 4, count: 2}
	statCameraRecording    = bit(6)
	statNetworkWired       = bit(7)
	statAmsCalibrateRemain = bit(8)
	statAmsAirPrintStatus  = bit(9)
	statChamberLight       = span{start: 12, count: 2}
	statWorkLight          = span{start: 14, count: 2}
)

// ---- cfg (3.0) ----

var (
	cfgAutoRecovery       = bit(0)
	cfgPromptSound        = bit(1)
	cfgTangleDetect       = bit(2)
	cfgNozzleBlob         = bit(3)
	cfgAmsAutoSwitch      = bit(4)
	cfgAIMonitoring       = bit(5)
	cfgAISensitivity      = span{start: 6, count: 2}
	cfgFirstLayer         = bit(8)
	cfgBuildplateMarker   = bit(9)
	cfgTimelapse          = bit(10)
	cfgRecordWhenPrinting = bit(11)
	cfgCameraResolution   = span{start: 12, count: 2}
)

// ---- aux (3.0) ----

var (
	auxCoolingFan   = span{start: 0, count: 8}
	auxBigFan1      = span{start: 8, count: 8}
	auxBigFan2      = span{start: 16, count: 8}
	auxHeatbreakFan = span{start: 24, count: 8}
)

// fan_gear (2.0 and later flat form) shares the low three aux bytes.
var (
	gearCoolingFan = auxCoolingFan
	gearBigFan1    = auxBigFan1
	gearBigFan2    = auxBigFan2
)

// ---- enumerations carried in packed fields ----

var aiSensitivityNames = [...]string{"low", "medium", "high", "never_halt"}

var resolutionNames = [...]string{"720p", "1080p", "", ""}

var lightModeNames = [...]string{"off", "on", "flashing", ""}

func enumName(names []string, v uint32) string {
	if int(v) >= len(names) {
		return ""
	}
	return names[v]
}

// ---- capabilities ----

// capability binds one support_* flag to its flat key (1.0 and 2.0) and its
// position in fun (3.0).
type capability struct {
	key    string
	funBit int
	field  func(*Capabilities) *bool
}

var capabilities = []capability{
	{"support_chamber_temp_edit", 0, func(c *Capabilities) *bool { return &c.ChamberTempEdit }},
	{"support_extrusion_cali", 1, func(c *Capabilities) *bool { return &c.ExtrusionCali }},
	{"support_first_layer_inspect", 2, func(c *Capabilities) *bool { return &c.FirstLayerInspect }},
	{"support_ai_monitoring", 3, func(c *Capabilities) *bool { return &c.AIMonitoring }},
	{"support_lidar_calibration", 4, func(c *Capabilities) *bool { return &c.LidarCalibration }},
	{"support_build_plate_marker_detect", 5, func(c *Capabilities) *bool { return &c.BuildPlateMarkerDetect }},
	{"support_flow_calibration", 6, func(c *Capabilities) *bool { return &c.FlowCalibration }},
	{"support_print_without_sd", 7, func(c *Capabilities) *bool { return &c.PrintWithoutSD }},
	{"support_print_all", 8, func(c *Capabilities) *bool { return &c.PrintAll }},
	{"support_send_to_sd", 9, func(c *Capabilities) *bool { return &c.SendToSD }},
	{"support_aux_fan", 10, func(c *Capabilities) *bool { return &c.AuxFan }},
	{"support_chamber_fan", 11, func(c *Capabilities) *bool { return &c.ChamberFan }},
	{"support_filament_backup", 12, func(c *Capabilities) *bool { return &c.FilamentBackup }},
	{"support_update_remain", 13, func(c *Capabilities) *bool { return &c.UpdateRemain }},
	{"support_auto_leveling", 14, func(c *Capabilities) *bool { return &c.AutoLeveling }},
	{"support_auto_recovery_step_loss", 15, func(c *Capabilities) *bool { return &c.AutoRecoveryStepLoss }},
	{"support_ams_humidity", 16, func(c *Capabilities) *bool { return &c.AmsHumidity }},
	{"support_prompt_sound", 17, func(c *Capabilities) *bool { return &c.PromptSound }},
	{"support_filament_tangle_detect", 18, func(c *Capabilities) *bool { return &c.FilamentTangleDetect }},
	{"support_1080dpi", 19, func(c *Capabilities) *bool { return &c.Res1080dpi }},
	{"support_cloud_print_only", 20, func(c *Capabilities) *bool { return &c.CloudPrintOnly }},
	{"support_command_ams_switch", 21, func(c *Capabilities) *bool { return &c.CommandAmsSwitch }},
	{"support_mqtt_alive", 22, func(c *Capabilities) *bool { return &c.MqttAlive }},
	{"support_motor_noise_cali", 23, func(c *Capabilities) *bool { return &c.MotorNoiseCali }},
	{"support_timelapse", 24, func(c *Capabilities) *bool { return &c.Timelapse }},
	{"support_user_preset", 25, func(c *Capabilities) *bool { return &c.UserPreset }},
	{"support_nozzle_blob_detection", 26, func(c *Capabilities) *bool { return &c.NozzleBlobDetection }},
	{"support_air_print_detection", 27, func(c *Capabilities) *bool { return &c.AirPrintDetection }},
	{"support_p1s_plus", 28, func(c *Capabilities) *bool { return &c.P1SPlus }},
	{"support_tunnel_mqtt", 32, func(c *Capabilities) *bool { return &c.TunnelMqtt }},
}
