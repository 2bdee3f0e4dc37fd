// internal/decoder/status.go
package decoder

import "time"

// Version identifies the telemetry generation a report was decoded with.
type Version uint8

const (
	// V1_0: flat fields and support_* booleans only.
	V1_0 Version = iota
	// V2_0: flat fields plus the home_flag bitfield.
	V2_0
	// V3_0: compact cfg/fun/aux/stat bitfields.
	V3_0
)

func (v Version) String() string {
	switch v {
	case V2_0:
		return "2.0"
	case V3_0:
		return "3.0"
	default:
		return "1.0"
	}
}

// SDCardState is the media slot state.
type SDCardState uint8

const (
	SDCardNone SDCardState = iota
	SDCardNormal
	SDCardAbnormal
	SDCardReadOnly
)

// Status is the mirrored state of one printer.
// It is a plain value: the decoder returns a fresh copy on every call and
// keeps no reference to it.
type Status struct {
	Version Version

	Temperatures Temperatures
	Fans         Fans
	Job          Job
	Flags        Flags
	Capabilities Capabilities
	Camera       Camera
	XCam         XCam
	Nozzle       Nozzle
	Signals      Signals
	Lights       Lights
	SDCard       SDCardState
	Ams          Ams
	Upgrade      Upgrade
	Modules      []ModuleVersion

	SequenceID   int
	LastReport   time.Time
	MessageDelay time.Duration
}

type Temperatures struct {
	Nozzle        float64
	NozzleTarget  float64
	Bed           float64
	BedTarget     float64
	Chamber       float64
	ChamberTarget float64
	Frame         float64
}

// Fans are 0-255 duty values except Heatbreak, which the printer reports as-is.
type Fans struct {
	Cooling   int
	BigFan1   int
	BigFan2   int
	Heatbreak int
}

type Job struct {
	GcodeState       string
	Percent          int
	RemainingSeconds int
	Stage            int
	SubStage         int
	ErrorCode        int
	PrintError       int
	Layer            int
	TotalLayers      int
	LayerSupported   bool
	LineNumber       int
	SpeedLevel       int
	SpeedMagnitude   int
	PrintType        string
	SubtaskName      string
	JobID            string
	TaskID           string
	GcodeFile        string
	QueueNumber      int
}

// Flags are the machine state bits carried by home_flag (2.0) or stat/cfg (3.0).
type Flags struct {
	HomedX bool
	HomedY bool
	HomedZ bool
	Is220V bool

	AutoRecoveryStepLoss  bool
	CameraRecording       bool
	AmsCalibrateRemain    bool
	AmsAutoSwitchFilament bool
	AllowPromptSound      bool
	FilamentTangleDetect  bool
	NozzleBlobDetection   bool
	AmsAirPrintStatus     bool
	NetworkWired          bool
}

// Capabilities are the support_* feature flags.
type Capabilities struct {
	ChamberTempEdit        bool
	ExtrusionCali          bool
	FirstLayerInspect      bool
	AIMonitoring           bool
	LidarCalibration       bool
	BuildPlateMarkerDetect bool
	FlowCalibration        bool
	PrintWithoutSD         bool
	PrintAll               bool
	SendToSD               bool
	AuxFan                 bool
	ChamberFan             bool
	FilamentBackup         bool
	UpdateRemain           bool
	AutoLeveling           bool
	AutoRecoveryStepLoss   bool
	AmsHumidity            bool
	PromptSound            bool
	FilamentTangleDetect   bool
	Res1080dpi             bool
	CloudPrintOnly         bool
	CommandAmsSwitch       bool
	MqttAlive              bool
	MotorNoiseCali         bool
	Timelapse              bool
	UserPreset             bool
	NozzleBlobDetection    bool
	AirPrintDetection      bool
	P1SPlus                bool
	TunnelMqtt             bool
}

type Camera struct {
	HasIPCam            bool
	RecordWhenPrinting  bool
	Timelapse           bool
	Resolution          string
	ResolutionSupported []string
}

type XCam struct {
	AIMonitoring             bool
	Sensitivity              string
	FirstLayerInspector      bool
	BuildplateMarkerDetector bool
}

type Nozzle struct {
	Diameter float64
	Type     string
}

type Signals struct {
	Wifi    string
	LinkTH  string
	LinkAMS string
}

type Lights struct {
	Chamber string
	Work    string
}

type Ams struct {
	ExistBits     uint32
	TrayExistBits uint32
	Units         []AmsUnit
}

// AmsUnit is one filament unit. Type: 0 dummy, 1 ams, 2 ams-lite, 3 n3f, 4 n3s.
type AmsUnit struct {
	ID         string
	Type       int
	ExtruderID int
	Exists     bool
	Humidity   int
	DryTime    int
	Trays      []AmsTray
}

type AmsTray struct {
	ID     string
	Type   string
	Color  string
	Remain int
	Exists bool
}

type Upgrade struct {
	Status       string
	Progress     string
	NewVersion   bool
	DisplayState int
	ErrCode      int
	Module       string
	Message      string
}

type ModuleVersion struct {
	Name      string
	SWVersion string
	HWVersion string
	SN        string
	Flag      int
}
