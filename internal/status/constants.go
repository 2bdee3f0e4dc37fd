// internal/status/constants.go
package status

// Printer status block layout constants.
// These values define the register protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of logical slots per printer.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotSyncHealth holds the mirror sync health code.
const SlotSyncHealth = 0

// SlotFailures holds the number of consecutive failed delta restores.
const SlotFailures = 1

// SlotSecondsInError holds how long (in seconds) restores have been failing.
const SlotSecondsInError = 2

// ---- TELEMETRY ----

// Temperatures are stored in tenths of a degree; targets in whole degrees.
const (
	SlotNozzleTemp       = 3
	SlotNozzleTarget     = 4
	SlotBedTemp          = 5
	SlotBedTarget        = 6
	SlotChamberTemp      = 7
	SlotPercent          = 8
	SlotRemainingMinutes = 9
	SlotStage            = 10
)

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the printer name.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the printer name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the printer name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- FLAG WORD ----

// SlotFlags holds the packed flag word. It is the last slot of the block.
const SlotFlags = 19

const (
	FlagHomedX uint16 = 1 << iota
	FlagHomedY
	FlagHomedZ
	FlagSDCard
	FlagCameraRecording
	FlagWired
)

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for the name.
const DeviceNameMaxChars = 16

// ---- SYNC HEALTH CODES ----

// HealthUnknown represents the boot state, before any report.
const HealthUnknown uint16 = 0

// HealthSynced represents a mirror in step with the printer.
const HealthSynced uint16 = 1

// HealthDegraded represents a mirror whose last restores failed.
const HealthDegraded uint16 = 2

// HealthUnsynced represents a mirror without a full-report baseline.
const HealthUnsynced uint16 = 3

// HealthOffline represents a printer that stopped reporting.
const HealthOffline uint16 = 4
