// internal/status/snapshot.go
package status

import (
	"math"
	"time"

	"github.com/tamzrod/printer-mirror/internal/decoder"
	"github.com/tamzrod/printer-mirror/internal/device"
	"github.com/tamzrod/printer-mirror/internal/jsondiff"
)

// Snapshot represents exactly what the writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	Failures       uint16
	SecondsInError uint16

	NozzleTemp       uint16
	NozzleTarget     uint16
	BedTemp          uint16
	BedTarget        uint16
	ChamberTemp      uint16
	Percent          uint16
	RemainingMinutes uint16
	Stage            uint16

	Flags uint16
}

// FromDevice projects a session snapshot onto the register block at now.
// health is the latest watchdog verdict for the printer.
func FromDevice(d device.Snapshot, health device.Health, now time.Time) Snapshot {
	st := d.Status
	s := Snapshot{
		Health:   syncHealth(d, health),
		Failures: clampInt(d.Failures),

		NozzleTemp:       tenths(st.Temperatures.Nozzle),
		NozzleTarget:     whole(st.Temperatures.NozzleTarget),
		BedTemp:          tenths(st.Temperatures.Bed),
		BedTarget:        whole(st.Temperatures.BedTarget),
		ChamberTemp:      tenths(st.Temperatures.Chamber),
		Percent:          clampInt(st.Job.Percent),
		RemainingMinutes: clampInt(st.Job.RemainingSeconds / 60),
		Stage:            clampInt(st.Job.Stage),
	}

	if !d.FailingSince.IsZero() && now.After(d.FailingSince) {
		s.SecondsInError = clampInt(int(now.Sub(d.FailingSince) / time.Second))
	}

	if st.Flags.HomedX {
		s.Flags |= FlagHomedX
	}
	if st.Flags.HomedY {
		s.Flags |= FlagHomedY
	}
	if st.Flags.HomedZ {
		s.Flags |= FlagHomedZ
	}
	if st.SDCard != decoder.SDCardNone {
		s.Flags |= FlagSDCard
	}
	if st.Flags.CameraRecording {
		s.Flags |= FlagCameraRecording
	}
	if st.Flags.NetworkWired {
		s.Flags |= FlagWired
	}
	return s
}

func syncHealth(d device.Snapshot, health device.Health) uint16 {
	if health == device.HealthOffline {
		if d.LastReport.IsZero() {
			return HealthUnknown
		}
		return HealthOffline
	}
	switch d.Sync {
	case jsondiff.StateSynced:
		return HealthSynced
	case jsondiff.StateDegraded:
		return HealthDegraded
	case jsondiff.StateUnsynced:
		return HealthUnsynced
	}
	return HealthUnknown
}

func clampInt(n int) uint16 {
	switch {
	case n < 0:
		return 0
	case n > math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(n)
}

func tenths(f float64) uint16 { return clampInt(int(math.Round(f * 10))) }
func whole(f float64) uint16  { return clampInt(int(math.Round(f))) }
