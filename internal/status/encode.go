// internal/status/encode.go
package status

// Encode converts a Snapshot and the pre-encoded name into a full status block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot, name []uint16) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotSyncHealth] = s.Health
	regs[SlotFailures] = s.Failures
	regs[SlotSecondsInError] = s.SecondsInError

	regs[SlotNozzleTemp] = s.NozzleTemp
	regs[SlotNozzleTarget] = s.NozzleTarget
	regs[SlotBedTemp] = s.BedTemp
	regs[SlotBedTarget] = s.BedTarget
	regs[SlotChamberTemp] = s.ChamberTemp
	regs[SlotPercent] = s.Percent
	regs[SlotRemainingMinutes] = s.RemainingMinutes
	regs[SlotStage] = s.Stage

	for i := 0; i < SlotDeviceNameSlots && i < len(name); i++ {
		regs[SlotDeviceNameStart+i] = name[i]
	}

	regs[SlotFlags] = s.Flags
	return regs
}

// EncodeName packs up to 16 ASCII characters into 8 registers.
// Each register stores two bytes in big-endian order; non-printable bytes become '?'.
func EncodeName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}
	return out
}
