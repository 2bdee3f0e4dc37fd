// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/printer-mirror/internal/status"
)

// endpointClient is the exact contract the writer uses.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// StatusWriter is the delivery-only contract for printer status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// StatusPlan places one printer's block in status memory.
type StatusPlan struct {
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// DeviceStatusWriter writes one printer's block.
type DeviceStatusWriter struct {
	plan StatusPlan
	cli  endpointClient

	needFull bool
	last     []uint16
	nameRegs []uint16
}

// NewDeviceStatusWriter builds a status writer for plan over cli.
func NewDeviceStatusWriter(plan StatusPlan, cli endpointClient) *DeviceStatusWriter {
	return &DeviceStatusWriter{
		plan:     plan,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		nameRegs: status.EncodeName(plan.DeviceName),
	}
}

// WriteStatus delivers a status snapshot into status memory.
// Only changed runs of slots are written after the first full block.
// On any write failure, the next call re-asserts the full block.
func (sw *DeviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.cli == nil {
		return errors.New("status writer: disabled")
	}

	regs := status.Encode(s, sw.nameRegs)
	base := sw.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base, regs); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}
		sw.needFull = false
		sw.last = regs
		return nil
	}

	var errs []string
	for _, r := range changedRuns(sw.last, regs) {
		if err := sw.cli.WriteRegisters(
			sw.plan.UnitID,
			base+uint16(r.start),
			regs[r.start:r.end],
		); err != nil {
			errs = append(errs, fmt.Sprintf("slots %d-%d write failed: %v", r.start, r.end-1, err))
			continue
		}
		copy(sw.last[r.start:r.end], regs[r.start:r.end])
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next call.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func (sw *DeviceStatusWriter) baseAddr() uint16 {
	// Each printer owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}

type run struct{ start, end int }

// changedRuns returns the maximal runs of slots where prev and next differ.
func changedRuns(prev, next []uint16) []run {
	var out []run
	for i := 0; i < len(next); {
		if i < len(prev) && prev[i] == next[i] {
			i++
			continue
		}
		j := i + 1
		for j < len(next) && (j >= len(prev) || prev[j] != next[j]) {
			j++
		}
		out = append(out, run{start: i, end: j})
		i = j
	}
	return out
}
