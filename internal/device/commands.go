// internal/device/commands.go
package device

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tamzrod/printer-mirror/internal/decoder"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

var errNoPublisher = errors.New("device: no publisher configured")

// nextSeq returns the next command sequence id, wrapping within
// [StartSeqID, EndSeqID).
func (s *Session) nextSeq() int {
	for {
		cur := s.seq.Load()
		next := cur + 1
		if next >= EndSeqID {
			next = StartSeqID
		}
		if s.seq.CompareAndSwap(cur, next) {
			return int(cur)
		}
	}
}

// command builds {"<section>": {"command": cmd, "sequence_id": "<n>", ...}}.
func (s *Session) command(section, cmd string) (*tree.Object, *tree.Object) {
	body := tree.NewObject()
	body.Set("command", tree.String(cmd))
	body.Set("sequence_id", tree.String(strconv.Itoa(s.nextSeq())))

	root := tree.NewObject()
	root.Set(section, tree.ObjectValue(body))
	return root, body
}

func (s *Session) publish(ctx context.Context, root *tree.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.pub == nil {
		return errNoPublisher
	}
	payload, err := root.MarshalJSON()
	if err != nil {
		return fmt.Errorf("device %s: encode command: %w", s.cfg.ID, err)
	}
	if err := s.pub.Publish(s.cfg.RequestTopic, payload); err != nil {
		return fmt.Errorf("device %s: publish: %w", s.cfg.ID, err)
	}
	return nil
}

// RequestPushAll asks the printer for a full report. Unforced requests
// within PushAllMinInterval of the previous one return ErrRateLimited.
func (s *Session) RequestPushAll(ctx context.Context, force bool) error {
	now := s.clock.Now()

	s.mu.Lock()
	if !force && !s.lastPushAll.IsZero() && now.Sub(s.lastPushAll) < PushAllMinInterval {
		s.mu.Unlock()
		s.log.Debug("device: push-all request too soon")
		return ErrRateLimited
	}
	s.lastPushAll = now
	s.mu.Unlock()

	root, body := s.command("pushing", "pushall")
	body.Set("version", tree.Int(1))
	body.Set("push_target", tree.Int(1))
	return s.publish(ctx, root)
}

// GetVersion asks the printer for its module versions.
func (s *Session) GetVersion(ctx context.Context) error {
	root, _ := s.command("info", "get_version")
	return s.publish(ctx, root)
}

// printOption sends a print_option command after holding opt locally.
func (s *Session) printOption(ctx context.Context, opt decoder.Option, on bool, fill func(body *tree.Object)) error {
	s.mu.Lock()
	s.dec.Hold(opt, on, &s.status)
	s.mu.Unlock()

	root, body := s.command("print", "print_option")
	fill(body)
	return s.publish(ctx, root)
}

func (s *Session) SetAutoRecoveryStepLoss(ctx context.Context, on bool) error {
	return s.printOption(ctx, decoder.OptAutoRecoveryStepLoss, on, func(body *tree.Object) {
		option := int64(0)
		if on {
			option = 1
		}
		body.Set("option", tree.Int(option))
		body.Set("auto_recovery", tree.Bool(on))
	})
}

func (s *Session) SetPromptSound(ctx context.Context, on bool) error {
	return s.printOption(ctx, decoder.OptPromptSound, on, func(body *tree.Object) {
		body.Set("sound_enable", tree.Bool(on))
	})
}

func (s *Session) SetFilamentTangleDetect(ctx context.Context, on bool) error {
	return s.printOption(ctx, decoder.OptFilamentTangleDetect, on, func(body *tree.Object) {
		body.Set("filament_tangle_detect", tree.Bool(on))
	})
}

func (s *Session) SetAmsAutoSwitch(ctx context.Context, on bool) error {
	return s.printOption(ctx, decoder.OptAmsAutoSwitch, on, func(body *tree.Object) {
		body.Set("auto_switch_filament", tree.Bool(on))
	})
}

func (s *Session) SetNozzleBlobDetection(ctx context.Context, on bool) error {
	return s.printOption(ctx, decoder.OptNozzleBlobDetection, on, func(body *tree.Object) {
		body.Set("nozzle_blob_detect", tree.Bool(on))
	})
}

// XCam detector module names.
const (
	XCamPrintingMonitor  = "printing_monitor"
	XCamFirstLayer       = "first_layer_inspector"
	XCamBuildplateMarker = "buildplate_marker_detector"
)

// SetXCam switches one camera detector. sensitivity is only sent for the
// printing monitor and may be empty.
func (s *Session) SetXCam(ctx context.Context, module string, on bool, sensitivity string) error {
	s.mu.Lock()
	switch module {
	case XCamPrintingMonitor:
		if sensitivity == "" {
			sensitivity = s.status.XCam.Sensitivity
		}
		s.dec.HoldAIMonitoring(decoder.AISetting{On: on, Sensitivity: sensitivity}, &s.status)
	case XCamFirstLayer:
		s.dec.Hold(decoder.OptFirstLayerInspector, on, &s.status)
	case XCamBuildplateMarker:
		s.dec.Hold(decoder.OptBuildplateMarkerDetector, on, &s.status)
	default:
		s.mu.Unlock()
		return fmt.Errorf("device %s: unknown xcam module %q", s.cfg.ID, module)
	}
	s.mu.Unlock()

	root, body := s.command("xcam", "xcam_control_set")
	body.Set("module_name", tree.String(module))
	body.Set("control", tree.Bool(on))
	body.Set("enable", tree.Bool(on))
	body.Set("print_halt", tree.Bool(true))
	if module == XCamPrintingMonitor && sensitivity != "" {
		body.Set("halt_print_sensitivity", tree.String(sensitivity))
	}
	return s.publish(ctx, root)
}

func enableString(on bool) string {
	if on {
		return "enable"
	}
	return "disable"
}

func (s *Session) SetRecordWhenPrinting(ctx context.Context, on bool) error {
	s.mu.Lock()
	s.dec.Hold(decoder.OptRecordWhenPrinting, on, &s.status)
	s.mu.Unlock()

	root, body := s.command("camera", "ipcam_record_set")
	body.Set("control", tree.String(enableString(on)))
	return s.publish(ctx, root)
}

func (s *Session) SetTimelapse(ctx context.Context, on bool) error {
	s.mu.Lock()
	s.dec.Hold(decoder.OptTimelapse, on, &s.status)
	s.mu.Unlock()

	root, body := s.command("camera", "ipcam_timelapse")
	body.Set("control", tree.String(enableString(on)))
	return s.publish(ctx, root)
}

func (s *Session) SetCameraResolution(ctx context.Context, resolution string) error {
	s.mu.Lock()
	s.dec.HoldResolution(resolution, &s.status)
	s.mu.Unlock()

	root, body := s.command("camera", "ipcam_resolution_set")
	body.Set("resolution", tree.String(resolution))
	return s.publish(ctx, root)
}

// SetNozzle records the installed nozzle. The printer reports diameter and
// type as separate keys, so the hold budget covers both.
func (s *Session) SetNozzle(ctx context.Context, nozzleType string, diameter float64) error {
	if nozzleType == "" || diameter <= 0 {
		return fmt.Errorf("device %s: invalid nozzle %q %v", s.cfg.ID, nozzleType, diameter)
	}

	s.mu.Lock()
	s.dec.HoldNozzle(decoder.Nozzle{Diameter: diameter, Type: nozzleType}, &s.status)
	s.mu.Unlock()

	root, body := s.command("system", "set_accessories")
	body.Set("accessory_type", tree.String("nozzle"))
	body.Set("nozzle_type", tree.String(nozzleType))
	body.Set("nozzle_diameter", tree.Float(diameter))
	return s.publish(ctx, root)
}
