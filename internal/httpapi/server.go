// internal/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tamzrod/printer-mirror/internal/decoder"
	"github.com/tamzrod/printer-mirror/internal/device"
	"github.com/tamzrod/printer-mirror/internal/tree"
)

// DocumentSource serves documents when a session has none yet (after a restart).
type DocumentSource interface {
	Load(ctx context.Context, id string) (*tree.Object, bool, error)
}

type Server struct {
	reg     *device.Registry
	docs    DocumentSource
	metrics http.Handler
	log     *slog.Logger
}

// NewServer wires the read and command surface. docs and metrics may be nil.
func NewServer(reg *device.Registry, docs DocumentSource, metrics http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{reg: reg, docs: docs, metrics: metrics, log: log}
}

// Router returns a chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/devices", s.handleList)
	r.Route("/devices/{id}", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/document", s.handleDocument)
		r.Post("/resync", s.handleResync)
		r.Put("/options/{option}", s.handleOption)
		r.Put("/xcam/{module}", s.handleXCam)
		r.Put("/camera/resolution", s.handleResolution)
		r.Put("/nozzle", s.handleNozzle)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*device.Session, bool) {
	sess, ok := s.reg.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown device")
	}
	return sess, ok
}

// ---- views ----

type summary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Online       bool       `json:"online"`
	Sync         string     `json:"sync"`
	Failures     int        `json:"failures"`
	FailingSince *time.Time `json:"failing_since,omitempty"`
	LastReport   *time.Time `json:"last_report,omitempty"`
}

type statusView struct {
	summary
	Status decoder.Status `json:"status"`
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func summarize(snap device.Snapshot) summary {
	return summary{
		ID:           snap.ID,
		Name:         snap.Name,
		Online:       snap.Online,
		Sync:         snap.Sync.String(),
		Failures:     snap.Failures,
		FailingSince: optTime(snap.FailingSince),
		LastReport:   optTime(snap.LastReport),
	}
}

// ---- reads ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	online := 0
	sessions := s.reg.List()
	for _, sess := range sessions {
		if sess.Snapshot().Online {
			online++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "devices": len(sessions), "online": online})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	out := make([]summary, 0)
	for _, sess := range s.reg.List() {
		out = append(out, summarize(sess.Snapshot()))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, statusView{summary: summarize(snap), Status: snap.Status})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	doc := sess.Document()
	source := "live"
	if doc.Len() == 0 && s.docs != nil {
		cached, found, err := s.docs.Load(r.Context(), sess.ID())
		if err != nil {
			s.log.Warn("httpapi: cached document unavailable", "device", sess.ID(), "error", err)
		} else if found {
			doc, source = cached, "cache"
		}
	}
	if doc.Len() == 0 {
		writeError(w, http.StatusNotFound, "no document yet")
		return
	}

	raw, err := doc.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode document")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Mirror-Source", source)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// ---- commands ----

func (s *Server) commandResult(w http.ResponseWriter, id string, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	case errors.Is(err, device.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		s.log.Warn("httpapi: command failed", "device", id, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.commandResult(w, sess.ID(), sess.RequestPushAll(r.Context(), false))
}

type switchBody struct {
	On          *bool   `json:"on"`
	Sensitivity string  `json:"sensitivity"`
	Resolution  string  `json:"resolution"`
	Type        string  `json:"type"`
	Diameter    float64 `json:"diameter"`
}

func decodeBody(w http.ResponseWriter, r *http.Request) (switchBody, bool) {
	var body switchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return body, false
	}
	return body, true
}

func (s *Server) handleOption(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var set func(context.Context, bool) error
	switch chi.URLParam(r, "option") {
	case decoder.OptAutoRecoveryStepLoss.String():
		set = sess.SetAutoRecoveryStepLoss
	case decoder.OptPromptSound.String():
		set = sess.SetPromptSound
	case decoder.OptFilamentTangleDetect.String():
		set = sess.SetFilamentTangleDetect
	case decoder.OptAmsAutoSwitch.String():
		set = sess.SetAmsAutoSwitch
	case decoder.OptNozzleBlobDetection.String():
		set = sess.SetNozzleBlobDetection
	case decoder.OptRecordWhenPrinting.String():
		set = sess.SetRecordWhenPrinting
	case decoder.OptTimelapse.String():
		set = sess.SetTimelapse
	default:
		writeError(w, http.StatusNotFound, "unknown option")
		return
	}

	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	if body.On == nil {
		writeError(w, http.StatusBadRequest, "field 'on' is required")
		return
	}
	s.commandResult(w, sess.ID(), set(r.Context(), *body.On))
}

func (s *Server) handleXCam(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	module := chi.URLParam(r, "module")
	switch module {
	case device.XCamPrintingMonitor, device.XCamFirstLayer, device.XCamBuildplateMarker:
	default:
		writeError(w, http.StatusNotFound, "unknown xcam module")
		return
	}

	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	if body.On == nil {
		writeError(w, http.StatusBadRequest, "field 'on' is required")
		return
	}
	s.commandResult(w, sess.ID(), sess.SetXCam(r.Context(), module, *body.On, body.Sensitivity))
}

func (s *Server) handleResolution(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	if body.Resolution == "" {
		writeError(w, http.StatusBadRequest, "field 'resolution' is required")
		return
	}
	s.commandResult(w, sess.ID(), sess.SetCameraResolution(r.Context(), body.Resolution))
}

func (s *Server) handleNozzle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	if body.Type == "" || body.Diameter <= 0 {
		writeError(w, http.StatusBadRequest, "fields 'type' and 'diameter' are required")
		return
	}
	s.commandResult(w, sess.ID(), sess.SetNozzle(r.Context(), body.Type, body.Diameter))
}
