// Package server exposes the keyboard, analyzer and sequencer over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/musetheory-go"
	"github.com/cbegin/musetheory-go/internal/keyboard"
	"github.com/cbegin/musetheory-go/internal/midiexport"
	"github.com/cbegin/musetheory-go/internal/notes"
	"github.com/cbegin/musetheory-go/internal/sequencer"
	"github.com/cbegin/musetheory-go/internal/theory"
	"github.com/cbegin/musetheory-go/internal/voice"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	// MaxBodyBytes caps every request body.
	MaxBodyBytes = 64 << 10
	// MaxNotes caps the notes in one play request.
	MaxNotes = 64
)

// Player plays a schedule on the server's audio device.
type Player interface {
	PlayEvents(ctx context.Context, events []sequencer.Event, instrument voice.Instrument) (time.Duration, error)
}

// Renderer turns a schedule into a WAV file.
type Renderer func(events []sequencer.Event, instrument voice.Instrument, sampleRate int, bpm float64) ([]byte, error)

type Options struct {
	SampleRate     int
	BPM            float64
	Step           time.Duration // arpeggio spacing; 0 = sequencer.DefaultStep
	AllowedOrigins []string
	Log            logrus.FieldLogger
	// Player is optional; without it /api/play answers 501.
	Player Player
	Render Renderer
}

type Server struct {
	opts   Options
	log    logrus.FieldLogger
	router *mux.Router
}

func New(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.BPM <= 0 {
		opts.BPM = notes.DefaultBPM
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 48000
	}
	s := &Server{opts: opts, log: opts.Log, router: mux.NewRouter().StrictSlash(true)}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestID)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/keyboard", s.handleKeyboard).Methods(http.MethodGet)
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodGet)
	api.HandleFunc("/visualize", s.handleVisualize).Methods(http.MethodPost)
	api.HandleFunc("/schedule", s.handleSchedule).Methods(http.MethodPost)
	api.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodPost)
	api.HandleFunc("/play", s.handlePlay).Methods(http.MethodPost)
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	}).Handler(s.router)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type ctxKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		s.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"elapsed":    time.Since(start),
		}).Info("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) reqLog(r *http.Request) logrus.FieldLogger {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return s.log.WithField("request_id", id)
}

// playRequest is the body shared by schedule, render, export and play.
type playRequest struct {
	Notes      []string         `json:"notes"`
	Instrument voice.Instrument `json:"instrument"`
	Duration   notes.Length     `json:"duration"`
}

func (s *Server) schedule(names []string, length notes.Length) []sequencer.Event {
	return sequencer.ScheduleWithOptions(names, length, sequencer.Options{Step: s.opts.Step})
}

func (p *playRequest) instrument() voice.Instrument {
	if p.Instrument == "" {
		return voice.Piano
	}
	return p.Instrument
}

type visualization struct {
	Analysis theory.Analysis    `json:"analysis"`
	Keys     []keyboard.KeySlot `json:"keys"`
	Events   []sequencer.Event  `json:"events,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleKeyboard(w http.ResponseWriter, r *http.Request) {
	var names []string
	for _, part := range strings.Split(r.URL.Query().Get("highlight"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	writeJSON(w, http.StatusOK, keyboard.Layout(keyboard.NewHighlightSet(names...)))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	a, err := theory.Analyze(r.URL.Query().Get("q"))
	if err != nil {
		s.reqLog(r).WithError(err).Warn("analysis failed")
		writeError(w, http.StatusUnprocessableEntity, theory.FailureMessage)
		return
	}
	writeJSON(w, http.StatusOK, visualization{
		Analysis: a,
		Keys:     keyboard.Layout(keyboard.NewHighlightSet(a.Notes...)),
	})
}

func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	a, err := theory.DecodeAnalysis(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.reqLog(r).WithError(err).Warn("rejecting analysis")
		writeError(w, http.StatusUnprocessableEntity, theory.FailureMessage)
		return
	}
	writeJSON(w, http.StatusOK, visualization{
		Analysis: a,
		Keys:     keyboard.Layout(keyboard.NewHighlightSet(a.Notes...)),
		Events:   s.schedule(a.Notes, notes.DefaultLength),
	})
}

func (s *Server) decodePlay(w http.ResponseWriter, r *http.Request) (*playRequest, bool) {
	var req playRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", MaxBodyBytes))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return nil, false
	}
	if len(req.Notes) > MaxNotes {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d notes per request", MaxNotes))
		return nil, false
	}
	if req.Duration == "" {
		req.Duration = notes.DefaultLength
	}
	if _, err := req.Duration.Duration(s.opts.BPM); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePlay(w, r)
	if !ok {
		return
	}
	events := s.schedule(req.Notes, req.Duration)
	if events == nil {
		events = []sequencer.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePlay(w, r)
	if !ok {
		return
	}
	if s.opts.Render == nil {
		writeError(w, http.StatusNotImplemented, "rendering is not configured")
		return
	}
	wav, err := s.opts.Render(s.schedule(req.Notes, req.Duration), req.instrument(), s.opts.SampleRate, s.opts.BPM)
	if err != nil {
		switch {
		case errors.Is(err, notes.ErrInvalidLength):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, musetheory.ErrRenderTooLong):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.reqLog(r).WithError(err).Error("render failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(wav) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "nothing to render")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePlay(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	err := midiexport.Write(&buf, s.schedule(req.Notes, req.Duration), midiexport.Options{
		BPM:        s.opts.BPM,
		Instrument: req.instrument(),
		Log:        s.reqLog(r),
	})
	if err != nil {
		s.reqLog(r).WithError(err).Error("export failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", `attachment; filename="musetheory.mid"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePlay(w, r)
	if !ok {
		return
	}
	if s.opts.Player == nil {
		writeError(w, http.StatusNotImplemented, "audio output is not enabled")
		return
	}
	end, err := s.opts.Player.PlayEvents(r.Context(), s.schedule(req.Notes, req.Duration), req.instrument())
	if err != nil {
		s.reqLog(r).WithError(err).Error("playback failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"instrument": req.instrument(),
		"seconds":    end.Seconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
