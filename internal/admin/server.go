package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"droneops-console/internal/dispatch"
	"droneops-console/internal/mapview"
	"droneops-console/internal/ops"
)

// StateSource provides read-only machine snapshots.
type StateSource interface {
	Snapshot() ops.Snapshot
}

// MapSource exposes the map engine's registry.
type MapSource interface {
	Layers() []mapview.LayerSpec
	Degraded() bool
}

// AdvisorySource lists recent operator advisories.
type AdvisorySource interface {
	Advisories() []dispatch.Advisory
}

// Submitter hands a command to the console event loop. It reports false
// when the loop is no longer accepting work.
type Submitter func(input string) bool

// Server is a small read-mostly HTTP endpoint. Commands are queued on the
// event loop, never executed on the request goroutine.
type Server struct {
	state      StateSource
	layers     MapSource
	advisories AdvisorySource
	submit     Submitter
	tpl        *template.Template
	log        *slog.Logger
}

//go:embed templates/index.html
var content embed.FS

// NewServer creates a server. layers and advisories may be nil.
func NewServer(state StateSource, layers MapSource, advisories AdvisorySource, submit Submitter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	tpl := template.Must(template.New("index.html").Funcs(template.FuncMap{
		"upper": strings.ToUpper,
	}).ParseFS(content, "templates/index.html"))
	return &Server{state: state, layers: layers, advisories: advisories, submit: submit, tpl: tpl, log: log}
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /layers", s.handleLayers)
	mux.HandleFunc("GET /advisories", s.handleAdvisories)
	mux.HandleFunc("POST /command", s.handleCommand)
	return mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("admin endpoint listening", "addr", addr)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Snap       ops.Snapshot
		Layers     int
		Degraded   bool
		Advisories []dispatch.Advisory
	}{Snap: s.state.Snapshot()}
	if s.layers != nil {
		data.Layers = len(s.layers.Layers())
		data.Degraded = s.layers.Degraded()
	}
	if s.advisories != nil {
		data.Advisories = s.advisories.Advisories()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Error("render index", "err", err)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	if s.layers == nil {
		writeJSON(w, http.StatusOK, map[string]any{"degraded": true, "layers": []mapview.LayerSpec{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"degraded": s.layers.Degraded(), "layers": s.layers.Layers()})
}

func (s *Server) handleAdvisories(w http.ResponseWriter, r *http.Request) {
	var out []dispatch.Advisory
	if s.advisories != nil {
		out = s.advisories.Advisories()
	}
	if out == nil {
		out = []dispatch.Advisory{}
	}
	writeJSON(w, http.StatusOK, out)
}

type commandRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	} else {
		req.Input = r.FormValue("input")
	}
	req.Input = strings.TrimSpace(req.Input)
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "input is required"})
		return
	}
	if s.submit == nil || !s.submit(req.Input) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "console is shutting down"})
		return
	}
	s.log.Info("admin command queued", "input", req.Input)
	writeJSON(w, http.StatusAccepted, map[string]string{"queued": req.Input})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
