package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bkaraca/dinle/internal/command"
	"github.com/bkaraca/dinle/internal/health"
	"github.com/bkaraca/dinle/internal/observe"
	"github.com/bkaraca/dinle/internal/session"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8844"

// eventWriteTimeout bounds a single websocket event write.
const eventWriteTimeout = 5 * time.Second

// Assistant is the slice of the session the control surface drives.
type Assistant interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	CancelSpeech() error
	StateSnapshot() session.Snapshot
	Stats() session.StatsSnapshot
	Summary() string
}

// The session satisfies Assistant.
var _ Assistant = (*session.Session)(nil)

// Config tunes the control server.
type Config struct {
	// Addr is the listen address. Empty means [DefaultAddr].
	Addr string

	// StopTimeout bounds the session shutdown triggered by POST /api/stop.
	// Zero means 10 seconds.
	StopTimeout time.Duration
}

// Deps are the collaborators the server exposes. Session, Registry, Health
// and Hub are required.
type Deps struct {
	Session  Assistant
	Registry *command.Registry
	Health   *health.Handler
	Hub      *Hub

	// Metrics feeds the HTTP middleware. Nil uses observe.DefaultMetrics.
	Metrics *observe.Metrics
}

// Server is the HTTP control surface. Create it with [New], bind it with
// [Server.Start], and stop it with [Server.Shutdown].
type Server struct {
	cfg     Config
	deps    Deps
	httpSrv *http.Server

	mu sync.Mutex
	ln net.Listener
}

// New assembles the route table and returns an unstarted server.
func New(cfg Config, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}

	s := &Server{cfg: cfg, deps: deps}

	api := http.NewServeMux()
	deps.Health.Register(api)
	api.Handle("GET /metrics", promhttp.Handler())
	api.HandleFunc("GET /api/status", s.handleStatus)
	api.HandleFunc("GET /api/commands", s.handleCommands)
	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("POST /api/start", s.handleStart)
	api.HandleFunc("POST /api/stop", s.handleStop)
	api.HandleFunc("POST /api/cancel-speech", s.handleCancelSpeech)

	// The websocket route bypasses the middleware: the connection lives for
	// the whole subscription, so a request-latency sample would be
	// meaningless, and the upgrade needs the raw ResponseWriter to hijack.
	root := http.NewServeMux()
	root.Handle("/", observe.Middleware(deps.Metrics)(api))
	root.HandleFunc("GET /ws/events", s.handleEvents)

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start binds the listen address and serves in a background goroutine. It
// returns an error only when the bind itself fails.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("control: listen %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("control server failed", "err", err)
		}
	}()

	slog.Info("control server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address once [Server.Start] succeeded, and ""
// before that. After a successful Start the result pins down the real port
// even when the config asked for ":0".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Handler returns the assembled route table, mainly for tests that serve it
// through httptest instead of a real listener.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Shutdown closes the event hub, which ends all websocket streams, and then
// drains the HTTP server within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.deps.Hub.Close()
	return s.httpSrv.Shutdown(ctx)
}

// --- JSON shapes ---

type statusMessage struct {
	Status string `json:"status"`
}

type errorMessage struct {
	Error string `json:"error"`
}

type latencyInfo struct {
	Count int     `json:"count"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

type statsInfo struct {
	Utterances  uint64      `json:"utterances"`
	Fallbacks   uint64      `json:"fallbacks"`
	Interrupts  uint64      `json:"interrupts"`
	Recognition latencyInfo `json:"recognition"`
	Execution   latencyInfo `json:"execution"`
	Speech      latencyInfo `json:"speech"`
}

type statusResponse struct {
	State         string    `json:"state"`
	Listening     bool      `json:"listening"`
	Speaking      bool      `json:"speaking"`
	Language      string    `json:"language"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	LastUtterance string    `json:"last_utterance,omitempty"`
	LastResponse  string    `json:"last_response,omitempty"`
	Stats         statsInfo `json:"stats"`
}

type commandInfo struct {
	Name        string   `json:"name"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description,omitempty"`
}

func latencyJSON(l session.LatencySummary) latencyInfo {
	return latencyInfo{
		Count: l.Count,
		P50Ms: float64(l.P50) / float64(time.Millisecond),
		P95Ms: float64(l.P95) / float64(time.Millisecond),
	}
}

// --- Handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.deps.Session.StateSnapshot()
	stats := s.deps.Session.Stats()

	writeJSON(w, http.StatusOK, statusResponse{
		State:         snap.State.String(),
		Listening:     snap.Listening,
		Speaking:      snap.Speaking,
		Language:      snap.Language,
		StartedAt:     snap.StartedAt,
		LastUtterance: snap.LastUtterance,
		LastResponse:  snap.LastResponse,
		Stats: statsInfo{
			Utterances:  stats.Utterances,
			Fallbacks:   stats.Fallbacks,
			Interrupts:  stats.Interrupts,
			Recognition: latencyJSON(stats.Recognition),
			Execution:   latencyJSON(stats.Execution),
			Speech:      latencyJSON(stats.Speech),
		},
	})
}

func (s *Server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	specs := s.deps.Registry.Commands()
	out := make([]commandInfo, 0, len(specs))
	for _, spec := range specs {
		out = append(out, commandInfo{
			Name:        spec.Name,
			Keywords:    spec.Keywords,
			Description: spec.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]commandInfo{"commands": out})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"summary": s.deps.Session.Summary()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Session.Start(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorMessage{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusMessage{Status: "started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.StopTimeout)
	defer cancel()

	if err := s.deps.Session.Stop(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorMessage{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusMessage{Status: "stopped"})
}

func (s *Server) handleCancelSpeech(w http.ResponseWriter, _ *http.Request) {
	err := s.deps.Session.CancelSpeech()
	switch {
	case errors.Is(err, session.ErrNotSpeaking):
		writeJSON(w, http.StatusConflict, errorMessage{Error: "not speaking"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorMessage{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, statusMessage{Status: "cancelled"})
	}
}

// handleEvents upgrades to a websocket and streams hub events until the
// client disconnects or the hub closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	// Publish-only connection: CloseRead discards client frames and cancels
	// the context when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	events, cancel := s.deps.Hub.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server stopping")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Error("event encode failed", "err", err)
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, eventWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}
