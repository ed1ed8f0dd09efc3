// Package session implements the interaction core of the assistant: a
// background recognition loop that listens for Turkish utterances, resolves
// and executes commands, and speaks the responses.
//
// A [Session] owns four pieces of state: the loop goroutine, the speech gate
// that serializes playback, the bounded conversation history feeding the chat
// provider, and the latency statistics surfaced on the control API. The loop
// never dies from a failed interaction; only Stop (or a cancelled loop
// context) ends it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bkaraca/dinle/internal/command"
	"github.com/bkaraca/dinle/internal/observe"
	"github.com/bkaraca/dinle/pkg/audio"
	"github.com/bkaraca/dinle/pkg/provider/chat"
	"github.com/bkaraca/dinle/pkg/provider/stt"
	"github.com/bkaraca/dinle/pkg/provider/tts"
)

// ErrNotSpeaking is returned by [Session.CancelSpeech] when no utterance is
// being spoken.
var ErrNotSpeaking = errors.New("session: not speaking")

// State is the observable mode of a [Session].
type State int32

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateSpeaking
)

// String returns the lowercase state name used in logs and on the control
// surface.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Default session parameters.
const (
	defaultListenTimeout = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryDelay    = 1 * time.Second
	defaultIdleSleep     = 100 * time.Millisecond
	defaultErrorSleep    = 1 * time.Second
	defaultStopTimeout   = 2 * time.Second
	defaultLanguage      = "tr-TR"
	defaultCity          = "Istanbul"
)

// Config tunes a [Session]. The zero value is usable; zero fields take the
// package defaults.
type Config struct {
	// ListenTimeout bounds a single Listen call on the recognizer.
	ListenTimeout time.Duration

	// MaxRetries is the number of Listen attempts per loop iteration before
	// the iteration is abandoned as silence.
	MaxRetries int

	// RetryDelay is the pause between Listen attempts.
	RetryDelay time.Duration

	// IdleSleep is the pause after an iteration that heard nothing.
	IdleSleep time.Duration

	// ErrorSleep is the pause after a recognition service failure.
	ErrorSleep time.Duration

	// StopTimeout bounds how long Stop waits for the loop goroutine to
	// finish.
	StopTimeout time.Duration

	// Language is the recognition language tag reported on the control
	// surface.
	Language string

	// DefaultCity seeds the weather command when an utterance names no city.
	DefaultCity string

	// HistoryLimit bounds the conversation history. Zero keeps the
	// [NewHistory] default.
	HistoryLimit int
}

func (c Config) withDefaults() Config {
	if c.ListenTimeout <= 0 {
		c.ListenTimeout = defaultListenTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = defaultIdleSleep
	}
	if c.ErrorSleep <= 0 {
		c.ErrorSleep = defaultErrorSleep
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = defaultStopTimeout
	}
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.DefaultCity == "" {
		c.DefaultCity = defaultCity
	}
	return c
}

// Deps are the collaborators a [Session] drives. Recognizer, Registry,
// Executor, Chat, Speaker and Player are required.
type Deps struct {
	Recognizer stt.Recognizer
	Registry   *command.Registry
	Executor   *command.Executor
	Chat       chat.Provider
	Speaker    tts.Speaker
	Player     audio.Player

	// Metrics defaults to observe.DefaultMetrics when nil.
	Metrics *observe.Metrics

	// OnEvent, when set, receives the user-visible session lines
	// ("Siz: ...", "Dinle: ...") for fan-out to control clients.
	// It must not block.
	OnEvent func(severity slog.Level, message string)
}

// Session owns the recognition loop, the speech gate, the conversation
// history and the loop statistics. All exported methods are safe for
// concurrent use.
type Session struct {
	cfg      Config
	rec      stt.Recognizer
	registry *command.Registry
	exec     *command.Executor
	chat     chat.Provider
	gate     *gate
	history  *History
	stats    *Stats
	metrics  *observe.Metrics
	onEvent  func(severity slog.Level, message string)

	state     atomic.Int32
	listening atomic.Bool

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	loopDone  chan struct{}
	startedAt time.Time
	lastHeard string
	lastReply string
}

// New builds a Session over deps. It returns an error when a required
// collaborator is missing.
func New(cfg Config, deps Deps) (*Session, error) {
	switch {
	case deps.Recognizer == nil:
		return nil, errors.New("session: nil recognizer")
	case deps.Registry == nil:
		return nil, errors.New("session: nil registry")
	case deps.Executor == nil:
		return nil, errors.New("session: nil executor")
	case deps.Chat == nil:
		return nil, errors.New("session: nil chat provider")
	case deps.Speaker == nil:
		return nil, errors.New("session: nil speaker")
	case deps.Player == nil:
		return nil, errors.New("session: nil player")
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	s := &Session{
		cfg:      cfg.withDefaults(),
		rec:      deps.Recognizer,
		registry: deps.Registry,
		exec:     deps.Executor,
		chat:     deps.Chat,
		gate:     newGate(deps.Speaker, deps.Player, metrics),
		history:  NewHistory(cfg.HistoryLimit),
		stats:    NewStats(0),
		metrics:  metrics,
		onEvent:  deps.OnEvent,
	}
	s.state.Store(int32(StateIdle))
	return s, nil
}

// Start launches the recognition loop. It is idempotent: a second Start
// while the loop runs returns nil and does not spawn a second loop. The
// startup announcement is spoken before the loop begins; ctx governs only
// that announcement, the loop itself runs until Stop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.loopDone = done
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.listening.Store(true)
	s.setState(ctx, StateListening)
	slog.Info("session started", "language", s.cfg.Language)

	const greeting = "Ses tanıma başlatılıyor..."
	s.notify(slog.LevelInfo, greeting)
	if _, err := s.Speak(ctx, greeting); err != nil {
		slog.Error("startup announcement failed", "err", err)
	}

	go s.loop(loopCtx, done)
	return nil
}

// Stop winds the recognition loop down: it clears the listening flag,
// cancels the loop context, cuts any playing utterance short, and waits for
// the loop goroutine with the configured join timeout. On timeout it logs a
// warning and returns so that callers never hang on a stuck backend.
// Stop is idempotent and callable from any state.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	done := s.loopDone
	s.mu.Unlock()

	s.listening.Store(false)
	cancel()
	if err := s.gate.interrupt(); err != nil && !errors.Is(err, ErrNotSpeaking) {
		slog.Warn("stopping playback failed", "err", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("recognition loop did not finish in time", "err", ctx.Err())
		return ctx.Err()
	case <-time.After(s.cfg.StopTimeout):
		slog.Warn("recognition loop did not finish in time")
	}
	slog.Info("session stopped")
	return nil
}

// CancelSpeech stops the utterance currently playing and lets the loop
// proceed to the next listen cycle. It returns [ErrNotSpeaking] when the
// session is not speaking.
func (s *Session) CancelSpeech() error {
	if err := s.gate.interrupt(); err != nil {
		return err
	}
	s.stats.CountInterrupt()
	slog.Info("speech cancelled")
	return nil
}

// Speak synthesizes text and plays it through the speech gate. It reports
// false with a nil error for empty or whitespace-only text without touching
// the speaker. Utterances are serialized; a concurrent Speak waits its turn.
func (s *Session) Speak(ctx context.Context, text string) (bool, error) {
	start := time.Now()
	spoke, err := s.gate.speak(ctx, text)
	if spoke && err == nil {
		s.stats.RecordSpeech(time.Since(start))
	}
	return spoke, err
}

// State returns the current session state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// History returns the session's conversation history.
func (s *Session) History() *History {
	return s.history
}

// Summary renders the Turkish conversation summary.
func (s *Session) Summary() string {
	return s.history.Summary()
}

// Stats returns a point-in-time copy of the loop statistics.
func (s *Session) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// Snapshot is a point-in-time view of the session for the control surface.
type Snapshot struct {
	State         State
	Listening     bool
	Speaking      bool
	Language      string
	StartedAt     time.Time
	LastUtterance string
	LastResponse  string
}

// StateSnapshot returns the current session view.
func (s *Session) StateSnapshot() Snapshot {
	s.mu.Lock()
	startedAt := s.startedAt
	heard := s.lastHeard
	reply := s.lastReply
	s.mu.Unlock()

	return Snapshot{
		State:         s.State(),
		Listening:     s.listening.Load(),
		Speaking:      s.gate.isSpeaking(),
		Language:      s.cfg.Language,
		StartedAt:     startedAt,
		LastUtterance: heard,
		LastResponse:  reply,
	}
}

func (s *Session) setState(ctx context.Context, st State) {
	s.state.Store(int32(st))
	s.metrics.RecordSessionState(ctx, int64(st))
}

// notify fans a user-visible line out to the control stream.
func (s *Session) notify(severity slog.Level, message string) {
	if s.onEvent != nil {
		s.onEvent(severity, message)
	}
}

func (s *Session) hear(text string) {
	s.stats.CountUtterance()
	s.mu.Lock()
	s.lastHeard = text
	s.mu.Unlock()
}

func (s *Session) setReply(text string) {
	s.mu.Lock()
	s.lastReply = text
	s.mu.Unlock()
}
