package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bkaraca/dinle/pkg/provider/chat"
	"github.com/bkaraca/dinle/pkg/provider/stt"
)

// loop is the recognition loop. It runs until ctx is cancelled or the
// listening flag is cleared, and closes done on exit.
func (s *Session) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer s.setState(context.Background(), StateIdle)

	for {
		if !s.listening.Load() || ctx.Err() != nil {
			return
		}
		s.iterate(ctx)
	}
}

// iterate performs one listen, respond, speak cycle. A failed interaction
// never terminates the loop; the user hears an apology and the session keeps
// listening.
func (s *Session) iterate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("interaction cycle panicked", "panic", r)
			if _, err := s.Speak(ctx, "Üzgünüm, bir hata oluştu. Lütfen tekrar deneyin."); err != nil {
				slog.Error("speech failed", "err", err)
			}
			s.setState(ctx, StateListening)
		}
	}()

	text, err := s.listenOnce(ctx)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	switch {
	case err == nil:
	case isTransientListen(err):
		// Silence is routine; wait a beat and listen again.
		_ = sleepCtx(ctx, s.cfg.IdleSleep)
		return
	default:
		// Backend failure: tell the user once, pause, keep listening.
		slog.Error("recognition failed", "err", err)
		const msg = "Ses tanıma sırasında bir hata oluştu. Yeniden başlatılıyor..."
		s.notify(slog.LevelError, msg)
		if _, serr := s.Speak(ctx, msg); serr != nil {
			slog.Error("speech failed", "err", serr)
		}
		_ = sleepCtx(ctx, s.cfg.ErrorSleep)
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		_ = sleepCtx(ctx, s.cfg.IdleSleep)
		return
	}

	s.hear(text)
	slog.Info("utterance recognized", "text", text)
	s.notify(slog.LevelInfo, "Siz: "+text)

	s.setState(ctx, StateProcessing)
	start := time.Now()
	resp := s.respond(ctx, text)
	s.stats.RecordExecution(time.Since(start))

	if resp != "" {
		s.setReply(resp)
		slog.Info("response ready", "text", resp)
		s.notify(slog.LevelInfo, "Dinle: "+resp)

		s.setState(ctx, StateSpeaking)
		if _, err := s.Speak(ctx, resp); err != nil {
			slog.Error("speech failed", "err", err)
		}
	}
	s.setState(ctx, StateListening)
}

// listenOnce runs Listen under the no-speech retry policy and the configured
// listen window.
func (s *Session) listenOnce(ctx context.Context) (string, error) {
	policy := Retry{
		MaxAttempts: s.cfg.MaxRetries,
		Delay:       s.cfg.RetryDelay,
		OnRetry: func(attempt int, err error) {
			s.metrics.RecordRecognizeRetry(ctx)
			slog.Debug("retrying recognition", "attempt", attempt, "err", err)
		},
	}

	var text string
	err := policy.Do(ctx, isTransientListen, func(ctx context.Context) error {
		lctx, cancel := context.WithTimeout(ctx, s.cfg.ListenTimeout)
		defer cancel()

		start := time.Now()
		heard, err := s.rec.Listen(lctx)
		if err != nil {
			// A done parent means shutdown, not a missed listen window.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		s.stats.RecordRecognition(time.Since(start))
		text = heard
		return nil
	})
	return text, err
}

// isTransientListen reports whether a Listen failure may be retried: the
// recognizer heard nothing or the listen window elapsed.
func isTransientListen(err error) bool {
	return errors.Is(err, stt.ErrNoSpeech) || errors.Is(err, context.DeadlineExceeded)
}

// respond resolves text to a registered command or falls back to
// conversation.
func (s *Session) respond(ctx context.Context, text string) string {
	if m, ok := s.registry.Resolve(text); ok {
		return s.exec.Execute(ctx, m, text)
	}
	return s.fallback(ctx, text)
}

// fallback sends an unmatched utterance to the chat provider and records the
// exchange in the history on success.
func (s *Session) fallback(ctx context.Context, text string) string {
	s.stats.CountFallback()

	reply, err := s.chat.Respond(ctx, s.history.Messages(), text)
	if err != nil {
		slog.Error("chat fallback failed", "err", err)
		s.metrics.RecordUtterance(ctx, "fallback", "error")
		return "Üzgünüm, şu anda isteğinizi işleyemiyorum. Lütfen daha sonra tekrar deneyin."
	}
	s.metrics.RecordUtterance(ctx, "fallback", "ok")

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "Üzgünüm, şu anda cevap veremiyorum"
	}
	s.history.Append(chat.RoleUser, text)
	s.history.Append(chat.RoleAssistant, reply)
	return reply
}
