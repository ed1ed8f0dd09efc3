package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/bkaraca/dinle/pkg/provider/chat"
	"github.com/bkaraca/dinle/pkg/provider/stt"
	sttmock "github.com/bkaraca/dinle/pkg/provider/stt/mock"
)

func TestLoop_ExecutesCommand(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, []sttmock.ListenResult{{Text: "saat kaç"}})
	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return f.spokenSeen("Şu anki saat: 12:00:00") }, "clock response")

	if !f.eventSeen("Siz: saat kaç") {
		t.Error("recognized utterance not fanned out")
	}
	if !f.eventSeen("Dinle: Şu anki saat: 12:00:00") {
		t.Error("assistant response not fanned out")
	}
	if got := f.sess.Stats().Utterances; got != 1 {
		t.Errorf("Utterances = %d, want 1", got)
	}
}

func TestLoop_ChatFallback(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, []sttmock.ListenResult{{Text: "bugün nasılsın"}})
	f.chat.RespondResult = "İyiyim, teşekkür ederim!"

	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return f.spokenSeen("İyiyim, teşekkür ederim!") }, "chat reply")

	if len(f.chat.RespondCalls) != 1 {
		t.Fatalf("Respond called %d times", len(f.chat.RespondCalls))
	}
	call := f.chat.RespondCalls[0]
	if call.Utterance != "bugün nasılsın" {
		t.Errorf("utterance = %q", call.Utterance)
	}
	if len(call.History) != 0 {
		t.Errorf("first turn carried %d history messages", len(call.History))
	}

	msgs := f.sess.History().Messages()
	if len(msgs) != 2 {
		t.Fatalf("history length = %d, want 2", len(msgs))
	}
	if msgs[0].Role != chat.RoleUser || msgs[0].Content != "bugün nasılsın" {
		t.Errorf("history[0] = %+v", msgs[0])
	}
	if msgs[1].Role != chat.RoleAssistant || msgs[1].Content != "İyiyim, teşekkür ederim!" {
		t.Errorf("history[1] = %+v", msgs[1])
	}
	if got := f.sess.Stats().Fallbacks; got != 1 {
		t.Errorf("Fallbacks = %d, want 1", got)
	}
}

func TestLoop_ChatFallbackProviderError(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, []sttmock.ListenResult{{Text: "bana bir şey anlat"}})
	f.chat.RespondErr = errors.New("model offline")

	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	const want = "Üzgünüm, şu anda isteğinizi işleyemiyorum. Lütfen daha sonra tekrar deneyin."
	waitFor(t, func() bool { return f.spokenSeen(want) }, "fallback apology")

	if got := f.sess.History().Len(); got != 0 {
		t.Errorf("failed turn left %d history messages", got)
	}
}

func TestLoop_ServiceErrorSpeaksAndContinues(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, []sttmock.ListenResult{
		{Err: &stt.ServiceError{Provider: "whisper", Err: errors.New("model crashed")}},
		{Text: "saat kaç"},
	})
	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	const errLine = "Ses tanıma sırasında bir hata oluştu. Yeniden başlatılıyor..."
	waitFor(t, func() bool { return f.spokenSeen(errLine) }, "recognition error line")
	waitFor(t, func() bool { return f.spokenSeen("Şu anki saat: 12:00:00") }, "recovery response")

	if !f.eventSeen(errLine) {
		t.Error("recognition error not fanned out")
	}
}

func TestLoop_NoSpeechRetriedSilently(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, []sttmock.ListenResult{
		{Err: stt.ErrNoSpeech},
		{Err: stt.ErrNoSpeech},
		{Err: stt.ErrNoSpeech},
		{Text: "saat kaç"},
	})
	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return f.spokenSeen("Şu anki saat: 12:00:00") }, "clock response")

	if f.spokenSeen("Ses tanıma sırasında bir hata oluştu. Yeniden başlatılıyor...") {
		t.Error("transient misses surfaced to the user")
	}
	if got := f.sess.Stats().Utterances; got != 1 {
		t.Errorf("Utterances = %d, want 1", got)
	}
}

func TestLoop_PanicRecovery(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t, []sttmock.ListenResult{
		{Text: "saat kaç"},
		{Text: "saat kaç"},
	})

	// The first recognized-utterance line panics inside the cycle; the
	// loop must apologize and the next cycle must run normally.
	orig := f.sess.onEvent
	var once sync.Once
	f.sess.onEvent = func(level slog.Level, msg string) {
		if strings.HasPrefix(msg, "Siz: ") {
			blew := false
			once.Do(func() { blew = true })
			if blew {
				panic("event sink exploded")
			}
		}
		orig(level, msg)
	}

	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool {
		return f.spokenSeen("Üzgünüm, bir hata oluştu. Lütfen tekrar deneyin.")
	}, "cycle apology")
	waitFor(t, func() bool { return f.spokenSeen("Şu anki saat: 12:00:00") }, "recovery response")
}
