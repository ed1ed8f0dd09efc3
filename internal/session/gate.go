package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bkaraca/dinle/internal/observe"
	"github.com/bkaraca/dinle/pkg/audio"
	"github.com/bkaraca/dinle/pkg/provider/tts"
)

// gate serializes speech so that one utterance plays at a time. The speaking
// flag covers synthesis and playback and is cleared on every exit path.
type gate struct {
	speaker tts.Speaker
	player  audio.Player
	metrics *observe.Metrics

	mu       sync.Mutex
	speaking atomic.Bool
}

func newGate(speaker tts.Speaker, player audio.Player, metrics *observe.Metrics) *gate {
	return &gate{speaker: speaker, player: player, metrics: metrics}
}

// speak synthesizes text and plays the resulting clip. Empty or
// whitespace-only text reports false without touching the speaker.
func (g *gate) speak(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.speaking.Store(true)
	defer g.speaking.Store(false)

	start := time.Now()
	clip, err := g.speaker.Synthesize(ctx, text)
	if err != nil {
		return false, fmt.Errorf("synthesize: %w", err)
	}
	if err := g.player.Play(ctx, clip); err != nil {
		return false, fmt.Errorf("play: %w", err)
	}
	g.metrics.RecordSpeech(ctx, time.Since(start).Seconds())
	return true, nil
}

// interrupt cuts the current utterance short. The interrupted speak call
// observes the truncation through its player and returns on its own.
func (g *gate) interrupt() error {
	if !g.speaking.Load() {
		return ErrNotSpeaking
	}
	if err := g.player.Stop(); err != nil {
		return fmt.Errorf("stop playback: %w", err)
	}
	return nil
}

func (g *gate) isSpeaking() bool {
	return g.speaking.Load()
}
