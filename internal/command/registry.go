// Package command implements the voice command registry and executor.
//
// Commands are registered with ordered keyword lists and resolved against
// recognized utterances by substring containment, with spoken alias phrases
// as a second-chance vocabulary. Execution is panic-safe and bounded by a
// weighted semaphore so a slow handler cannot starve the assistant.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Request carries one resolved utterance into a handler.
type Request struct {
	// Utterance is the full recognized text, trimmed and lowercased with
	// Turkish case rules.
	Utterance string

	// Command is the canonical name of the matched command.
	Command string

	// Args is the utterance with the matched keyword removed, for handlers
	// that parse a payload ("haber ara teknoloji" yields "teknoloji").
	Args string
}

// HandlerFunc is the signature shared by both handler kinds.
type HandlerFunc func(ctx context.Context, req Request) (string, error)

// Handler is a tagged command handler. Construct one with Sync or Async;
// the zero value is invalid and rejected by Register.
type Handler struct {
	fn    HandlerFunc
	async bool
}

// Sync wraps a handler that the executor offloads to the bounded worker
// pool. Use it for handlers that block on provider IO.
func Sync(fn HandlerFunc) Handler { return Handler{fn: fn} }

// Async wraps a handler that runs inline on the calling goroutine because
// it is quick or manages its own concurrency.
func Async(fn HandlerFunc) Handler { return Handler{fn: fn, async: true} }

// Spec describes one registered command.
type Spec struct {
	// Name is the canonical command id ("hava durumu").
	Name string

	// Keywords are the substrings that trigger the command, in priority
	// order.
	Keywords []string

	// Handler executes the command.
	Handler Handler

	// Description is the human-readable summary shown on the control
	// surface.
	Description string
}

// Match identifies the command an utterance resolved to.
type Match struct {
	// Name is the canonical command id.
	Name string

	// Keyword is the keyword or alias phrase that matched.
	Keyword string

	// ViaAlias reports whether an alias phrase produced the match.
	ViaAlias bool
}

type alias struct {
	phrase string // lowered
	target string
}

// Registry holds command specs in registration order plus the spoken alias
// vocabulary. Registration order is resolution priority: when two keywords
// both occur in an utterance the earlier-registered command wins, and any
// keyword beats any alias.
type Registry struct {
	mu      sync.RWMutex
	specs   []Spec
	matches [][]string // lowered keywords, parallel to specs
	byName  map[string]int
	aliases []alias
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register appends spec to the registry. The name must be unique, and both
// the name and every keyword must be non-empty.
func (r *Registry) Register(spec Spec) error {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return errors.New("command: register: empty name")
	}
	if len(spec.Keywords) == 0 {
		return fmt.Errorf("command: register %q: no keywords", spec.Name)
	}
	if spec.Handler.fn == nil {
		return fmt.Errorf("command: register %q: nil handler", spec.Name)
	}
	lowered := make([]string, len(spec.Keywords))
	for i, kw := range spec.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("command: register %q: empty keyword", spec.Name)
		}
		lowered[i] = lowerTurkish(kw)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[spec.Name]; dup {
		return fmt.Errorf("command: duplicate command %q", spec.Name)
	}
	r.byName[spec.Name] = len(r.specs)
	r.specs = append(r.specs, spec)
	r.matches = append(r.matches, lowered)
	return nil
}

// Alias registers a spoken alias phrase for a target command. The target is
// not validated: resolving an alias whose target was never registered yields
// no match, so utterances hitting a stale alias flow to the chat fallback
// instead of erroring.
func (r *Registry) Alias(phrase, target string) {
	phrase = lowerTurkish(strings.TrimSpace(phrase))
	if phrase == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases = append(r.aliases, alias{phrase: phrase, target: target})
}

// Resolve matches an utterance against registered keywords first, then alias
// phrases, each in registration order, by substring containment. The first
// hit wins. Empty or whitespace-only utterances never match.
func (r *Registry) Resolve(utterance string) (Match, bool) {
	text := lowerTurkish(strings.TrimSpace(utterance))
	if text == "" {
		return Match{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, kws := range r.matches {
		for j, kw := range kws {
			if strings.Contains(text, kw) {
				return Match{Name: r.specs[i].Name, Keyword: r.specs[i].Keywords[j]}, true
			}
		}
	}
	for _, a := range r.aliases {
		if strings.Contains(text, a.phrase) {
			if _, ok := r.byName[a.target]; !ok {
				// An alias with an unregistered target consumes the
				// match; the utterance falls through to the chat
				// fallback.
				return Match{}, false
			}
			return Match{Name: a.target, Keyword: a.phrase, ViaAlias: true}, true
		}
	}
	return Match{}, false
}

// Commands returns a snapshot of the registered specs in registration order.
func (r *Registry) Commands() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// ReplaceAliases swaps the whole alias vocabulary, used by configuration
// reloads. Phrases are ordered lexicographically so resolution stays
// deterministic regardless of map iteration order.
func (r *Registry) ReplaceAliases(aliases map[string]string) {
	next := make([]alias, 0, len(aliases))
	for phrase, target := range aliases {
		phrase = lowerTurkish(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		next = append(next, alias{phrase: phrase, target: target})
	}
	sort.Slice(next, func(i, j int) bool { return next[i].phrase < next[j].phrase })

	r.mu.Lock()
	r.aliases = next
	r.mu.Unlock()
}

// spec returns the registered spec for a canonical name.
func (r *Registry) spec(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byName[name]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}
