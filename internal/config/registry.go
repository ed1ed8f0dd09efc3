package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bkaraca/dinle/pkg/provider/apps"
	"github.com/bkaraca/dinle/pkg/provider/chat"
	"github.com/bkaraca/dinle/pkg/provider/news"
	"github.com/bkaraca/dinle/pkg/provider/stt"
	"github.com/bkaraca/dinle/pkg/provider/tts"
	"github.com/bkaraca/dinle/pkg/provider/weather"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	stt     map[string]func(ProviderEntry) (stt.Recognizer, error)
	tts     map[string]func(ProviderEntry) (tts.Speaker, error)
	chat    map[string]func(ProviderEntry) (chat.Provider, error)
	weather map[string]func(ProviderEntry) (weather.Provider, error)
	news    map[string]func(ProviderEntry) (news.Provider, error)
	apps    map[string]func(ProviderEntry) (apps.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:     make(map[string]func(ProviderEntry) (stt.Recognizer, error)),
		tts:     make(map[string]func(ProviderEntry) (tts.Speaker, error)),
		chat:    make(map[string]func(ProviderEntry) (chat.Provider, error)),
		weather: make(map[string]func(ProviderEntry) (weather.Provider, error)),
		news:    make(map[string]func(ProviderEntry) (news.Provider, error)),
		apps:    make(map[string]func(ProviderEntry) (apps.Provider, error)),
	}
}

// RegisterSTT registers a speech recognizer factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTTS registers a speaker factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Speaker, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterChat registers a chat provider factory under name.
func (r *Registry) RegisterChat(name string, factory func(ProviderEntry) (chat.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat[name] = factory
}

// RegisterWeather registers a weather provider factory under name.
func (r *Registry) RegisterWeather(name string, factory func(ProviderEntry) (weather.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weather[name] = factory
}

// RegisterNews registers a news provider factory under name.
func (r *Registry) RegisterNews(name string, factory func(ProviderEntry) (news.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.news[name] = factory
}

// RegisterApps registers an application provider factory under name.
func (r *Registry) RegisterApps(name string, factory func(ProviderEntry) (apps.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[name] = factory
}

// CreateSTT instantiates a recognizer using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a speaker using the factory registered under entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Speaker, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateChat instantiates a chat provider using the factory registered under entry.Name.
func (r *Registry) CreateChat(entry ProviderEntry) (chat.Provider, error) {
	r.mu.RLock()
	factory, ok := r.chat[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: chat/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateWeather instantiates a weather provider using the factory registered under entry.Name.
func (r *Registry) CreateWeather(entry ProviderEntry) (weather.Provider, error) {
	r.mu.RLock()
	factory, ok := r.weather[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: weather/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateNews instantiates a news provider using the factory registered under entry.Name.
func (r *Registry) CreateNews(entry ProviderEntry) (news.Provider, error) {
	r.mu.RLock()
	factory, ok := r.news[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: news/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateApps instantiates an application provider using the factory registered under entry.Name.
func (r *Registry) CreateApps(entry ProviderEntry) (apps.Provider, error) {
	r.mu.RLock()
	factory, ok := r.apps[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: apps/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
