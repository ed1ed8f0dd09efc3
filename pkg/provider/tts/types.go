package tts

// VoiceProfile describes a voice available from a TTS backend.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS backend this voice belongs to.
	Provider string

	// Metadata holds provider-specific voice attributes (gender, accent, etc.).
	Metadata map[string]string
}
