package voices

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Switcher selects the voice for each arbitrated language and reports when
// the selection changes.
type Switcher struct {
	defaultConfig Config

	mu      sync.Mutex
	current *Config

	switches metric.Int64Counter
}

// NewSwitcher builds a switcher that falls back to the voice of
// defaultLanguage for unsupported languages.
func NewSwitcher(defaultLanguage string) (*Switcher, error) {
	if defaultLanguage == "" {
		defaultLanguage = DefaultLanguage
	}
	defaultConfig, ok := Lookup(defaultLanguage)
	if !ok {
		return nil, fmt.Errorf("unsupported default language %q", defaultLanguage)
	}

	switches, err := meter.Int64Counter("agentbridge.voice.switches",
		metric.WithDescription("Synthesis voice changes"),
	)
	if err != nil {
		logger.Warn("failed to create voice switches counter", "error", err)
	}

	return &Switcher{defaultConfig: defaultConfig, switches: switches}, nil
}

// Select resolves languageCode to a voice. switched is true when the voice
// differs from the previous selection, the first selection always counts
// as a switch.
func (s *Switcher) Select(ctx context.Context, languageCode string) (config Config, switched bool) {
	config, ok := Lookup(languageCode)
	if !ok {
		config = s.defaultConfig
	}

	s.mu.Lock()
	previous := s.current
	switched = previous == nil || *previous != config
	s.current = &config
	s.mu.Unlock()

	if !switched {
		return config, false
	}

	from := ""
	if previous != nil {
		from = previous.VoiceID
	}
	logger.Info("voice switched",
		"language", languageCode,
		"supported", ok,
		"from", from,
		"to", config.VoiceID,
	)
	if s.switches != nil {
		s.switches.Add(ctx, 1, metric.WithAttributes(attribute.String("language", config.LanguageCode)))
	}
	return config, true
}

// Current returns the selected voice, or the default one before the first
// selection.
func (s *Switcher) Current() Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return s.defaultConfig
	}
	return *s.current
}
