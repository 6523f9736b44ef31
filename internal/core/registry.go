package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrUnsupportedLanguage is returned for languages with no backend model
// mapping. Checked before any load attempt.
var ErrUnsupportedLanguage = errors.New("target language is not supported")

type modelEntry struct {
	translator Translator
	err        error
}

// ModelRegistry hands out translation capabilities, loading each language's
// model at most once per process. Load failures are cached as negative
// entries so unloadable languages do not repeat expensive work; clearing a
// poisoned entry requires a restart.
type ModelRegistry struct {
	languages map[string]Language
	loader    Loader

	mu      sync.Mutex
	entries map[string]*modelEntry
}

func NewModelRegistry(languages map[string]Language, loader Loader) *ModelRegistry {
	return &ModelRegistry{
		languages: languages,
		loader:    loader,
		entries:   make(map[string]*modelEntry),
	}
}

// Acquire returns the capability for a target language, loading it on first
// demand. The registry lock covers the whole check-then-load sequence, so
// concurrent first demands for the same language cause exactly one load and
// every caller observes the same outcome.
func (r *ModelRegistry) Acquire(ctx context.Context, language string) (Translator, error) {
	lang, ok := r.languages[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[lang.ModelId]; ok {
		return entry.translator, entry.err
	}

	slog.Info("loading translation model", "model", lang.ModelId)

	translator, err := r.loader(ctx, lang)
	if err != nil {
		err = fmt.Errorf("failed to load model %s: %w", lang.ModelId, err)
		slog.Error("model load failed, caching failure", "model", lang.ModelId, "error", err)
		r.entries[lang.ModelId] = &modelEntry{err: err}
		return nil, err
	}

	slog.Info("model loaded and cached", "model", lang.ModelId)
	r.entries[lang.ModelId] = &modelEntry{translator: translator}
	return translator, nil
}
