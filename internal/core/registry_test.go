package core_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"translation-backend/internal/core"
)

type staticTranslator struct {
	prefix string
}

func (t *staticTranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = t.prefix + text
	}
	return out, nil
}

func TestAcquireCachesCapability(t *testing.T) {
	var loads atomic.Int32
	loader := func(ctx context.Context, language core.Language) (core.Translator, error) {
		loads.Add(1)
		return &staticTranslator{prefix: language.Code + ":"}, nil
	}

	registry := core.NewModelRegistry(core.DefaultLanguages(), loader)

	first, err := registry.Acquire(context.Background(), "french")
	require.NoError(t, err)

	second, err := registry.Acquire(context.Background(), "French ")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), loads.Load())
}

func TestConcurrentAcquireLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	loader := func(ctx context.Context, language core.Language) (core.Translator, error) {
		loads.Add(1)
		time.Sleep(50 * time.Millisecond) // simulate a slow model load
		return &staticTranslator{prefix: language.Code + ":"}, nil
	}

	registry := core.NewModelRegistry(core.DefaultLanguages(), loader)

	const callers = 16
	results := make([]core.Translator, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			translator, err := registry.Acquire(context.Background(), "spanish")
			assert.NoError(t, err)
			results[i] = translator
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestAcquireCachesLoadFailure(t *testing.T) {
	var loads atomic.Int32
	loader := func(ctx context.Context, language core.Language) (core.Translator, error) {
		loads.Add(1)
		return nil, assert.AnError
	}

	registry := core.NewModelRegistry(core.DefaultLanguages(), loader)

	_, err := registry.Acquire(context.Background(), "hindi")
	require.Error(t, err)

	// The failure is poisoned for the process lifetime; no reload attempt.
	_, err = registry.Acquire(context.Background(), "hindi")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int32(1), loads.Load())
}

func TestAcquireUnsupportedLanguage(t *testing.T) {
	loader := func(ctx context.Context, language core.Language) (core.Translator, error) {
		t.Fatal("loader must not be called for unsupported languages")
		return nil, nil
	}

	registry := core.NewModelRegistry(core.DefaultLanguages(), loader)

	_, err := registry.Acquire(context.Background(), "klingon")
	assert.ErrorIs(t, err, core.ErrUnsupportedLanguage)
}
