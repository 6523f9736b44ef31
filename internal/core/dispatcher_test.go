package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"translation-backend/internal/core"
	"translation-backend/internal/messaging"
	"translation-backend/internal/store"
	"translation-backend/pkg/models"
)

type recordingTranslator struct {
	mu    sync.Mutex
	code  string
	calls [][]string
	err   error
}

func (t *recordingTranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = append(t.calls, append([]string(nil), texts...))
	if t.err != nil {
		return nil, t.err
	}
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = t.code + ":" + text
	}
	return out, nil
}

func (t *recordingTranslator) Calls() [][]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]string(nil), t.calls...)
}

func (t *recordingTranslator) SetErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

type dispatcherHarness struct {
	store      *store.GormStore
	queue      *messaging.InMemoryQueue
	dispatcher *core.Dispatcher

	mu          sync.Mutex
	translators map[string]*recordingTranslator
	loadErrs    map[string]error
}

func (h *dispatcherHarness) translator(name string) *recordingTranslator {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.translators[name]
}

func (h *dispatcherHarness) translatorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.translators)
}

func newHarness(t *testing.T, batchSize int) *dispatcherHarness {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	resultStore, err := store.NewGormStore(db, time.Hour, 5*time.Minute)
	require.NoError(t, err)

	h := &dispatcherHarness{
		store:       resultStore,
		queue:       messaging.NewInMemoryQueue(),
		translators: make(map[string]*recordingTranslator),
		loadErrs:    make(map[string]error),
	}

	loader := func(ctx context.Context, language core.Language) (core.Translator, error) {
		h.mu.Lock()
		defer h.mu.Unlock()

		if err := h.loadErrs[language.Name]; err != nil {
			return nil, err
		}
		translator := &recordingTranslator{code: language.Code}
		h.translators[language.Name] = translator
		return translator, nil
	}

	registry := core.NewModelRegistry(core.DefaultLanguages(), loader)
	h.dispatcher = core.NewDispatcher(resultStore, h.queue, registry, batchSize, 50*time.Millisecond, time.Hour)
	return h
}

func (h *dispatcherHarness) submit(t *testing.T, text, language string) uuid.UUID {
	id := uuid.New()
	require.NoError(t, h.store.PutInitial(context.Background(), id))
	require.NoError(t, h.queue.PublishTranslationTask(context.Background(), models.TranslationTaskPayload{
		Id:       id,
		Text:     text,
		Language: language,
	}))
	return id
}

func (h *dispatcherHarness) waitTerminal(t *testing.T, ids ...uuid.UUID) map[uuid.UUID]models.JobRecord {
	records := make(map[uuid.UUID]models.JobRecord)
	require.Eventually(t, func() bool {
		for _, id := range ids {
			record, err := h.store.GetStatus(context.Background(), id)
			if err != nil || !record.Status.Terminal() {
				return false
			}
			records[id] = record
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
	return records
}

func TestDispatcherGroupsBatchByLanguage(t *testing.T) {
	h := newHarness(t, 3)

	id1 := h.submit(t, "good morning", "french")
	id2 := h.submit(t, "good evening", "spanish")
	id3 := h.submit(t, "good night", "french")

	h.dispatcher.Start(1)
	defer h.dispatcher.Stop()

	records := h.waitTerminal(t, id1, id2, id3)

	require.NotNil(t, records[id1].Result)
	assert.Equal(t, "fr:good morning", *records[id1].Result)
	require.NotNil(t, records[id2].Result)
	assert.Equal(t, "es:good evening", *records[id2].Result)
	require.NotNil(t, records[id3].Result)
	assert.Equal(t, "fr:good night", *records[id3].Result)

	// One backend call per language group, texts in input order.
	assert.Equal(t, [][]string{{"good morning", "good night"}}, h.translator("french").Calls())
	assert.Equal(t, [][]string{{"good evening"}}, h.translator("spanish").Calls())
}

func TestDispatcherWritesContentCache(t *testing.T) {
	h := newHarness(t, 1)

	id := h.submit(t, "hello", "french")

	h.dispatcher.Start(1)
	defer h.dispatcher.Stop()

	h.waitTerminal(t, id)

	text, ok, err := h.store.GetCached(context.Background(), models.Fingerprint("hello", "french"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fr:hello", text)
}

func TestDispatcherLoadFailureIsolation(t *testing.T) {
	h := newHarness(t, 3)
	h.loadErrs["spanish"] = errors.New("weights missing")

	id1 := h.submit(t, "good morning", "french")
	id2 := h.submit(t, "good evening", "spanish")
	id3 := h.submit(t, "good night", "french")

	h.dispatcher.Start(1)
	defer h.dispatcher.Stop()

	records := h.waitTerminal(t, id1, id2, id3)

	assert.Equal(t, models.JobCompleted, records[id1].Status)
	assert.Equal(t, models.JobCompleted, records[id3].Status)

	assert.Equal(t, models.JobFailed, records[id2].Status)
	require.NotNil(t, records[id2].Result)
	assert.Contains(t, *records[id2].Result, "weights missing")

	// The failed group must not leave a cache entry behind.
	_, ok, err := h.store.GetCached(context.Background(), models.Fingerprint("good evening", "spanish"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDispatcherUnsupportedLanguage(t *testing.T) {
	h := newHarness(t, 1)

	id := h.submit(t, "guten tag", "german")

	h.dispatcher.Start(1)
	defer h.dispatcher.Stop()

	records := h.waitTerminal(t, id)

	assert.Equal(t, models.JobFailed, records[id].Status)
	require.NotNil(t, records[id].Result)
	assert.Equal(t, "Language 'german' not supported.", *records[id].Result)
	assert.Zero(t, h.translatorCount(), "no load attempt for unsupported languages")
}

func TestDispatcherTranslateFailure(t *testing.T) {
	h := newHarness(t, 2)

	// Load once so the harness can inject a translate error.
	warm := h.submit(t, "warmup", "french")
	h.dispatcher.Start(1)
	h.waitTerminal(t, warm)
	h.translator("french").SetErr(errors.New("inference crashed"))

	id1 := h.submit(t, "one", "french")
	id2 := h.submit(t, "two", "french")
	records := h.waitTerminal(t, id1, id2)
	h.dispatcher.Stop()

	for _, id := range []uuid.UUID{id1, id2} {
		assert.Equal(t, models.JobFailed, records[id].Status)
		require.NotNil(t, records[id].Result)
		assert.Equal(t, "Error during batch processing.", *records[id].Result)
	}
}
