package core

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"translation-backend/internal/messaging"
	"translation-backend/internal/store"
	"translation-backend/pkg/models"
)

const genericTranslationError = "Error during batch processing."

// Dispatcher drains the translation queue in batches, groups tasks by
// target language so each group needs one model acquisition and one backend
// call, and writes every record for a pass together.
type Dispatcher struct {
	store    store.ResultStore
	reciever messaging.Reciever
	tasks    <-chan messaging.Task
	registry *ModelRegistry

	batchSize    int
	batchTimeout time.Duration
	cacheTTL     time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(resultStore store.ResultStore, reciever messaging.Reciever, registry *ModelRegistry, batchSize int, batchTimeout, cacheTTL time.Duration) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 1
	}
	// The channel is captured once so closing the reciever mid-batch cannot
	// leave a worker reading from a nil channel.
	return &Dispatcher{
		store:        resultStore,
		reciever:     reciever,
		tasks:        reciever.Tasks(),
		registry:     registry,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		cacheTTL:     cacheTTL,
	}
}

func (d *Dispatcher) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	slog.Info("starting dispatcher", "workers", workers, "batch_size", d.batchSize, "batch_timeout", d.batchTimeout)

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.run()
	}
}

// Stop closes the task channel and waits for in-flight batches to drain.
func (d *Dispatcher) Stop() {
	slog.Info("stopping dispatcher")
	d.reciever.Close()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		batch, open := d.nextBatch()
		if len(batch) > 0 {
			d.processBatch(context.Background(), batch)
		}
		if !open {
			return
		}
	}
}

// nextBatch blocks until at least one task is available, then keeps
// accumulating until the batch is full or batchTimeout passes with nothing
// more arriving. Returns open=false once the task channel is closed.
func (d *Dispatcher) nextBatch() ([]messaging.Task, bool) {
	first, ok := <-d.tasks
	if !ok {
		return nil, false
	}

	batch := []messaging.Task{first}
	timer := time.NewTimer(d.batchTimeout)
	defer timer.Stop()

	for len(batch) < d.batchSize {
		select {
		case task, ok := <-d.tasks:
			if !ok {
				return batch, false
			}
			batch = append(batch, task)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(d.batchTimeout)
		case <-timer.C:
			return batch, true
		}
	}

	return batch, true
}

type batchJob struct {
	task    messaging.Task
	payload models.TranslationTaskPayload
	record  models.JobRecord
}

func (d *Dispatcher) processBatch(ctx context.Context, tasks []messaging.Task) {
	jobs := make([]*batchJob, 0, len(tasks))
	for _, task := range tasks {
		var payload models.TranslationTaskPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling translation task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			continue
		}
		jobs = append(jobs, &batchJob{task: task, payload: payload})
	}
	if len(jobs) == 0 {
		return
	}

	slog.Info("processing batch", "tasks", len(jobs))

	groups := make(map[string][]*batchJob)
	for _, job := range jobs {
		groups[job.payload.Language] = append(groups[job.payload.Language], job)
	}

	for language, group := range groups {
		d.translateGroup(ctx, language, group)
	}

	records := make(map[uuid.UUID]models.JobRecord, len(jobs))
	var entries []store.CacheEntry
	for _, job := range jobs {
		records[job.payload.Id] = job.record
		if job.record.Status == models.JobCompleted {
			entries = append(entries, store.CacheEntry{
				Fingerprint: models.Fingerprint(job.payload.Text, job.payload.Language),
				Text:        *job.record.Result,
				TTL:         d.cacheTTL,
			})
		}
	}

	if err := d.store.WriteBatch(ctx, records, entries); err != nil {
		slog.Error("error saving batch results", "error", err)
		for _, job := range jobs {
			if err := job.task.Nack(); err != nil {
				slog.Error("error reporting processing failure on message from queue", "error", err)
			}
		}
		return
	}

	for _, job := range jobs {
		if err := job.task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}
	}
}

// translateGroup resolves one language group. A load or translate failure
// fails only this group; sibling groups in the same batch are unaffected.
func (d *Dispatcher) translateGroup(ctx context.Context, language string, group []*batchJob) {
	translator, err := d.registry.Acquire(ctx, language)
	if err != nil {
		message := err.Error()
		if errors.Is(err, ErrUnsupportedLanguage) {
			message = "Language '" + language + "' not supported."
		}
		for _, job := range group {
			job.record = models.FailedRecord(message)
		}
		return
	}

	texts := make([]string, len(group))
	for i, job := range group {
		texts[i] = job.payload.Text
	}

	start := time.Now()
	translated, err := translator.TranslateBatch(ctx, texts)
	if err != nil || len(translated) != len(group) {
		slog.Error("batch translation failed", "language", language, "tasks", len(group), "error", err)
		// The backend call is atomic per batch; no per-item detail exists.
		for _, job := range group {
			job.record = models.FailedRecord(genericTranslationError)
		}
		return
	}

	slog.Info("translated batch", "language", language, "tasks", len(group), "duration", time.Since(start))

	for i, job := range group {
		job.record = models.CompletedRecord(translated[i])
	}
}
