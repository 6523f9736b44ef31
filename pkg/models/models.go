package models

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobRecord is the status/result pair a caller polls for a given request id.
// Result is nil until the job reaches a terminal state; for failed jobs it
// holds a human-readable error message.
type JobRecord struct {
	Status JobStatus `json:"status"`
	Result *string   `json:"result"`
}

func QueuedRecord() JobRecord {
	return JobRecord{Status: JobQueued}
}

func CompletedRecord(result string) JobRecord {
	return JobRecord{Status: JobCompleted, Result: &result}
}

func FailedRecord(message string) JobRecord {
	return JobRecord{Status: JobFailed, Result: &message}
}

// --- Task Payload Structs ---

type TranslationTaskPayload struct {
	Id       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Language string    `json:"lang"`
}

// Fingerprint returns the content-cache key for a (text, language) pair.
// The same pair always hashes to the same key, so completed translations can
// be served without queueing duplicate work.
func Fingerprint(text, language string) string {
	sum := sha256.Sum256([]byte(text + ":" + language))
	return hex.EncodeToString(sum[:])
}
