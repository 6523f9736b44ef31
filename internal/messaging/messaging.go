package messaging

import (
	"context"
	"time"

	"translation-backend/pkg/models"
)

const (
	TranslationQueue = "translation_request_queue"
	RetryDelay       = 5 * time.Second
	MaxConnectRetry  = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

type Publisher interface {
	PublishTranslationTask(ctx context.Context, payload models.TranslationTaskPayload) error

	Close()
}

type Reciever interface {
	Tasks() <-chan Task

	Close()
}
