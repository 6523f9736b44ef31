package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"translation-backend/internal/messaging"
	"translation-backend/internal/store"
	"translation-backend/pkg/api"
	"translation-backend/pkg/models"
)

type BackendService struct {
	store        store.ResultStore
	publisher    messaging.Publisher
	deleteOnRead bool
}

func NewBackendService(store store.ResultStore, pub messaging.Publisher, deleteOnRead bool) *BackendService {
	return &BackendService{store: store, publisher: pub, deleteOnRead: deleteOnRead}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(s.Health))
	r.Post("/translate", RestHandler(s.SubmitTranslation))
	r.Get("/result/{request_id}", RestHandler(s.GetResult))
}

func (s *BackendService) Health(r *http.Request) (any, error) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.Error("store health check failed", "error", err)
		return nil, CodedErrorf(http.StatusServiceUnavailable, "Service Unavailable: Cannot connect to result store.")
	}

	return api.HealthResponse{ApiStatus: "ok", StoreStatus: "ok"}, nil
}

func (s *BackendService) SubmitTranslation(r *http.Request) (any, error) {
	req, err := ParseRequest[api.TranslateRequest](r)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.TargetLanguage) == "" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "missing required fields: text, target_language")
	}

	ctx := r.Context()
	language := strings.ToLower(strings.TrimSpace(req.TargetLanguage))

	cached, ok, err := s.store.GetCached(ctx, models.Fingerprint(req.Text, language))
	if err != nil {
		slog.Error("error checking content cache", "error", err)
	} else if ok {
		return api.TranslationResponse{Message: "Translation retrived from cache.", Result: cached, FromCache: true}, nil
	}

	id := uuid.New()

	// The record must exist before the task is visible to a worker, otherwise
	// a fast worker could write a terminal state into nothing.
	if err := s.store.PutInitial(ctx, id); err != nil {
		slog.Error("error creating job record", "request_id", id, "error", err)
		return nil, CodedErrorf(http.StatusServiceUnavailable, "failed to create job record")
	}

	payload := models.TranslationTaskPayload{Id: id, Text: req.Text, Language: language}
	if err := s.publisher.PublishTranslationTask(ctx, payload); err != nil {
		slog.Error("error publishing translation task", "request_id", id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to queue translation task")
	}

	slog.Info("accepted translation request", "request_id", id, "language", language)
	return WithStatus(http.StatusAccepted, api.JobResponse{Message: "Request accepted.", RequestId: id.String()}), nil
}

func (s *BackendService) GetResult(r *http.Request) (any, error) {
	id, err := URLParamUUID(r, "request_id")
	if err != nil {
		return nil, err
	}

	query, err := ParseRequestQueryParams[api.ResultQuery](r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	record, err := s.store.GetStatus(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "Request ID not found.")
		}
		slog.Error("error getting job record", "request_id", id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving job record")
	}

	if record.Status.Terminal() && !query.Keep {
		reclaim := s.store.ExpireIfTerminal
		if s.deleteOnRead {
			reclaim = s.store.DeleteIfTerminal
		}
		if err := reclaim(ctx, id); err != nil {
			// The result was already delivered, reclamation can wait for TTL.
			slog.Error("error reclaiming job record", "request_id", id, "error", err)
		}
	}

	return api.Result{Status: string(record.Status), Result: record.Result}, nil
}
