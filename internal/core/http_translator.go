package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPTranslator calls an OPUS-MT model server over HTTP. One instance is
// bound to a single model for the life of the process.
type HTTPTranslator struct {
	client  *resty.Client
	modelId string
}

// NewHTTPLoader returns a Loader that asks the inference server to load the
// model for a language, surfacing load failures at acquire time instead of
// on the first batch.
func NewHTTPLoader(baseURL string) Loader {
	client := resty.New().SetBaseURL(baseURL).SetTimeout(2 * time.Minute)

	return func(ctx context.Context, language Language) (Translator, error) {
		res, err := client.R().
			SetContext(ctx).
			SetBody(map[string]string{"model": language.ModelId}).
			Post("/models/load")
		if err != nil {
			return nil, fmt.Errorf("model server unreachable: %w", err)
		}
		if !res.IsSuccess() {
			return nil, fmt.Errorf("model server returned %s loading model %s", res.Status(), language.ModelId)
		}

		return &HTTPTranslator{client: client, modelId: language.ModelId}, nil
	}
}

type translateRequest struct {
	Model  string   `json:"model"`
	Inputs []string `json:"inputs"`
}

type translateResponse struct {
	Translations []string `json:"translations"`
}

func (t *HTTPTranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	var out translateResponse
	res, err := t.client.R().
		SetContext(ctx).
		SetBody(translateRequest{Model: t.modelId, Inputs: texts}).
		SetResult(&out).
		Post("/translate")
	if err != nil {
		return nil, fmt.Errorf("translation request failed: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("model server returned %s", res.Status())
	}
	if len(out.Translations) != len(texts) {
		return nil, fmt.Errorf("model server returned %d translations for %d inputs", len(out.Translations), len(texts))
	}
	return out.Translations, nil
}
