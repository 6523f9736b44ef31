package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// OpenAITranslator translates through a chat model instead of a dedicated
// MT server. The capability is bound to one target language via its system
// prompt. The backend has no batch endpoint, so texts are translated one at
// a time within a single call; any failure fails the whole call.
type OpenAITranslator struct {
	client openai.Client
	model  string
	system string
}

func NewOpenAILoader(model string) Loader {
	client := openai.NewClient()

	return func(ctx context.Context, language Language) (Translator, error) {
		if model == "" {
			return nil, fmt.Errorf("no openai model configured")
		}
		return &OpenAITranslator{
			client: client,
			model:  model,
			system: fmt.Sprintf("You are a professional translator. Translate the user's text to %s. Reply with the translation only.", language.Name),
		}, nil
	}
}

func (t *OpenAITranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	translations := make([]string, len(texts))
	for i, text := range texts {
		res, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(t.system),
				openai.UserMessage(text),
			},
			Model:       t.model,
			Temperature: openai.Float(0.3),
		})
		if err != nil {
			return nil, fmt.Errorf("openai translation failed: %w", err)
		}
		translations[i] = strings.TrimSpace(res.Choices[0].Message.Content)
	}
	return translations, nil
}
