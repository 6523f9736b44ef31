package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

const modelIdTemplate = "Helsinki-NLP/opus-mt-en-%s"

// Language binds a normalized target-language name to its two-letter code
// and the backend model identifier derived from it.
type Language struct {
	Name    string
	Code    string
	ModelId string
}

var defaultLanguageCodes = map[string]string{
	"french":  "fr",
	"spanish": "es",
	"chinese": "zh",
	"hindi":   "hi",
	"arabic":  "ar",
}

func buildLanguages(codes map[string]string) map[string]Language {
	languages := make(map[string]Language, len(codes))
	for name, code := range codes {
		name = strings.ToLower(strings.TrimSpace(name))
		languages[name] = Language{
			Name:    name,
			Code:    code,
			ModelId: fmt.Sprintf(modelIdTemplate, code),
		}
	}
	return languages
}

func DefaultLanguages() map[string]Language {
	return buildLanguages(defaultLanguageCodes)
}

// LoadLanguages reads a name -> code mapping from a yaml file, replacing
// the built-in table.
func LoadLanguages(path string) (map[string]Language, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read languages file %s: %w", path, err)
	}

	codes := make(map[string]string)
	if err := yaml.Unmarshal(data, &codes); err != nil {
		return nil, fmt.Errorf("failed to parse languages file %s: %w", path, err)
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("languages file %s defines no languages", path)
	}

	return buildLanguages(codes), nil
}
