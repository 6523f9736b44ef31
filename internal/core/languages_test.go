package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"translation-backend/internal/core"
)

func TestDefaultLanguages(t *testing.T) {
	languages := core.DefaultLanguages()

	french, ok := languages["french"]
	require.True(t, ok)
	assert.Equal(t, "fr", french.Code)
	assert.Equal(t, "Helsinki-NLP/opus-mt-en-fr", french.ModelId)

	assert.Len(t, languages, 5)
}

func TestLoadLanguages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "languages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("German: de\nitalian: it\n"), 0644))

	languages, err := core.LoadLanguages(path)
	require.NoError(t, err)
	assert.Len(t, languages, 2)

	german, ok := languages["german"]
	require.True(t, ok, "language names are normalized to lowercase")
	assert.Equal(t, "Helsinki-NLP/opus-mt-en-de", german.ModelId)
}

func TestLoadLanguagesMissingFile(t *testing.T) {
	_, err := core.LoadLanguages(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadLanguagesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "languages.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := core.LoadLanguages(path)
	assert.Error(t, err)
}
