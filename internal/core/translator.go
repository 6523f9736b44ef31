package core

import "context"

// Translator is a loaded translation capability bound to one language.
type Translator interface {
	// TranslateBatch translates texts in input order, returning one output
	// per input or a single error for the whole call.
	TranslateBatch(ctx context.Context, texts []string) ([]string, error)
}

// Loader initializes the backing capability for a language. Loading is
// expensive; the registry invokes it at most once per language per process.
type Loader func(ctx context.Context, language Language) (Translator, error)
