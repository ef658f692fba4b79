package ports

import "context"

// TranslationRequest asks a provider to translate one source string.
type TranslationRequest struct {
	Text         string
	SourceLocale string
	TargetLocale string
	// Notes carries translator context (placeholders, tone) when available.
	Notes string
}

// TranslationResult is a provider's answer.
type TranslationResult struct {
	Text       string
	Confidence float64
}

// Translator defines the interface for machine-translation providers.
type Translator interface {
	Translate(ctx context.Context, req TranslationRequest) (TranslationResult, error)
}
