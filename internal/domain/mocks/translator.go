// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/lingo-core/internal/domain/ports"
)

// Translator is a mock implementation of ports.Translator.
type Translator struct {
	mu sync.Mutex

	// Results maps source text to the translation to return. When a text has
	// no entry, the fallback "[locale] text" form is returned.
	Results map[string]string
	// Err is returned for every call when set.
	Err error
	// Calls records every translated source text in order.
	Calls []string
}

// Translate returns the configured translation or error.
func (m *Translator) Translate(ctx context.Context, req ports.TranslationRequest) (ports.TranslationResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req.Text)
	m.mu.Unlock()

	if m.Err != nil {
		return ports.TranslationResult{}, m.Err
	}
	if text, ok := m.Results[req.Text]; ok {
		return ports.TranslationResult{Text: text, Confidence: 0.9}, nil
	}
	return ports.TranslationResult{
		Text:       "[" + req.TargetLocale + "] " + req.Text,
		Confidence: 0.9,
	}, nil
}

// CallCount returns how many times Translate was invoked.
func (m *Translator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
