// Package openai provides a Translator implementation using OpenAI.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ersonp/lingo-core/internal/domain/ports"
	"github.com/ersonp/lingo-core/internal/infrastructure/config"
)

const translationPrompt = `You are a professional software localization translator. Translate the given UI string from %s to %s.

Rules:
- Preserve placeholders exactly as written ({name}, %%s, %%d, {{count}}, etc).
- Preserve leading/trailing whitespace and punctuation style.
- Keep the register appropriate for user interface text.
- Do not add explanations.

%sReturn ONLY a valid JSON object, no other text:
{"translation": "<translated text>", "confidence": <0.0-1.0>}`

// Client implements the Translator interface using OpenAI.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI translation client.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	client := openai.NewClient(cfg.APIKey)

	model := "gpt-4o-mini"
	if cfg.Model != "" {
		model = cfg.Model
	}

	return &Client{
		client: client,
		model:  model,
	}, nil
}

// Translate translates one source string into the target locale.
func (c *Client) Translate(ctx context.Context, req ports.TranslationRequest) (ports.TranslationResult, error) {
	notes := ""
	if req.Notes != "" {
		notes = fmt.Sprintf("Translator notes: %s\n\n", req.Notes)
	}
	system := fmt.Sprintf(translationPrompt, req.SourceLocale, req.TargetLocale, notes)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Text,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return ports.TranslationResult{}, fmt.Errorf("calling OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ports.TranslationResult{}, errors.New("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	content = cleanJSONResponse(content)

	var raw rawTranslation
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return ports.TranslationResult{}, fmt.Errorf("parsing translation JSON: %w (response: %s)", err, content)
	}
	if raw.Translation == "" {
		return ports.TranslationResult{}, fmt.Errorf("empty translation in response: %s", content)
	}

	return ports.TranslationResult{
		Text:       raw.Translation,
		Confidence: raw.Confidence,
	}, nil
}

// rawTranslation is the JSON structure for translation responses.
type rawTranslation struct {
	Translation string  `json:"translation"`
	Confidence  float64 `json:"confidence"`
}

// cleanJSONResponse removes markdown code blocks if present.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}

	return strings.TrimSpace(content)
}
