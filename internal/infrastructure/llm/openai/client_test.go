package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lingo-core/internal/infrastructure/config"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			cfg: config.LLMConfig{
				APIKey: "test-key",
			},
			wantErr: false,
		},
		{
			name: "valid config with model",
			cfg: config.LLMConfig{
				APIKey: "test-key",
				Model:  "gpt-4",
			},
			wantErr: false,
		},
		{
			name:    "missing API key",
			cfg:     config.LLMConfig{},
			wantErr: true,
			errMsg:  "API key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, client)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON",
			input:    `{"translation": "Bonjour"}`,
			expected: `{"translation": "Bonjour"}`,
		},
		{
			name:     "JSON with json code block",
			input:    "```json\n{\"translation\": \"Bonjour\"}\n```",
			expected: `{"translation": "Bonjour"}`,
		},
		{
			name:     "JSON with plain code block",
			input:    "```\n{\"translation\": \"Bonjour\"}\n```",
			expected: `{"translation": "Bonjour"}`,
		},
		{
			name:     "JSON with whitespace",
			input:    "  \n{\"translation\": \"Bonjour\"}\n  ",
			expected: `{"translation": "Bonjour"}`,
		},
		{
			name:     "empty object",
			input:    "{}",
			expected: "{}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cleanJSONResponse(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
