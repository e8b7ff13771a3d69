package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutgraph/scout/errors"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json fence",
			input:    "```json\n{\"a\": 1}\n```",
			expected: "{\"a\": 1}",
		},
		{
			name:     "bare fence",
			input:    "```\n[1, 2]\n```",
			expected: "[1, 2]",
		},
		{
			name:     "no fence",
			input:    "{\"a\": 1}",
			expected: "{\"a\": 1}",
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n{\"a\": 1}\n  ",
			expected: "{\"a\": 1}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFences(tt.input))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Areas []string `json:"areas"`
	}
	err := DecodeJSON("```json\n{\"areas\": [\"history\", \"economics\"]}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"history", "economics"}, out.Areas)
}

func TestDecodeJSONMalformed(t *testing.T) {
	var out map[string]any
	err := DecodeJSON("I cannot answer that as JSON.", &out)
	require.Error(t, err)
	assert.True(t, errors.IsBadModelOutputError(err))
}

func TestDecodeJSONEmpty(t *testing.T) {
	var out map[string]any
	err := DecodeJSON("```json\n```", &out)
	require.Error(t, err)
	assert.True(t, errors.IsBadModelOutputError(err))
}
