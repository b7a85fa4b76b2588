package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "fenced block",
			response: "Here is the analysis:\n```json\n{\"complexity\": \"low\"}\n```\nHope it helps.",
			want:     `{"complexity": "low"}`,
		},
		{
			name:     "bare braces in prose",
			response: `The result is {"complexity": "high"} as requested.`,
			want:     `{"complexity": "high"}`,
		},
		{
			name:     "raw json untouched",
			response: `{"complexity": "medium"}`,
			want:     `{"complexity": "medium"}`,
		},
		{
			name:     "no json falls through to raw text",
			response: "I cannot analyze that.",
			want:     "I cannot analyze that.",
		},
		{
			name:     "fence preferred over outer braces",
			response: "{ preamble }\n```json\n{\"a\": 1}\n```",
			want:     `{"a": 1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.response))
		})
	}
}
