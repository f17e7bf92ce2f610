package formatting_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/warden/pkg/formatting"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"bare bytes", "1024", 1024, false},
		{"kilobytes", "1KB", 1024, false},
		{"megabytes", "1MB", 1024 * 1024, false},
		{"lowercase unit", "10mb", 10 * 1024 * 1024, false},
		{"with space", "512 KB", 512 * 1024, false},
		{"binary suffix", "1.5 MiB", 1536 * 1024, false},
		{"surrounding whitespace", "  2MB ", 2 * 1024 * 1024, false},
		{"zero", "0", 0, false},
		{"empty string", "", 0, true},
		{"unknown unit", "50XX", 0, true},
		{"no number", "MB", 0, true},
		{"negative", "-5MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatting.FormatBytes(0, 2))
	assert.Equal(t, "1 MB", formatting.FormatBytes(1024*1024, 0))
	assert.Equal(t, "1.5 MB", formatting.FormatBytes(1536*1024, 1))

	for _, n := range []int64{1024, 1024 * 1024, 64 * 1024 * 1024} {
		parsed, err := formatting.ParseBytes(formatting.FormatBytes(n, 0))
		require.NoError(t, err)
		assert.Equal(t, n, parsed)
	}
}

type verdict struct {
	Toxicity float64  `json:"toxicity"`
	Labels   []string `json:"labels"`
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"direct", `{"toxicity":0.7,"labels":["insult"]}`},
		{"padded", "  {\"toxicity\":0.7,\"labels\":[\"insult\"]}  "},
		{"fenced", "```json\n{\"toxicity\":0.7,\"labels\":[\"insult\"]}\n```"},
		{"fenced without tag", "```\n{\"toxicity\":0.7,\"labels\":[\"insult\"]}\n```"},
		{"fenced with prose", "Assessment:\n```json\n{\"toxicity\":0.7,\"labels\":[\"insult\"]}\n```\nEnd."},
		{"embedded in prose", "Here is my verdict: {\"toxicity\":0.7,\"labels\":[\"insult\"]} Hope that helps."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[verdict](tt.input)
			require.NoError(t, err)
			assert.Equal(t, 0.7, got.Toxicity)
			assert.Equal(t, []string{"insult"}, got.Labels)
		})
	}
}

func TestParseFailures(t *testing.T) {
	for _, input := range []string{"", "not json at all", "```json\n{broken\n```", "} backwards {"} {
		_, err := formatting.Parse[verdict](input)
		assert.ErrorIs(t, err, formatting.ErrParseFailed, "input %q", input)
	}
}

func TestParseFailureTruncatesContent(t *testing.T) {
	_, err := formatting.Parse[verdict](strings.Repeat("x", 500))
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 300)
}
