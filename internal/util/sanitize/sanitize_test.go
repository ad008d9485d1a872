package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"normal", "Alice", "Alice"},
		{"with control chars", "Al\x00ice\x07", "Alice"},
		{"trim whitespace", "  Alice  ", "Alice"},
		{"unicode", "日本語の名前", "日本語の名前"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.input), "Name(%q)", tt.input)
		})
	}
}

func TestNameTruncates(t *testing.T) {
	long := strings.Repeat("x", MaxNameLength+10)
	assert.Len(t, Name(long), MaxNameLength)
}

func TestMessageTruncates(t *testing.T) {
	long := strings.Repeat("y", MaxMessageLength+1)
	assert.Len(t, Message(long), MaxMessageLength)
}

func TestTruncationCountsRunes(t *testing.T) {
	long := strings.Repeat("語", MaxNameLength+5)
	got := Name(long)
	assert.Equal(t, MaxNameLength, len([]rune(got)))
}
