package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "hello", tp.TruncateText("hello", 100))
	})

	t.Run("zero budget disables truncation", func(t *testing.T) {
		long := strings.Repeat("x", 5000)
		assert.Equal(t, long, tp.TruncateText(long, 0))
	})

	t.Run("long text truncated with marker", func(t *testing.T) {
		long := strings.Repeat("x", 5000)
		truncated := tp.TruncateText(long, 100)
		assert.True(t, strings.HasSuffix(truncated, "[... Content truncated due to size limits ...]"))
		assert.Less(t, len(truncated), 200)
	})

	t.Run("never splits a multibyte rune", func(t *testing.T) {
		text := strings.Repeat("é", 100)
		truncated := tp.TruncateText(text, 101)
		assert.True(t, utf8.ValidString(truncated))
	})
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "clean", tp.SanitizeUTF8("clean"))

	dirty := "bad\xffbytes"
	sanitized := tp.SanitizeUTF8(dirty)
	assert.True(t, utf8.ValidString(sanitized))
	assert.Equal(t, "badbytes", sanitized)
}
