package tools

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactlyten", truncate("exactlyten", 10))
	assert.Equal(t, "elevenchar...", truncate("elevencharss", 10))
	assert.Equal(t, strings.Repeat("a", 60)+"...", truncate(strings.Repeat("a", 61), 60))
}

func TestTruncate_CountsCharactersNotBytes(t *testing.T) {
	// Each of these runs under the limit by character count even though the
	// byte count is far over it; nothing may be cut.
	assert.Equal(t, strings.Repeat("日", 50), truncate(strings.Repeat("日", 50), 100))
	assert.Equal(t, "🔥🔥🔥", truncate("🔥🔥🔥", 3))

	cut := truncate(strings.Repeat("日", 120), 100)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, strings.Repeat("日", 100)+"...", cut)

	cut = truncate("café au lait", 4)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, "café...", cut)
}

func TestDisplayDate(t *testing.T) {
	assert.Equal(t, "Mar 1, 2026", displayDate("2026-03-01T12:00:00Z"))
	assert.Equal(t, "not-a-date", displayDate("not-a-date"))
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "", plural(1, "s"))
	assert.Equal(t, "s", plural(0, "s"))
	assert.Equal(t, "s", plural(2, "s"))
}
