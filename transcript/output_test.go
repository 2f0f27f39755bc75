package transcript

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Never Gonna Give You Up", "Never-Gonna-Give-You-Up"},
		{"What's new in Go 1.24?!", "Whats-new-in-Go-124"},
		{"  tabs\tand\nnewlines  ", "tabs-and-newlines"},
		{"snake_case - kebab", "snake_case---kebab"},
		{"日本語 タイトル", "日本語-タイトル"},
		{"../../etc/passwd", "etcpasswd"},
		{"???", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTitle(tt.in))
		})
	}
}

func TestSanitizeTitleTruncates(t *testing.T) {
	got := SanitizeTitle(strings.Repeat("word ", 60))
	assert.LessOrEqual(t, len([]rune(got)), maxTitleRunes)
	assert.False(t, strings.HasSuffix(got, "-"))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "Never-Gonna-dQw4w9WgXcQ.txt"),
		DefaultPath("out", "Never Gonna", "dQw4w9WgXcQ", FormatText))
	assert.Equal(t, filepath.Join("out", "dQw4w9WgXcQ.md"),
		DefaultPath("out", "", "dQw4w9WgXcQ", FormatMarkdown))
	assert.Equal(t, filepath.Join("out", "dQw4w9WgXcQ.md"),
		DefaultPath("out", "!!!", "dQw4w9WgXcQ", FormatMarkdown))
}

func TestNewOutputTarget(t *testing.T) {
	stdout := NewOutputTarget("-", "out", FormatText, true)
	assert.True(t, stdout.Stdout)
	assert.Empty(t, stdout.Path)

	explicit := NewOutputTarget("notes/talk.md", "out", FormatMarkdown, false)
	assert.False(t, explicit.Stdout)
	assert.Equal(t, "notes/talk.md", explicit.PathFor("Ignored", "dQw4w9WgXcQ"))

	def := NewOutputTarget("", "out", FormatMarkdown, false)
	assert.Equal(t, filepath.Join("out", "Talk-dQw4w9WgXcQ.md"), def.PathFor("Talk", "dQw4w9WgXcQ"))
}
