package transcript

import (
	"path/filepath"
	"strings"
	"unicode"
)

// StdoutPath is the -o value that writes to standard output.
const StdoutPath = "-"

// maxTitleRunes keeps generated file names well under file system limits.
const maxTitleRunes = 100

// OutputTarget describes where and how a transcript is written.
type OutputTarget struct {
	// Path is the explicit output file. Empty selects DefaultPath under Dir.
	Path       string
	Dir        string
	Format     Format
	Timestamps bool
	Stdout     bool
}

// NewOutputTarget builds a target from the -o value. "-" selects stdout.
func NewOutputTarget(output, dir string, format Format, timestamps bool) OutputTarget {
	target := OutputTarget{Dir: dir, Format: format, Timestamps: timestamps}
	if output == StdoutPath {
		target.Stdout = true
	} else {
		target.Path = output
	}
	return target
}

// PathFor returns the file a transcript of videoID titled title is written
// to.
func (o OutputTarget) PathFor(title, videoID string) string {
	if o.Path != "" {
		return o.Path
	}
	return DefaultPath(o.Dir, title, videoID, o.Format)
}

// DefaultPath returns <dir>/<sanitized-title>-<videoID><ext>, or
// <dir>/<videoID><ext> when the title sanitizes to nothing.
func DefaultPath(dir, title, videoID string, format Format) string {
	name := videoID
	if s := SanitizeTitle(title); s != "" {
		name = s + "-" + videoID
	}
	return filepath.Join(dir, name+format.Ext())
}

// SanitizeTitle keeps letters, digits, underscores and hyphens, and turns
// runs of whitespace into single hyphens.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	s := strings.Join(strings.Fields(b.String()), "-")
	if runes := []rune(s); len(runes) > maxTitleRunes {
		s = strings.TrimRight(string(runes[:maxTitleRunes]), "-")
	}
	return s
}
