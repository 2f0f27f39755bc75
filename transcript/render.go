// Package transcript turns fetched captions into text or Markdown files.
package transcript

import (
	"fmt"
	"regexp"
	"strings"

	"ytscribe/youtube"
)

// Format selects the rendering of a transcript.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts text (or raw) and markdown (or md). The empty string
// selects text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "raw", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (use text or markdown)", youtube.ErrInvalidArgument, s)
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}

// RenderOptions controls Render.
type RenderOptions struct {
	Format     Format
	Timestamps bool
}

// annotationRegex matches segments that are only a sound cue like [Music].
var annotationRegex = regexp.MustCompile(`^\[[^\[\]]*\]$`)

type line struct {
	start float64
	text  string
}

// cleanSegments collapses whitespace and drops empty segments and pure sound
// annotations.
func cleanSegments(entries []youtube.TranscriptEntry) []line {
	lines := make([]line, 0, len(entries))
	for _, e := range entries {
		text := strings.Join(strings.Fields(e.Text), " ")
		if text == "" || annotationRegex.MatchString(text) {
			continue
		}
		lines = append(lines, line{start: e.Start, text: text})
	}
	return lines
}

// Render formats t. With timestamps every segment is its own line prefixed
// with [mm:ss], or [hh:mm:ss] once the transcript reaches an hour. Without
// timestamps the segments are joined into prose.
func Render(t *youtube.Transcript, opts RenderOptions) string {
	lines := cleanSegments(t.Entries)

	var b strings.Builder
	if opts.Format == FormatMarkdown {
		if t.Title != "" {
			fmt.Fprintf(&b, "# %s\n\n", t.Title)
		}
		if t.URL != "" {
			fmt.Fprintf(&b, "Source: %s\n\n", t.URL)
		}
	}

	if !opts.Timestamps {
		texts := make([]string, len(lines))
		for i, l := range lines {
			texts[i] = l.text
		}
		if len(texts) > 0 {
			b.WriteString(strings.Join(texts, " "))
			b.WriteString("\n")
		}
		return b.String()
	}

	hours := false
	for _, l := range lines {
		if l.start >= 3600 {
			hours = true
			break
		}
	}
	sep := "\n"
	if opts.Format == FormatMarkdown {
		sep = "\n\n"
	}
	for i, l := range lines {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(Timestamp(l.start, hours))
		b.WriteString(" ")
		b.WriteString(l.text)
	}
	if len(lines) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// Timestamp formats seconds as [mm:ss], or [hh:mm:ss] when hours is set.
// Minutes are not capped at 59 in the short form.
func Timestamp(seconds float64, hours bool) string {
	total := int(max(seconds, 0))
	if hours {
		return fmt.Sprintf("[%02d:%02d:%02d]", total/3600, total/60%60, total%60)
	}
	return fmt.Sprintf("[%02d:%02d]", total/60, total%60)
}
