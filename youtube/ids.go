package youtube

import (
	"fmt"
	"regexp"
	"strings"

	kkyoutube "github.com/kkdai/youtube/v2"
)

var videoIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ParseVideoID extracts the 11-character video ID from a bare ID or any
// watch, youtu.be, shorts or embed URL.
func ParseVideoID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("%w: empty video ID", ErrInvalidURL)
	}
	id, err := kkyoutube.ExtractVideoID(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidURL, input, err)
	}
	if !videoIDRegex.MatchString(id) {
		return "", fmt.Errorf("%w: %q is not a video ID or URL", ErrInvalidURL, input)
	}
	return id, nil
}
