package youtube

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TranscriptEntry is one timed caption segment. Start and Duration are in
// seconds.
type TranscriptEntry struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Transcript is the ordered caption text of one video.
type Transcript struct {
	VideoID       string            `json:"video_id"`
	Title         string            `json:"title,omitempty"`
	URL           string            `json:"url"`
	Language      string            `json:"language"`
	AutoGenerated bool              `json:"auto_generated"`
	Entries       []TranscriptEntry `json:"entries"`
}

// timedtextResponse is the json3 caption track format.
type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

type timedtextEvent struct {
	TStartMs    int64              `json:"tStartMs"`
	DDurationMs int64              `json:"dDurationMs"`
	Segs        []timedtextSegment `json:"segs,omitempty"`
	// Append marks rolling-caption events that only add a line break.
	Append int `json:"aAppend,omitempty"`
}

type timedtextSegment struct {
	UTF8 string `json:"utf8"`
}

// parseTimedtext converts a json3 caption track into entries ordered by
// start time. Window events and events whose text is only whitespace are
// skipped.
func parseTimedtext(data []byte) ([]TranscriptEntry, error) {
	var resp timedtextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal timedtext JSON: %w", err)
	}

	entries := make([]TranscriptEntry, 0, len(resp.Events))
	for _, event := range resp.Events {
		if len(event.Segs) == 0 || event.Append != 0 {
			continue
		}

		var text strings.Builder
		for _, seg := range event.Segs {
			text.WriteString(seg.UTF8)
		}
		s := strings.TrimSpace(text.String())
		if s == "" {
			continue
		}

		start := float64(max(event.TStartMs, 0)) / 1000.0
		if n := len(entries); n > 0 && start < entries[n-1].Start {
			start = entries[n-1].Start
		}
		entries = append(entries, TranscriptEntry{
			Start:    start,
			Duration: float64(max(event.DDurationMs, 0)) / 1000.0,
			Text:     s,
		})
	}
	return entries, nil
}
