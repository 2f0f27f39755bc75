package innertube

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	ythttp "ytscribe/http"
	"ytscribe/youtube"
)

// maxPages bounds pagination when YouTube keeps returning the same token.
const maxPages = 2000

// Lister implements youtube.VideoLister on the browse API. Upload dates
// are derived from relative text ("3 weeks ago"), so they are approximate
// until enriched with per-video details.
type Lister struct {
	client *Client
	logger *slog.Logger
	now    func() time.Time
}

// NewLister creates a new Innertube-based video lister.
func NewLister(client *Client, logger *slog.Logger) *Lister {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Lister{client: client, logger: logger, now: time.Now}
}

// ListVideos implements youtube.VideoLister. Pages are requested only when
// the caller consumes past the end of the previous one.
func (l *Lister) ListVideos(ctx context.Context, ch youtube.Channel) iter.Seq2[youtube.VideoInfo, error] {
	return func(yield func(youtube.VideoInfo, error) bool) {
		fail := func(err error) {
			yield(youtube.VideoInfo{}, &youtube.ListerError{Source: "innertube", Channel: ch.ID, Err: err})
		}

		token := ""
		seen := make(map[string]bool)
		for page := 1; page <= maxPages; page++ {
			resp, err := l.client.Browse(ctx, ch.ID, token)
			if err != nil {
				fail(classify(err))
				return
			}

			p := ParsePage(resp)
			if page == 1 {
				if len(p.Videos) == 0 && p.ChannelID == "" && p.ChannelName == "" {
					fail(youtube.ErrChannelNotFound)
					return
				}
				if ch.Name == "" {
					ch.Name = p.ChannelName
				}
			}
			l.logger.Debug("fetched browse page",
				slog.String("channel_id", ch.ID), slog.Int("page", page), slog.Int("videos", len(p.Videos)))

			now := l.now()
			for _, v := range p.Videos {
				if seen[v.VideoID] {
					continue
				}
				seen[v.VideoID] = true
				if !yield(videoDataToInfo(v, ch, now), nil) {
					return
				}
			}

			if p.Continuation == "" || p.Continuation == token {
				return
			}
			token = p.Continuation
		}
		l.logger.Warn("stopped paging, page limit reached",
			slog.String("channel_id", ch.ID), slog.Int("pages", maxPages))
	}
}

// classify maps a browse failure onto the youtube sentinels.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch ythttp.StatusCode(err) {
	case http.StatusNotFound, http.StatusBadRequest:
		return fmt.Errorf("%w: %w", youtube.ErrChannelNotFound, err)
	}
	return fmt.Errorf("%w: %w", youtube.ErrFetchFailed, err)
}

// videoDataToInfo converts a browse cell to youtube.VideoInfo.
func videoDataToInfo(v VideoData, ch youtube.Channel, now time.Time) youtube.VideoInfo {
	info := youtube.VideoInfo{
		ID:          v.VideoID,
		Title:       v.Title,
		Description: v.Description,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		Thumbnail:   v.Thumbnail,
		Published:   parseRelativeTime(v.Published, now),
		Duration:    parseDuration(v.Duration),
	}
	info.PublishedApprox = !info.Published.IsZero()
	if n, ok := parseViewCount(v.ViewCount); ok {
		info.ViewCount = youtube.Count(n)
	}
	return info
}

var relativeUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
	"year":   365 * 24 * time.Hour,
}

// parseRelativeTime converts "3 weeks ago" or "Streamed 2 days ago" to an
// absolute time relative to now. Unknown text yields the zero time.
func parseRelativeTime(s string, now time.Time) time.Time {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) > 0 && (fields[0] == "streamed" || fields[0] == "premiered") {
		fields = fields[1:]
	}
	if len(fields) != 3 || fields[2] != "ago" {
		return time.Time{}
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return time.Time{}
	}
	unit, ok := relativeUnits[strings.TrimSuffix(fields[1], "s")]
	if !ok {
		return time.Time{}
	}
	return now.Add(-time.Duration(n) * unit)
}

// parseDuration converts "10:30" or "1:23:45" to a duration.
func parseDuration(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	var total time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + time.Duration(n)
	}
	return total * time.Second
}

// parseViewCount converts "1,234 views", "1.2M views" or "No views".
func parseViewCount(s string) (int64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(strings.TrimSuffix(s, " views"), " view")
	s = strings.ReplaceAll(s, ",", "")
	switch s {
	case "":
		return 0, false
	case "no":
		return 0, true
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'k':
		mult = 1e3
	case 'm':
		mult = 1e6
	case 'b':
		mult = 1e9
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(f * mult)), true
}
