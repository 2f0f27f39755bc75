// Package catalog exports the upload list of a YouTube channel: it walks a
// channel's videos newest first, keeps the ones inside an optional upload
// date range up to a count limit, and writes them as CSV.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"ytscribe/youtube"
)

// DateRange is an inclusive range of upload dates. A zero Start or End
// leaves that side open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses optional YYYY-MM-DD bounds. Empty strings leave the
// bound open. Malformed dates and a start after the end are rejected with
// youtube.ErrInvalidArgument.
func NewDateRange(start, end string) (DateRange, error) {
	var r DateRange
	var err error
	if r.Start, err = parseDate("start", start); err != nil {
		return DateRange{}, err
	}
	if r.End, err = parseDate("end", end); err != nil {
		return DateRange{}, err
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return DateRange{}, fmt.Errorf("%w: start date %s is after end date %s",
			youtube.ErrInvalidArgument, start, end)
	}
	return r, nil
}

func parseDate(name, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s date %q is not YYYY-MM-DD", youtube.ErrInvalidArgument, name, s)
	}
	return t, nil
}

// IsZero reports whether both bounds are open.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether the upload date of v lies inside the range.
// A video without a known upload date only passes an open range.
func (r DateRange) Contains(v youtube.VideoInfo) bool {
	if r.IsZero() {
		return true
	}
	if v.Published.IsZero() {
		return false
	}
	d := dateOf(v.Published)
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// olderThanStart reports whether v was uploaded before the range start.
func (r DateRange) olderThanStart(v youtube.VideoInfo) bool {
	if r.Start.IsZero() || v.Published.IsZero() {
		return false
	}
	return dateOf(v.Published).Before(r.Start)
}

// String renders the range for log lines.
func (r DateRange) String() string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "*"
		}
		return t.Format(time.DateOnly)
	}
	return format(r.Start) + ".." + format(r.End)
}

// dateOf drops the clock from t, keeping the calendar date as written in t's
// location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Filter returns the videos inside r, preserving their order.
func Filter(videos []youtube.VideoInfo, r DateRange) []youtube.VideoInfo {
	out := make([]youtube.VideoInfo, 0, len(videos))
	for _, v := range videos {
		if r.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// Limit returns the first n videos. Unlimited (-1) returns all of them.
func Limit(videos []youtube.VideoInfo, n int) []youtube.VideoInfo {
	if n < 0 || n >= len(videos) {
		return videos
	}
	return videos[:n]
}
