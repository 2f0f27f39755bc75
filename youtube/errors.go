package youtube

import (
	"context"
	"errors"
	"fmt"

	httpclient "ytscribe/http"
)

// Sentinel errors returned by listers, resolvers and caption clients.
var (
	ErrChannelNotFound       = errors.New("youtube: channel not found")
	ErrVideoNotFound         = errors.New("youtube: video not found")
	ErrTranscriptUnavailable = errors.New("youtube: transcript unavailable")
	ErrFetchFailed           = errors.New("youtube: fetch failed")
	ErrInvalidArgument       = errors.New("youtube: invalid argument")

	// ErrInvalidURL matches ErrInvalidArgument under errors.Is.
	ErrInvalidURL = fmt.Errorf("%w: invalid URL", ErrInvalidArgument)

	// ErrInvalidChannel is returned for input that names no channel. It
	// matches both ErrChannelNotFound and ErrInvalidURL under errors.Is.
	ErrInvalidChannel = fmt.Errorf("%w: %w", ErrChannelNotFound, ErrInvalidURL)
)

// ListerError wraps listing errors with context about what failed.
// Use errors.As() to extract this error type and get operation details:
//
//	var listerErr *youtube.ListerError
//	if errors.As(err, &listerErr) {
//		fmt.Printf("Failed to list from %s: %v\n", listerErr.Source, listerErr.Err)
//	}
type ListerError struct {
	// Source indicates which backend produced the error ("api", "innertube", "rss", "page").
	Source string
	// Channel is the channel input or ID that was being listed.
	Channel string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the listing error.
func (e *ListerError) Error() string {
	return "youtube: " + e.Source + " listing " + e.Channel + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *ListerError) Unwrap() error { return e.Err }

// TranscriptError reports a failed transcript fetch for one video.
type TranscriptError struct {
	VideoID  string
	Language string
	Err      error
}

func (e *TranscriptError) Error() string {
	return fmt.Sprintf("youtube: transcript %s (%s): %v", e.VideoID, e.Language, e.Err)
}

func (e *TranscriptError) Unwrap() error { return e.Err }

// fetchFailed tags a transport-level failure with ErrFetchFailed. Context
// errors and errors that already carry a sentinel pass through unchanged.
func fetchFailed(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrFetchFailed),
		errors.Is(err, ErrChannelNotFound),
		errors.Is(err, ErrVideoNotFound),
		errors.Is(err, ErrTranscriptUnavailable),
		errors.Is(err, ErrInvalidArgument):
		return err
	}
	return fmt.Errorf("%w: %w", ErrFetchFailed, err)
}

// isNotFound reports whether err is an HTTP 404 from the shared client.
func isNotFound(err error) bool {
	return httpclient.StatusCode(err) == 404
}
