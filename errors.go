package ytscribe

import (
	"errors"

	"ytscribe/internal/retry"
	"ytscribe/storage"
	"ytscribe/youtube"
)

// Type aliases for convenient error handling.
type (
	// ListerError wraps errors during channel resolution and listing.
	ListerError = youtube.ListerError
	// TranscriptError wraps errors during transcript fetching.
	TranscriptError = youtube.TranscriptError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during file operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrChannelNotFound indicates the YouTube channel does not exist.
	ErrChannelNotFound = youtube.ErrChannelNotFound
	// ErrVideoNotFound indicates the video is missing, private or unplayable.
	ErrVideoNotFound = youtube.ErrVideoNotFound
	// ErrTranscriptUnavailable indicates the video has no auto-generated transcript.
	ErrTranscriptUnavailable = youtube.ErrTranscriptUnavailable
	// ErrFetchFailed indicates a network or upstream failure that outlived its retries.
	ErrFetchFailed = youtube.ErrFetchFailed
	// ErrInvalidArgument indicates malformed user input.
	ErrInvalidArgument = youtube.ErrInvalidArgument
	// ErrInvalidURL indicates an unrecognized channel or video URL. It matches ErrInvalidArgument.
	ErrInvalidURL = youtube.ErrInvalidURL
	// ErrInvalidChannel indicates input that names no channel. It matches
	// ErrChannelNotFound and ErrInvalidURL.
	ErrInvalidChannel = youtube.ErrInvalidChannel

	// ErrWriteFailed indicates an output file could not be written.
	ErrWriteFailed = storage.ErrWriteFailed
	// ErrLockTimeout indicates another run holds the batch progress lock.
	ErrLockTimeout = storage.ErrLockTimeout
)

// Exit codes returned by the command line tool.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitInvalidArgs = 2
	ExitNotFound    = 3
	ExitFetchFailed = 4
	ExitWriteFailed = 5
)

// ExitCode maps err to a process exit status. Invalid input wins over every
// other classification; missing channels, videos and transcripts share one
// code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrChannelNotFound),
		errors.Is(err, ErrVideoNotFound),
		errors.Is(err, ErrTranscriptUnavailable):
		return ExitNotFound
	case errors.Is(err, ErrInvalidArgument):
		return ExitInvalidArgs
	case errors.Is(err, ErrFetchFailed):
		return ExitFetchFailed
	case errors.Is(err, ErrWriteFailed):
		return ExitWriteFailed
	}
	return ExitError
}

// IsRetryable determines if an error should be retried.
// It returns false for context errors and permanent errors.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
