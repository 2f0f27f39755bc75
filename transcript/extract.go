package transcript

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"ytscribe/storage"
	"ytscribe/youtube"
)

// Extractor fetches transcripts and writes them out.
type Extractor struct {
	Captions youtube.CaptionSource
	Logger   *slog.Logger
	// Stdout receives transcripts for stdout targets. Defaults to os.Stdout.
	Stdout io.Writer
}

// Result describes one written transcript.
type Result struct {
	Transcript *youtube.Transcript
	// Path is empty when the transcript went to stdout.
	Path  string
	Bytes int
}

// Extract fetches the transcript of video in lang and writes it to target.
// Files are written atomically, so a failed run leaves no file behind.
func (e *Extractor) Extract(ctx context.Context, video, lang string, target OutputTarget) (Result, error) {
	tr, err := e.Captions.FetchTranscript(ctx, video, lang)
	if err != nil {
		return Result{}, err
	}
	return e.write(tr, target.PathFor(tr.Title, tr.VideoID), target)
}

func (e *Extractor) write(tr *youtube.Transcript, path string, target OutputTarget) (Result, error) {
	text := Render(tr, RenderOptions{Format: target.Format, Timestamps: target.Timestamps})
	res := Result{Transcript: tr, Bytes: len(text)}

	if target.Stdout {
		out := e.Stdout
		if out == nil {
			out = os.Stdout
		}
		if _, err := io.WriteString(out, text); err != nil {
			return Result{}, &storage.StorageError{Op: "write", Entity: "transcript", ID: "stdout",
				Err: fmt.Errorf("%w: %w", storage.ErrWriteFailed, err)}
		}
		return res, nil
	}

	if err := storage.WriteBytes(path, "transcript", []byte(text)); err != nil {
		return Result{}, err
	}
	res.Path = path
	e.logger().Info("wrote transcript",
		slog.String("video_id", tr.VideoID), slog.String("path", path),
		slog.Int("segments", len(tr.Entries)), slog.Int("bytes", res.Bytes))
	return res, nil
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
