package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ytscribe/catalog"
	"ytscribe/storage"
	"ytscribe/youtube"
)

// DefaultBatchRoot is the parent of default batch output directories.
const DefaultBatchRoot = "output"

// BatchOptions configures Batch.
type BatchOptions struct {
	CSVPath string
	// OutputDir defaults to DefaultBatchDir(CSVPath).
	OutputDir  string
	Language   string
	Format     Format
	Timestamps bool
	// Restart discards the progress of earlier runs.
	Restart bool
}

// BatchResult counts what a batch run did.
type BatchResult struct {
	OutputDir   string
	Total       int
	Written     int
	AlreadyDone int
	Skipped     int
	Failed      int
}

// DefaultBatchDir returns output/<csv-basename>_transcripts.
func DefaultBatchDir(csvPath string) string {
	base := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	return filepath.Join(DefaultBatchRoot, base+"_transcripts")
}

// Batch writes one transcript per row of a channel CSV into an output
// directory. Progress is saved after every transcript so an interrupted run
// resumes where it stopped. Rows without a transcript are logged and
// skipped; fetch failures are counted and reported once all rows are done.
// Write failures and cancellation stop the run.
func (e *Extractor) Batch(ctx context.Context, opts BatchOptions) (BatchResult, error) {
	videos, err := catalog.ReadCSV(opts.CSVPath)
	if err != nil {
		return BatchResult{}, err
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = DefaultBatchDir(opts.CSVPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return BatchResult{}, &storage.StorageError{Op: "write", Entity: "directory", ID: dir,
			Err: fmt.Errorf("%w: %w", storage.ErrWriteFailed, err)}
	}

	progress, err := storage.OpenProgress(ctx, filepath.Join(dir, storage.ProgressFileName), opts.Restart)
	if err != nil {
		return BatchResult{}, err
	}
	defer progress.Close()

	logger := e.logger().With(slog.String("batch_run_id", progress.RunID()))
	logger.Info("starting batch",
		slog.String("csv", opts.CSVPath), slog.String("output_dir", dir),
		slog.Int("rows", len(videos)), slog.Int("already_done", len(progress.Completed())))

	res := BatchResult{OutputDir: dir, Total: len(videos)}
	target := OutputTarget{Dir: dir, Format: opts.Format, Timestamps: opts.Timestamps}

	for i, v := range videos {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if progress.IsDone(v.ID) {
			res.AlreadyDone++
			continue
		}

		log := logger.With(slog.String("video_id", v.ID), slog.Int("row", i+1))
		tr, err := e.Captions.FetchTranscript(ctx, v.ID, opts.Language)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return res, ctx.Err()
		case errors.Is(err, youtube.ErrTranscriptUnavailable), errors.Is(err, youtube.ErrVideoNotFound):
			log.Warn("no transcript, skipping", slog.Any("error", err))
			res.Skipped++
			if err := progress.MarkSkipped(v.ID, err.Error()); err != nil {
				return res, err
			}
			continue
		default:
			log.Error("transcript fetch failed", slog.Any("error", err))
			res.Failed++
			continue
		}

		if tr.Title == "" {
			tr.Title = v.Title
		}
		id := tr.VideoID
		if id == "" {
			id = v.ID
		}
		if _, err := e.write(tr, DefaultPath(dir, v.Title, id, opts.Format), target); err != nil {
			return res, err
		}
		if err := progress.MarkDone(v.ID); err != nil {
			return res, err
		}
		res.Written++
	}

	logger.Info("batch finished",
		slog.Int("written", res.Written), slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed), slog.Int("already_done", res.AlreadyDone))
	if res.Failed > 0 {
		return res, fmt.Errorf("%w: %d of %d transcripts could not be fetched",
			youtube.ErrFetchFailed, res.Failed, res.Total)
	}
	return res, nil
}
