package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"ytscribe/storage"
	"ytscribe/youtube"
)

// Columns is the CSV header, in file order.
var Columns = []string{
	"channel_name",
	"channel_id",
	"upload_date",
	"title",
	"video_id",
	"video_url",
	"duration_seconds",
	"view_count",
	"like_count",
	"comment_count",
	"thumbnail_url",
	"description",
}

// EncodeCSV writes the header and one row per video to w.
func EncodeCSV(w io.Writer, videos []youtube.VideoInfo) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, v := range videos {
		if err := cw.Write(videoRow(v)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func videoRow(v youtube.VideoInfo) []string {
	return []string{
		v.ChannelName,
		v.ChannelID,
		v.UploadDate(),
		v.Title,
		v.ID,
		v.VideoURL(),
		strconv.FormatInt(int64(v.Duration/time.Second), 10),
		formatCount(v.ViewCount),
		formatCount(v.LikeCount),
		formatCount(v.CommentCount),
		v.Thumbnail,
		v.Description,
	}
}

func formatCount(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

// WriteCSV writes videos to path atomically, creating parent directories and
// replacing any existing file. Errors match storage.ErrWriteFailed.
func WriteCSV(path string, videos []youtube.VideoInfo) error {
	return storage.WriteFile(path, "csv", func(w io.Writer) error {
		return EncodeCSV(w, videos)
	})
}

// DecodeCSV parses rows written by EncodeCSV. Columns are matched by header
// name, so extra or reordered columns are accepted; video_id is required.
func DecodeCSV(r io.Reader) ([]youtube.VideoInfo, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv is empty", youtube.ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %w", youtube.ErrInvalidArgument, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := index["video_id"]; !ok {
		return nil, fmt.Errorf("%w: csv has no video_id column", youtube.ErrInvalidArgument)
	}

	var videos []youtube.VideoInfo
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return videos, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %w", youtube.ErrInvalidArgument, err)
		}
		line, _ := cr.FieldPos(0)

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		v, err := rowVideo(field)
		if err != nil {
			return nil, fmt.Errorf("%w: csv line %d: %w", youtube.ErrInvalidArgument, line, err)
		}
		videos = append(videos, v)
	}
}

func rowVideo(field func(string) string) (youtube.VideoInfo, error) {
	v := youtube.VideoInfo{
		ID:          strings.TrimSpace(field("video_id")),
		Title:       field("title"),
		ChannelID:   field("channel_id"),
		ChannelName: field("channel_name"),
		Thumbnail:   field("thumbnail_url"),
		Description: field("description"),
	}
	if v.ID == "" {
		return v, errors.New("empty video_id")
	}

	if s := field("upload_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return v, fmt.Errorf("upload_date %q: %w", s, err)
		}
		v.Published = t
	}
	if s := field("duration_seconds"); s != "" {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return v, fmt.Errorf("duration_seconds %q: %w", s, err)
		}
		v.Duration = time.Duration(secs) * time.Second
	}

	var err error
	if v.ViewCount, err = parseCount(field("view_count")); err != nil {
		return v, fmt.Errorf("view_count: %w", err)
	}
	if v.LikeCount, err = parseCount(field("like_count")); err != nil {
		return v, fmt.Errorf("like_count: %w", err)
	}
	if v.CommentCount, err = parseCount(field("comment_count")); err != nil {
		return v, fmt.Errorf("comment_count: %w", err)
	}
	return v, nil
}

func parseCount(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ReadCSV reads a CSV file written by WriteCSV.
func ReadCSV(path string) ([]youtube.VideoInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", youtube.ErrInvalidArgument,
			&storage.StorageError{Op: "read", Entity: "csv", ID: path, Err: err})
	}
	defer f.Close()
	return DecodeCSV(f)
}

// ExportResult summarizes a finished export.
type ExportResult struct {
	Channel youtube.Channel
	Path    string
	Rows    int
}

// Export fetches the videos selected by q and writes them to path. The file
// is only written once the whole listing succeeded.
func Export(ctx context.Context, f *Fetcher, q Query, path string) (ExportResult, error) {
	ch, err := f.Resolve(ctx, q)
	if err != nil {
		return ExportResult{}, err
	}

	var videos []youtube.VideoInfo
	for v, err := range f.Videos(ctx, ch, q) {
		if err != nil {
			return ExportResult{}, err
		}
		videos = append(videos, v)
	}

	if err := WriteCSV(path, videos); err != nil {
		return ExportResult{}, err
	}
	f.logger().Info("wrote channel csv",
		slog.String("path", path), slog.Int("rows", len(videos)), slog.String("channel_id", ch.ID))
	return ExportResult{Channel: ch, Path: path, Rows: len(videos)}, nil
}
