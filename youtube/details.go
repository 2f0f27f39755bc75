package youtube

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	kkyoutube "github.com/kkdai/youtube/v2"

	"ytscribe/internal/retry"
)

// playerClient is the subset of the kkdai client used here.
type playerClient interface {
	GetVideoContext(ctx context.Context, url string) (*kkyoutube.Video, error)
	GetTranscriptCtx(ctx context.Context, video *kkyoutube.Video, lang string) (kkyoutube.VideoTranscript, error)
}

// newPlayerClient returns a kkdai client that performs its requests through
// httpClient.
func newPlayerClient(httpClient *http.Client) *kkyoutube.Client {
	return &kkyoutube.Client{HTTPClient: httpClient}
}

// fetchVideo loads the player response of one video with retries.
func fetchVideo(ctx context.Context, p playerClient, cfg retry.Config, videoID string) (*kkyoutube.Video, error) {
	var video *kkyoutube.Video
	err := retry.Do(ctx, cfg, playerErrorClassifier, func(ctx context.Context) error {
		v, err := p.GetVideoContext(ctx, videoID)
		if err != nil {
			return err
		}
		video = v
		return nil
	})
	if err != nil {
		return nil, mapPlayerError(err)
	}
	return video, nil
}

// mapPlayerError attaches sentinels to kkdai errors. Private, deleted and
// otherwise unplayable videos match ErrVideoNotFound.
func mapPlayerError(err error) error {
	var playability *kkyoutube.ErrPlayabiltyStatus
	switch {
	case errors.Is(err, kkyoutube.ErrVideoPrivate),
		errors.Is(err, kkyoutube.ErrLoginRequired),
		errors.Is(err, kkyoutube.ErrNotPlayableInEmbed),
		errors.As(err, &playability):
		return fmt.Errorf("%w: %w", ErrVideoNotFound, err)
	case errors.Is(err, kkyoutube.ErrInvalidCharactersInVideoID),
		errors.Is(err, kkyoutube.ErrVideoIDMinLength):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return fetchFailed(err)
}

func playerErrorClassifier(err error) bool {
	if !retry.IsRetryable(err) || errors.Is(err, kkyoutube.ErrTranscriptDisabled) {
		return false
	}
	if errors.Is(mapPlayerError(err), ErrFetchFailed) {
		var status kkyoutube.ErrUnexpectedStatusCode
		if errors.As(err, &status) {
			return status == http.StatusTooManyRequests || status >= 500
		}
		return true
	}
	return false
}

// KkdaiDetailer implements VideoDetailer by reading the player response.
type KkdaiDetailer struct {
	player playerClient
	retry  retry.Config
}

// NewKkdaiDetailer creates a detailer whose requests go through httpClient.
func NewKkdaiDetailer(httpClient *http.Client, cfg retry.Config) *KkdaiDetailer {
	return &KkdaiDetailer{player: newPlayerClient(httpClient), retry: cfg}
}

// VideoDetails implements VideoDetailer.
func (d *KkdaiDetailer) VideoDetails(ctx context.Context, videoID string) (VideoInfo, error) {
	video, err := fetchVideo(ctx, d.player, d.retry, videoID)
	if err != nil {
		return VideoInfo{}, err
	}
	return playerVideoToInfo(video), nil
}

func playerVideoToInfo(v *kkyoutube.Video) VideoInfo {
	info := VideoInfo{
		ID:          v.ID,
		Title:       v.Title,
		ChannelID:   v.ChannelID,
		ChannelName: v.Author,
		Published:   v.PublishDate,
		Duration:    v.Duration,
		Description: v.Description,
		ViewCount:   Count(int64(v.Views)),
	}
	var best uint
	for _, t := range v.Thumbnails {
		if t.Width*t.Height >= best {
			best = t.Width * t.Height
			info.Thumbnail = t.URL
		}
	}
	return info
}

// EnrichedLister fills each listed record with per-video details. Records
// are enriched as they are consumed, so an early stop saves the lookups.
type EnrichedLister struct {
	Lister   VideoLister
	Detailer VideoDetailer
	Logger   *slog.Logger
}

// ListVideos implements VideoLister. A video the detailer cannot find keeps
// its listed metadata minus any approximate upload date; any other lookup
// failure ends the listing with that error.
func (e *EnrichedLister) ListVideos(ctx context.Context, ch Channel) iter.Seq2[VideoInfo, error] {
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(yield func(VideoInfo, error) bool) {
		for v, err := range e.Lister.ListVideos(ctx, ch) {
			if err != nil {
				yield(VideoInfo{}, err)
				return
			}

			details, derr := e.Detailer.VideoDetails(ctx, v.ID)
			switch {
			case derr == nil:
				v = mergeDetails(v, details)
			case ctx.Err() != nil:
				yield(VideoInfo{}, ctx.Err())
				return
			case errors.Is(derr, ErrVideoNotFound):
				logger.Warn("video details unavailable, keeping listed metadata",
					slog.String("video_id", v.ID), slog.Any("error", derr))
				if v.PublishedApprox {
					v.Published = time.Time{}
					v.PublishedApprox = false
				}
			default:
				yield(VideoInfo{}, fmt.Errorf("details of %s: %w", v.ID, derr))
				return
			}

			if !yield(v, nil) {
				return
			}
		}
	}
}

// mergeDetails prefers detail values and keeps listed values the details
// lack.
func mergeDetails(listed, details VideoInfo) VideoInfo {
	out := listed
	if details.Title != "" {
		out.Title = details.Title
	}
	if details.ChannelID != "" {
		out.ChannelID = details.ChannelID
	}
	if details.ChannelName != "" {
		out.ChannelName = details.ChannelName
	}
	if !details.Published.IsZero() {
		out.Published = details.Published
		out.PublishedApprox = details.PublishedApprox
	}
	if details.Duration > 0 {
		out.Duration = details.Duration
	}
	if details.Description != "" {
		out.Description = details.Description
	}
	if details.Thumbnail != "" {
		out.Thumbnail = details.Thumbnail
	}
	if details.ViewCount != nil {
		out.ViewCount = details.ViewCount
	}
	if details.LikeCount != nil {
		out.LikeCount = details.LikeCount
	}
	if details.CommentCount != nil {
		out.CommentCount = details.CommentCount
	}
	return out
}
