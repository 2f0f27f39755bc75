package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	kkyoutube "github.com/kkdai/youtube/v2"

	httpclient "ytscribe/http"
	"ytscribe/internal/retry"
)

// DefaultLanguage is the caption language used when none is given.
const DefaultLanguage = "en"

// CaptionClient implements CaptionSource. It reads the caption tracks from
// the player response, downloads the auto-generated track as json3 and falls
// back to the transcript panel when the track is empty.
type CaptionClient struct {
	player playerClient
	http   *httpclient.Client
	retry  retry.Config
	logger *slog.Logger
}

// NewCaptionClient creates a caption client. Player and panel requests go
// through client.StdClient(); track downloads use client directly.
func NewCaptionClient(client *httpclient.Client, cfg retry.Config, logger *slog.Logger) *CaptionClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CaptionClient{
		player: newPlayerClient(client.StdClient()),
		http:   client,
		retry:  cfg,
		logger: logger,
	}
}

// FetchTranscript implements CaptionSource. videoID may also be a video URL.
func (c *CaptionClient) FetchTranscript(ctx context.Context, videoID, lang string) (*Transcript, error) {
	if lang == "" {
		lang = DefaultLanguage
	}
	id, err := ParseVideoID(videoID)
	if err != nil {
		return nil, &TranscriptError{VideoID: videoID, Language: lang, Err: err}
	}
	fail := func(err error) (*Transcript, error) {
		return nil, &TranscriptError{VideoID: id, Language: lang, Err: err}
	}

	video, err := fetchVideo(ctx, c.player, c.retry, id)
	if err != nil {
		if errors.Is(err, ErrVideoNotFound) {
			return fail(fmt.Errorf("%w: %w", ErrTranscriptUnavailable, err))
		}
		return fail(err)
	}

	track, ok := pickAutoTrack(video.CaptionTracks, lang)
	if !ok {
		return fail(fmt.Errorf("%w: no auto-generated %q captions", ErrTranscriptUnavailable, lang))
	}

	entries, err := c.downloadTrack(ctx, track)
	if err != nil {
		return fail(err)
	}
	if len(entries) == 0 {
		c.logger.Debug("caption track empty, trying transcript panel", slog.String("video_id", id))
		entries, err = c.panelTranscript(ctx, video, track.LanguageCode)
		if err != nil {
			return fail(err)
		}
	}
	if len(entries) == 0 {
		return fail(fmt.Errorf("%w: caption track has no text", ErrTranscriptUnavailable))
	}

	c.logger.Debug("fetched transcript",
		slog.String("video_id", id), slog.String("language", track.LanguageCode),
		slog.Int("segments", len(entries)))

	return &Transcript{
		VideoID:       id,
		Title:         video.Title,
		URL:           VideoURL(id),
		Language:      track.LanguageCode,
		AutoGenerated: true,
		Entries:       entries,
	}, nil
}

// pickAutoTrack returns the auto-generated track for lang. A regional
// variant ("en-US") matches a bare language ("en").
func pickAutoTrack(tracks []kkyoutube.CaptionTrack, lang string) (kkyoutube.CaptionTrack, bool) {
	var regional *kkyoutube.CaptionTrack
	for i, t := range tracks {
		if t.Kind != "asr" {
			continue
		}
		if strings.EqualFold(t.LanguageCode, lang) {
			return t, true
		}
		base, _, _ := strings.Cut(t.LanguageCode, "-")
		if regional == nil && strings.EqualFold(base, lang) {
			regional = &tracks[i]
		}
	}
	if regional != nil {
		return *regional, true
	}
	return kkyoutube.CaptionTrack{}, false
}

// downloadTrack fetches a caption track in json3 form.
func (c *CaptionClient) downloadTrack(ctx context.Context, track kkyoutube.CaptionTrack) ([]TranscriptEntry, error) {
	u, err := url.Parse(track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: caption track URL: %w", ErrFetchFailed, err)
	}
	q := u.Query()
	q.Set("fmt", "json3")
	u.RawQuery = q.Encode()

	resp, err := c.http.Get(ctx, u.String())
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: caption track gone", ErrTranscriptUnavailable)
		}
		return nil, fetchFailed(err)
	}
	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return nil, nil
	}

	entries, err := parseTimedtext(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return entries, nil
}

// panelTranscript reads the transcript panel through the kkdai client.
func (c *CaptionClient) panelTranscript(ctx context.Context, video *kkyoutube.Video, lang string) ([]TranscriptEntry, error) {
	var segments kkyoutube.VideoTranscript
	err := retry.Do(ctx, c.retry, playerErrorClassifier, func(ctx context.Context) error {
		s, err := c.player.GetTranscriptCtx(ctx, video, lang)
		if err != nil {
			return err
		}
		segments = s
		return nil
	})
	if err != nil {
		if errors.Is(err, kkyoutube.ErrTranscriptDisabled) {
			return nil, fmt.Errorf("%w: %w", ErrTranscriptUnavailable, err)
		}
		return nil, mapPlayerError(err)
	}

	entries := make([]TranscriptEntry, 0, len(segments))
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		entries = append(entries, TranscriptEntry{
			Start:    float64(max(s.StartMs, 0)) / 1000.0,
			Duration: float64(max(s.Duration, 0)) / 1000.0,
			Text:     text,
		})
	}
	return entries, nil
}
