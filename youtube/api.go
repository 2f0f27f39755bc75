package youtube

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytscribe/internal/retry"
)

// apiPageSize is the maximum page size of playlistItems.list and the
// maximum number of IDs accepted by videos.list.
const apiPageSize = 50

// APILister implements ChannelResolver, VideoLister and VideoDetailer on
// the YouTube Data API v3. It needs an API key.
type APILister struct {
	service *youtube.Service
	retry   retry.Config
	logger  *slog.Logger

	mu      sync.Mutex
	uploads map[string]string // channel ID -> uploads playlist ID
}

// APIConfig configures an APILister.
type APIConfig struct {
	APIKey string
	Retry  retry.Config
	Logger *slog.Logger
	// Options are appended to the service options (tests point the
	// endpoint at a local server).
	Options []option.ClientOption
}

// NewAPILister creates a new YouTube Data API v3-based video lister.
func NewAPILister(ctx context.Context, cfg APIConfig) (*APILister, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key required", ErrInvalidArgument)
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.Options...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &APILister{
		service: service,
		retry:   cfg.Retry,
		logger:  logger,
		uploads: make(map[string]string),
	}, nil
}

// Resolve implements ChannelResolver. Handles and legacy usernames are
// looked up with channels.list; custom /c/ names fall back to search.
func (a *APILister) Resolve(ctx context.Context, input string) (Channel, error) {
	ref, err := ParseChannelInput(input)
	if err != nil {
		return Channel{}, err
	}

	if ref.Custom != "" {
		id, err := a.searchChannel(ctx, ref.Custom)
		if err != nil {
			return Channel{}, &ListerError{Source: "api", Channel: input, Err: err}
		}
		ref = ChannelRef{ID: id}
	}

	ch, err := a.channel(ctx, ref)
	if err != nil {
		return Channel{}, &ListerError{Source: "api", Channel: input, Err: err}
	}
	return ch, nil
}

// channel looks up one channel and caches its uploads playlist.
func (a *APILister) channel(ctx context.Context, ref ChannelRef) (Channel, error) {
	var ch Channel
	err := retry.Do(ctx, a.retry, apiErrorClassifier, func(ctx context.Context) error {
		call := a.service.Channels.List([]string{"snippet", "contentDetails"}).Context(ctx)
		switch {
		case ref.ID != "":
			call = call.Id(ref.ID)
		case ref.Handle != "":
			call = call.ForHandle(ref.Handle)
		default:
			call = call.ForUsername(ref.User)
		}

		resp, err := call.Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return ErrChannelNotFound
		}

		item := resp.Items[0]
		ch = Channel{ID: item.Id, Handle: ref.Handle}
		if item.Snippet != nil {
			ch.Name = item.Snippet.Title
		}
		if item.ContentDetails != nil && item.ContentDetails.RelatedPlaylists != nil {
			a.mu.Lock()
			a.uploads[item.Id] = item.ContentDetails.RelatedPlaylists.Uploads
			a.mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return Channel{}, mapAPIError(err, ErrChannelNotFound)
	}
	return ch, nil
}

// searchChannel finds a channel ID for a custom URL name.
func (a *APILister) searchChannel(ctx context.Context, query string) (string, error) {
	var channelID string
	err := retry.Do(ctx, a.retry, apiErrorClassifier, func(ctx context.Context) error {
		resp, err := a.service.Search.List([]string{"id"}).
			Q(query).
			Type("channel").
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 || resp.Items[0].Id == nil {
			return ErrChannelNotFound
		}
		channelID = resp.Items[0].Id.ChannelId
		return nil
	})
	if err != nil {
		return "", mapAPIError(err, ErrChannelNotFound)
	}
	return channelID, nil
}

// uploadsPlaylist returns the uploads playlist ID of a channel.
func (a *APILister) uploadsPlaylist(ctx context.Context, ch Channel) (string, Channel, error) {
	a.mu.Lock()
	id, ok := a.uploads[ch.ID]
	a.mu.Unlock()
	if ok && id != "" {
		return id, ch, nil
	}

	full, err := a.channel(ctx, ChannelRef{ID: ch.ID})
	if err != nil {
		return "", ch, err
	}
	if ch.Name == "" {
		ch.Name = full.Name
	}

	a.mu.Lock()
	id = a.uploads[ch.ID]
	a.mu.Unlock()
	if id == "" {
		return "", ch, ErrChannelNotFound
	}
	return id, ch, nil
}

// ListVideos implements VideoLister. It pages through the uploads playlist
// and fetches details for each page with a single videos.list call.
func (a *APILister) ListVideos(ctx context.Context, ch Channel) iter.Seq2[VideoInfo, error] {
	return func(yield func(VideoInfo, error) bool) {
		fail := func(err error) {
			yield(VideoInfo{}, &ListerError{Source: "api", Channel: ch.ID, Err: err})
		}

		playlistID, ch, err := a.uploadsPlaylist(ctx, ch)
		if err != nil {
			fail(err)
			return
		}

		pageToken := ""
		for page := 1; ; page++ {
			ids, next, err := a.playlistPage(ctx, playlistID, pageToken)
			if err != nil {
				fail(err)
				return
			}
			a.logger.Debug("fetched uploads page",
				slog.String("channel_id", ch.ID), slog.Int("page", page), slog.Int("videos", len(ids)))

			videos, err := a.videos(ctx, ids)
			if err != nil {
				fail(err)
				return
			}
			for _, id := range ids {
				v, ok := videos[id]
				if !ok {
					// deleted or private entries stay in the playlist
					continue
				}
				if v.ChannelName == "" {
					v.ChannelName = ch.Name
				}
				if !yield(v, nil) {
					return
				}
			}

			if next == "" {
				return
			}
			pageToken = next
		}
	}
}

func (a *APILister) playlistPage(ctx context.Context, playlistID, pageToken string) ([]string, string, error) {
	var ids []string
	var next string
	err := retry.Do(ctx, a.retry, apiErrorClassifier, func(ctx context.Context) error {
		call := a.service.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(apiPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return err
		}

		ids = ids[:0]
		for _, item := range resp.Items {
			if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
				ids = append(ids, item.ContentDetails.VideoId)
			}
		}
		next = resp.NextPageToken
		return nil
	})
	if err != nil {
		return nil, "", mapAPIError(err, ErrChannelNotFound)
	}
	return ids, next, nil
}

// videos fetches snippet, contentDetails and statistics for up to 50 IDs.
func (a *APILister) videos(ctx context.Context, ids []string) (map[string]VideoInfo, error) {
	out := make(map[string]VideoInfo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	err := retry.Do(ctx, a.retry, apiErrorClassifier, func(ctx context.Context) error {
		resp, err := a.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(ids...).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		for _, item := range resp.Items {
			out[item.Id] = apiVideoToInfo(item)
		}
		return nil
	})
	if err != nil {
		return nil, mapAPIError(err, ErrVideoNotFound)
	}
	return out, nil
}

// VideoDetails implements VideoDetailer.
func (a *APILister) VideoDetails(ctx context.Context, videoID string) (VideoInfo, error) {
	videos, err := a.videos(ctx, []string{videoID})
	if err != nil {
		return VideoInfo{}, err
	}
	v, ok := videos[videoID]
	if !ok {
		return VideoInfo{}, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}
	return v, nil
}

func apiVideoToInfo(item *youtube.Video) VideoInfo {
	v := VideoInfo{ID: item.Id}
	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.ChannelID = s.ChannelId
		v.ChannelName = s.ChannelTitle
		if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			v.Published = t
		}
		v.Thumbnail = bestAPIThumbnail(s.Thumbnails)
	}
	if cd := item.ContentDetails; cd != nil {
		v.Duration = parseISODuration(cd.Duration)
	}
	if st := item.Statistics; st != nil {
		v.ViewCount = Count(int64(st.ViewCount))
		// Hidden likes and disabled comments are omitted by the API and decode
		// as zero. A zero on a watched video is read as absent.
		v.LikeCount = apiCount(st.LikeCount, st.ViewCount)
		v.CommentCount = apiCount(st.CommentCount, st.ViewCount)
	}
	return v
}

func apiCount(n, views uint64) *int64 {
	if n == 0 && views > 0 {
		return nil
	}
	return Count(int64(n))
}

func bestAPIThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

var isoDurationRegex = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseISODuration parses the ISO 8601 durations used by the Data API
// (e.g. "PT1H2M3S", "P1DT2S"). Unknown forms yield zero.
func parseISODuration(s string) time.Duration {
	m := isoDurationRegex.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		d += time.Duration(n) * unit
	}
	return d
}

// apiErrorClassifier determines if an API error is retryable.
func apiErrorClassifier(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}
	if errors.Is(err, ErrChannelNotFound) || errors.Is(err, ErrVideoNotFound) {
		return false
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if gErr.Code == http.StatusTooManyRequests || gErr.Code >= 500 {
			return true
		}
		for _, item := range gErr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
		// quotaExceeded, bad keys and 404s do not improve with retries
		return false
	}

	return true
}

// mapAPIError attaches a sentinel to an API failure: notFound for 404
// responses and ErrFetchFailed for everything else.
func mapAPIError(err error, notFound error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %w", notFound, err)
	}
	return fetchFailed(err)
}
