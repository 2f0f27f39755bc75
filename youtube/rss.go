package youtube

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strconv"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	httpclient "ytscribe/http"
)

const rssFeedURLTemplate = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// RSSFeedSize is the number of uploads the channel feed carries.
const RSSFeedSize = 15

// RSSLister implements VideoLister using YouTube's Atom feed.
// The feed only carries the RSSFeedSize most recent uploads, without
// durations.
type RSSLister struct {
	http        *httpclient.Client
	parser      *gofeed.Parser
	feedURLTmpl string
	logger      *slog.Logger
}

// NewRSSLister creates a new feed-based video lister.
func NewRSSLister(client *httpclient.Client, logger *slog.Logger) *RSSLister {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RSSLister{
		http:        client,
		parser:      gofeed.NewParser(),
		feedURLTmpl: rssFeedURLTemplate,
		logger:      logger,
	}
}

// ListVideos implements VideoLister. The channel must carry its ID.
func (r *RSSLister) ListVideos(ctx context.Context, ch Channel) iter.Seq2[VideoInfo, error] {
	return func(yield func(VideoInfo, error) bool) {
		if !channelIDRegex.MatchString(ch.ID) {
			yield(VideoInfo{}, &ListerError{Source: "rss", Channel: ch.ID,
				Err: fmt.Errorf("%w: channel ID required", ErrInvalidArgument)})
			return
		}

		feed, err := r.fetch(ctx, ch.ID)
		if err != nil {
			yield(VideoInfo{}, &ListerError{Source: "rss", Channel: ch.ID, Err: err})
			return
		}
		r.logger.Debug("fetched channel feed",
			slog.String("channel_id", ch.ID), slog.Int("entries", len(feed.Items)))

		name := ch.Name
		if name == "" && len(feed.Authors) > 0 {
			name = feed.Authors[0].Name
		}
		for _, item := range feed.Items {
			v, ok := feedItemToVideo(item, ch.ID, name)
			if !ok {
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (r *RSSLister) fetch(ctx context.Context, channelID string) (*gofeed.Feed, error) {
	resp, err := r.http.Get(ctx, fmt.Sprintf(r.feedURLTmpl, channelID))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrChannelNotFound
		}
		return nil, fetchFailed(err)
	}
	feed, err := r.parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed: %w", ErrFetchFailed, err)
	}
	return feed, nil
}

// feedItemToVideo maps an Atom entry. YouTube-specific fields live in the
// yt: and media: extension namespaces.
func feedItemToVideo(item *gofeed.Item, channelID, channelName string) (VideoInfo, bool) {
	id := extValue(item.Extensions, "yt", "videoId")
	if id == "" {
		return VideoInfo{}, false
	}

	v := VideoInfo{
		ID:          id,
		Title:       item.Title,
		ChannelID:   channelID,
		ChannelName: channelName,
	}
	if cid := extValue(item.Extensions, "yt", "channelId"); cid != "" {
		v.ChannelID = cid
	}
	if item.PublishedParsed != nil {
		v.Published = *item.PublishedParsed
	}

	group := extFirst(item.Extensions, "media", "group")
	if group == nil {
		return v, true
	}
	if desc := childFirst(group, "description"); desc != nil {
		v.Description = desc.Value
	}
	if thumb := childFirst(group, "thumbnail"); thumb != nil {
		v.Thumbnail = thumb.Attrs["url"]
	}
	if community := childFirst(group, "community"); community != nil {
		if stats := childFirst(community, "statistics"); stats != nil {
			if n, err := strconv.ParseInt(stats.Attrs["views"], 10, 64); err == nil {
				v.ViewCount = Count(n)
			}
		}
	}
	return v, true
}

func extFirst(exts ext.Extensions, ns, name string) *ext.Extension {
	if exts == nil {
		return nil
	}
	if list := exts[ns][name]; len(list) > 0 {
		return &list[0]
	}
	return nil
}

func extValue(exts ext.Extensions, ns, name string) string {
	if e := extFirst(exts, ns, name); e != nil {
		return e.Value
	}
	return ""
}

func childFirst(e *ext.Extension, name string) *ext.Extension {
	if list := e.Children[name]; len(list) > 0 {
		return &list[0]
	}
	return nil
}
