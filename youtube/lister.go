// Package youtube provides channel resolution, video listing, per-video
// details and transcript fetching for YouTube.
package youtube

import (
	"context"
	"iter"
	"time"
)

// ChannelResolver turns user input (URL, handle or ID) into a Channel.
type ChannelResolver interface {
	Resolve(ctx context.Context, input string) (Channel, error)
}

// VideoLister yields a channel's uploads, most recent first. The sequence
// is lazy: pages are fetched only as the caller consumes records, and it
// stops after the first error it yields.
type VideoLister interface {
	ListVideos(ctx context.Context, ch Channel) iter.Seq2[VideoInfo, error]
}

// VideoDetailer fetches complete metadata for a single video.
type VideoDetailer interface {
	VideoDetails(ctx context.Context, videoID string) (VideoInfo, error)
}

// CaptionSource fetches the auto-generated transcript of a video.
type CaptionSource interface {
	FetchTranscript(ctx context.Context, videoID, lang string) (*Transcript, error)
}

// Channel identifies a resolved YouTube channel.
type Channel struct {
	// ID is the canonical channel ID (UC...).
	ID string
	// Name is the display name, when known.
	Name string
	// Handle is the @handle without the @, when known.
	Handle string
}

// URL returns the canonical channel URL.
func (c Channel) URL() string {
	return "https://www.youtube.com/channel/" + c.ID
}

// VideoInfo contains metadata about a YouTube video.
type VideoInfo struct {
	// ID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	ID string `json:"id"`

	// Title is the video title.
	Title string `json:"title"`

	// ChannelID is the YouTube channel ID (e.g., "UCuAXFkgsw1L7xaCfnd5JJOw").
	ChannelID string `json:"channel_id"`

	// ChannelName is the display name of the channel.
	ChannelName string `json:"channel_name"`

	// Published is when the video was uploaded. Only its calendar date is
	// meaningful for every source.
	Published time.Time `json:"published"`

	// PublishedApprox is set when Published was derived from relative text
	// such as "3 weeks ago" and is only good to within the unit named.
	PublishedApprox bool `json:"-"`

	// Duration is the video length. Zero when the source does not report it.
	Duration time.Duration `json:"duration,omitempty"`

	// Description is the video description. May be truncated by some sources.
	Description string `json:"description,omitempty"`

	// Thumbnail is the URL to the video thumbnail image.
	Thumbnail string `json:"thumbnail,omitempty"`

	// Counts are nil when the source does not provide them.
	ViewCount    *int64 `json:"view_count,omitempty"`
	LikeCount    *int64 `json:"like_count,omitempty"`
	CommentCount *int64 `json:"comment_count,omitempty"`
}

// VideoURL returns the full YouTube URL for this video.
func (v VideoInfo) VideoURL() string {
	return VideoURL(v.ID)
}

// UploadDate returns the upload date as YYYY-MM-DD, or "" when unknown.
func (v VideoInfo) UploadDate() string {
	if v.Published.IsZero() {
		return ""
	}
	return v.Published.Format(time.DateOnly)
}

// VideoURL returns the watch URL for a video ID.
func VideoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// Count returns a pointer to n, for populating optional counts.
func Count(n int64) *int64 {
	return &n
}
