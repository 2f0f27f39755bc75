package youtube

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <title>Test Channel</title>
 <author><name>Test Channel</name><uri>https://www.youtube.com/channel/UCsXVk37bltHxD1rDPwtNM8Q</uri></author>
 <entry>
  <id>yt:video:dQw4w9WgXcQ</id>
  <yt:videoId>dQw4w9WgXcQ</yt:videoId>
  <yt:channelId>UCsXVk37bltHxD1rDPwtNM8Q</yt:channelId>
  <title>Newest upload</title>
  <published>2024-03-10T12:00:00+00:00</published>
  <updated>2024-03-11T12:00:00+00:00</updated>
  <media:group>
   <media:title>Newest upload</media:title>
   <media:thumbnail url="https://i1.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg" width="480" height="360"/>
   <media:description>First description</media:description>
   <media:community>
    <media:starRating count="10" average="5.00" min="1" max="5"/>
    <media:statistics views="12345"/>
   </media:community>
  </media:group>
 </entry>
 <entry>
  <id>yt:video:9bZkp7q19f0</id>
  <yt:videoId>9bZkp7q19f0</yt:videoId>
  <yt:channelId>UCsXVk37bltHxD1rDPwtNM8Q</yt:channelId>
  <title>Older upload</title>
  <published>2024-02-01T08:00:00+00:00</published>
 </entry>
</feed>`

const sampleEmptyAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
 <title>Empty</title>
</feed>`

func newTestRSSLister(t *testing.T, status int, body string) *RSSLister {
	t.Helper()
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testChannelID, r.URL.Query().Get("channel_id"))
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
	lister := NewRSSLister(testHTTPClient(), nil)
	lister.feedURLTmpl = srv.URL + "/feeds/videos.xml?channel_id=%s"
	return lister
}

func collect(t *testing.T, seq func(func(VideoInfo, error) bool)) ([]VideoInfo, error) {
	t.Helper()
	var out []VideoInfo
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func TestRSSListerListVideos(t *testing.T) {
	lister := newTestRSSLister(t, http.StatusOK, sampleAtomFeed)

	videos, err := collect(t, lister.ListVideos(context.Background(), Channel{ID: testChannelID}))
	require.NoError(t, err)
	require.Len(t, videos, 2)

	first := videos[0]
	assert.Equal(t, "dQw4w9WgXcQ", first.ID)
	assert.Equal(t, "Newest upload", first.Title)
	assert.Equal(t, "Test Channel", first.ChannelName)
	assert.Equal(t, testChannelID, first.ChannelID)
	assert.Equal(t, "2024-03-10", first.UploadDate())
	assert.Equal(t, "First description", first.Description)
	assert.Equal(t, "https://i1.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", first.Thumbnail)
	require.NotNil(t, first.ViewCount)
	assert.EqualValues(t, 12345, *first.ViewCount)
	assert.Zero(t, first.Duration)

	second := videos[1]
	assert.Equal(t, "9bZkp7q19f0", second.ID)
	assert.Nil(t, second.ViewCount)
	assert.Empty(t, second.Thumbnail)
}

func TestRSSListerEmptyFeed(t *testing.T) {
	lister := newTestRSSLister(t, http.StatusOK, sampleEmptyAtomFeed)

	videos, err := collect(t, lister.ListVideos(context.Background(), Channel{ID: testChannelID}))
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestRSSListerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		ch     Channel
		want   error
	}{
		{"channel not found", http.StatusNotFound, "", Channel{ID: testChannelID}, ErrChannelNotFound},
		{"server error", http.StatusInternalServerError, "", Channel{ID: testChannelID}, ErrFetchFailed},
		{"rate limited", http.StatusTooManyRequests, "", Channel{ID: testChannelID}, ErrFetchFailed},
		{"malformed feed", http.StatusOK, "<feed", Channel{ID: testChannelID}, ErrFetchFailed},
		{"missing channel ID", http.StatusOK, sampleAtomFeed, Channel{Handle: "someone"}, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := newTestRSSLister(t, tt.status, tt.body)
			_, err := collect(t, lister.ListVideos(context.Background(), tt.ch))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var listerErr *ListerError
			require.ErrorAs(t, err, &listerErr)
			assert.Equal(t, "rss", listerErr.Source)
		})
	}
}
