package innertube

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ythttp "ytscribe/http"
	"ytscribe/internal/retry"
)

const testChannelID = "UCsXVk37bltHxD1rDPwtNM8Q"

const firstPageJSON = `{
 "metadata": {"channelMetadataRenderer": {"title": "Test Channel", "externalId": "UCsXVk37bltHxD1rDPwtNM8Q"}},
 "contents": {"twoColumnBrowseResultsRenderer": {"tabs": [
  {"tabRenderer": {"title": "Home"}},
  {"tabRenderer": {"title": "Videos", "selected": true, "content": {"richGridRenderer": {"contents": [
   {"richItemRenderer": {"content": {"videoRenderer": {
    "videoId": "aaaaaaaaaaa",
    "title": {"runs": [{"text": "First "}, {"text": "video"}]},
    "descriptionSnippet": {"runs": [{"text": "desc a"}]},
    "thumbnail": {"thumbnails": [
     {"url": "https://i.ytimg.com/vi/aaaaaaaaaaa/small.jpg", "width": 168, "height": 94},
     {"url": "https://i.ytimg.com/vi/aaaaaaaaaaa/big.jpg", "width": 336, "height": 188}
    ]},
    "publishedTimeText": {"simpleText": "2 days ago"},
    "lengthText": {"simpleText": "10:30"},
    "viewCountText": {"simpleText": "1,234 views"}
   }}}},
   {"richItemRenderer": {"content": {"videoRenderer": {
    "videoId": "bbbbbbbbbbb",
    "title": {"runs": [{"text": "Second"}]},
    "publishedTimeText": {"simpleText": "Streamed 1 week ago"},
    "lengthText": {"simpleText": "1:02:03"},
    "viewCountText": {"simpleText": "No views"}
   }}}},
   {"continuationItemRenderer": {"continuationEndpoint": {"continuationCommand": {"token": "TOKEN2"}}}}
  ]}}}}
 ]}}
}`

// continuationPageJSON repeats one video from the first page and hands back
// the token it was requested with.
const continuationPageJSON = `{
 "onResponseReceivedActions": [{"appendContinuationItemsAction": {"continuationItems": [
  {"richItemRenderer": {"content": {"videoRenderer": {"videoId": "bbbbbbbbbbb", "title": {"simpleText": "Second"}}}}},
  {"richItemRenderer": {"content": {"videoRenderer": {
   "videoId": "ccccccccccc",
   "title": {"simpleText": "Third"},
   "publishedTimeText": {"simpleText": "1 year ago"}
  }}}},
  {"continuationItemRenderer": {"continuationEndpoint": {"continuationCommand": {"token": "TOKEN2"}}}}
 ]}}]
}`

func decodeResponse(t *testing.T, s string) *BrowseResponse {
	t.Helper()
	var resp BrowseResponse
	require.NoError(t, json.Unmarshal([]byte(s), &resp))
	return &resp
}

func testHTTPClient() *ythttp.Client {
	return ythttp.New(&ythttp.Config{
		Timeout: 5 * time.Second,
		Retry: retry.Config{
			MaxRetries:     1,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			Multiplier:     2,
		},
		RateLimiter: ythttp.RateLimiterConfig{
			PenaltyBase: time.Millisecond,
			PenaltyMax:  time.Millisecond,
		},
	})
}

// browseServer answers browse requests and counts them.
type browseServer struct {
	calls atomic.Int32
	srv   *httptest.Server
}

func newBrowseServer(t *testing.T, handle func(req BrowseRequest) (int, string)) *browseServer {
	t.Helper()
	b := &browseServer{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		var req BrowseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status, body := handle(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *browseServer) lister(now time.Time) *Lister {
	l := NewLister(NewClient(testHTTPClient(), WithEndpoint(b.srv.URL)), nil)
	l.now = func() time.Time { return now }
	return l
}
