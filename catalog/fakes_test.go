package catalog

import (
	"context"
	"fmt"
	"iter"
	"time"

	"ytscribe/youtube"
)

const testChannelID = "UCsXVk37bltHxD1rDPwtNM8Q"

type fakeResolver struct {
	err   error
	calls int
}

func (r *fakeResolver) Resolve(ctx context.Context, input string) (youtube.Channel, error) {
	r.calls++
	if r.err != nil {
		return youtube.Channel{}, r.err
	}
	return youtube.Channel{ID: testChannelID, Name: "Test Channel"}, nil
}

// fakeLister yields its videos in order and fails with err once they run out.
type fakeLister struct {
	videos []youtube.VideoInfo
	err    error
	pulled int
}

func (l *fakeLister) ListVideos(ctx context.Context, ch youtube.Channel) iter.Seq2[youtube.VideoInfo, error] {
	return func(yield func(youtube.VideoInfo, error) bool) {
		for _, v := range l.videos {
			l.pulled++
			if !yield(v, nil) {
				return
			}
		}
		if l.err != nil {
			yield(youtube.VideoInfo{}, l.err)
		}
	}
}

// dailyUploads returns n videos, one per day, newest first, the newest on
// newest.
func dailyUploads(n int, newest time.Time) []youtube.VideoInfo {
	videos := make([]youtube.VideoInfo, n)
	for i := range videos {
		videos[i] = youtube.VideoInfo{
			ID:          fmt.Sprintf("vid%08d", i),
			Title:       fmt.Sprintf("Video %d", i),
			ChannelID:   testChannelID,
			ChannelName: "Test Channel",
			Published:   newest.AddDate(0, 0, -i),
			Duration:    time.Duration(60+i) * time.Second,
			ViewCount:   youtube.Count(int64(1000 - i)),
		}
	}
	return videos
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestFetcher(videos []youtube.VideoInfo) (*Fetcher, *fakeResolver, *fakeLister) {
	resolver := &fakeResolver{}
	lister := &fakeLister{videos: videos}
	return &Fetcher{Resolver: resolver, Lister: lister}, resolver, lister
}

func collect(seq iter.Seq2[youtube.VideoInfo, error]) ([]youtube.VideoInfo, error) {
	var out []youtube.VideoInfo
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
