package youtube

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"
	"time"

	kkyoutube "github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKkdaiDetailer(t *testing.T) {
	published := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	player := &fakePlayer{video: &kkyoutube.Video{
		ID:          "dQw4w9WgXcQ",
		Title:       "Never Gonna",
		Description: "desc",
		Author:      "Rick",
		ChannelID:   testChannelID,
		Views:       42,
		Duration:    212 * time.Second,
		PublishDate: published,
		Thumbnails: kkyoutube.Thumbnails{
			{URL: "small.jpg", Width: 120, Height: 90},
			{URL: "large.jpg", Width: 1280, Height: 720},
			{URL: "medium.jpg", Width: 480, Height: 360},
		},
	}}
	d := &KkdaiDetailer{player: player, retry: fastRetry()}

	v, err := d.VideoDetails(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna", v.Title)
	assert.Equal(t, "Rick", v.ChannelName)
	assert.Equal(t, testChannelID, v.ChannelID)
	assert.Equal(t, "2024-05-06", v.UploadDate())
	assert.Equal(t, 212*time.Second, v.Duration)
	assert.Equal(t, "large.jpg", v.Thumbnail)
	require.NotNil(t, v.ViewCount)
	assert.EqualValues(t, 42, *v.ViewCount)
	assert.Nil(t, v.LikeCount)
}

func TestKkdaiDetailerErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  error
		calls int
	}{
		{"private", kkyoutube.ErrVideoPrivate, ErrVideoNotFound, 1},
		{"login required", kkyoutube.ErrLoginRequired, ErrVideoNotFound, 1},
		{"bad id", kkyoutube.ErrVideoIDMinLength, ErrInvalidArgument, 1},
		{"not found status", kkyoutube.ErrUnexpectedStatusCode(404), ErrFetchFailed, 1},
		{"server status", kkyoutube.ErrUnexpectedStatusCode(503), ErrFetchFailed, 3},
		{"network", errors.New("dial tcp: timeout"), ErrFetchFailed, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{videoErr: tt.err}
			d := &KkdaiDetailer{player: player, retry: fastRetry()}
			_, err := d.VideoDetails(context.Background(), "dQw4w9WgXcQ")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.calls, player.videoCalls)
		})
	}
}

type sliceLister struct {
	videos []VideoInfo
	err    error
	pulled int
}

func (s *sliceLister) ListVideos(ctx context.Context, ch Channel) iter.Seq2[VideoInfo, error] {
	return func(yield func(VideoInfo, error) bool) {
		for _, v := range s.videos {
			s.pulled++
			if !yield(v, nil) {
				return
			}
		}
		if s.err != nil {
			yield(VideoInfo{}, s.err)
		}
	}
}

type mapDetailer struct {
	details map[string]VideoInfo
	err     error
	calls   []string
}

func (m *mapDetailer) VideoDetails(ctx context.Context, id string) (VideoInfo, error) {
	m.calls = append(m.calls, id)
	if v, ok := m.details[id]; ok {
		return v, nil
	}
	if m.err != nil {
		return VideoInfo{}, m.err
	}
	return VideoInfo{}, ErrVideoNotFound
}

func TestEnrichedLister(t *testing.T) {
	approx := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	exact := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	lister := &sliceLister{videos: []VideoInfo{
		{ID: "aaaaaaaaaaa", Title: "A", Published: approx, ViewCount: Count(10), ChannelName: "Chan"},
		{ID: "bbbbbbbbbbb", Title: "B", Published: approx, PublishedApprox: true},
		{ID: "ccccccccccc", Title: "C"},
	}}
	detailer := &mapDetailer{details: map[string]VideoInfo{
		"aaaaaaaaaaa": {ID: "aaaaaaaaaaa", Published: exact, Duration: time.Minute, ViewCount: Count(11), Description: "full"},
	}}
	enriched := &EnrichedLister{Lister: lister, Detailer: detailer}

	var got []VideoInfo
	for v, err := range enriched.ListVideos(context.Background(), Channel{ID: testChannelID}) {
		require.NoError(t, err)
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}

	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, "Chan", got[0].ChannelName)
	assert.Equal(t, exact, got[0].Published)
	assert.Equal(t, time.Minute, got[0].Duration)
	assert.EqualValues(t, 11, *got[0].ViewCount)
	assert.Equal(t, "full", got[0].Description)

	assert.False(t, got[0].PublishedApprox)

	assert.Equal(t, "B", got[1].Title, "missing videos keep the listed record")
	assert.True(t, got[1].Published.IsZero(), "a relative date is never passed off as exact")
	assert.False(t, got[1].PublishedApprox)

	assert.Equal(t, []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}, detailer.calls, "records past the stop are never enriched")
	assert.Equal(t, 2, lister.pulled)
}

func TestEnrichedListerPropagatesErrors(t *testing.T) {
	listErr := &ListerError{Source: "innertube", Channel: testChannelID, Err: ErrFetchFailed}
	enriched := &EnrichedLister{
		Lister:   &sliceLister{videos: []VideoInfo{{ID: "aaaaaaaaaaa"}}, err: listErr},
		Detailer: &mapDetailer{},
	}

	var ids []string
	var gotErr error
	for v, err := range enriched.ListVideos(context.Background(), Channel{ID: testChannelID}) {
		if err != nil {
			gotErr = err
			break
		}
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"aaaaaaaaaaa"}, ids)
	assert.ErrorIs(t, gotErr, ErrFetchFailed)
}

func TestEnrichedListerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	enriched := &EnrichedLister{
		Lister:   &sliceLister{videos: []VideoInfo{{ID: "aaaaaaaaaaa"}}},
		Detailer: &mapDetailer{err: context.Canceled},
	}
	for _, err := range enriched.ListVideos(ctx, Channel{ID: testChannelID}) {
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestEnrichedListerKeepsExactListedDate(t *testing.T) {
	exact := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	enriched := &EnrichedLister{
		Lister:   &sliceLister{videos: []VideoInfo{{ID: "aaaaaaaaaaa", Published: exact}}},
		Detailer: &mapDetailer{},
	}

	var got []VideoInfo
	for v, err := range enriched.ListVideos(context.Background(), Channel{ID: testChannelID}) {
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Len(t, got, 1)
	assert.Equal(t, exact, got[0].Published)
}

func TestEnrichedListerDetailFetchFailure(t *testing.T) {
	enriched := &EnrichedLister{
		Lister: &sliceLister{videos: []VideoInfo{
			{ID: "aaaaaaaaaaa", Published: time.Now(), PublishedApprox: true},
			{ID: "bbbbbbbbbbb"},
		}},
		Detailer: &mapDetailer{err: fmt.Errorf("%w: player request timed out", ErrFetchFailed)},
	}

	var got []VideoInfo
	var gotErr error
	for v, err := range enriched.ListVideos(context.Background(), Channel{ID: testChannelID}) {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, v)
	}
	assert.Empty(t, got, "no record is emitted with unverified metadata")
	assert.ErrorIs(t, gotErr, ErrFetchFailed)
	assert.ErrorContains(t, gotErr, "aaaaaaaaaaa")
}
