package catalog

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"ytscribe/youtube"
)

const (
	// DefaultLimit is the number of videos exported when no limit is given.
	DefaultLimit = 5
	// Unlimited exports every video in range.
	Unlimited = -1

	// staleTolerance is how many consecutive videos older than the range
	// start end the walk. Premieres can appear slightly out of order.
	staleTolerance = 3
)

// Query selects the videos of one channel.
type Query struct {
	Channel string
	Range   DateRange
	Limit   int
}

// Validate rejects an empty channel and limits below Unlimited.
func (q Query) Validate() error {
	if q.Channel == "" {
		return fmt.Errorf("%w: channel is required", youtube.ErrInvalidArgument)
	}
	if _, err := youtube.ParseChannelInput(q.Channel); err != nil {
		return err
	}
	if q.Limit < Unlimited {
		return fmt.Errorf("%w: limit must be -1 or at least 0, got %d", youtube.ErrInvalidArgument, q.Limit)
	}
	return nil
}

// Fetcher resolves a channel and walks its uploads.
type Fetcher struct {
	Resolver youtube.ChannelResolver
	Lister   youtube.VideoLister
	Logger   *slog.Logger
}

// Resolve validates q and resolves its channel.
func (f *Fetcher) Resolve(ctx context.Context, q Query) (youtube.Channel, error) {
	if err := q.Validate(); err != nil {
		return youtube.Channel{}, err
	}
	return f.Resolver.Resolve(ctx, q.Channel)
}

// Videos yields the uploads of ch that match q, most recent first. The
// listing is consumed only as far as needed: it stops at the limit or once
// the uploads are older than the range start.
func (f *Fetcher) Videos(ctx context.Context, ch youtube.Channel, q Query) iter.Seq2[youtube.VideoInfo, error] {
	logger := f.logger()
	return func(yield func(youtube.VideoInfo, error) bool) {
		if q.Limit == 0 {
			return
		}
		if q.Limit == Unlimited {
			logger.Warn("no limit set, listing every upload of the channel may take a while",
				slog.String("channel_id", ch.ID))
		}

		matched, stale := 0, 0
		for v, err := range f.Lister.ListVideos(ctx, ch) {
			if err != nil {
				yield(youtube.VideoInfo{}, err)
				return
			}

			if q.Range.olderThanStart(v) {
				stale++
				if stale >= staleTolerance {
					logger.Debug("reached uploads older than the range start",
						slog.String("channel_id", ch.ID), slog.String("range", q.Range.String()))
					return
				}
				continue
			}
			stale = 0

			if !q.Range.Contains(v) {
				continue
			}
			if !yield(v, nil) {
				return
			}
			matched++
			if q.Limit > 0 && matched >= q.Limit {
				return
			}
		}
	}
}

// Fetch resolves the channel of q and yields its matching uploads.
func (f *Fetcher) Fetch(ctx context.Context, q Query) iter.Seq2[youtube.VideoInfo, error] {
	return func(yield func(youtube.VideoInfo, error) bool) {
		ch, err := f.Resolve(ctx, q)
		if err != nil {
			yield(youtube.VideoInfo{}, err)
			return
		}
		f.logger().Info("resolved channel",
			slog.String("input", q.Channel), slog.String("channel_id", ch.ID), slog.String("name", ch.Name))

		for v, err := range f.Videos(ctx, ch, q) {
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.Logger
}
