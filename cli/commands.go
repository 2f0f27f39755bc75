package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"ytscribe/catalog"
	"ytscribe/config"
	"ytscribe/transcript"
	"ytscribe/youtube"
)

func (a *app) cmdChannel(ctx context.Context, args []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	fs := a.newFlagSet("channel", "ytscribe channel --channel <url|@handle|UC...> -o <file.csv> [flags]")
	channel := fs.String("channel", "", "channel URL, @handle or UC... ID")
	var output string
	fs.StringVar(&output, "o", "", "output CSV `path`")
	fs.StringVar(&output, "output", "", "output CSV `path` (same as -o)")
	startDate := fs.String("start-date", "", "earliest upload date, YYYY-MM-DD (inclusive)")
	endDate := fs.String("end-date", "", "latest upload date, YYYY-MM-DD (inclusive)")
	limit := fs.Int("limit", cfg.DefaultLimit, "maximum number of videos, -1 for no limit")
	source := fs.String("source", cfg.Source, "listing backend: auto, api, innertube or rss")
	common := addCommonFlags(fs, cfg)

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if *channel == "" && len(positional) > 0 {
		*channel, positional = positional[0], positional[1:]
	}
	if len(positional) > 0 {
		return invalidArgf("unexpected argument %q", positional[0])
	}
	if *channel == "" {
		return invalidArgf("--channel is required")
	}
	if output == "" {
		return invalidArgf("-o/--output is required")
	}

	dateRange, err := catalog.NewDateRange(*startDate, *endDate)
	if err != nil {
		return err
	}
	q := catalog.Query{Channel: *channel, Range: dateRange, Limit: *limit}
	if err := q.Validate(); err != nil {
		return err
	}
	cfg.Source = *source
	if err := cfg.Validate(); err != nil {
		return invalidArgf("%v", err)
	}

	rt, cleanup, err := a.setup(cfg, common)
	if err != nil {
		return err
	}
	defer cleanup()

	resolver, lister, err := a.deps.channelSource(ctx, rt)
	if err != nil {
		return err
	}
	if cfg.ResolvedSource() == config.SourceRSS && (q.Limit == catalog.Unlimited || q.Limit > youtube.RSSFeedSize) {
		rt.logger.Warn("the rss source only carries the most recent uploads, older videos are missing",
			slog.Int("feed_size", youtube.RSSFeedSize), slog.Int("limit", q.Limit))
	}
	rt.logger.Debug("listing channel",
		slog.String("channel", q.Channel), slog.String("source", cfg.ResolvedSource()),
		slog.String("range", q.Range.String()), slog.Int("limit", q.Limit))

	fetcher := &catalog.Fetcher{Resolver: resolver, Lister: lister, Logger: rt.logger}
	res, err := catalog.Export(ctx, fetcher, q, output)
	if err != nil {
		return err
	}

	size := ""
	if info, err := os.Stat(res.Path); err == nil {
		size = fmt.Sprintf(" (%s)", humanize.Bytes(uint64(info.Size())))
	}
	fmt.Fprintf(a.stdout, "Wrote %s videos from %s to %s%s\n",
		humanize.Comma(int64(res.Rows)), channelLabel(res.Channel), res.Path, size)
	return nil
}

func channelLabel(ch youtube.Channel) string {
	if ch.Name != "" {
		return ch.Name
	}
	return ch.ID
}

func (a *app) cmdTranscript(ctx context.Context, args []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	fs := a.newFlagSet("transcript", "ytscribe transcript [flags] <video-url|video-id>")
	var output string
	fs.StringVar(&output, "o", "", "output file `path`, - for stdout (default <output-dir>/<title>-<id>.<ext>)")
	fs.StringVar(&output, "output", "", "output file `path` (same as -o)")
	format := fs.String("format", string(transcript.FormatText), "output format: text or markdown")
	noTimestamps := fs.Bool("no-timestamps", false, "omit [mm:ss] timestamps and join segments into prose")
	lang := fs.String("lang", cfg.Language, "caption language code")
	outputDir := fs.String("output-dir", cfg.OutputDir, "directory for generated file names")
	common := addCommonFlags(fs, cfg)

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return invalidArgf("expected exactly one video URL or ID, got %d", len(positional))
	}
	videoID, err := youtube.ParseVideoID(positional[0])
	if err != nil {
		return err
	}
	f, err := transcript.ParseFormat(*format)
	if err != nil {
		return err
	}

	rt, cleanup, err := a.setup(cfg, common)
	if err != nil {
		return err
	}
	defer cleanup()

	extractor := &transcript.Extractor{
		Captions: a.deps.captions(rt),
		Logger:   rt.logger,
		Stdout:   a.stdout,
	}
	target := transcript.NewOutputTarget(output, *outputDir, f, !*noTimestamps)
	res, err := extractor.Extract(ctx, videoID, *lang, target)
	if err != nil {
		return err
	}

	// keep stdout clean when the transcript itself went there
	summary := a.stdout
	if target.Stdout {
		summary = a.stderr
	}
	dest := res.Path
	if dest == "" {
		dest = "stdout"
	}
	fmt.Fprintf(summary, "Wrote %s segments (%s) of %s to %s\n",
		humanize.Comma(int64(len(res.Transcript.Entries))), humanize.Bytes(uint64(res.Bytes)), videoID, dest)
	return nil
}

func (a *app) cmdBatch(ctx context.Context, args []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	fs := a.newFlagSet("batch", "ytscribe batch --csv <file.csv> [flags]")
	csvPath := fs.String("csv", "", "channel CSV `path` written by the channel command")
	outputDir := fs.String("output-dir", "", "output directory (default output/<csv-name>_transcripts)")
	timestamps := fs.Bool("timestamps", false, "prefix segments with [mm:ss] timestamps")
	format := fs.String("format", string(transcript.FormatText), "output format: text or markdown")
	lang := fs.String("lang", cfg.Language, "caption language code")
	restart := fs.Bool("restart", false, "ignore saved progress and extract every row again")
	common := addCommonFlags(fs, cfg)

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if *csvPath == "" && len(positional) > 0 {
		*csvPath, positional = positional[0], positional[1:]
	}
	if len(positional) > 0 {
		return invalidArgf("unexpected argument %q", positional[0])
	}
	if *csvPath == "" {
		return invalidArgf("--csv is required")
	}
	f, err := transcript.ParseFormat(*format)
	if err != nil {
		return err
	}

	rt, cleanup, err := a.setup(cfg, common)
	if err != nil {
		return err
	}
	defer cleanup()

	extractor := &transcript.Extractor{Captions: a.deps.captions(rt), Logger: rt.logger}
	res, err := extractor.Batch(ctx, transcript.BatchOptions{
		CSVPath:    *csvPath,
		OutputDir:  *outputDir,
		Language:   *lang,
		Format:     f,
		Timestamps: *timestamps,
		Restart:    *restart,
	})
	if res.Total > 0 {
		fmt.Fprintf(a.stdout, "Batch: %s of %s written, %s already done, %s skipped, %s failed (%s)\n",
			humanize.Comma(int64(res.Written)), humanize.Comma(int64(res.Total)),
			humanize.Comma(int64(res.AlreadyDone)), humanize.Comma(int64(res.Skipped)),
			humanize.Comma(int64(res.Failed)), res.OutputDir)
	}
	return err
}
