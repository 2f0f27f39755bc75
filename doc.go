// Package ytscribe exports YouTube channel metadata to CSV and extracts
// auto-generated video transcripts to text or Markdown files.
//
// Overview
//
// The work is split across sub-packages:
//
//   - youtube: channel resolution, upload listing (Data API, RSS) and caption fetching
//   - youtube/innertube: keyless listing of a channel's full upload history
//   - catalog: date range and limit filtering, CSV export and import
//   - transcript: transcript rendering, output paths and batch extraction
//   - storage: atomic file writes and the resumable batch progress file
//   - config: configuration from file, .env and environment
//
// Quick Start
//
// Export the five most recent uploads of a channel:
//
//	client := http.New(http.DefaultConfig())
//	fetcher := &catalog.Fetcher{
//		Resolver: youtube.NewPageResolver(client, logger),
//		Lister:   innertube.NewLister(innertube.NewClient(client), logger),
//	}
//	res, err := catalog.Export(ctx, fetcher, catalog.Query{Channel: "@GoogleDevelopers", Limit: 5}, "videos.csv")
//
// Write a transcript as Markdown:
//
//	extractor := &transcript.Extractor{Captions: youtube.NewCaptionClient(client, retry.DefaultConfig(), logger)}
//	target := transcript.NewOutputTarget("", "output", transcript.FormatMarkdown, true)
//	res, err := extractor.Extract(ctx, "dQw4w9WgXcQ", "en", target)
//
// Configuration
//
// Settings are read, lowest priority first, from defaults, ytscribe.json (or
// ~/.config/ytscribe/ytscribe.json), a .env file and the environment:
//
//   - YOUTUBE_API_KEY: Data API key; enables the api listing source
//   - YTSCRIBE_SOURCE: auto, api, innertube or rss
//   - YTSCRIBE_LANGUAGE: caption language code
//   - YTSCRIBE_OUTPUT_DIR: default transcript directory
//   - YTSCRIBE_LOG_FILE, YTSCRIBE_LOG_LEVEL: logging
//   - YTSCRIBE_MAX_RETRIES, YTSCRIBE_INITIAL_BACKOFF, YTSCRIBE_MAX_BACKOFF: retry policy
//
// Error Handling
//
// Failures carry one of the sentinels re-exported here:
//
//	if errors.Is(err, ytscribe.ErrTranscriptUnavailable) {
//		fmt.Println("video has no auto-generated captions")
//	}
//
// ExitCode maps an error to the command line exit status.
package ytscribe
