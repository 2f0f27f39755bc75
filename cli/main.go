package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ytscribe"
	"ytscribe/config"
	ythttp "ytscribe/http"
	"ytscribe/internal/logging"
	"ytscribe/internal/retry"
	"ytscribe/storage"
	"ytscribe/youtube"
	"ytscribe/youtube/innertube"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

// deps are the collaborators a command needs; tests replace them.
type deps struct {
	loadConfig    func() (*config.Config, error)
	channelSource func(ctx context.Context, rt *runtime) (youtube.ChannelResolver, youtube.VideoLister, error)
	captions      func(rt *runtime) youtube.CaptionSource
}

func defaultDeps() deps {
	return deps{
		loadConfig:    config.Load,
		channelSource: newChannelSource,
		captions: func(rt *runtime) youtube.CaptionSource {
			return youtube.NewCaptionClient(rt.http, rt.retry, rt.logger)
		},
	}
}

// runtime is the per-run state shared by the commands.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	http   *ythttp.Client
	retry  retry.Config
}

// newChannelSource picks the listing backend. Innertube and RSS records are
// enriched per video so upload dates are exact.
func newChannelSource(ctx context.Context, rt *runtime) (youtube.ChannelResolver, youtube.VideoLister, error) {
	var lister youtube.VideoLister
	switch rt.cfg.ResolvedSource() {
	case config.SourceAPI:
		api, err := youtube.NewAPILister(ctx, youtube.APIConfig{
			APIKey: rt.cfg.APIKey,
			Retry:  rt.retry,
			Logger: rt.logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return api, api, nil
	case config.SourceRSS:
		lister = youtube.NewRSSLister(rt.http, rt.logger)
	default:
		lister = innertube.NewLister(innertube.NewClient(rt.http), rt.logger)
	}

	enriched := &youtube.EnrichedLister{
		Lister:   lister,
		Detailer: youtube.NewKkdaiDetailer(rt.http.StdClient(), rt.retry),
		Logger:   rt.logger,
	}
	return youtube.NewPageResolver(rt.http, rt.logger), enriched, nil
}

// app carries the process streams and collaborators into the commands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	deps   deps
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) int {
	if len(args) == 0 {
		printUsage(stderr)
		return ytscribe.ExitInvalidArgs
	}

	a := &app{stdout: stdout, stderr: stderr, deps: d}
	command, rest := args[0], args[1:]

	var err error
	switch command {
	case "channel":
		err = a.cmdChannel(ctx, rest)
	case "transcript":
		err = a.cmdTranscript(ctx, rest)
	case "batch":
		err = a.cmdBatch(ctx, rest)
	case "help", "-h", "--help":
		printUsage(stdout)
		return ytscribe.ExitOK
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", command)
		printUsage(stderr)
		return ytscribe.ExitInvalidArgs
	}

	if errors.Is(err, flag.ErrHelp) {
		return ytscribe.ExitOK
	}
	if err != nil {
		// flag errors were already printed with the usage
		var ue *usageError
		if !errors.As(err, &ue) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return ytscribe.ExitCode(err)
	}
	return ytscribe.ExitOK
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `ytscribe - YouTube channel metadata and transcript extractor

Usage:
  ytscribe channel --channel <url> -o <file.csv> [flags]   Export channel videos to CSV
  ytscribe transcript [flags] <video>                      Extract a video transcript
  ytscribe batch --csv <file.csv> [flags]                  Extract transcripts for every CSV row
  ytscribe help                                            Show this help message

Examples:
  ytscribe channel --channel @GoogleDevelopers -o videos.csv --limit 20
  ytscribe channel --channel https://www.youtube.com/channel/UC_x5XG1OV2P6uZZ5FSM9Ttw -o 2024.csv --start-date 2024-01-01 --end-date 2024-12-31 --limit -1
  ytscribe transcript dQw4w9WgXcQ --format markdown
  ytscribe transcript https://youtu.be/dQw4w9WgXcQ -o - --no-timestamps
  ytscribe batch --csv videos.csv --timestamps --restart

For help on a specific command: ytscribe <command> -h
`)
}

// usageError marks flag parsing failures, which the flag package reports
// itself.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ytscribe.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func (a *app) newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: %s\n\nFlags:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses flags that may appear before or after positional
// arguments and returns the positionals in order.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, &usageError{err: fmt.Errorf("%w: %w", ytscribe.ErrInvalidArgument, err)}
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// commonFlags are accepted by every command.
type commonFlags struct {
	logFile  string
	logLevel string
}

func addCommonFlags(fs *flag.FlagSet, cfg *config.Config) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.logFile, "log", cfg.LogFile, "JSON log file `path` (empty disables file logging)")
	fs.StringVar(&c.logLevel, "log-level", cfg.LogLevel, "stderr log level: debug, info, warn or error")
	return c
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := a.deps.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: config: %w", ytscribe.ErrInvalidArgument, err)
	}
	return cfg, nil
}

// setup builds the logger and HTTP client of one run. The returned closer
// flushes the log file.
func (a *app) setup(cfg *config.Config, common *commonFlags) (*runtime, func(), error) {
	level, err := logging.ParseLevel(common.logLevel)
	if err != nil {
		return nil, nil, invalidArgf("%v", err)
	}
	logger, closer, err := logging.New(logging.Options{
		Level:      level,
		File:       common.logFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Stderr:     a.stderr,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", storage.ErrWriteFailed, err)
	}

	retryCfg := retry.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff.Std(),
		MaxBackoff:     cfg.MaxBackoff.Std(),
		Multiplier:     cfg.BackoffMultiplier,
		JitterFraction: retry.DefaultConfig().JitterFraction,
	}
	limits := ythttp.DefaultRateLimiterConfig()
	limits.DefaultRPS = cfg.RateLimitRPS

	client := ythttp.New(&ythttp.Config{
		Timeout:     cfg.RequestTimeout.Std(),
		Retry:       retryCfg,
		RateLimiter: limits,
		Breaker:     ythttp.DefaultBreakerConfig(),
		Logger:      logger,
	})

	rt := &runtime{cfg: cfg, logger: logger, http: client, retry: retryCfg}
	cleanup := func() {
		client.Close()
		closer.Close()
	}
	return rt, cleanup, nil
}
