package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/abc5478963210/video-highlight-tool/internal/config"
	"github.com/abc5478963210/video-highlight-tool/internal/mockapi"
	"github.com/abc5478963210/video-highlight-tool/internal/transport"
	"github.com/abc5478963210/video-highlight-tool/internal/video"
	"github.com/rs/zerolog"
)

var version = "dev"

const usageText = `usage: vht [flags] <command> [args]

commands:
  resolve              print the API base URL and where it came from
  process <video>      upload a video and print its transcript
  save <file|->        save highlights from a JSON array
  mock-server          serve the mock backend over HTTP

flags:
`

func main() {
	fs := flag.NewFlagSet("vht", flag.ExitOnError)
	envFile := fs.String("env-file", "", "path to .env file (default .env)")
	baseURL := fs.String("base-url", "", "API base URL override")
	mode := fs.String("mode", "", "development or production")
	mock := fs.String("mock", "", "force the mock backend on or off (true|false)")
	logLevel := fs.String("log-level", "", "log level")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	overrides := config.Overrides{
		EnvFile:    *envFile,
		APIBaseURL: *baseURL,
		Mode:       *mode,
		LogLevel:   *logLevel,
	}
	early := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if *mock != "" {
		v, err := strconv.ParseBool(*mock)
		if err != nil {
			early.Fatal().Err(err).Msg("invalid -mock value")
		}
		overrides.Mock = &v
	}

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	log.Debug().Str("version", version).Str("mode", cfg.Mode).Msg("vht starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "resolve":
		res := config.ResolveBaseURL(cfg)
		fmt.Printf("%s\t(%s)\n", res.URL, res.Source)
	case "process":
		if len(args) != 2 {
			fs.Usage()
			os.Exit(2)
		}
		err = runProcess(ctx, newService(cfg, log), args[1], log)
	case "save":
		if len(args) != 2 {
			fs.Usage()
			os.Exit(2)
		}
		err = runSave(ctx, newService(cfg, log), args[1])
	case "mock-server":
		err = runMockServer(ctx, cfg, log.With().Str("component", "http").Logger())
	default:
		fs.Usage()
		os.Exit(2)
	}

	if err != nil {
		logFailure(log, err)
		os.Exit(1)
	}
}

// newService wires the resolver, transport strategy and client. The mock
// transport is registered here, before any request is issued.
func newService(cfg *config.Config, log zerolog.Logger) *video.Service {
	res := config.ResolveBaseURL(cfg)
	config.LogResolution(log, cfg, res)

	rt := mockapi.Register(cfg, http.DefaultTransport, log.With().Str("component", "mock").Logger())

	client, err := transport.New(transport.Options{
		BaseURL:         res.URL,
		Timeout:         cfg.RequestTimeout,
		WithCredentials: cfg.WithCredentials,
		PageOrigin:      cfg.PageOrigin,
		Transport:       rt,
		Log:             log.With().Str("component", "api").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Str("base_url", res.URL).Msg("failed to create api client")
	}
	return video.NewService(client)
}

func runProcess(ctx context.Context, svc *video.Service, path string, log zerolog.Logger) error {
	upload, err := video.OpenUpload(path)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer upload.Close()

	res, err := svc.ProcessVideo(ctx, upload)
	if err != nil {
		return err
	}

	t := res.Data.Transcript
	if err := video.ValidateTranscript(t); err != nil {
		log.Warn().Err(err).Msg("backend returned an inconsistent transcript")
	}

	duration := t.Duration()
	if res.Data.VideoDuration != nil {
		duration = *res.Data.VideoDuration
	}
	fmt.Printf("%s  (%s, %d sections)\n", upload.Name, video.FormatTimestamp(duration), len(t.Sections))
	for _, sec := range t.Sections {
		fmt.Printf("\n%s  [%s-%s]\n", sec.Title, video.FormatTimestamp(sec.StartTime), video.FormatTimestamp(sec.EndTime))
		for _, s := range sec.Sentences {
			mark := " "
			if s.IsHighlight {
				mark = "*"
			}
			fmt.Printf("  %s %s  %s\n", mark, video.FormatTimestamp(s.StartTime), s.Text)
		}
	}
	fmt.Printf("\n%d highlighted sentence(s)\n", len(t.Highlights()))
	return nil
}

func runSave(ctx context.Context, svc *video.Service, path string) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open highlights: %w", err)
		}
		defer f.Close()
		r = f
	}

	var highlights []video.HighlightRecord
	if err := json.NewDecoder(r).Decode(&highlights); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode highlights: %w", err)
	}

	res, err := svc.SaveHighlights(ctx, highlights)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d highlight(s) saved\n", res.Message, len(res.Data.Highlights))
	return nil
}

func runMockServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	fx, err := mockapi.LoadFixture(cfg.MockFixture)
	if err != nil {
		return err
	}
	srv := mockapi.NewServer(cfg.MockAddr, mockapi.Options{
		Fixture:      fx,
		ProcessDelay: cfg.MockProcessDelay,
		SaveDelay:    cfg.MockSaveDelay,
	}, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// logFailure reports a failed command with its classification.
func logFailure(log zerolog.Logger, err error) {
	var te *transport.Error
	var be *transport.BackendError
	switch {
	case errors.As(err, &te):
		log.Error().Str("kind", te.Kind.String()).Str("url", te.URL).AnErr("cause", te.Err).Msg(te.Message)
	case errors.As(err, &be):
		log.Error().Int("code", be.Code).Int("status", be.Status).Msg(be.Error())
	default:
		log.Error().Err(err).Msg("command failed")
	}
}
