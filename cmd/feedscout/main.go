package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/feedscout/pkg/config"
	"github.com/umputun/feedscout/pkg/discovery"
	"github.com/umputun/feedscout/pkg/domain"
	"github.com/umputun/feedscout/pkg/fetcher"
	"github.com/umputun/feedscout/pkg/inspect"
	"github.com/umputun/feedscout/pkg/notify"
	"github.com/umputun/feedscout/pkg/scheduler"
	"github.com/umputun/feedscout/pkg/store"
	"github.com/umputun/feedscout/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"feedscout.yml" description:"configuration file"`
	Once   bool   `long:"once" description:"run discovery once and exit"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Printf("failed to load config %s: %v\n", opts.Config, err)
		os.Exit(1)
	}

	setupLog(opts.Debug, opts.NoColor, cfg.Inspection.LLM.APIKey)

	log.Printf("[INFO] starting feedscout version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts); err != nil {
		log.Printf("[ERROR] feedscout failed: %v", err)
		cancel()
		os.Exit(1)
	}
	cancel()

	log.Print("[INFO] shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, opts Opts) error {
	st, err := store.New(store.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sched, err := makeScheduler(cfg, st)
	if err != nil {
		return err
	}

	if opts.Once {
		res, err := sched.RunOnce(ctx)
		if err != nil {
			return err
		}
		log.Printf("[INFO] discovery run finished, %d recommendations from %d candidates",
			len(res.Recommendations), res.Candidates)
		return nil
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if cfg.Server.Enabled {
		srv := server.New(cfg, st, sched, revision, opts.Debug)
		return srv.Run(ctx)
	}

	<-ctx.Done()
	return nil
}

// makeScheduler wires the discovery pipeline from the configuration
func makeScheduler(cfg *config.Config, st *store.Store) (*scheduler.Scheduler, error) {
	sources := make([]domain.PrimarySource, 0, len(cfg.PrimarySources.Blogs)+len(cfg.PrimarySources.Social))
	for _, src := range cfg.PrimarySources.Blogs {
		sources = append(sources, domain.PrimarySource{Name: src.Name, Identity: src.Identity, Kind: domain.KindBlog})
	}
	for _, src := range cfg.PrimarySources.Social {
		sources = append(sources, domain.PrimarySource{Name: src.Name, Identity: src.Identity, Kind: domain.KindSocial})
	}

	var inspector discovery.ContentInspector
	if cfg.Inspection.Enabled {
		if cfg.Inspection.LLM.Enabled {
			inspector = inspect.NewLLMInspector(cfg.Inspection)
		} else {
			inspector = inspect.NewKeywordInspector(cfg.Inspection.Timeout)
		}
	}

	scorer := discovery.NewScorer(cfg.Interests, cfg.Scoring.NameWeight, cfg.Scoring.ContentWeight, inspector)

	minRelevance, minCitations, maxAge := cfg.GetThresholds()
	engine, err := discovery.NewEngine(domain.Thresholds{
		MinRelevance: minRelevance,
		MinCitations: minCitations,
		MaxAge:       maxAge,
	})
	if err != nil {
		return nil, fmt.Errorf("recommendation thresholds: %w", err)
	}

	notifier, err := notify.New(cfg.Output.Format, cfg.Output.File)
	if err != nil {
		return nil, fmt.Errorf("output configuration: %w", err)
	}

	var socialFetcher scheduler.Fetcher
	if cfg.Fetch.SocialAPI != "" {
		socialFetcher = fetcher.NewSocialFetcher(cfg.Fetch.SocialAPI, cfg.Fetch.Timeout, cfg.Fetch.Window)
	}

	return scheduler.NewScheduler(
		fetcher.NewBlogFetcher(cfg.Fetch.Timeout, cfg.Fetch.Window),
		socialFetcher,
		st, notifier,
		discovery.NewExtractor(), scorer, engine,
		sources,
		scheduler.Config{
			UpdateInterval: cfg.Schedule.UpdateInterval,
			Cron:           cfg.Schedule.Cron,
			MaxWorkers:     cfg.Schedule.MaxWorkers,
		},
	), nil
}

func setupLog(dbg, noColor bool, secrets ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = append(logOpts, lgr.Debug)
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	secs := make([]string, 0, len(secrets))
	for _, secret := range secrets {
		if secret != "" {
			secs = append(secs, secret)
		}
	}
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}

	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
