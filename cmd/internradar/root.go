package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/internradar/internradar/internal/adapter"
	"github.com/internradar/internradar/internal/browser"
	"github.com/internradar/internradar/internal/config"
	"github.com/internradar/internradar/internal/cover"
	"github.com/internradar/internradar/internal/enrich"
	"github.com/internradar/internradar/internal/filter"
	"github.com/internradar/internradar/internal/model"
	"github.com/internradar/internradar/internal/notifier"
	"github.com/internradar/internradar/internal/poller"
	"github.com/internradar/internradar/internal/ratelimit"
	"github.com/internradar/internradar/internal/retry"
	"github.com/internradar/internradar/internal/scamcheck"
	"github.com/internradar/internradar/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "internradar",
	Short: "AI/ML internship radar",
	Long: "internradar polls internship platforms for AI/ML roles, checks each new company " +
		"against scam reports on Reddit, and alerts you with a ready cover message.",
	// Default to `start` so that `internradar` with no args runs the daemon.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: INTERNRADAR_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > INTERNRADAR_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	return config.Load(config.ResolvePath(path))
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// setupNotifier builds one notifier per configured channel and fans out to
// all of them.
func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	var channels []model.Notifier
	for _, ch := range cfg.Notification.Channels {
		switch ch {
		case "slack":
			channels = append(channels, notifier.NewSlackNotifier(cfg.Notification.Slack.WebhookURL, httpClient, logger))
		case "telegram":
			tg := cfg.Notification.Telegram
			channels = append(channels, notifier.NewTelegramNotifier(tg.BotToken, tg.ChatID, httpClient, logger))
		case "email":
			e := cfg.Notification.Email
			channels = append(channels, notifier.NewEmailNotifier(notifier.EmailConfig{
				Host:     e.Host,
				Port:     e.Port,
				Username: e.Username,
				Password: e.Password,
				From:     e.From,
				To:       e.To,
			}, logger))
		default:
			channels = append(channels, notifier.NewLogNotifier(logger))
		}
		logger.Info("notification channel enabled", "channel", ch)
	}
	if len(channels) == 1 {
		return channels[0]
	}
	return notifier.NewMultiNotifier(logger, channels...)
}

// setupStore opens the configured backend. The returned close func is never nil.
func setupStore(cfg *config.Config) (model.Store, func() error, error) {
	switch cfg.Store.Type {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "none":
		return store.NewNopStore(), func() error { return nil }, nil
	default:
		return store.NewCSVStore(cfg.Store.Path), func() error { return nil }, nil
	}
}

// setupScamProvider composes Reddit → cache → timeout. It returns a nil
// provider when the check is disabled; the enricher then records Unknown.
func setupScamProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.ScamSignalProvider, func() error, error) {
	noop := func() error { return nil }
	sc := cfg.ScamCheck
	if !sc.Enabled {
		logger.Info("scam check disabled")
		return nil, noop, nil
	}

	var provider model.ScamSignalProvider = scamcheck.NewReddit(scamcheck.RedditConfig{
		ClientID:     sc.ClientID,
		ClientSecret: sc.ClientSecret,
		UserAgent:    sc.UserAgent,
		Forums:       sc.Forums,
		Limit:        sc.Limit,
	}, logger)

	closeFn := noop
	switch sc.Cache.Type {
	case "memory":
		provider = scamcheck.NewCached(provider, scamcheck.NewMemoryCache(), sc.Cache.TTL, logger)
	case "redis":
		rdb, err := scamcheck.NewRedisClient(ctx, sc.Cache.URL)
		if err != nil {
			return nil, nil, err
		}
		provider = scamcheck.NewCached(provider, scamcheck.NewRedisCache(rdb), sc.Cache.TTL, logger)
		closeFn = rdb.Close
	}

	return scamcheck.NewTimeout(provider, sc.Timeout), closeFn, nil
}

func setupCover(cfg *config.Config) (*cover.Renderer, error) {
	tmpl := cover.DefaultTemplate
	if cfg.Cover.TemplatePath != "" {
		var err error
		if tmpl, err = cover.LoadTemplate(cfg.Cover.TemplatePath); err != nil {
			return nil, err
		}
	}
	return cover.NewRenderer(tmpl, cover.Applicant{
		Name:     cfg.Cover.Name,
		Year:     cfg.Cover.Year,
		Program:  cfg.Cover.Program,
		School:   cfg.Cover.School,
		Interest: cfg.Cover.Interest,
	}), nil
}

func setupClassifier(cfg *config.Config) *filter.RelevanceFilter {
	strong := cfg.Keywords.Strong
	if strong == nil {
		strong = filter.DefaultStrongTerms
	}
	exclusion := cfg.Keywords.Exclusion
	if exclusion == nil {
		exclusion = filter.DefaultExclusionTerms
	}
	return filter.NewRelevanceFilter(strong, exclusion)
}

// buildSources registers every enabled platform, each wrapped with retries.
func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []poller.Registration {
	classifier := setupClassifier(cfg)
	limiter := ratelimit.NewLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.Overrides)
	logger.Info("rate limiter configured", "min_delay", cfg.RateLimit.MinDelay.String())

	browserCfg := browser.Config{RemoteURL: cfg.Browser.RemoteURL, Logger: logger}
	if cfg.Browser.BlockResources {
		browserCfg.BlockResources = []string{"images", "fonts", "media", "stylesheets"}
	}

	type entry struct {
		sc     config.SourceConfig
		source model.Source
	}
	entries := []entry{
		{cfg.Sources.Internshala, adapter.NewInternshalaAdapter(httpClient, classifier, limiter, logger)},
		{cfg.Sources.LinkedIn, adapter.NewLinkedInAdapter(httpClient, classifier, limiter, logger)},
		{cfg.Sources.Unstop, adapter.NewUnstopAdapter(false, browserCfg, cfg.Browser.SettleDelay, classifier, limiter, logger)},
		{cfg.Sources.UnstopOffline, adapter.NewUnstopAdapter(true, browserCfg, cfg.Browser.SettleDelay, classifier, limiter, logger)},
	}

	var regs []poller.Registration
	for _, e := range entries {
		if !e.sc.Enabled {
			continue
		}
		regs = append(regs, poller.Registration{
			Source: retry.NewSource(e.source, 2, 5*time.Second, logger),
			Query: model.Query{
				Location: cfg.Location,
				Terms:    e.sc.Terms,
				MaxPages: e.sc.MaxPages,
			},
		})
		logger.Info("registered source", "name", e.source.Name(), "platform", e.source.Platform())
	}
	return regs
}

// buildCycle wires one pipeline pass over st and n. The returned close func
// releases the scam-check cache connection.
func buildCycle(ctx context.Context, cfg *config.Config, st model.Store, n model.Notifier, onPhase func(poller.Phase), logger *slog.Logger) (*poller.Cycle, func() error, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	sources := buildSources(cfg, httpClient, logger)
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("no sources enabled")
	}

	scam, closeScam, err := setupScamProvider(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("scam check: %w", err)
	}
	renderer, err := setupCover(cfg)
	if err != nil {
		_ = closeScam()
		return nil, nil, fmt.Errorf("cover template: %w", err)
	}

	cycle := poller.NewCycle(
		sources,
		st,
		enrich.New(scam, renderer, logger),
		n,
		poller.Options{
			SourceTimeout:      cfg.SourceTimeout,
			MaxBlockingWorkers: cfg.MaxBlockingWorkers,
			OnPhase:            onPhase,
		},
		logger,
	)
	return cycle, closeScam, nil
}

// phaseLogger reports phase transitions at debug level.
func phaseLogger(logger *slog.Logger) func(poller.Phase) {
	return func(p poller.Phase) {
		logger.Debug("phase", "phase", string(p))
	}
}
