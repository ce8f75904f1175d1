package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted when --config is not set.
const EnvPath = "INTERNRADAR_CONFIG"

// DefaultPath is used when neither --config nor EnvPath is set.
const DefaultPath = "config.yaml"

// Config is the root configuration for the internradar daemon.
type Config struct {
	PollInterval       time.Duration
	BaseBackoff        time.Duration
	Location           string
	SourceTimeout      time.Duration
	MaxBlockingWorkers int
	Sources            SourcesConfig
	Keywords           KeywordsConfig
	ScamCheck          ScamCheckConfig
	Store              StoreConfig
	Notification       NotificationConfig
	RateLimit          RateLimitConfig
	Cover              CoverConfig
	Browser            BrowserConfig
}

// SourceConfig toggles one listing platform.
type SourceConfig struct {
	Enabled  bool
	Terms    []string // empty means the adapter's built-in terms
	MaxPages int
}

// SourcesConfig lists every platform the daemon knows about.
type SourcesConfig struct {
	Internshala   SourceConfig
	LinkedIn      SourceConfig
	Unstop        SourceConfig
	UnstopOffline SourceConfig
}

// KeywordsConfig overrides the relevance filter's term lists. Nil means the
// built-in list; an explicitly empty strong list matches nothing.
type KeywordsConfig struct {
	Strong    []string
	Exclusion []string
}

// ScamCheckConfig controls the forum lookup.
type ScamCheckConfig struct {
	Enabled      bool
	Forums       []string
	Limit        int
	Timeout      time.Duration
	ClientID     string // expanded from env var by Load
	ClientSecret string // expanded from env var by Load
	UserAgent    string
	Cache        CacheConfig
}

// CacheConfig selects where scam results are cached.
type CacheConfig struct {
	Type string // "none", "memory" or "redis"
	URL  string // redis://… when Type is "redis"
	TTL  time.Duration
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Type string // "csv", "sqlite" or "none"
	Path string
}

// NotificationConfig lists the enabled alert channels and their settings.
type NotificationConfig struct {
	Channels []string // any of "log", "slack", "telegram", "email"
	Slack    SlackConfig
	Telegram TelegramConfig
	Email    EmailConfig
}

type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// RateLimitConfig controls per-platform request spacing.
type RateLimitConfig struct {
	MinDelay  time.Duration            // minimum gap between requests to the same platform
	Overrides map[string]time.Duration // keyed by source name
}

// CoverConfig fills the outreach message template.
type CoverConfig struct {
	TemplatePath string // empty means the embedded template
	Name         string
	Year         string
	Program      string
	School       string
	Interest     string
}

// BrowserConfig controls the headless Chrome used by Unstop.
type BrowserConfig struct {
	RemoteURL      string
	BlockResources bool
	SettleDelay    time.Duration
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	PollInterval       string             `yaml:"poll_interval"`
	BaseBackoff        string             `yaml:"base_backoff"`
	Location           string             `yaml:"location"`
	SourceTimeout      string             `yaml:"source_timeout"`
	MaxBlockingWorkers int                `yaml:"max_blocking_workers"`
	Sources            rawSourcesConfig   `yaml:"sources"`
	Keywords           rawKeywordsConfig  `yaml:"keywords"`
	ScamCheck          rawScamCheckConfig `yaml:"scamcheck"`
	Store              StoreConfig        `yaml:"store"`
	Notification       rawNotification    `yaml:"notification"`
	RateLimit          rawRateLimitConfig `yaml:"rate_limit"`
	Cover              rawCoverConfig     `yaml:"cover"`
	Browser            rawBrowserConfig   `yaml:"browser"`
}

type rawSourceConfig struct {
	Enabled  *bool    `yaml:"enabled"`
	Terms    []string `yaml:"terms"`
	MaxPages int      `yaml:"max_pages"`
}

type rawSourcesConfig struct {
	Internshala   rawSourceConfig `yaml:"internshala"`
	LinkedIn      rawSourceConfig `yaml:"linkedin"`
	Unstop        rawSourceConfig `yaml:"unstop"`
	UnstopOffline rawSourceConfig `yaml:"unstop_offline"`
}

type rawKeywordsConfig struct {
	Strong    []string `yaml:"strong"`
	Exclusion []string `yaml:"exclusion"`
}

type rawScamCheckConfig struct {
	Enabled      *bool    `yaml:"enabled"`
	Forums       []string `yaml:"forums"`
	Limit        int      `yaml:"limit"`
	Timeout      string   `yaml:"timeout"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	UserAgent    string   `yaml:"user_agent"`
	Cache        struct {
		Type string `yaml:"type"`
		URL  string `yaml:"url"`
		TTL  string `yaml:"ttl"`
	} `yaml:"cache"`
}

type rawNotification struct {
	Channels []string       `yaml:"channels"`
	Slack    SlackConfig    `yaml:"slack"`
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
}

type rawRateLimitConfig struct {
	MinDelay  string            `yaml:"min_delay"`
	Overrides map[string]string `yaml:"overrides"`
}

type rawCoverConfig struct {
	Template string `yaml:"template"`
	Name     string `yaml:"name"`
	Year     string `yaml:"year"`
	Program  string `yaml:"program"`
	School   string `yaml:"school"`
	Interest string `yaml:"interest"`
}

type rawBrowserConfig struct {
	RemoteURL      string `yaml:"remote_url"`
	BlockResources *bool  `yaml:"block_resources"`
	SettleDelay    string `yaml:"settle_delay"`
}

// ResolvePath picks the config file: the flag value, then $INTERNRADAR_CONFIG,
// then ./config.yaml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes. Environment variables are expanded
// before parsing so secrets can stay out of the file.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var err error
	cfg := &Config{
		Location:           raw.Location,
		MaxBlockingWorkers: raw.MaxBlockingWorkers,
	}
	if cfg.Location == "" {
		cfg.Location = "Mumbai"
	}
	if cfg.MaxBlockingWorkers == 0 {
		cfg.MaxBlockingWorkers = 3
	}

	if cfg.PollInterval, err = duration("poll_interval", raw.PollInterval, 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BaseBackoff, err = duration("base_backoff", raw.BaseBackoff, 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.SourceTimeout, err = duration("source_timeout", raw.SourceTimeout, 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.Sources = SourcesConfig{
		Internshala:   source(raw.Sources.Internshala, true, 2),
		LinkedIn:      source(raw.Sources.LinkedIn, false, 1),
		Unstop:        source(raw.Sources.Unstop, true, 1),
		UnstopOffline: source(raw.Sources.UnstopOffline, false, 1),
	}
	cfg.Keywords = KeywordsConfig{Strong: raw.Keywords.Strong, Exclusion: raw.Keywords.Exclusion}

	if cfg.ScamCheck, err = scamCheck(raw.ScamCheck); err != nil {
		return nil, err
	}

	cfg.Store = raw.Store
	if cfg.Store.Type == "" {
		cfg.Store.Type = "csv"
	}
	if cfg.Store.Path == "" {
		switch cfg.Store.Type {
		case "sqlite":
			cfg.Store.Path = "internships.db"
		case "csv":
			cfg.Store.Path = "internships.csv"
		}
	}

	cfg.Notification = NotificationConfig{
		Channels: raw.Notification.Channels,
		Slack:    raw.Notification.Slack,
		Telegram: raw.Notification.Telegram,
		Email:    raw.Notification.Email,
	}
	if len(cfg.Notification.Channels) == 0 {
		cfg.Notification.Channels = []string{"log"}
	}

	rateLimitDelay, err := duration("rate_limit.min_delay", raw.RateLimit.MinDelay, 2*time.Second)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]time.Duration)
	for name, v := range raw.RateLimit.Overrides {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.overrides[%q]: %w", name, err)
		}
		overrides[name] = d
	}
	cfg.RateLimit = RateLimitConfig{MinDelay: rateLimitDelay, Overrides: overrides}

	cfg.Cover = CoverConfig{
		TemplatePath: raw.Cover.Template,
		Name:         raw.Cover.Name,
		Year:         raw.Cover.Year,
		Program:      raw.Cover.Program,
		School:       raw.Cover.School,
		Interest:     raw.Cover.Interest,
	}

	cfg.Browser = BrowserConfig{
		RemoteURL:      raw.Browser.RemoteURL,
		BlockResources: raw.Browser.BlockResources == nil || *raw.Browser.BlockResources,
	}
	if cfg.Browser.SettleDelay, err = duration("browser.settle_delay", raw.Browser.SettleDelay, 3*time.Second); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func scamCheck(raw rawScamCheckConfig) (ScamCheckConfig, error) {
	out := ScamCheckConfig{
		Enabled:      raw.Enabled == nil || *raw.Enabled,
		Forums:       raw.Forums,
		Limit:        raw.Limit,
		ClientID:     raw.ClientID,
		ClientSecret: raw.ClientSecret,
		UserAgent:    raw.UserAgent,
		Cache:        CacheConfig{Type: raw.Cache.Type, URL: raw.Cache.URL},
	}
	if out.Limit == 0 {
		out.Limit = 5
	}
	if out.Cache.Type == "" {
		out.Cache.Type = "memory"
	}

	var err error
	if out.Timeout, err = duration("scamcheck.timeout", raw.Timeout, 30*time.Second); err != nil {
		return out, err
	}
	if out.Cache.TTL, err = duration("scamcheck.cache.ttl", raw.Cache.TTL, 6*time.Hour); err != nil {
		return out, err
	}
	return out, nil
}

func source(raw rawSourceConfig, enabled bool, maxPages int) SourceConfig {
	out := SourceConfig{Enabled: enabled, Terms: raw.Terms, MaxPages: raw.MaxPages}
	if raw.Enabled != nil {
		out.Enabled = *raw.Enabled
	}
	if out.MaxPages == 0 {
		out.MaxPages = maxPages
	}
	return out
}

func duration(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

func validate(cfg *Config) error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", cfg.PollInterval)
	}
	if cfg.BaseBackoff <= 0 {
		return fmt.Errorf("base_backoff must be positive, got %v", cfg.BaseBackoff)
	}
	if cfg.SourceTimeout <= 0 {
		return fmt.Errorf("source_timeout must be positive, got %v", cfg.SourceTimeout)
	}
	if cfg.MaxBlockingWorkers < 1 {
		return fmt.Errorf("max_blocking_workers must be at least 1, got %d", cfg.MaxBlockingWorkers)
	}

	s := cfg.Sources
	if !s.Internshala.Enabled && !s.LinkedIn.Enabled && !s.Unstop.Enabled && !s.UnstopOffline.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}
	for name, sc := range map[string]SourceConfig{
		"internshala":    s.Internshala,
		"linkedin":       s.LinkedIn,
		"unstop":         s.Unstop,
		"unstop_offline": s.UnstopOffline,
	} {
		if sc.MaxPages < 1 {
			return fmt.Errorf("sources.%s.max_pages must be at least 1, got %d", name, sc.MaxPages)
		}
	}

	if cfg.ScamCheck.Limit < 1 {
		return fmt.Errorf("scamcheck.limit must be at least 1, got %d", cfg.ScamCheck.Limit)
	}
	if cfg.ScamCheck.Timeout <= 0 {
		return fmt.Errorf("scamcheck.timeout must be positive, got %v", cfg.ScamCheck.Timeout)
	}
	if (cfg.ScamCheck.ClientID == "") != (cfg.ScamCheck.ClientSecret == "") {
		return fmt.Errorf("scamcheck.client_id and scamcheck.client_secret must be set together")
	}
	switch cfg.ScamCheck.Cache.Type {
	case "none", "memory":
	case "redis":
		if cfg.ScamCheck.Cache.URL == "" {
			return fmt.Errorf("scamcheck.cache.url is required when cache type is \"redis\"")
		}
	default:
		return fmt.Errorf("scamcheck.cache.type must be none, memory or redis, got %q", cfg.ScamCheck.Cache.Type)
	}

	switch cfg.Store.Type {
	case "csv", "sqlite", "none":
	default:
		return fmt.Errorf("store.type must be csv, sqlite or none, got %q", cfg.Store.Type)
	}

	n := cfg.Notification
	for _, ch := range n.Channels {
		switch ch {
		case "log":
		case "slack":
			if n.Slack.WebhookURL == "" {
				return fmt.Errorf("notification.slack.webhook_url is required when the slack channel is enabled")
			}
			if !strings.HasPrefix(n.Slack.WebhookURL, "https://hooks.slack.com/") {
				return fmt.Errorf("notification.slack.webhook_url must start with https://hooks.slack.com/")
			}
		case "telegram":
			if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
				return fmt.Errorf("notification.telegram.bot_token and chat_id are required when the telegram channel is enabled")
			}
		case "email":
			if n.Email.Host == "" || n.Email.Username == "" || len(n.Email.To) == 0 {
				return fmt.Errorf("notification.email.host, username and to are required when the email channel is enabled")
			}
		default:
			return fmt.Errorf("unknown notification channel %q", ch)
		}
	}

	return nil
}
