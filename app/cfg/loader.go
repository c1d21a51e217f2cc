package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Subscription sources
	OPMLURL  string `long:"opml-url" env:"OPML_URL" description:"URL of the OPML subscription list"`
	OPMLPath string `long:"opml-file" env:"OPML_FILE" description:"Path to a local OPML subscription list"`
	FeedsDir string `long:"feeds-dir" env:"FEEDS_DIR" description:"Directory containing per-feed YAML subscription files"`

	// Dedup cache
	CacheBackend string `long:"cache-backend" env:"CACHE_BACKEND" default:"file" choice:"file" choice:"sqlite" description:"Dedup cache backend"`
	CachePath    string `long:"cache-path" env:"CACHE_PATH" default:"./rss_cache.txt" description:"Path to the dedup cache (file or sqlite database)"`
	LockPath     string `long:"lock-path" env:"LOCK_PATH" default:"./rssalert.lock" description:"Run-level lock file preventing concurrent runs"`

	// Delivery
	SMTPHost     string   `long:"smtp-host" env:"SMTP_HOST" default:"smtp.gmail.com" description:"SMTP server host"`
	SMTPPort     int      `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	SMTPUser     string   `long:"smtp-user" env:"SMTP_USER" description:"SMTP username"`
	SMTPPassword string   `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
	MailFrom     string   `long:"mail-from" env:"MAIL_FROM" description:"Sender address for alert mail"`
	MailTo       []string `long:"mail-to" env:"MAIL_TO" env-delim:"," description:"Recipient addresses for alert mail"`
	SendRetries  int      `long:"send-retries" env:"SEND_RETRIES" default:"3" description:"Delivery attempts before a digest is recorded as unconfirmed"`

	// Application configuration
	Interval    int    `long:"interval" env:"INTERVAL" default:"0" description:"Seconds between runs; 0 runs once and exits"`
	WorkerCount int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of workers for the fetch/parse stage"`
	Port        string `long:"port" env:"PORT" description:"Status API port (daemon mode only; empty disables)"`
	LogDir      string `long:"log-dir" env:"LOG_DIR" default:"./logs" description:"Directory for per-day processing logs"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" description:"Override the User-Agent string for feed requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		OPMLURL:      raw.OPMLURL,
		OPMLPath:     raw.OPMLPath,
		FeedsDir:     raw.FeedsDir,
		CacheBackend: raw.CacheBackend,
		CachePath:    raw.CachePath,
		LockPath:     raw.LockPath,
		SMTPHost:     raw.SMTPHost,
		SMTPPort:     raw.SMTPPort,
		SMTPUser:     raw.SMTPUser,
		SMTPPassword: raw.SMTPPassword,
		MailFrom:     raw.MailFrom,
		MailTo:       raw.MailTo,
		SendRetries:  raw.SendRetries,
		Interval:     raw.Interval,
		WorkerCount:  raw.WorkerCount,
		Port:         raw.Port,
		LogDir:       raw.LogDir,
		UserAgent:    raw.UserAgent,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if cfg.OPMLURL == "" && cfg.OPMLPath == "" && cfg.FeedsDir == "" {
		return nil, fmt.Errorf("no subscription source configured: set --opml-url, --opml-file or --feeds-dir")
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
