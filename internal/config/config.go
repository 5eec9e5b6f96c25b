package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once per
// invocation and read-only afterwards.
type Config struct {
	Collect  Collect  `mapstructure:"collect"`
	NewsData NewsData `mapstructure:"newsdata"`
	Digest   Digest   `mapstructure:"digest"`
	Email    Email    `mapstructure:"email"`
}

// Collect holds the article collection filters shared by the warehouse and
// doc-search sources.
type Collect struct {
	DateFrom        string   `mapstructure:"date_from"`    // calendar date, YYYY-MM-DD
	DateTo          string   `mapstructure:"date_to"`      // calendar date, YYYY-MM-DD
	Keywords        []string `mapstructure:"keywords"`     // substring/phrase content filters
	Themes          []string `mapstructure:"gdelt_themes"` // GKG theme tags
	Languages       []string `mapstructure:"languages"`    // mapped to country filters for doc search
	MaxArticles     int      `mapstructure:"max_articles"`
	FullText        bool     `mapstructure:"full_text"`
	FullTextWorkers int      `mapstructure:"full_text_workers"`
	OutputDir       string   `mapstructure:"output_dir"`
	GCPProject      string   `mapstructure:"gcp_project"` // warehouse billing project
}

// NewsData holds settings for the NewsData-style REST source.
type NewsData struct {
	Language string `mapstructure:"language"`
	MaxPages int    `mapstructure:"max_pages"`
}

// Digest holds settings for digest generation.
type Digest struct {
	DataDir            string `mapstructure:"data_dir"`
	PostsDir           string `mapstructure:"posts_dir"`
	Model              string `mapstructure:"model"`        // batch (Anthropic) model
	GeminiModel        string `mapstructure:"gemini_model"` // sync model
	MaxTokens          int    `mapstructure:"max_tokens"`
	MaxCharsPerArticle int    `mapstructure:"max_chars_per_article"`
	PollInterval       string `mapstructure:"poll_interval"`
	MaxPolls           int    `mapstructure:"max_polls"`
}

// Email holds mail transport settings. Credentials come from the
// environment, never from the config file.
type Email struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	FromName string `mapstructure:"from_name"`
	To       string `mapstructure:"to"`
}

// PollIntervalDuration parses the configured poll interval, falling back to
// the default on a malformed value.
func (d Digest) PollIntervalDuration() time.Duration {
	dur, err := time.ParseDuration(d.PollInterval)
	if err != nil || dur <= 0 {
		return 5 * time.Second
	}
	return dur
}

// Load loads configuration from the given file (or the default search
// paths), after reading a local .env file if one exists.
func Load(configFile string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("json")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if os.IsNotExist(err) {
				// explicit --config pointing at a missing file
				return nil, fmt.Errorf("config file not found: %w", err)
			}
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("collect.max_articles", 5000)
	v.SetDefault("collect.full_text", true)
	v.SetDefault("collect.full_text_workers", 8)
	v.SetDefault("collect.output_dir", "data")

	v.SetDefault("newsdata.language", "it")
	v.SetDefault("newsdata.max_pages", 5)

	v.SetDefault("digest.data_dir", "data")
	v.SetDefault("digest.posts_dir", "posts")
	v.SetDefault("digest.model", "claude-sonnet-4-6")
	v.SetDefault("digest.gemini_model", "gemini-1.5-flash-latest")
	v.SetDefault("digest.max_tokens", 4096)
	v.SetDefault("digest.max_chars_per_article", 2000)
	v.SetDefault("digest.poll_interval", "5s")
	v.SetDefault("digest.max_polls", 120)

	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 465)
	v.SetDefault("email.from_name", "newspop-bot")
}

// DeriveWindow overwrites the date range with an auto-derived window of the
// last n days, ending now.
func (c *Config) DeriveWindow(n int, now time.Time) {
	c.Collect.DateTo = now.Format("2006-01-02")
	c.Collect.DateFrom = now.AddDate(0, 0, -n).Format("2006-01-02")
}

// validate fails fast on configuration errors, before any network call.
func validate(cfg *Config) error {
	for _, d := range []struct{ name, val string }{
		{"date_from", cfg.Collect.DateFrom},
		{"date_to", cfg.Collect.DateTo},
	} {
		if d.val == "" {
			continue // may be derived later via --days
		}
		if _, err := time.Parse("2006-01-02", d.val); err != nil {
			return fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", d.name, d.val)
		}
	}
	if cfg.Collect.MaxArticles <= 0 {
		return fmt.Errorf("max_articles must be positive, got %d", cfg.Collect.MaxArticles)
	}
	if cfg.Collect.FullTextWorkers <= 0 {
		return fmt.Errorf("full_text_workers must be positive, got %d", cfg.Collect.FullTextWorkers)
	}
	if cfg.NewsData.MaxPages <= 0 {
		return fmt.Errorf("newsdata.max_pages must be positive, got %d", cfg.NewsData.MaxPages)
	}
	return nil
}

// Env var names for secrets. Read from the process environment only.
const (
	EnvNewsDataAPIKey  = "NEWSDATA_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvMailUsername    = "MAIL_USERNAME"
	EnvMailPassword    = "MAIL_PASSWORD"
)
