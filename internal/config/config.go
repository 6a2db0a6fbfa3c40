package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/lepinkainen/multipass/pkg/filesystem"
	"github.com/lepinkainen/multipass/pkg/platforms"
	"github.com/lepinkainen/multipass/pkg/social"
)

// Config holds the central application configuration
type Config struct {
	// Aggregator tuning
	Aggregator struct {
		TimeoutSeconds int `mapstructure:"timeout_seconds"` // Per-platform fetch/publish timeout
		Concurrency    int `mapstructure:"concurrency"`     // Max concurrent platform calls (0 = unbounded)
	} `mapstructure:"aggregator"`

	// Feed output settings
	Feed struct {
		Title       string `mapstructure:"title"`
		Link        string `mapstructure:"link"`
		Description string `mapstructure:"description"`
		Author      string `mapstructure:"author"`
		OutputPath  string `mapstructure:"output_path"` // Output file path
	} `mapstructure:"feed"`

	// Post cache settings
	Cache struct {
		Path       string `mapstructure:"path"`        // SQLite database path ("" disables caching)
		RetainDays int    `mapstructure:"retain_days"` // Posts older than this are pruned
	} `mapstructure:"cache"`

	// Configured platform accounts
	Accounts []AccountConfig `mapstructure:"accounts"`
}

// AccountConfig describes one platform account. Secrets are never stored in
// the config file; the *_env fields name environment variables that hold them.
type AccountConfig struct {
	ID       string `mapstructure:"id"`       // Unique account identifier
	Platform string `mapstructure:"platform"` // Registered platform name (e.g. "mastodon")
	BaseURL  string `mapstructure:"base_url"` // Instance or feed URL

	TokenEnv        string `mapstructure:"token_env"`
	UsernameEnv     string `mapstructure:"username_env"`
	PasswordEnv     string `mapstructure:"password_env"`
	ClientIDEnv     string `mapstructure:"client_id_env"`
	ClientSecretEnv string `mapstructure:"client_secret_env"`

	Options map[string]string `mapstructure:"options"` // Platform-specific options
}

// Account resolves the entry into a platform account, reading credential
// values from the named environment variables.
func (a AccountConfig) Account() (platforms.Account, error) {
	if a.ID == "" {
		return platforms.Account{}, fmt.Errorf("account without id (platform %q)", a.Platform)
	}
	if a.Platform == "" {
		return platforms.Account{}, fmt.Errorf("account %q has no platform", a.ID)
	}

	return platforms.Account{
		ID:       a.ID,
		Platform: a.Platform,
		Credentials: social.Credentials{
			BaseURL:      a.BaseURL,
			Token:        os.Getenv(a.TokenEnv),
			Username:     os.Getenv(a.UsernameEnv),
			Password:     os.Getenv(a.PasswordEnv),
			ClientID:     os.Getenv(a.ClientIDEnv),
			ClientSecret: os.Getenv(a.ClientSecretEnv),
		},
		Options: a.Options,
	}, nil
}

// LoadConfig loads the configuration from a file
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	// If path is relative, try current directory first, then executable directory
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			if execPath, err := filesystem.GetDefaultPath(path); err == nil {
				if _, err := os.Stat(execPath); err == nil {
					path = execPath
				}
			}
			// If both fail, use original path and let Viper handle the error
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set default values
	v.SetDefault("aggregator.timeout_seconds", 30)
	v.SetDefault("aggregator.concurrency", 4)

	v.SetDefault("feed.title", "Multipass")
	v.SetDefault("feed.description", "Aggregated social media feed")
	v.SetDefault("feed.output_path", "multipass.xml")

	v.SetDefault("cache.path", "")
	v.SetDefault("cache.retain_days", 30)

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// SaveConfig saves the configuration to a file. Account entries are written
// as-is; they never contain secrets, only environment variable names.
func SaveConfig(config *Config, path string) error {
	if path == "" {
		path = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("aggregator.timeout_seconds", config.Aggregator.TimeoutSeconds)
	v.Set("aggregator.concurrency", config.Aggregator.Concurrency)

	v.Set("feed.title", config.Feed.Title)
	v.Set("feed.link", config.Feed.Link)
	v.Set("feed.description", config.Feed.Description)
	v.Set("feed.author", config.Feed.Author)
	v.Set("feed.output_path", config.Feed.OutputPath)

	v.Set("cache.path", config.Cache.Path)
	v.Set("cache.retain_days", config.Cache.RetainDays)

	// Structs would be written with Go field names; emit the mapstructure
	// keys so the file loads back identically.
	accounts := make([]map[string]any, 0, len(config.Accounts))
	for _, a := range config.Accounts {
		entry := map[string]any{
			"id":       a.ID,
			"platform": a.Platform,
		}
		if a.BaseURL != "" {
			entry["base_url"] = a.BaseURL
		}
		if a.TokenEnv != "" {
			entry["token_env"] = a.TokenEnv
		}
		if a.UsernameEnv != "" {
			entry["username_env"] = a.UsernameEnv
		}
		if a.PasswordEnv != "" {
			entry["password_env"] = a.PasswordEnv
		}
		if a.ClientIDEnv != "" {
			entry["client_id_env"] = a.ClientIDEnv
		}
		if a.ClientSecretEnv != "" {
			entry["client_secret_env"] = a.ClientSecretEnv
		}
		if len(a.Options) > 0 {
			entry["options"] = a.Options
		}
		accounts = append(accounts, entry)
	}
	v.Set("accounts", accounts)

	return v.WriteConfig()
}
