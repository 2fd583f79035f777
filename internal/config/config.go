package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every setting the process needs. Values come from an
// optional YAML file (ROLESYNC_CONFIG) with environment variables taking
// precedence, so the original .env-style deployment keeps working.
type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Directory   DirectoryConfig `yaml:"directory"`
	Discord     DiscordConfig   `yaml:"discord"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	Journal     JournalConfig   `yaml:"journal"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	OperatorTokenHash string        `yaml:"operator_token_hash"`
	RateLimit         int           `yaml:"rate_limit"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

// DirectoryConfig points at the Webling instance holding the club's
// membership records. BaseURL overrides the domain-derived URL, used by
// tests and self-hosted proxies.
type DirectoryConfig struct {
	BaseDomain       string  `yaml:"base_domain"`
	BaseURL          string  `yaml:"base_url"`
	APIKey           string  `yaml:"api_key"`
	GroupIDs         []int64 `yaml:"group_ids"`
	IDProperty       string  `yaml:"id_property"`
	UsernameProperty string  `yaml:"username_property"`
}

type DiscordConfig struct {
	Token        string `yaml:"token"`
	GuildID      string `yaml:"guild_id"`
	MemberRoleID string `yaml:"member_role_id"`
}

type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

var (
	ErrMissingDiscordToken = errors.New("missing_discord_token")
	ErrMissingGuildID      = errors.New("missing_guild_id")
	ErrMissingRoleID       = errors.New("missing_member_role_id")
	ErrMissingDirectory    = errors.New("missing_directory_endpoint")
	ErrMissingAPIKey       = errors.New("missing_directory_api_key")
	ErrMissingGroupIDs     = errors.New("missing_eligible_group_ids")
)

// Load reads the optional config file, applies environment overrides and
// validates the result.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("ROLESYNC_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Environment: "production",
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimit:       30,
			RateLimitWindow: time.Minute,
		},
		Directory: DirectoryConfig{
			IDProperty:       "Discord-ID",
			UsernameProperty: "Discord-Benutzername",
		},
		Scheduler: SchedulerConfig{
			Interval: time.Hour,
		},
		Journal: JournalConfig{
			Path: "rolesync.db",
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Environment, "ROLESYNC_ENVIRONMENT")
	setString(&cfg.Server.Addr, "ROLESYNC_ADDR")
	setString(&cfg.Server.OperatorTokenHash, "ROLESYNC_OPERATOR_TOKEN_HASH")
	setString(&cfg.Discord.Token, "DISCORD_TOKEN")
	setString(&cfg.Discord.GuildID, "DISCORD_GUILD_ID")
	setString(&cfg.Discord.MemberRoleID, "WEBLING_MEMBER_DISCORD_ROLE_ID")
	setString(&cfg.Directory.BaseDomain, "WEBLING_BASE_DOMAIN")
	setString(&cfg.Directory.BaseURL, "WEBLING_BASE_URL")
	setString(&cfg.Directory.APIKey, "WEBLING_API_KEY")
	setString(&cfg.Directory.IDProperty, "WEBLING_ID_PROPERTY")
	setString(&cfg.Directory.UsernameProperty, "WEBLING_USERNAME_PROPERTY")
	setString(&cfg.Journal.Path, "ROLESYNC_JOURNAL_PATH")

	if raw := strings.TrimSpace(os.Getenv("WEBLING_MEMBERGROUP_IDS")); raw != "" {
		if ids, err := parseGroupIDs(raw); err == nil {
			cfg.Directory.GroupIDs = ids
		}
	}
	if raw := strings.TrimSpace(os.Getenv("ROLESYNC_SCHEDULER_ENABLED")); raw != "" {
		if enabled, err := strconv.ParseBool(raw); err == nil {
			cfg.Scheduler.Enabled = enabled
		}
	}
	if raw := strings.TrimSpace(os.Getenv("ROLESYNC_SCHEDULER_INTERVAL")); raw != "" {
		if interval, err := time.ParseDuration(raw); err == nil && interval > 0 {
			cfg.Scheduler.Interval = interval
		}
	}
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func parseGroupIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid group id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("empty_group_id_list")
	}
	return ids, nil
}

// Validate checks that every setting the reconciler cannot run without is
// present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return ErrMissingDiscordToken
	}
	if strings.TrimSpace(c.Discord.GuildID) == "" {
		return ErrMissingGuildID
	}
	if strings.TrimSpace(c.Discord.MemberRoleID) == "" {
		return ErrMissingRoleID
	}
	if strings.TrimSpace(c.Directory.BaseDomain) == "" && strings.TrimSpace(c.Directory.BaseURL) == "" {
		return ErrMissingDirectory
	}
	if strings.TrimSpace(c.Directory.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if len(c.Directory.GroupIDs) == 0 {
		return ErrMissingGroupIDs
	}
	return nil
}

// IsDevelopment reports whether the process runs with the relaxed
// development profile (console logging, gin debug mode).
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "development")
}
