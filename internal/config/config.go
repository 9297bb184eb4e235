// Package config loads the service configuration from an HCL file, with
// BLACKJACK_* environment variables (optionally from a .env file) taking
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/game"
)

// Config is the complete service configuration.
type Config struct {
	Server  *ServerSettings  `hcl:"server,block"`
	Storage *StorageSettings `hcl:"storage,block"`
	Rules   *RulesSettings   `hcl:"rules,block"`
	Auth    *AuthSettings    `hcl:"auth,block"`
	Session *SessionSettings `hcl:"session,block"`
}

// ServerSettings configures the HTTP listener and logging.
type ServerSettings struct {
	Address   string `hcl:"address,optional"`
	Port      int    `hcl:"port,optional"`
	LogLevel  string `hcl:"log_level,optional"`
	LogFormat string `hcl:"log_format,optional"`
}

// StorageSettings selects the round store.
type StorageSettings struct {
	Driver string `hcl:"driver,optional"`
	DSN    string `hcl:"dsn,optional"`
}

// RulesSettings are the house rules.
type RulesSettings struct {
	StartingBalance   int64 `hcl:"starting_balance,optional"`
	MaxHands          int   `hcl:"max_hands,optional"`
	AllowAllIn        bool  `hcl:"allow_all_in,optional"`
	DealerStepMS      int   `hcl:"dealer_step_ms,optional"`
	PromptDelayMS     int   `hcl:"prompt_delay_ms,optional"`
	ChipDenominations []int `hcl:"chip_denominations,optional"`
}

// AuthSettings configures token validation. An empty URL trusts bearer
// tokens as user IDs, for development.
type AuthSettings struct {
	URL         string `hcl:"url,optional"`
	AdminSecret string `hcl:"admin_secret,optional"`
	AllowGuests *bool  `hcl:"allow_guests,optional"`
	TimeoutMS   int    `hcl:"timeout_ms,optional"`
}

// SessionSettings configures where guest sessions are kept.
type SessionSettings struct {
	Dir string `hcl:"dir,optional"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.normalize()
	return c
}

// Load reads filename, falling back to defaults when it does not exist,
// then applies environment overrides.
func Load(filename string) (*Config, error) {
	c := &Config{}
	if _, err := os.Stat(filename); err == nil {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
		}
		if diags := gohcl.DecodeBody(file.Body, nil, c); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	c.normalize()
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

func (c *Config) normalize() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "text"
	}

	if c.Storage == nil {
		c.Storage = &StorageSettings{}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}

	if c.Rules == nil {
		c.Rules = &RulesSettings{}
	}
	defaults := game.DefaultRules()
	if c.Rules.StartingBalance == 0 {
		c.Rules.StartingBalance = defaults.StartingBalance.IntPart()
	}
	if c.Rules.MaxHands == 0 {
		c.Rules.MaxHands = defaults.MaxHands
	}
	if c.Rules.DealerStepMS == 0 {
		c.Rules.DealerStepMS = int(defaults.DealerStep / time.Millisecond)
	}
	if c.Rules.PromptDelayMS == 0 {
		c.Rules.PromptDelayMS = int(defaults.PromptDelay / time.Millisecond)
	}
	if len(c.Rules.ChipDenominations) == 0 {
		for _, chip := range defaults.ChipDenominations {
			c.Rules.ChipDenominations = append(c.Rules.ChipDenominations, int(chip.IntPart()))
		}
	}

	if c.Auth == nil {
		c.Auth = &AuthSettings{}
	}
	if c.Auth.AllowGuests == nil {
		allow := true
		c.Auth.AllowGuests = &allow
	}
	if c.Auth.TimeoutMS == 0 {
		c.Auth.TimeoutMS = 2000
	}

	if c.Session == nil {
		c.Session = &SessionSettings{}
	}
	if c.Session.Dir == "" {
		c.Session.Dir = "sessions"
	}
}

// applyEnv overrides settings from BLACKJACK_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"BLACKJACK_ADDRESS":        &c.Server.Address,
		"BLACKJACK_LOG_LEVEL":      &c.Server.LogLevel,
		"BLACKJACK_LOG_FORMAT":     &c.Server.LogFormat,
		"BLACKJACK_STORAGE_DRIVER": &c.Storage.Driver,
		"BLACKJACK_DSN":            &c.Storage.DSN,
		"BLACKJACK_AUTH_URL":       &c.Auth.URL,
		"BLACKJACK_ADMIN_SECRET":   &c.Auth.AdminSecret,
		"BLACKJACK_SESSION_DIR":    &c.Session.Dir,
	}
	for key, field := range str {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}

	if v, ok := lookup("BLACKJACK_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BLACKJACK_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("BLACKJACK_ALLOW_GUESTS"); ok && v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BLACKJACK_ALLOW_GUESTS: %w", err)
		}
		c.Auth.AllowGuests = &allow
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Server.Port))
	}
	switch strings.ToLower(c.Server.LogFormat) {
	case "text", "json", "logfmt":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Server.LogFormat))
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage driver %s needs a dsn", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if err := c.GameRules().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ServerAddress returns host:port for the listener.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GuestsAllowed reports whether unauthenticated players may play.
func (c *Config) GuestsAllowed() bool {
	return c.Auth.AllowGuests == nil || *c.Auth.AllowGuests
}

// GameRules converts the rules block.
func (c *Config) GameRules() game.Rules {
	r := game.Rules{
		StartingBalance: decimal.NewFromInt(c.Rules.StartingBalance),
		MaxHands:        c.Rules.MaxHands,
		AllowAllIn:      c.Rules.AllowAllIn,
		DealerStep:      time.Duration(c.Rules.DealerStepMS) * time.Millisecond,
		PromptDelay:     time.Duration(c.Rules.PromptDelayMS) * time.Millisecond,
	}
	for _, chip := range c.Rules.ChipDenominations {
		r.ChipDenominations = append(r.ChipDenominations, decimal.NewFromInt(int64(chip)))
	}
	return r
}
