// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lankaguide/lankaguide-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete client configuration.
type Config struct {
	// Server connection settings
	Server ServerConfig `toml:"server" json:"server"`

	// Upload behavior
	Upload UploadConfig `toml:"upload" json:"upload"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServerConfig contains backend connection settings.
type ServerConfig struct {
	// BaseURL is the HTTP base URL of the backend API
	BaseURL string `toml:"base_url" json:"base_url"`
	// PushURL is the WebSocket endpoint for progress events.
	// Empty derives it from BaseURL (/ws with the ws scheme).
	PushURL string `toml:"push_url" json:"push_url"`
	// RequestTimeoutSecs bounds ordinary API calls
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// UploadTimeoutSecs bounds document uploads, which can be large
	UploadTimeoutSecs int `toml:"upload_timeout_secs" json:"upload_timeout_secs"`
}

// UploadConfig contains document upload behavior.
type UploadConfig struct {
	// GraceSecs is how long a finished upload stays visible in the
	// progress list before it is removed
	GraceSecs int `toml:"grace_secs" json:"grace_secs"`
	// ResyncDebounceSecs is the minimum interval between document-list
	// re-fetches triggered by events for unknown documents
	ResyncDebounceSecs int `toml:"resync_debounce_secs" json:"resync_debounce_secs"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// ShowSidebar displays the chat list alongside the conversation
	ShowSidebar bool `toml:"show_sidebar" json:"show_sidebar"`
	// MarkdownWidth is the wrap width for rendered replies (0 = window width)
	MarkdownWidth int `toml:"markdown_width" json:"markdown_width"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:            "http://127.0.0.1:5000",
			PushURL:            "",
			RequestTimeoutSecs: 30,
			UploadTimeoutSecs:  300,
		},
		Upload: UploadConfig{
			GraceSecs:          2,
			ResyncDebounceSecs: 3,
		},
		UI: UIConfig{
			Theme:       "dark",
			CompactMode: false,
			ShowSidebar: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the client configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".lankaguide"), nil
}

// PathTOML returns the path to the TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if path, err := PathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	if path, err := PathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format is chosen by file extension, defaulting to TOML.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems; warn only.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := &Config{}
	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config from %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config from %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config from %s: %w", path, err)
		}
	}

	cfg.SetDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# LankaGuide client configuration file\n")
	buf.WriteString("# Generated by lankaguide - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// DEFAULTS, OVERRIDES, VALIDATION
// =============================================================================

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	if c.Server.RequestTimeoutSecs == 0 {
		c.Server.RequestTimeoutSecs = defaults.Server.RequestTimeoutSecs
	}
	if c.Server.UploadTimeoutSecs == 0 {
		c.Server.UploadTimeoutSecs = defaults.Server.UploadTimeoutSecs
	}
	if c.Upload.GraceSecs == 0 {
		c.Upload.GraceSecs = defaults.Upload.GraceSecs
	}
	if c.Upload.ResyncDebounceSecs == 0 {
		c.Upload.ResyncDebounceSecs = defaults.Upload.ResyncDebounceSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - LANKAGUIDE_SERVER: overrides server.base_url
//   - LANKAGUIDE_PUSH_URL: overrides server.push_url
//   - LANKAGUIDE_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if server := os.Getenv("LANKAGUIDE_SERVER"); server != "" {
		c.Server.BaseURL = server
	}
	if pushURL := os.Getenv("LANKAGUIDE_PUSH_URL"); pushURL != "" {
		c.Server.PushURL = pushURL
	}
	if theme := os.Getenv("LANKAGUIDE_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: "must not be empty",
		})
	} else if u, err := url.Parse(c.Server.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http or https", c.Server.BaseURL),
		})
	}

	if c.Server.PushURL != "" {
		if u, err := url.Parse(c.Server.PushURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, ValidationError{
				Field:   "server.push_url",
				Message: fmt.Sprintf("invalid URL '%s', must be ws or wss", c.Server.PushURL),
			})
		}
	}

	if c.Server.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.request_timeout_secs",
			Message: "must be non-negative",
		})
	}
	if c.Server.UploadTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.upload_timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.Upload.GraceSecs < 0 || c.Upload.GraceSecs > 60 {
		errs = append(errs, ValidationError{
			Field:   "upload.grace_secs",
			Message: fmt.Sprintf("must be 0-60, got %d", c.Upload.GraceSecs),
		})
	}
	if c.Upload.ResyncDebounceSecs < 0 || c.Upload.ResyncDebounceSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "upload.resync_debounce_secs",
			Message: fmt.Sprintf("must be 0-300, got %d", c.Upload.ResyncDebounceSecs),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// ResolvedPushURL returns the explicit push endpoint, or one derived
// from the base URL when none is configured.
func (c *Config) ResolvedPushURL() string {
	if c.Server.PushURL != "" {
		return c.Server.PushURL
	}
	derived := c.Server.BaseURL
	derived = strings.Replace(derived, "https://", "wss://", 1)
	derived = strings.Replace(derived, "http://", "ws://", 1)
	return strings.TrimRight(derived, "/") + "/ws"
}

// RequestTimeout returns the request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

// UploadTimeout returns the upload timeout as a duration.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Server.UploadTimeoutSecs) * time.Second
}

// GracePeriod returns the terminal-item display grace as a duration.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Upload.GraceSecs) * time.Second
}

// ResyncDebounce returns the resync debounce window as a duration.
func (c *Config) ResyncDebounce() time.Duration {
	return time.Duration(c.Upload.ResyncDebounceSecs) * time.Second
}
