// Package config provides persistent settings for athany.
//
// Settings are stored as JSON at ~/.config/athany/config.json
// (XDG-compliant). The merge priority is: CLI flags > ATHANY_* environment
// (optionally loaded from a .env file) > config file > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/athany/internal/hijri"
)

const (
	configDirName  = "athany"
	configFileName = "config.json"
)

// Cache backends accepted by the cache_backend key.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"city", "country",
	"selected_audio", "mute", "player", "alert_grace",
	"method", "school",
	"time_format", "hijri_lang",
	"cache_dir", "cache_backend", "redis_addr",
	"mqtt_broker", "mqtt_topic",
	"listen_addr",
}

// Config holds all user-configurable settings.
// Zero values mean "not set" (use defaults or auto-detect).
type Config struct {
	City          string `json:"city,omitempty"`
	Country       string `json:"country,omitempty"`
	SelectedAudio string `json:"selected_audio,omitempty"` // path to the athan file
	Mute          bool   `json:"mute,omitempty"`
	Player        string `json:"player,omitempty"`      // audio player command line
	AlertGrace    string `json:"alert_grace,omitempty"` // Go duration, e.g. "5m"
	Method        *int   `json:"method,omitempty"`      // pointer so we can distinguish "not set" from 0
	School        *int   `json:"school,omitempty"`
	TimeFormat    string `json:"time_format,omitempty"` // "12h" or "24h"
	HijriLang     string `json:"hijri_lang,omitempty"`  // "ar" or "en"
	CacheDir      string `json:"cache_dir,omitempty"`
	CacheBackend  string `json:"cache_backend,omitempty"` // "file" or "redis"
	RedisAddr     string `json:"redis_addr,omitempty"`
	MQTTBroker    string `json:"mqtt_broker,omitempty"`
	MQTTTopic     string `json:"mqtt_topic,omitempty"`
	ListenAddr    string `json:"listen_addr,omitempty"`
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	method := -1
	school := -1
	return Config{
		Method:       &method,
		School:       &school,
		TimeFormat:   "12h",
		HijriLang:    string(hijri.Arabic),
		CacheBackend: BackendFile,
		AlertGrace:   "5m",
	}
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadFrom reads the config at path. A missing file yields an empty Config;
// invalid JSON is an error.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveTo writes the config to path, creating the directory if needed.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ResetAt deletes the config file at path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	switch key {
	case "city":
		c.City = value
	case "country":
		c.Country = value
	case "selected_audio":
		c.SelectedAudio = value
	case "mute":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid mute %q: must be true or false", value)
		}
		c.Mute = v
	case "player":
		c.Player = value
	case "alert_grace":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid alert_grace %q: must be a duration such as 5m", value)
		}
		c.AlertGrace = value
	case "method":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid method %q: must be an integer", value)
		}
		if v < 0 || v > 23 {
			return fmt.Errorf("invalid method %q: must be between 0 and 23", value)
		}
		c.Method = &v
	case "school":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid school %q: must be an integer", value)
		}
		if v != 0 && v != 1 {
			return fmt.Errorf("invalid school %q: must be 0 (Shafi) or 1 (Hanafi)", value)
		}
		c.School = &v
	case "time_format":
		if value != "12h" && value != "24h" {
			return fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
		}
		c.TimeFormat = value
	case "hijri_lang":
		lang, err := hijri.ParseLang(value)
		if err != nil {
			return err
		}
		c.HijriLang = string(lang)
	case "cache_dir":
		c.CacheDir = value
	case "cache_backend":
		if value != BackendFile && value != BackendRedis {
			return fmt.Errorf("invalid cache_backend %q: must be %q or %q", value, BackendFile, BackendRedis)
		}
		c.CacheBackend = value
	case "redis_addr":
		c.RedisAddr = value
	case "mqtt_broker":
		c.MQTTBroker = value
	case "mqtt_topic":
		c.MQTTTopic = value
	case "listen_addr":
		c.ListenAddr = value
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

// Unset clears a config key so the default applies again.
func (c *Config) Unset(key string) error {
	switch key {
	case "city":
		c.City = ""
	case "country":
		c.Country = ""
	case "selected_audio":
		c.SelectedAudio = ""
	case "mute":
		c.Mute = false
	case "player":
		c.Player = ""
	case "alert_grace":
		c.AlertGrace = ""
	case "method":
		c.Method = nil
	case "school":
		c.School = nil
	case "time_format":
		c.TimeFormat = ""
	case "hijri_lang":
		c.HijriLang = ""
	case "cache_dir":
		c.CacheDir = ""
	case "cache_backend":
		c.CacheBackend = ""
	case "redis_addr":
		c.RedisAddr = ""
	case "mqtt_broker":
		c.MQTTBroker = ""
	case "mqtt_topic":
		c.MQTTTopic = ""
	case "listen_addr":
		c.ListenAddr = ""
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}
	return nil
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "city":
		return c.City, nil
	case "country":
		return c.Country, nil
	case "selected_audio":
		return c.SelectedAudio, nil
	case "mute":
		return strconv.FormatBool(c.Mute), nil
	case "player":
		return c.Player, nil
	case "alert_grace":
		return c.AlertGrace, nil
	case "method":
		if c.Method == nil {
			return "", nil
		}
		return strconv.Itoa(*c.Method), nil
	case "school":
		if c.School == nil {
			return "", nil
		}
		return strconv.Itoa(*c.School), nil
	case "time_format":
		return c.TimeFormat, nil
	case "hijri_lang":
		return c.HijriLang, nil
	case "cache_dir":
		return c.CacheDir, nil
	case "cache_backend":
		return c.CacheBackend, nil
	case "redis_addr":
		return c.RedisAddr, nil
	case "mqtt_broker":
		return c.MQTTBroker, nil
	case "mqtt_topic":
		return c.MQTTTopic, nil
	case "listen_addr":
		return c.ListenAddr, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// MethodOrDefault returns the method value, falling back to the given default.
func (c *Config) MethodOrDefault(def int) int {
	if c.Method != nil {
		return *c.Method
	}
	return def
}

// SchoolOrDefault returns the school value, falling back to the given default.
func (c *Config) SchoolOrDefault(def int) int {
	if c.School != nil {
		return *c.School
	}
	return def
}

// AlertGraceOrDefault parses alert_grace, falling back to def when unset.
func (c *Config) AlertGraceOrDefault(def time.Duration) time.Duration {
	if c.AlertGrace == "" {
		return def
	}
	d, err := time.ParseDuration(c.AlertGrace)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// HasLocation reports whether both city and country are set.
func (c *Config) HasLocation() bool {
	return c.City != "" && c.Country != ""
}
