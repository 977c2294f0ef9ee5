package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	koanftoml "github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Library  LibraryConfig  `koanf:"library" toml:"library"`
	DSP      DSPConfig      `koanf:"dsp" toml:"dsp"`
	EQ       EQConfig       `koanf:"eq" toml:"eq"`
	Resolver ResolverConfig `koanf:"resolver" toml:"resolver"`

	// Last.fm now-playing and scrobbling (enabled when configured)
	Lastfm LastfmConfig `koanf:"lastfm" toml:"lastfm"`

	// Desktop notifications (linux only)
	Notifications NotificationsConfig `koanf:"notifications" toml:"notifications"`

	Remote RemoteConfig `koanf:"remote" toml:"remote"`
	Log    LogConfig    `koanf:"log" toml:"log"`
}

// LibraryConfig holds storage locations.
type LibraryConfig struct {
	DBPath string `koanf:"db_path" toml:"db_path"` // empty means the XDG data dir
	Inbox  string `koanf:"inbox" toml:"inbox"`     // watched folder, empty disables watching
}

// DSPConfig holds the audio processing preferences.
type DSPConfig struct {
	AIUpsampling     bool    `koanf:"ai_upsampling" toml:"ai_upsampling"`
	UpsamplingLevel  int     `koanf:"upsampling_level" toml:"upsampling_level"` // 1-6 (default: 4)
	SmartCrossfade   bool    `koanf:"smart_crossfade" toml:"smart_crossfade"`
	CrossfadeSeconds float64 `koanf:"crossfade_seconds" toml:"crossfade_seconds"` // default: 5
	PhaseCorrection  bool    `koanf:"phase_correction" toml:"phase_correction"`
}

// EQConfig is the equalizer used until one is saved from the player.
type EQConfig struct {
	Gains []float64 `koanf:"gains" toml:"gains"` // dB per band, low to high
	Q     float64   `koanf:"q" toml:"q"`
}

// ResolverConfig holds the metadata lookup backends.
type ResolverConfig struct {
	OllamaURL      string `koanf:"ollama_url" toml:"ollama_url"` // empty disables search phrases
	OllamaModel    string `koanf:"ollama_model" toml:"ollama_model"`
	ImageSearchURL string `koanf:"image_search_url" toml:"image_search_url"` // template with {tags}; empty disables it
	MusicBrainz    *bool  `koanf:"musicbrainz" toml:"musicbrainz"`           // cover art archive lookup (default: false)
	Lrclib         *bool  `koanf:"lrclib" toml:"lrclib"`                     // online lyrics (default: true)
	TimeoutSeconds int    `koanf:"timeout_seconds" toml:"timeout_seconds"`   // per request (default: 15)
}

// LastfmConfig holds Last.fm credentials.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key" toml:"api_key"`
	APISecret  string `koanf:"api_secret" toml:"api_secret"`
	SessionKey string `koanf:"session_key" toml:"session_key"`
}

// NotificationsConfig holds desktop notification settings.
type NotificationsConfig struct {
	Enabled      *bool `koanf:"enabled" toml:"enabled"`               // master switch (default: true)
	NowPlaying   *bool `koanf:"now_playing" toml:"now_playing"`       // track changes (default: true)
	ShowAlbumArt *bool `koanf:"show_album_art" toml:"show_album_art"` // cover as icon (default: true)
	Timeout      int   `koanf:"timeout" toml:"timeout"`               // ms (default: 5000)
}

// RemoteConfig holds the HTTP control surface settings.
type RemoteConfig struct {
	Listen string `koanf:"listen" toml:"listen"` // "off" disables the server
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `koanf:"level" toml:"level"` // debug, info, warn, error (default: info)
	File       string `koanf:"file" toml:"file"`   // empty logs to stderr only
	MaxSizeMB  int    `koanf:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days" toml:"max_age_days"`
	Compress   bool   `koanf:"compress" toml:"compress"`
}

// Environment variables that override secrets and endpoints from files.
const (
	EnvOllamaURL       = "RIPPLE_OLLAMA_URL"
	EnvOllamaModel     = "RIPPLE_OLLAMA_MODEL"
	EnvImageSearchURL  = "RIPPLE_IMAGE_SEARCH_URL"
	EnvLastfmAPIKey    = "RIPPLE_LASTFM_API_KEY"
	EnvLastfmAPISecret = "RIPPLE_LASTFM_API_SECRET"
	EnvLastfmSession   = "RIPPLE_LASTFM_SESSION_KEY"
)

// RemoteOff disables the remote control server.
const RemoteOff = "off"

// Load reads .env, the config files and the environment.
func Load() (*Config, error) {
	// A missing .env is normal. godotenv never overrides variables already set.
	_ = godotenv.Load()
	return LoadFrom(getConfigPaths()...)
}

// LoadFrom reads the given files in order (last wins), skipping missing
// ones, then applies environment overrides.
func LoadFrom(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), koanftoml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)

	cfg.Library.DBPath = expandPath(cfg.Library.DBPath)
	cfg.Library.Inbox = expandPath(cfg.Library.Inbox)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Resolver.OllamaURL = strings.TrimSuffix(cfg.Resolver.OllamaURL, "/")

	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		key string
		dst *string
	}{
		{EnvOllamaURL, &cfg.Resolver.OllamaURL},
		{EnvOllamaModel, &cfg.Resolver.OllamaModel},
		{EnvImageSearchURL, &cfg.Resolver.ImageSearchURL},
		{EnvLastfmAPIKey, &cfg.Lastfm.APIKey},
		{EnvLastfmAPISecret, &cfg.Lastfm.APISecret},
		{EnvLastfmSession, &cfg.Lastfm.SessionKey},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok {
			*o.dst = v
		}
	}
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/ripple/config.toml
	if p := UserConfigPath(); p != "" {
		paths = append(paths, p)
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

// UserConfigPath returns ~/.config/ripple/config.toml, or "" without a home.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ripple", "config.toml")
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm is configured for now-playing.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// HasLastfmSession returns true if a Last.fm session key is stored.
func (c *Config) HasLastfmSession() bool {
	return c.HasLastfmConfig() && c.Lastfm.SessionKey != ""
}

// HasEQ reports whether the file sets an equalizer.
func (c *Config) HasEQ() bool {
	return len(c.EQ.Gains) > 0 || c.EQ.Q != 0
}

// GetDSPConfig returns the processing settings with defaults applied.
func (c *Config) GetDSPConfig() DSPConfig {
	cfg := c.DSP
	if cfg.UpsamplingLevel <= 0 {
		cfg.UpsamplingLevel = 4
	}
	if cfg.UpsamplingLevel > 6 {
		cfg.UpsamplingLevel = 6
	}
	if cfg.CrossfadeSeconds <= 0 {
		cfg.CrossfadeSeconds = 5
	}
	return cfg
}

// GetResolverConfig returns the resolver configuration with defaults applied.
func (c *Config) GetResolverConfig() ResolverConfig {
	cfg := c.Resolver
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 15
	}
	if cfg.MusicBrainz == nil {
		cfg.MusicBrainz = boolPtr(false)
	}
	if cfg.Lrclib == nil {
		cfg.Lrclib = boolPtr(true)
	}
	return cfg
}

// GetNotificationsConfig returns the notification settings with defaults applied.
func (c *Config) GetNotificationsConfig() NotificationsConfig {
	cfg := c.Notifications
	if cfg.Enabled == nil {
		cfg.Enabled = boolPtr(true)
	}
	if cfg.NowPlaying == nil {
		cfg.NowPlaying = boolPtr(true)
	}
	if cfg.ShowAlbumArt == nil {
		cfg.ShowAlbumArt = boolPtr(true)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5000
	}
	return cfg
}

// NowPlayingNotifications reports whether track changes raise a notification.
func (c *Config) NowPlayingNotifications() bool {
	cfg := c.GetNotificationsConfig()
	return *cfg.Enabled && *cfg.NowPlaying
}

// GetRemoteAddr returns the listen address, "" when the server is disabled.
func (c *Config) GetRemoteAddr() string {
	switch strings.TrimSpace(c.Remote.Listen) {
	case "":
		return "127.0.0.1:8737"
	case RemoteOff:
		return ""
	default:
		return strings.TrimSpace(c.Remote.Listen)
	}
}

// GetLogConfig returns the logging configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "error":
		cfg.Level = strings.ToLower(cfg.Level)
	default:
		cfg.Level = "info"
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 28
	}
	return cfg
}

// Default returns the configuration written by WriteDefault.
func Default() Config {
	return Config{
		DSP: DSPConfig{
			UpsamplingLevel:  4,
			CrossfadeSeconds: 5,
		},
		EQ: EQConfig{
			Gains: make([]float64, 15),
			Q:     1,
		},
		Resolver: ResolverConfig{
			OllamaModel:    "llama3.2",
			MusicBrainz:    boolPtr(false),
			Lrclib:         boolPtr(true),
			TimeoutSeconds: 15,
		},
		Notifications: NotificationsConfig{
			Enabled:      boolPtr(true),
			NowPlaying:   boolPtr(true),
			ShowAlbumArt: boolPtr(true),
			Timeout:      5000,
		},
		Remote: RemoteConfig{Listen: "127.0.0.1:8737"},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ErrExists is returned by WriteDefault when path is already present.
var ErrExists = errors.New("config file already exists")

// WriteDefault writes the default configuration to path, creating parent
// directories. It never overwrites an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

// SaveLastfmSession stores key under [lastfm] in path, keeping the rest of
// the file. A missing file is created.
func SaveLastfmSession(path, key string) error {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	section, _ := raw["lastfm"].(map[string]any)
	if section == nil {
		section = make(map[string]any)
	}
	section["session_key"] = key
	raw["lastfm"] = section

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(raw); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

func boolPtr(b bool) *bool { return &b }
