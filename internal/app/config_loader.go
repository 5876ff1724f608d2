package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

// EnvPrefix is the prefix of configuration environment variables
const EnvPrefix = "MEDIAFETCH"

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.mediafetch")
		v.AddConfigPath("/etc/mediafetch")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only sees keys viper already knows about
	setDefaults(v, config)
	if err := bindLegacyEnv(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// settings flattens config into viper keys
func settings(config *domain.Config) map[string]any {
	return map[string]any{
		"server.host": config.Server.Host,
		"server.port": config.Server.Port,

		"fetch.timeout":         config.Fetch.Timeout.String(),
		"fetch.user_agent":      config.Fetch.UserAgent,
		"fetch.max_asset_bytes": config.Fetch.MaxAssetBytes,

		"youtube.ytdlp_binary": config.YouTube.YTDLPBinary,
		"youtube.format":       config.YouTube.Format,

		"instagram.username": config.Instagram.Username,
		"instagram.password": config.Instagram.Password,

		"spotify.client_id":     config.Spotify.ClientID,
		"spotify.client_secret": config.Spotify.ClientSecret,

		"tiktok.use_browser": config.TikTok.UseBrowser,
		"tiktok.browser_bin": config.TikTok.BrowserBin,

		"cache.enabled":  config.Cache.Enabled,
		"cache.address":  config.Cache.Address,
		"cache.password": config.Cache.Password,
		"cache.db":       config.Cache.DB,
		"cache.ttl":      config.Cache.TTL.String(),

		"history.enabled":       config.History.Enabled,
		"history.database_path": config.History.DatabasePath,

		"notification.enabled": config.Notification.Enabled,
		"notification.sound":   config.Notification.Sound,
		"notification.method":  config.Notification.Method,

		"logging.level":       config.Logging.Level,
		"logging.format":      config.Logging.Format,
		"logging.output_path": config.Logging.OutputPath,
	}
}

// secretKeys are never written by SaveConfig
var secretKeys = map[string]bool{
	"instagram.username":    true,
	"instagram.password":    true,
	"spotify.client_id":     true,
	"spotify.client_secret": true,
	"cache.password":        true,
}

// setDefaults registers every key with its default value
func setDefaults(v *viper.Viper, config *domain.Config) {
	for key, value := range settings(config) {
		v.SetDefault(key, value)
	}
}

// bindLegacyEnv accepts the Spotipy variable names as well as the prefixed ones
func bindLegacyEnv(v *viper.Viper) error {
	if err := v.BindEnv("spotify.client_id", EnvPrefix+"_SPOTIFY_CLIENT_ID", "SPOTIPY_CLIENT_ID"); err != nil {
		return err
	}
	return v.BindEnv("spotify.client_secret", EnvPrefix+"_SPOTIFY_CLIENT_SECRET", "SPOTIPY_CLIENT_SECRET")
}

// CredentialsFromConfig returns the default credential bundle, or nil
// when nothing is configured
func CredentialsFromConfig(config *domain.Config) *domain.Credentials {
	creds := &domain.Credentials{}
	if config.Instagram.Username != "" || config.Instagram.Password != "" {
		creds.Instagram = &domain.InstagramCredentials{
			Username: config.Instagram.Username,
			Password: config.Instagram.Password,
		}
	}
	if config.Spotify.ClientID != "" || config.Spotify.ClientSecret != "" {
		creds.Spotify = &domain.SpotifyCredentials{
			ClientID:     config.Spotify.ClientID,
			ClientSecret: config.Spotify.ClientSecret,
		}
	}
	if creds.Instagram == nil && creds.Spotify == nil {
		return nil
	}
	return creds
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.YouTube.YTDLPBinary = expandPath(config.YouTube.YTDLPBinary)
	config.TikTok.BrowserBin = expandPath(config.TikTok.BrowserBin)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	// Expand home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// Replace $HOME even when the variable is unset
	if strings.Contains(path, "$HOME") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch timeout cannot be negative")
	}

	if config.Fetch.MaxAssetBytes < 0 {
		return fmt.Errorf("max asset bytes cannot be negative")
	}

	if config.YouTube.YTDLPBinary == "" {
		return fmt.Errorf("yt-dlp binary not configured")
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Cache.Enabled && config.Cache.Address == "" {
		return fmt.Errorf("cache address not configured")
	}

	switch config.Notification.Method {
	case "osascript", "notify-send":
	default:
		if config.Notification.Enabled {
			return fmt.Errorf("unknown notification method: %s", config.Notification.Method)
		}
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file, leaving out credentials
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range settings(config) {
		if !secretKeys[key] {
			v.Set(key, value)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
