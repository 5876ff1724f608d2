package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Fetch        FetchConfig        `mapstructure:"fetch"`
	YouTube      YouTubeConfig      `mapstructure:"youtube"`
	Instagram    InstagramConfig    `mapstructure:"instagram"`
	Spotify      SpotifyConfig      `mapstructure:"spotify"`
	TikTok       TikTokConfig       `mapstructure:"tiktok"`
	Cache        CacheConfig        `mapstructure:"cache"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// FetchConfig contains transport settings shared by the adapters
type FetchConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"` // 0 disables the client timeout
	UserAgent     string        `mapstructure:"user_agent"`
	MaxAssetBytes int64         `mapstructure:"max_asset_bytes"`
}

// YouTubeConfig contains YouTube-specific configuration
type YouTubeConfig struct {
	YTDLPBinary string `mapstructure:"ytdlp_binary"`
	Format      string `mapstructure:"format"`
}

// InstagramConfig contains the default Instagram login
type InstagramConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SpotifyConfig contains the default Spotify client credentials
type SpotifyConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// TikTokConfig contains TikTok-specific configuration
type TikTokConfig struct {
	UseBrowser bool   `mapstructure:"use_browser"` // render pages with a headless browser
	BrowserBin string `mapstructure:"browser_bin"` // empty: auto-detect
}

// CacheConfig contains Redis asset cache configuration
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// HistoryConfig contains fetch history configuration
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultUserAgent mimics a desktop browser; several platforms refuse
// obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Fetch: FetchConfig{
			Timeout:       2 * time.Minute,
			UserAgent:     DefaultUserAgent,
			MaxAssetBytes: 512 << 20,
		},
		YouTube: YouTubeConfig{
			YTDLPBinary: "yt-dlp",
			Format:      "best[ext=mp4]/best",
		},
		TikTok: TikTokConfig{
			UseBrowser: false,
		},
		Cache: CacheConfig{
			Enabled: false,
			Address: "localhost:6379",
			DB:      0,
			TTL:     6 * time.Hour,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.mediafetch/history.db",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "osascript",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
