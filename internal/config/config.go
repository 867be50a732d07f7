package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/chatarr/chatarr/internal/locale"
)

// Server describes how to reach one HTTP backend.
type Server struct {
	Addr string `mapstructure:"addr"`
	Port int    `mapstructure:"port"`
	SSL  bool   `mapstructure:"ssl"`
	Path string `mapstructure:"path"`
}

// URL builds the backend base URL, always ending in "/".
func (s Server) URL() string {
	scheme := "http"
	if s.SSL {
		scheme = "https"
	}
	base := fmt.Sprintf("%s://%s:%d", scheme, s.Addr, s.Port)
	path := s.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return base + path
}

// Instance is one configured backend deployment of a media service.
type Instance struct {
	Label                   string   `mapstructure:"label"`
	Server                  Server   `mapstructure:"server"`
	APIKey                  string   `mapstructure:"apikey"`
	ExcludedRootFolders     []string `mapstructure:"excludedRootFolders"`
	ExcludedQualityProfiles []string `mapstructure:"excludedQualityProfiles"`
}

// Arr holds the settings for one media-type service (movie, series or
// music), possibly spanning several backend instances.
type Arr struct {
	Instances             []Instance `mapstructure:"instances"`
	Search                bool       `mapstructure:"search"`
	AdminRestrictions     bool       `mapstructure:"adminRestrictions"`
	AddRequesterIDTag     bool       `mapstructure:"addRequesterIdTag"`
	DefaultTags           []string   `mapstructure:"defaultTags"`
	NarrowRootFolderNames bool       `mapstructure:"narrowRootFolderNames"`
	// Movie only.
	MinimumAvailability string `mapstructure:"minimumAvailability"`
	// Series only.
	SeasonFolder    bool   `mapstructure:"seasonFolder"`
	LanguageProfile string `mapstructure:"languageProfile"`
}

// SpeedClient holds the settings for one download-client throttle
// integration.
type SpeedClient struct {
	Enable    bool   `mapstructure:"enable"`
	OnlyAdmin bool   `mapstructure:"onlyAdmin"`
	Server    Server `mapstructure:"server"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	APIKey    string `mapstructure:"apikey"`
}

// Entrypoints are the configurable command names the bot answers to.
type Entrypoints struct {
	Auth         string `mapstructure:"auth"`
	Add          string `mapstructure:"add"`
	Movie        string `mapstructure:"movie"`
	Series       string `mapstructure:"series"`
	Music        string `mapstructure:"music"`
	Delete       string `mapstructure:"delete"`
	AllSeries    string `mapstructure:"allSeries"`
	AllMovies    string `mapstructure:"allMovies"`
	AllMusic     string `mapstructure:"allMusic"`
	Transmission string `mapstructure:"transmission"`
	Sabnzbd      string `mapstructure:"sabnzbd"`
	Qbittorrent  string `mapstructure:"qbittorrent"`
	Help         string `mapstructure:"help"`
}

// Config holds all application configuration.
type Config struct {
	TelegramToken    string
	TelegramPassword string
	Language         string
	LogToConsole     bool
	DebugLogging     bool
	EnableAllowlist  bool
	AdminNotifyID    int64 // 0 means disabled

	Entrypoints Entrypoints

	Radarr Arr
	Sonarr Arr
	Lidarr Arr

	Transmission SpeedClient
	Sabnzbd      SpeedClient
	Qbittorrent  SpeedClient

	// Derived paths, rooted next to the config file.
	ChatIDFile    string
	AdminFile     string
	AllowlistFile string
	LogFile       string
}

// fileConfig mirrors the YAML file layout for a single Unmarshal pass.
type fileConfig struct {
	Telegram struct {
		Token    string `mapstructure:"token"`
		Password string `mapstructure:"password"`
	} `mapstructure:"telegram"`
	Language        string `mapstructure:"language"`
	LogToConsole    bool   `mapstructure:"logToConsole"`
	DebugLogging    bool   `mapstructure:"debugLogging"`
	EnableAllowlist bool   `mapstructure:"enableAllowlist"`
	AdminNotifyID   int64  `mapstructure:"adminNotifyId"`

	Entrypoints Entrypoints `mapstructure:"entrypoints"`

	Radarr Arr `mapstructure:"radarr"`
	Sonarr Arr `mapstructure:"sonarr"`
	Lidarr Arr `mapstructure:"lidarr"`

	Transmission SpeedClient `mapstructure:"transmission"`
	Sabnzbd      SpeedClient `mapstructure:"sabnzbd"`
	Qbittorrent  SpeedClient `mapstructure:"qbittorrent"`
}

// Load reads the YAML config file. The path comes from CHATARR_CONFIG
// or defaults to ./config.yaml.
func Load() (*Config, error) {
	path := os.Getenv("CHATARR_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(absPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal the whole tree at once so the registered defaults are
	// merged in. UnmarshalKey decodes the raw file sub-map and would
	// skip them.
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{
		TelegramToken:    fc.Telegram.Token,
		TelegramPassword: fc.Telegram.Password,
		Language:         fc.Language,
		LogToConsole:     fc.LogToConsole,
		DebugLogging:     fc.DebugLogging,
		EnableAllowlist:  fc.EnableAllowlist,
		AdminNotifyID:    fc.AdminNotifyID,
		Entrypoints:      fc.Entrypoints,
		Radarr:           fc.Radarr,
		Sonarr:           fc.Sonarr,
		Lidarr:           fc.Lidarr,
		Transmission:     fc.Transmission,
		Sabnzbd:          fc.Sabnzbd,
		Qbittorrent:      fc.Qbittorrent,
	}

	dir := filepath.Dir(absPath)
	cfg.ChatIDFile = filepath.Join(dir, "chatid.txt")
	cfg.AdminFile = filepath.Join(dir, "admin.txt")
	cfg.AllowlistFile = filepath.Join(dir, "allowlist.txt")
	cfg.LogFile = filepath.Join(dir, "logs", "chatarr.log")

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("language", locale.DefaultLanguage)
	v.SetDefault("logToConsole", true)
	v.SetDefault("debugLogging", false)
	v.SetDefault("enableAllowlist", false)

	v.SetDefault("entrypoints.auth", "auth")
	v.SetDefault("entrypoints.add", "start")
	v.SetDefault("entrypoints.movie", "movie")
	v.SetDefault("entrypoints.series", "series")
	v.SetDefault("entrypoints.music", "music")
	v.SetDefault("entrypoints.delete", "delete")
	v.SetDefault("entrypoints.allSeries", "allSeries")
	v.SetDefault("entrypoints.allMovies", "allMovies")
	v.SetDefault("entrypoints.allMusic", "allMusic")
	v.SetDefault("entrypoints.transmission", "transmission")
	v.SetDefault("entrypoints.sabnzbd", "sabnzbd")
	v.SetDefault("entrypoints.qbittorrent", "qbittorrent")
	v.SetDefault("entrypoints.help", "help")

	v.SetDefault("radarr.search", true)
	v.SetDefault("radarr.minimumAvailability", "announced")
	v.SetDefault("sonarr.search", true)
	v.SetDefault("sonarr.seasonFolder", true)
	v.SetDefault("lidarr.search", true)
}

// Validate returns the missing required keys and the keys whose value
// is outside the allowed set. Both lists empty means the config is
// usable.
func (c *Config) Validate() (missing []string, wrong []string) {
	if c.TelegramToken == "" {
		missing = append(missing, "telegram.token")
	}
	if c.TelegramPassword == "" {
		missing = append(missing, "telegram.password")
	}
	if len(c.Radarr.Instances)+len(c.Sonarr.Instances)+len(c.Lidarr.Instances) == 0 {
		missing = append(missing, "radarr.instances")
	}

	for service, arr := range map[string]Arr{
		"radarr": c.Radarr, "sonarr": c.Sonarr, "lidarr": c.Lidarr,
	} {
		for i, inst := range arr.Instances {
			if inst.Server.Addr == "" {
				missing = append(missing, fmt.Sprintf("%s.instances[%d].server.addr", service, i))
			}
			if inst.APIKey == "" {
				missing = append(missing, fmt.Sprintf("%s.instances[%d].apikey", service, i))
			}
		}
	}

	if !slices.Contains(locale.SupportedLanguages, c.Language) {
		wrong = append(wrong, "language")
	}

	slices.Sort(missing)
	return missing, wrong
}
