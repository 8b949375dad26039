// Package config provides configuration management for faceaudit.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/faceaudit/faceaudit/internal/models"
)

// Config is the full client configuration.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\faceaudit\config
//   - Unix: ~/.config/faceaudit/config
//
// INI format:
//
//	[server]
//	url = http://localhost:5000
//
//	[detection]
//	download_timeout = 20
//	mediapipe_thresh = 0.80
//	dnn_thresh = 0.70
//	num_threads = 6
//	batch_size = 100
//	save_images = true
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 8080
//	user =
//	password =
//	no_proxy =
//
//	[notifications]
//	enabled = true
//	show_job_complete = true
//	show_job_failed = true
type Config struct {
	// ServerURL is the base URL of the face-detection audit server.
	ServerURL string

	// Detection holds the defaults sent with each upload. The server is
	// authoritative on range checks; these are passed through unvalidated.
	Detection DetectionConfig

	// Proxy configures how the HTTP client reaches the server.
	Proxy ProxyConfig

	// Notifications configures desktop notifications on terminal states.
	Notifications NotificationConfig
}

// DetectionConfig mirrors the server's processing knobs.
type DetectionConfig struct {
	DownloadTimeout int
	MediapipeThresh float64
	DNNThresh       float64
	NumThreads      int
	BatchSize       int
	SaveImages      bool
}

// UploadConfig converts the detection defaults into the submission bundle.
func (d DetectionConfig) UploadConfig() models.UploadConfig {
	return models.UploadConfig{
		DownloadTimeout: d.DownloadTimeout,
		MediapipeThresh: d.MediapipeThresh,
		DNNThresh:       d.DNNThresh,
		NumThreads:      d.NumThreads,
		BatchSize:       d.BatchSize,
		SaveImages:      d.SaveImages,
	}
}

// ProxyConfig selects the proxy mode for outbound requests.
// Modes: "no-proxy" (default), "system", "basic", "ntlm".
type ProxyConfig struct {
	Mode     string
	Host     string
	Port     int
	User     string
	Password string
	NoProxy  string
}

// NotificationConfig contains settings for desktop notifications.
type NotificationConfig struct {
	Enabled         bool
	ShowJobComplete bool
	ShowJobFailed   bool
}

// Validation errors
var (
	ErrMissingServerURL = errors.New("server url is required")
	ErrInvalidProxyMode = errors.New("proxy mode must be one of: no-proxy, system, basic, ntlm")
)

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

func configDir() (string, error) {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		return filepath.Join(userProfile, ".config", "faceaudit"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "faceaudit"), nil
}

// New creates a Config with default values matching the server's own
// processing constants.
func New() *Config {
	return &Config{
		ServerURL: "http://localhost:5000",
		Detection: DetectionConfig{
			DownloadTimeout: 20,
			MediapipeThresh: 0.80,
			DNNThresh:       0.70,
			NumThreads:      6,
			BatchSize:       100,
			SaveImages:      true,
		},
		Proxy: ProxyConfig{
			Mode: "no-proxy",
		},
		Notifications: NotificationConfig{
			Enabled:         true,
			ShowJobComplete: true,
			ShowJobFailed:   true,
		},
	}
}

// Load reads configuration from an INI file, then applies .env and
// FACEAUDIT_* environment overrides. A missing file yields defaults and no
// error; an unreadable or malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			// Cannot determine a path; env overrides still apply.
			applyEnv(cfg)
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); err == nil {
		iniFile, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}

		serverSection := iniFile.Section("server")
		cfg.ServerURL = serverSection.Key("url").MustString(cfg.ServerURL)

		detSection := iniFile.Section("detection")
		cfg.Detection.DownloadTimeout = detSection.Key("download_timeout").MustInt(cfg.Detection.DownloadTimeout)
		cfg.Detection.MediapipeThresh = detSection.Key("mediapipe_thresh").MustFloat64(cfg.Detection.MediapipeThresh)
		cfg.Detection.DNNThresh = detSection.Key("dnn_thresh").MustFloat64(cfg.Detection.DNNThresh)
		cfg.Detection.NumThreads = detSection.Key("num_threads").MustInt(cfg.Detection.NumThreads)
		cfg.Detection.BatchSize = detSection.Key("batch_size").MustInt(cfg.Detection.BatchSize)
		cfg.Detection.SaveImages = detSection.Key("save_images").MustBool(cfg.Detection.SaveImages)

		proxySection := iniFile.Section("proxy")
		cfg.Proxy.Mode = proxySection.Key("mode").MustString(cfg.Proxy.Mode)
		cfg.Proxy.Host = proxySection.Key("host").String()
		cfg.Proxy.Port = proxySection.Key("port").MustInt(cfg.Proxy.Port)
		cfg.Proxy.User = proxySection.Key("user").String()
		cfg.Proxy.Password = proxySection.Key("password").String()
		cfg.Proxy.NoProxy = proxySection.Key("no_proxy").String()

		notifySection := iniFile.Section("notifications")
		cfg.Notifications.Enabled = notifySection.Key("enabled").MustBool(true)
		cfg.Notifications.ShowJobComplete = notifySection.Key("show_job_complete").MustBool(true)
		cfg.Notifications.ShowJobFailed = notifySection.Key("show_job_failed").MustBool(true)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv loads a .env file when present and applies FACEAUDIT_* overrides.
func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("FACEAUDIT_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("FACEAUDIT_PROXY_MODE"); v != "" {
		cfg.Proxy.Mode = v
	}
	if v := os.Getenv("FACEAUDIT_NOTIFICATIONS"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Notifications.Enabled = enabled
		}
	}
}

// Save writes configuration to an INI file atomically, creating parent
// directories as needed. Proxy credentials may be stored, so the file is
// written with user-only permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	serverSection, err := iniFile.NewSection("server")
	if err != nil {
		return fmt.Errorf("failed to create server section: %w", err)
	}
	serverSection.Key("url").SetValue(cfg.ServerURL)

	detSection, err := iniFile.NewSection("detection")
	if err != nil {
		return fmt.Errorf("failed to create detection section: %w", err)
	}
	detSection.Key("download_timeout").SetValue(strconv.Itoa(cfg.Detection.DownloadTimeout))
	detSection.Key("mediapipe_thresh").SetValue(strconv.FormatFloat(cfg.Detection.MediapipeThresh, 'f', 2, 64))
	detSection.Key("dnn_thresh").SetValue(strconv.FormatFloat(cfg.Detection.DNNThresh, 'f', 2, 64))
	detSection.Key("num_threads").SetValue(strconv.Itoa(cfg.Detection.NumThreads))
	detSection.Key("batch_size").SetValue(strconv.Itoa(cfg.Detection.BatchSize))
	detSection.Key("save_images").SetValue(strconv.FormatBool(cfg.Detection.SaveImages))

	proxySection, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxySection.Key("mode").SetValue(cfg.Proxy.Mode)
	proxySection.Key("host").SetValue(cfg.Proxy.Host)
	proxySection.Key("port").SetValue(strconv.Itoa(cfg.Proxy.Port))
	proxySection.Key("user").SetValue(cfg.Proxy.User)
	proxySection.Key("password").SetValue(cfg.Proxy.Password)
	proxySection.Key("no_proxy").SetValue(cfg.Proxy.NoProxy)

	notifySection, err := iniFile.NewSection("notifications")
	if err != nil {
		return fmt.Errorf("failed to create notifications section: %w", err)
	}
	notifySection.Key("enabled").SetValue(strconv.FormatBool(cfg.Notifications.Enabled))
	notifySection.Key("show_job_complete").SetValue(strconv.FormatBool(cfg.Notifications.ShowJobComplete))
	notifySection.Key("show_job_failed").SetValue(strconv.FormatBool(cfg.Notifications.ShowJobFailed))

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks the configuration before any server call.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return ErrMissingServerURL
	}
	switch strings.ToLower(cfg.Proxy.Mode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return ErrInvalidProxyMode
	}
	return nil
}
