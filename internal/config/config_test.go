package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.ServerURL != "http://localhost:5000" {
		t.Errorf("ServerURL = %s", cfg.ServerURL)
	}
	if cfg.Detection.DownloadTimeout != 20 {
		t.Errorf("DownloadTimeout = %d", cfg.Detection.DownloadTimeout)
	}
	if cfg.Detection.MediapipeThresh != 0.80 {
		t.Errorf("MediapipeThresh = %f", cfg.Detection.MediapipeThresh)
	}
	if cfg.Detection.DNNThresh != 0.70 {
		t.Errorf("DNNThresh = %f", cfg.Detection.DNNThresh)
	}
	if cfg.Detection.NumThreads != 6 || cfg.Detection.BatchSize != 100 {
		t.Errorf("Threads/batch = %d/%d", cfg.Detection.NumThreads, cfg.Detection.BatchSize)
	}
	if !cfg.Detection.SaveImages {
		t.Error("SaveImages default = false, want true")
	}
	if cfg.Proxy.Mode != "no-proxy" {
		t.Errorf("Proxy mode = %s", cfg.Proxy.Mode)
	}
	if !cfg.Notifications.Enabled {
		t.Error("Notifications default = disabled")
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ServerURL != "http://localhost:5000" {
		t.Errorf("ServerURL = %s, want default", cfg.ServerURL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	content := `[server]
url = http://audit.internal:8000

[detection]
batch_size = 50
save_images = false

[proxy]
mode = basic
host = proxy.internal
port = 3128
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ServerURL != "http://audit.internal:8000" {
		t.Errorf("ServerURL = %s", cfg.ServerURL)
	}
	if cfg.Detection.BatchSize != 50 {
		t.Errorf("BatchSize = %d", cfg.Detection.BatchSize)
	}
	if cfg.Detection.SaveImages {
		t.Error("SaveImages = true, want false")
	}
	// Unset keys keep their defaults.
	if cfg.Detection.NumThreads != 6 {
		t.Errorf("NumThreads = %d, want default 6", cfg.Detection.NumThreads)
	}
	if cfg.Proxy.Mode != "basic" || cfg.Proxy.Host != "proxy.internal" || cfg.Proxy.Port != 3128 {
		t.Errorf("Proxy = %+v", cfg.Proxy)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("[server\nbroken"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for malformed INI")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FACEAUDIT_SERVER_URL", "http://override:9000")
	t.Setenv("FACEAUDIT_NOTIFICATIONS", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "http://override:9000" {
		t.Errorf("ServerURL = %s, env override not applied", cfg.ServerURL)
	}
	if cfg.Notifications.Enabled {
		t.Error("Notifications still enabled despite env override")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")

	cfg := New()
	cfg.ServerURL = "http://audit.internal:8000"
	cfg.Detection.BatchSize = 25

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.ServerURL != cfg.ServerURL {
		t.Errorf("ServerURL = %s", loaded.ServerURL)
	}
	if loaded.Detection.BatchSize != 25 {
		t.Errorf("BatchSize = %d", loaded.Detection.BatchSize)
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := Save(New(), path); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Config permissions = %o, want 600", perm)
	}
}

func TestValidate(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error on defaults: %v", err)
	}

	cfg.ServerURL = "  "
	if err := cfg.Validate(); err != ErrMissingServerURL {
		t.Errorf("Validate() = %v, want ErrMissingServerURL", err)
	}

	cfg = New()
	cfg.Proxy.Mode = "socks5"
	if err := cfg.Validate(); err != ErrInvalidProxyMode {
		t.Errorf("Validate() = %v, want ErrInvalidProxyMode", err)
	}
}

func TestUploadConfigConversion(t *testing.T) {
	d := DetectionConfig{
		DownloadTimeout: 30,
		MediapipeThresh: 0.9,
		DNNThresh:       0.6,
		NumThreads:      4,
		BatchSize:       10,
		SaveImages:      false,
	}
	u := d.UploadConfig()
	if u.DownloadTimeout != 30 || u.MediapipeThresh != 0.9 || u.SaveImages {
		t.Errorf("UploadConfig() = %+v", u)
	}
}
