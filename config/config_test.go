package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 5001 {
		t.Errorf("listen defaults = %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.ShmName != "video_frame" {
		t.Errorf("shm name = %q", cfg.ShmName)
	}
	if cfg.MusicURL != DefaultMusicURL {
		t.Errorf("music url = %q", cfg.MusicURL)
	}
	if cfg.CelebrationSeconds != 60 {
		t.Errorf("celebration = %d", cfg.CelebrationSeconds)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	confDir := filepath.Join(dir, "minicount")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `
host = "192.168.1.10"
port = 8088
music_url = "https://example.com/party"
video_dir = "/var/countdown"
`
	if err := os.WriteFile(filepath.Join(confDir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "192.168.1.10" || cfg.Port != 8088 {
		t.Errorf("listen = %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.MusicURL != "https://example.com/party" {
		t.Errorf("music url = %q", cfg.MusicURL)
	}
	if cfg.VideoDir != "/var/countdown" {
		t.Errorf("video dir = %q", cfg.VideoDir)
	}
	// Keys the file omits keep their defaults.
	if cfg.ShmName != "video_frame" {
		t.Errorf("shm name = %q", cfg.ShmName)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	confDir := filepath.Join(dir, "minicount")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(confDir, "config.toml"), []byte(`port = 8088`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MINICOUNT_PORT", "9000")
	t.Setenv("MINICOUNT_DAEMON_URL", "http://10.0.0.5:8080")
	t.Setenv("MINICOUNT_SHM_NAME", "cam0")
	t.Setenv("MINICOUNT_CELEBRATION_SECONDS", "90")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9000 {
		t.Errorf("port = %d, want env override", cfg.Port)
	}
	if cfg.DaemonURL != "http://10.0.0.5:8080" {
		t.Errorf("daemon url = %q", cfg.DaemonURL)
	}
	if cfg.ShmName != "cam0" {
		t.Errorf("shm name = %q, want env override", cfg.ShmName)
	}
	if cfg.CelebrationSeconds != 90 {
		t.Errorf("celebration = %d, want env override", cfg.CelebrationSeconds)
	}
}

func TestBadEnvPortIgnored(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MINICOUNT_PORT", "not-a-port")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 5001 {
		t.Errorf("port = %d, want default", cfg.Port)
	}
}
