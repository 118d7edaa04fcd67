// Package config loads defaults for the countdown process from an optional
// TOML file with environment overrides. Command-line flags take precedence
// over everything here.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DefaultMusicURL is the classic New Year's song, played at zero unless the
// user picks something else.
const DefaultMusicURL = "https://www.youtube.com/watch?v=Al7ONqrdscY&t=3s"

type Config struct {
	Host               string
	Port               int
	DaemonURL          string
	ShmName            string
	MusicURL           string
	CelebrationSeconds int
	VideoDir           string
}

type fileConfig struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	DaemonURL          string `toml:"daemon_url"`
	ShmName            string `toml:"shm_name"`
	MusicURL           string `toml:"music_url"`
	CelebrationSeconds int    `toml:"celebration_seconds"`
	VideoDir           string `toml:"video_dir"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:               "0.0.0.0",
		Port:               5001,
		ShmName:            "video_frame",
		MusicURL:           DefaultMusicURL,
		CelebrationSeconds: 60,
		VideoDir:           ".",
	}

	if path := configFilePath(); path != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err == nil {
			if fc.Host != "" {
				cfg.Host = fc.Host
			}
			if fc.Port != 0 {
				cfg.Port = fc.Port
			}
			if fc.DaemonURL != "" {
				cfg.DaemonURL = fc.DaemonURL
			}
			if fc.ShmName != "" {
				cfg.ShmName = fc.ShmName
			}
			if fc.MusicURL != "" {
				cfg.MusicURL = fc.MusicURL
			}
			if fc.CelebrationSeconds != 0 {
				cfg.CelebrationSeconds = fc.CelebrationSeconds
			}
			if fc.VideoDir != "" {
				cfg.VideoDir = fc.VideoDir
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MINICOUNT_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("MINICOUNT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("MINICOUNT_DAEMON_URL"); v != "" {
		cfg.DaemonURL = v
	}
	if v := os.Getenv("MINICOUNT_SHM_NAME"); v != "" {
		cfg.ShmName = v
	}
	if v := os.Getenv("MINICOUNT_CELEBRATION_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.CelebrationSeconds = secs
		}
	}
	if v := os.Getenv("MINICOUNT_MUSIC_URL"); v != "" {
		cfg.MusicURL = v
	}
	if v := os.Getenv("MINICOUNT_VIDEO_DIR"); v != "" {
		cfg.VideoDir = v
	}
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "minicount")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "minicount")
	} else {
		return ""
	}
	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
