package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultAPIURL  = "http://localhost:5000/api"
	DefaultWebPort = 3000

	envPrefix = "KAIRO_"
)

type Config struct {
	APIURL            string        `koanf:"api_url"`
	DBPath            string        `koanf:"db_path"`
	WebEnabled        bool          `koanf:"web_enabled"`
	WebPort           int           `koanf:"web_port"`
	LogPath           string        `koanf:"log_path"`
	LogLevel          string        `koanf:"log_level"`
	RefreshInterval   time.Duration `koanf:"refresh_interval"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

func Default() Config {
	return Config{
		APIURL:            DefaultAPIURL,
		WebPort:           DefaultWebPort,
		LogLevel:          "info",
		RefreshInterval:   time.Minute,
		RequestsPerSecond: 10,
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "kairo", "config.yaml"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads the YAML file at path (missing is fine) and applies KAIRO_* environment
// overrides. A .env file in the working directory is loaded into the environment first.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	if err == nil {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	// KAIRO_API_URL -> api_url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := yaml.Parser().Marshal(map[string]any{
		"api_url":             cfg.APIURL,
		"db_path":             cfg.DBPath,
		"web_enabled":         cfg.WebEnabled,
		"web_port":            cfg.WebPort,
		"log_path":            cfg.LogPath,
		"log_level":           cfg.LogLevel,
		"refresh_interval":    cfg.RefreshInterval.String(),
		"request_timeout":     cfg.RequestTimeout.String(),
		"requests_per_second": cfg.RequestsPerSecond,
	})
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
