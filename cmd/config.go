package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bookman/internal/catalog"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configDirName  = ".bookman"
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "BOOKMAN"

	cfgKeyBaseURL  = "base_url"
	cfgKeyTimeout  = "timeout"
	cfgKeyListen   = "listen"
	cfgKeyDB       = "db"
	cfgKeyLogFile  = "log_file"
	cfgKeyRedisURL = "redis_url"

	defaultListen = ":8080"
)

// Config is the resolved configuration for one invocation.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Listen   string
	DBPath   string
	LogFile  string
	RedisURL string

	// Dir holds config.yaml and the other per-user files.
	Dir string
	// File is the config file that was read, empty when none exists.
	File string
}

// configDir returns ~/.bookman.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// newViper sets defaults and the environment mapping. Flags are bound by the caller.
func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetDefault(cfgKeyBaseURL, catalog.DefaultBaseURL)
	v.SetDefault(cfgKeyTimeout, catalog.DefaultTimeout)
	v.SetDefault(cfgKeyListen, defaultListen)
	v.SetDefault(cfgKeyDB, filepath.Join(dir, "books.db"))
	v.SetDefault(cfgKeyLogFile, "")
	v.SetDefault(cfgKeyRedisURL, "")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// REDIS_URL is what hosted Redis add-ons export.
	_ = v.BindEnv(cfgKeyRedisURL, envPrefix+"_REDIS_URL", "REDIS_URL")
	return v
}

// loadConfig resolves defaults, config file, environment and flags, in rising precedence.
// A missing config file is not an error.
func loadConfig(v *viper.Viper, configFile, dir string, flags *pflag.FlagSet) (Config, error) {
	for key, name := range map[string]string{
		cfgKeyBaseURL: "base-url",
		cfgKeyTimeout: "timeout",
		cfgKeyLogFile: "log-file",
		cfgKeyListen:  "listen",
		cfgKeyDB:      "db",
	} {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case configFile == "" && errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		BaseURL:  strings.TrimSpace(v.GetString(cfgKeyBaseURL)),
		Timeout:  v.GetDuration(cfgKeyTimeout),
		Listen:   v.GetString(cfgKeyListen),
		DBPath:   v.GetString(cfgKeyDB),
		LogFile:  v.GetString(cfgKeyLogFile),
		RedisURL: v.GetString(cfgKeyRedisURL),
		Dir:      dir,
		File:     v.ConfigFileUsed(),
	}
	if cfg.File != "" {
		if _, err := os.Stat(cfg.File); err != nil {
			cfg.File = ""
		}
	}
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("timeout must be positive, got %s", v.GetString(cfgKeyTimeout))
	}
	return cfg, nil
}

// baseURLOverridden reports whether the endpoint came from a flag or the environment.
func baseURLOverridden(flags *pflag.FlagSet) bool {
	if f := flags.Lookup("base-url"); f != nil && f.Changed {
		return true
	}
	_, ok := os.LookupEnv(envPrefix + "_BASE_URL")
	return ok
}

// writeBaseURL stores the endpoint in dir/config.yaml.
func writeBaseURL(dir, baseURL string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(dir, configFileExt)

	v := viper.New()
	v.SetConfigFile(path)
	v.Set(cfgKeyBaseURL, baseURL)
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

// loadDotEnv exports KEY=value lines from path. Variables that are already set win.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, set := os.LookupEnv(name); !set {
			_ = os.Setenv(name, value)
		}
	}
}
