package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/go-dao/internal/debug"
)

// AppFs is the filesystem configuration and .env files are read from.
var AppFs = afero.NewOsFs()

var lookupEnv = os.LookupEnv

const (
	configName = ".daocore"
	envPrefix  = "DAOCORE"
)

// Config holds the application configuration
type Config struct {
	Provider    string
	DatabaseURL string
	Debug       bool
	Goroutines  int
	Iterations  int
}

// Loader reads Config from a config file, the environment and .env files.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader. An empty file searches the default locations
// for .daocore.yaml.
func NewLoader(file string) (*Loader, error) {
	v := viper.New()
	v.SetFs(AppFs)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "daocore"))
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("provider", "sqlite")
	v.SetDefault("database_url", "file:daocore.db?cache=shared")
	v.SetDefault("debug", false)
	v.SetDefault("goroutines", 8)
	v.SetDefault("iterations", 1000)

	return &Loader{v: v}, nil
}

// Viper exposes the underlying viper instance so flags can be bound to it.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the config file (if any) and returns the merged configuration.
// DATABASE_URL from the environment or .env / .env.local wins over the file.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	env, err := loadDotEnv(".env", ".env.local")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Provider:    l.v.GetString("provider"),
		DatabaseURL: l.v.GetString("database_url"),
		Debug:       l.v.GetBool("debug"),
		Goroutines:  l.v.GetInt("goroutines"),
		Iterations:  l.v.GetInt("iterations"),
	}
	if url, ok := env["DATABASE_URL"]; ok && url != "" {
		cfg.DatabaseURL = url
	}
	if url, ok := lookupEnv("DATABASE_URL"); ok && url != "" {
		cfg.DatabaseURL = url
	}

	if cfg.Goroutines < 1 {
		return nil, fmt.Errorf("goroutines must be positive, got %d", cfg.Goroutines)
	}
	if cfg.Iterations < 1 {
		return nil, fmt.Errorf("iterations must be positive, got %d", cfg.Iterations)
	}
	return cfg, nil
}

// Watch calls fn with the reloaded configuration whenever the config file
// changes. Reload errors are logged and skipped.
func (l *Loader) Watch(fn func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		debug.Info("config changed", "file", e.Name, "op", e.Op.String())
		cfg, err := l.Load()
		if err != nil {
			debug.Error("failed to reload config", "error", err)
			return
		}
		fn(cfg)
	})
	l.v.WatchConfig()
}

// ConfigFile returns the config file in use, or "" when none was found.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// loadDotEnv parses the given files in order; later files override earlier ones.
func loadDotEnv(files ...string) (map[string]string, error) {
	env := make(map[string]string)
	for _, name := range files {
		data, err := afero.ReadFile(AppFs, name)
		if err != nil {
			continue
		}
		values, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		for k, v := range values {
			env[k] = v
		}
	}
	return env, nil
}
