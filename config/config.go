// Package config loads and validates phormium configuration files.
package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem configuration and .env files are read from
var AppFs = afero.NewOsFs()

// ErrConfiguration is returned for missing, malformed or invalid configuration
var ErrConfiguration = errors.New("configuration error")

// EnvPrefix prefixes environment variables overriding configuration keys
const EnvPrefix = "PHORMIUM"

// Config holds the application configuration
type Config struct {
	Debug     bool                `mapstructure:"debug"`
	Databases map[string]Database `mapstructure:"databases"`
}

// Database is a named database connection entry
type Database struct {
	DSN        string                 `mapstructure:"dsn"`
	Driver     string                 `mapstructure:"driver"`
	Username   string                 `mapstructure:"username"`
	Password   string                 `mapstructure:"password"`
	Attributes map[string]interface{} `mapstructure:"attributes"`
}

// Masked returns a copy of the entry with the password hidden, including
// one embedded in a URL style DSN.
func (d Database) Masked() Database {
	if d.Password != "" {
		d.Password = "****"
	}
	if u, err := url.Parse(d.DSN); err == nil && u.User != nil {
		if password, ok := u.User.Password(); ok && password != "" {
			d.DSN = strings.Replace(d.DSN, ":"+password+"@", ":****@", 1)
		}
	}
	return d
}

// Names returns the configured database names in sorted order
func (c *Config) Names() []string {
	return slices.Sorted(maps.Keys(c.Databases))
}

// Load reads the configuration file at path (YAML or JSON, chosen by
// extension), applies .env files and PHORMIUM_ environment overrides and
// post-processes the result.
func Load(path string) (*Config, error) {
	v, err := read(path)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadDefault looks for phormium.yaml, phormium.yml or phormium.json in the
// working directory, the home directory and ~/.config/phormium.
func LoadDefault() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	dirs := []string{".", home, filepath.Join(home, ".config", "phormium")}
	for _, dir := range dirs {
		for _, name := range []string{"phormium.yaml", "phormium.yml", "phormium.json"} {
			path := filepath.Join(dir, name)
			if _, err := AppFs.Stat(path); err == nil {
				return Load(path)
			}
		}
	}

	return nil, fmt.Errorf("%w: no configuration file found in %s", ErrConfiguration, strings.Join(dirs, ", "))
}

// Watch loads the configuration at path and calls onChange with the
// reloaded configuration every time the file changes.
func Watch(path string, onChange func(*Config, error)) (*Config, error) {
	v, err := read(path)
	if err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		onChange(decode(v))
	})
	v.WatchConfig()

	return cfg, nil
}

func read(path string) (*viper.Viper, error) {
	if _, err := AppFs.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: config file not found at %q", ErrConfiguration, path)
	}

	loadDotEnv()

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("debug", false)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed parsing configuration file %q: %w", ErrConfiguration, path, err)
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	cfg.Debug = v.GetBool("debug")

	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads .env without overriding existing variables, then
// .env.local which takes priority.
func loadDotEnv() {
	for _, file := range []struct {
		name     string
		override bool
	}{
		{".env", false},
		{".env.local", true},
	} {
		f, err := AppFs.Open(file.name)
		if err != nil {
			continue
		}
		env, err := godotenv.Parse(f)
		f.Close()
		if err != nil {
			// Don't fail if a .env file can't be parsed
			continue
		}

		for key, value := range env {
			if _, exists := os.LookupEnv(key); exists && !file.override {
				continue
			}
			_ = os.Setenv(key, value)
		}
	}
}
