package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "qrgen"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "QRGEN"
)

// Loader merges defaults, an optional config file, QRGEN_* environment
// variables and bound flags, in increasing priority.
type Loader struct {
	v *viper.Viper
}

// NewLoader wraps v. A nil v gets a fresh instance.
func NewLoader(v *viper.Viper) *Loader {
	if v == nil {
		v = viper.New()
	}
	return &Loader{v: v}
}

// BindPFlag binds a command-line flag to a configuration key.
func (l *Loader) BindPFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("flag for %q is not defined", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads configuration. configFile may be empty to search the default
// locations; a missing file in those locations is not an error.
func (l *Loader) Load(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		l.v.AddConfigPath(filepath.Join(xdg, "qrgen"))
	}
	l.v.AddConfigPath("/etc/qrgen")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

// setDefaults registers every key so AutomaticEnv can resolve it on Unmarshal.
func (l *Loader) setDefaults() {
	d := Default()

	l.v.SetDefault("log.level", d.Log.Level)
	l.v.SetDefault("log.development", d.Log.Development)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	l.v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	l.v.SetDefault("cache.backend", d.Cache.Backend)
	l.v.SetDefault("cache.ttl", d.Cache.TTL)
	l.v.SetDefault("cache.capacity", d.Cache.Capacity)
	l.v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
	l.v.SetDefault("cache.prefix", d.Cache.Prefix)
	l.v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)

	l.v.SetDefault("logo.timeout", d.Logo.Timeout)
	l.v.SetDefault("logo.max_idle_conns", d.Logo.MaxIdleConns)
	l.v.SetDefault("logo.max_idle_conns_per_host", d.Logo.MaxIdleConnsPerHost)
	l.v.SetDefault("logo.max_bytes", d.Logo.MaxBytes)

	l.v.SetDefault("render.workers", d.Render.Workers)
	l.v.SetDefault("render.recovery_level", d.Render.RecoveryLevel)
}
