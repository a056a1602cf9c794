package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadFromFile reads a YAML, JSON or TOML file, applies STATUSRELAY_* environment
// overrides on top and validates the result.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return decode(v)
}

// LoadDefaults returns the defaults with environment overrides applied.
func LoadDefaults() (*Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// setDefaults registers every key so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("music.enabled", d.Music.Enabled)
	v.SetDefault("music.only-on-host", d.Music.OnlyOnHost)
	v.SetDefault("music.host", d.Music.Host)
	v.SetDefault("music.command", d.Music.Command)
	v.SetDefault("music.index", d.Music.Index)

	v.SetDefault("network.command", d.Network.Command)
	v.SetDefault("network.interface", d.Network.Interface)
	v.SetDefault("network.proc-path", d.Network.ProcPath)
	v.SetDefault("network.index", d.Network.Index)

	v.SetDefault("governor.enabled", d.Governor.Enabled)
	v.SetDefault("governor.path", d.Governor.Path)
	v.SetDefault("governor.index", d.Governor.Index)

	v.SetDefault("shell", d.Shell)
	v.SetDefault("command-timeout", d.CommandTimeout)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.enable-file", d.Logging.EnableFile)
	v.SetDefault("logging.enable-console", d.Logging.EnableConsole)
	v.SetDefault("logging.filename", d.Logging.Filename)
	v.SetDefault("logging.log-dir", d.Logging.LogDir)
	v.SetDefault("logging.max-size", d.Logging.MaxSize)
	v.SetDefault("logging.max-backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max-age", d.Logging.MaxAge)
	v.SetDefault("logging.compress", d.Logging.Compress)
	v.SetDefault("logging.json-format", d.Logging.JSONFormat)

	v.SetDefault("logging.trace.enabled", d.Logging.Trace.Enabled)
	v.SetDefault("logging.trace.filename", d.Logging.Trace.Filename)
	v.SetDefault("logging.trace.log-input", d.Logging.Trace.LogInput)
	v.SetDefault("logging.trace.log-output", d.Logging.Trace.LogOutput)
	v.SetDefault("logging.trace.max-payload-size", d.Logging.Trace.MaxPayloadSize)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
