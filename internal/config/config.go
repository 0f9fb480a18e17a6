// Package config resolves runtime settings from defaults, an optional
// config file, KVS_* environment variables and command-line flags, in
// increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/0xRadioAc7iv/go-kvlog/core"
)

const (
	DefaultDir              = "."
	DefaultHost             = "127.0.0.1"
	DefaultPort             = 6969
	DefaultCompactThreshold = core.DefaultCompactThreshold

	EnvPrefix      = "KVS"
	ConfigFileName = "kvs" // looked up as kvs.yaml, kvs.toml, kvs.json ... in the working directory
)

// Keys shared by viper, flags and environment variables.
const (
	KeyDir              = "dir"
	KeyHost             = "host"
	KeyPort             = "port"
	KeyVerbose          = "verbose"
	KeyCompactThreshold = "compact-threshold"
)

type Config struct {
	Dir              string
	Host             string
	Port             int
	Verbose          bool
	CompactThreshold int64
}

func Default() *Config {
	return &Config{
		Dir:              DefaultDir,
		Host:             DefaultHost,
		Port:             DefaultPort,
		CompactThreshold: DefaultCompactThreshold,
	}
}

// New returns a viper instance with defaults and environment lookup set up.
// KVS_COMPACT_THRESHOLD maps to "compact-threshold".
func New() *viper.Viper {
	v := viper.New()

	d := Default()
	v.SetDefault(KeyDir, d.Dir)
	v.SetDefault(KeyHost, d.Host)
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyVerbose, d.Verbose)
	v.SetDefault(KeyCompactThreshold, d.CompactThreshold)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file (path, or kvs.* in the working directory when
// path is empty), binds flags and returns the resolved Config. A missing
// default config file is not an error; a missing explicit one is.
func Load(v *viper.Viper, path string, flags *pflag.FlagSet) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	cfg := &Config{
		Dir:              v.GetString(KeyDir),
		Host:             v.GetString(KeyHost),
		Port:             v.GetInt(KeyPort),
		Verbose:          v.GetBool(KeyVerbose),
		CompactThreshold: v.GetInt64(KeyCompactThreshold),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("config: dir must not be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.CompactThreshold < 0 {
		return fmt.Errorf("config: compact-threshold %d must not be negative", c.CompactThreshold)
	}
	return nil
}

// Addr returns host:port for the TCP front end.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
