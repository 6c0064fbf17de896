// Package config resolves the tool's settings from flags, environment
// variables, and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds everything the inspector needs to reach and read a session.
type Config struct {
	Addr      string `mapstructure:"addr"`      // headless debugger address
	Binary    string `mapstructure:"binary"`    // target binary override
	Goroutine int64  `mapstructure:"goroutine"` // goroutine ID, -1 selects the session's
	Depth     int    `mapstructure:"depth"`     // maximum frames walked
	NoColor   bool   `mapstructure:"no-color"`
	Verbose   bool   `mapstructure:"verbose"`
}

// Load parses args (the command line without the program name) and resolves
// the configuration. The remaining positional arguments are returned for
// command dispatch.
func Load(args []string) (*Config, []string, error) {
	v := viper.New()
	v.SetEnvPrefix("STACK_INSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := pflag.NewFlagSet("stack-inspector", pflag.ContinueOnError)
	fs.String("addr", "127.0.0.1:2345", "Address of the headless debugger")
	fs.String("binary", "", "Path to the target binary (default: resolved from the target PID)")
	fs.Int64("goroutine", -1, "Goroutine to inspect (default: the session's selected goroutine)")
	fs.Int("depth", 4096, "Maximum number of frames to walk")
	fs.Bool("no-color", false, "Disable colored output")
	fs.Bool("verbose", false, "Enable debug logging")
	fs.String("config", "", "Path to a config file")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, nil, fmt.Errorf("bind flags: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("stack-inspector")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/stack-inspector")
		if err := v.ReadInConfig(); err != nil {
			if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
				return nil, nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, fs.Args(), nil
}
