// Package config resolves server configuration from flags, environment
// variables, and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid marks a resolved configuration that fails validation.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the fully resolved server configuration.
type Config struct {
	Address          string
	MetricsAddress   string
	MaxClients       int
	MazeTemplatePath string
	LogLevel         string
	ShutdownTimeout  time.Duration
}

const envPrefix = "MAZEWARS"

func defaults() Config {
	return Config{
		Address:         ":8888",
		MetricsAddress:  ":9090",
		MaxClients:      1024,
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds a Config from args (typically os.Args[1:]), layering flags
// over environment variables (MAZEWARS_*) over an optional --config file,
// over the built-in defaults.
func Load(args []string) (Config, error) {
	d := defaults()

	// A first, lightweight pass just to find --config before the real
	// flag set is built, so a config file can supply flag defaults.
	preFS := flag.NewFlagSet("mazewars-server-preparse", flag.ContinueOnError)
	preFS.SetOutput(nil)
	configFile := preFS.String("config", "", "Optional YAML config file")
	for _, name := range []string{"address", "metrics-address", "max-clients", "maze-template", "log-level", "shutdown-timeout"} {
		preFS.String(name, "", "")
	}
	_ = preFS.Parse(args)

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("address", d.Address)
	v.SetDefault("metrics-address", d.MetricsAddress)
	v.SetDefault("max-clients", d.MaxClients)
	v.SetDefault("maze-template", "")
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("shutdown-timeout", d.ShutdownTimeout)

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", *configFile, err)
		}
	}

	fs := flag.NewFlagSet("mazewars-server", flag.ContinueOnError)
	address := fs.String("address", v.GetString("address"), "TCP address to listen on")
	metricsAddress := fs.String("metrics-address", v.GetString("metrics-address"), "Address to serve Prometheus metrics on")
	maxClients := fs.Int("max-clients", v.GetInt("max-clients"), "Maximum number of simultaneous connections")
	mazeTemplate := fs.String("maze-template", v.GetString("maze-template"), "Path to a maze template file (default: built-in template)")
	logLevel := fs.String("log-level", v.GetString("log-level"), "Logging level (debug, info, warn, error)")
	shutdownTimeout := fs.Duration("shutdown-timeout", v.GetDuration("shutdown-timeout"), "Maximum time to wait for connections to drain on shutdown")
	fs.String("config", *configFile, "Optional YAML config file")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	cfg := Config{
		Address:          *address,
		MetricsAddress:   *metricsAddress,
		MaxClients:       *maxClients,
		MazeTemplatePath: *mazeTemplate,
		LogLevel:         *logLevel,
		ShutdownTimeout:  *shutdownTimeout,
	}

	if cfg.Address == "" {
		return Config{}, fmt.Errorf("%w: address must not be empty", ErrInvalid)
	}
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return Config{}, fmt.Errorf("%w: address %q: %v", ErrInvalid, cfg.Address, err)
	}
	if cfg.MaxClients <= 0 {
		return Config{}, fmt.Errorf("%w: max-clients must be positive", ErrInvalid)
	}

	return cfg, nil
}
