package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/reqchart/internal/chart"
	"github.com/tinytelemetry/reqchart/internal/model"
	"github.com/tinytelemetry/reqchart/internal/socketrpc"
)

// cliConfig holds only TUI-relevant configuration. It reads the same file
// as the service so chart settings stay in one place.
type cliConfig struct {
	UpdateInterval time.Duration  `mapstructure:"update-interval"`
	SocketPath     string         `mapstructure:"socket-path"`
	CounterLimit   int            `mapstructure:"counter-limit"`
	ResizeDebounce time.Duration  `mapstructure:"resize-debounce"`
	Chart          chart.Settings `mapstructure:",squash"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("REQCHART")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("update-interval", model.DefaultUpdateInterval)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("counter-limit", model.DefaultCounterLimit)
	v.SetDefault("resize-debounce", model.DefaultResizeDebounce)
	d := chart.DefaultSettings()
	v.SetDefault("value-format", d.ValueFormat)
	v.SetDefault("date-format", d.DateFormat)
	v.SetDefault("time-zone", d.TimeZone)
	v.SetDefault("tick-count", d.TickCount)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "reqchart", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// chartOptions keeps the formats and zone from the file. Margins and height
// are cell-based in the terminal, so the SVG geometry is not carried over.
func (c cliConfig) chartOptions() (chart.Options, error) {
	s := chart.DefaultSettings()
	s.ValueFormat = c.Chart.ValueFormat
	s.DateFormat = c.Chart.DateFormat
	s.TimeZone = c.Chart.TimeZone
	s.TickCount = c.Chart.TickCount
	return s.Options()
}
