package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/reqchart/internal/chart"
	"github.com/tinytelemetry/reqchart/internal/model"
	"github.com/tinytelemetry/reqchart/internal/resize"
	"github.com/tinytelemetry/reqchart/internal/socketrpc"
)

const (
	defaultBindHost        = "127.0.0.1"
	defaultAPIPort         = 3000
	defaultQueryTimeout    = 30 * time.Second
	defaultVaultTimeout    = 30 * time.Second
	defaultRetentionMonths = 24 // 0 = disabled
	defaultBackupInterval  = 24 * time.Hour
	defaultBackupKeepLast  = 14
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Host         string        `mapstructure:"host"`
	APIEnabled   bool          `mapstructure:"api-enabled"`
	APIPort      int           `mapstructure:"api-port"`
	APIAddr      string        `mapstructure:"api-addr"`
	DBPath       string        `mapstructure:"db-path"`
	QueryTimeout time.Duration `mapstructure:"query-timeout"`
	SocketPath   string        `mapstructure:"socket-path"`

	RetentionMonths int           `mapstructure:"retention-months"`
	CounterLimit    int           `mapstructure:"counter-limit"`
	SyncInterval    time.Duration `mapstructure:"sync-interval"`

	VaultAddress   string        `mapstructure:"vault-address"`
	VaultToken     string        `mapstructure:"vault-token"`
	VaultNamespace string        `mapstructure:"vault-namespace"`
	VaultTimeout   time.Duration `mapstructure:"vault-timeout"`

	ResizeDebounce time.Duration `mapstructure:"resize-debounce"`
	ResizePolicy   string        `mapstructure:"resize-policy"`

	BackupEnabled        bool          `mapstructure:"backup-enabled"`
	BackupInterval       time.Duration `mapstructure:"backup-interval"`
	BackupLocalDir       string        `mapstructure:"backup-local-dir"`
	BackupKeepLast       int           `mapstructure:"backup-keep-last"`
	BackupFormat         string        `mapstructure:"backup-format"`
	BackupBucketURL      string        `mapstructure:"backup-bucket-url"`
	BackupS3Endpoint     string        `mapstructure:"backup-s3-endpoint"`
	BackupS3Region       string        `mapstructure:"backup-s3-region"`
	BackupS3AccessKey    string        `mapstructure:"backup-s3-access-key"`
	BackupS3SecretKey    string        `mapstructure:"backup-s3-secret-key"`
	BackupS3SessionToken string        `mapstructure:"backup-s3-session-token"`
	BackupS3UseSSL       bool          `mapstructure:"backup-s3-use-ssl"`

	Chart chart.Settings `mapstructure:",squash"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultDBPath := filepath.Join(home, ".local", "share", "reqchart", "reqchart.duckdb")
	defaultBackupDir := filepath.Join(home, ".local", "share", "reqchart", "backups")

	v := viper.New()
	v.SetEnvPrefix("REQCHART")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultBindHost)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("retention-months", defaultRetentionMonths)
	v.SetDefault("counter-limit", model.DefaultCounterLimit)
	v.SetDefault("sync-interval", model.DefaultSyncInterval)
	v.SetDefault("vault-address", "")
	v.SetDefault("vault-token", "")
	v.SetDefault("vault-namespace", "")
	v.SetDefault("vault-timeout", defaultVaultTimeout)
	v.SetDefault("resize-debounce", model.DefaultResizeDebounce)
	v.SetDefault("resize-policy", "drop")
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-interval", defaultBackupInterval)
	v.SetDefault("backup-local-dir", defaultBackupDir)
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)
	v.SetDefault("backup-format", "parquet")
	v.SetDefault("backup-bucket-url", "")
	v.SetDefault("backup-s3-endpoint", "")
	v.SetDefault("backup-s3-region", "us-east-1")
	v.SetDefault("backup-s3-access-key", "")
	v.SetDefault("backup-s3-secret-key", "")
	v.SetDefault("backup-s3-session-token", "")
	v.SetDefault("backup-s3-use-ssl", true)
	setChartDefaults(v)

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
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if _, err := cfg.resizePolicy(); err != nil {
		return cfg, err
	}
	if _, err := cfg.Chart.Options(); err != nil {
		return cfg, err
	}

	if cfg.BackupEnabled {
		if cfg.BackupInterval <= 0 {
			return cfg, fmt.Errorf("invalid backup-interval: %s", cfg.BackupInterval)
		}
		if cfg.BackupKeepLast < 0 {
			return cfg, fmt.Errorf("invalid backup-keep-last: %d", cfg.BackupKeepLast)
		}
		switch strings.ToLower(cfg.BackupFormat) {
		case "parquet", "json":
		default:
			return cfg, fmt.Errorf("invalid backup-format %q (want parquet or json)", cfg.BackupFormat)
		}
	}

	// Expand ~ in paths
	cfg.DBPath = expandHome(home, cfg.DBPath)
	cfg.BackupLocalDir = expandHome(home, cfg.BackupLocalDir)
	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.APIPort))
	}
	// VAULT_ADDR / VAULT_TOKEN are the conventional names; honour them last.
	if cfg.VaultAddress == "" {
		cfg.VaultAddress = os.Getenv("VAULT_ADDR")
	}
	if cfg.VaultToken == "" {
		cfg.VaultToken = os.Getenv("VAULT_TOKEN")
	}

	return cfg, nil
}

func expandHome(home, p string) string {
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

func setChartDefaults(v *viper.Viper) {
	d := chart.DefaultSettings()
	v.SetDefault("margin-top", d.MarginTop)
	v.SetDefault("margin-right", d.MarginRight)
	v.SetDefault("margin-bottom", d.MarginBottom)
	v.SetDefault("margin-left", d.MarginLeft)
	v.SetDefault("chart-height", d.Height)
	v.SetDefault("tick-count", d.TickCount)
	v.SetDefault("value-format", d.ValueFormat)
	v.SetDefault("date-format", d.DateFormat)
	v.SetDefault("time-zone", d.TimeZone)
}

func (c appConfig) resizePolicy() (resize.Policy, error) {
	switch strings.ToLower(c.ResizePolicy) {
	case "", "drop":
		return resize.DropWhilePending, nil
	case "restart":
		return resize.Restart, nil
	default:
		return 0, fmt.Errorf("invalid resize-policy %q (want drop or restart)", c.ResizePolicy)
	}
}
