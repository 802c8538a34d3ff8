package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/reqchart/internal/socketrpc"
	"github.com/tinytelemetry/reqchart/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var socketPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/reqchart/config.yml)")
	flag.StringVar(&socketPath, "socket", "", "override socket path to connect to the reqchart service")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("reqchart-tui - Request Counters Terminal Chart\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if socketPath != "" {
		cfg.SocketPath = socketPath
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	opts, err := cfg.chartOptions()
	if err != nil {
		return err
	}

	client, err := socketrpc.Dial(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("cannot connect to reqchart service at %s: %w\nIs the service running? Start it with: reqchart", cfg.SocketPath, err)
	}
	defer client.Close()

	page := tui.NewChartPage(client, tui.ChartPageConfig{
		Options:        opts,
		Limit:          cfg.CounterLimit,
		UpdateInterval: cfg.UpdateInterval,
		Debounce:       cfg.ResizeDebounce,
		Source:         "Socket",
	})
	app := tui.NewApp(page)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	page.SetSender(p.Send)
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
