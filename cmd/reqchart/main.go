package main

import (
	"flag"
	"fmt"
	"os"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool
	var renderPath string
	var outPath string
	var width int

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/reqchart/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.StringVar(&renderPath, "render", "", "render a counters file (YAML or JSON) to SVG and exit")
	flag.StringVar(&outPath, "out", "", "SVG output path for -render (default stdout)")
	flag.IntVar(&width, "width", 0, "container width for -render (default 720)")
	flag.Parse()

	if showVersion {
		fmt.Printf("reqchart - HTTP request counters chart service\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if renderPath != "" {
		if err := runRender(cfg, renderPath, outPath, width); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
