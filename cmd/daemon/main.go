// SPDX-License-Identifier: MIT

// Command daemon runs the snapdown HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/snapdown/snapdown/internal/config"
	"github.com/snapdown/snapdown/internal/daemon"
	sdlog "github.com/snapdown/snapdown/internal/log"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML); defaults to $"+config.EnvConfigPath)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the configuration is loaded.
	sdlog.Configure(sdlog.Config{Level: "info", Service: daemon.ServiceName, Version: version})
	logger := sdlog.WithComponent("daemon")

	path := resolveConfigPath(*configPath)
	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.invalid").Str("path", path).Msg("failed to load configuration")
	}

	sdlog.Configure(sdlog.Config{Level: cfg.LogLevel, Service: daemon.ServiceName, Version: version})
	logger = sdlog.WithComponent("daemon")
	if path != "" {
		logger.Info().Str("event", "config.loaded").Str("path", path).Msg("configuration loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := daemon.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "startup.failed").Msg("failed to initialise service")
	}
	if err := app.Listen(); err != nil {
		logger.Fatal().Err(err).Str("event", "startup.failed").Msg("failed to bind listener")
	}
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "shutdown.failed").Msg("service stopped with error")
		stop()
		os.Exit(1)
	}
	logger.Info().Str("event", "shutdown.complete").Msg("service stopped")
}

// resolveConfigPath prefers the flag, then the environment.
func resolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(config.EnvConfigPath))
}
