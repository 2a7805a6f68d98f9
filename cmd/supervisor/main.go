// Command supervisor is the edge SOC log-shipping supervisor: it loads
// configuration, verifies the remote cluster, brings up the local NIDS
// pipeline, and then monitors it until told to stop.
//
// Usage:
//
//	supervisor [config-file]
//
// config-file defaults to config.yaml in the working directory. Exit code
// 0 means a clean shutdown or a successful run through steady-state
// monitoring; any non-zero code identifies which phase failed (see
// internal/supervisor's Exit* constants).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgesoc/ids2-supervisor/internal/config"
	"github.com/edgesoc/ids2-supervisor/internal/logging"
	"github.com/edgesoc/ids2-supervisor/internal/supervisor"
	"github.com/edgesoc/ids2-supervisor/internal/telemetry"
	"github.com/edgesoc/ids2-supervisor/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Logger().Error().Err(err).Str("config_path", configPath).Msg("failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	log := logging.WithComponent("main")
	log.Info().Str("config_path", configPath).Msg("ids2-supervisor starting")

	telemetry.RecordBuildInfo(version.Version, version.Platform, version.Arch())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	sup := supervisor.New(cfg)
	code := sup.Run(ctx)

	log.Info().Int("exit_code", code).Msg("ids2-supervisor stopped")
	return code
}
