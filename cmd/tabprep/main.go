// Command tabprep fits and applies tabular preprocessing pipelines.
//
// Usage:
//
//	tabprep fit -config tabprep.yaml
//	tabprep transform -config tabprep.yaml
//	tabprep inspect -config tabprep.yaml
//	tabprep inspect -state out/fitted_state.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/YuminosukeSato/tabprep/config"
	"github.com/YuminosukeSato/tabprep/pkg/log"
	"github.com/YuminosukeSato/tabprep/preprocessing"
	"github.com/YuminosukeSato/tabprep/runner"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tabprep <fit|transform|inspect> [-config file] [-log-level level] [-state file]")
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}
	cmd := args[0]
	switch cmd {
	case "fit", "transform", "inspect":
	default:
		usage()
		return 2
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	configPath := fs.String("config", "tabprep.yaml", "path to the YAML configuration")
	logLevel := fs.String("log-level", "", "log level override (debug, info, warn, error)")
	statePath := fs.String("state", "", "fitted state file (inspect only)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cmd == "inspect" && *statePath != "" {
		setupLogging(*logLevel, "info")
		state, err := preprocessing.LoadFile(*statePath)
		if err != nil {
			slog.Error("failed to load fitted state", log.ErrAttr(err), slog.String(log.PathKey, *statePath))
			return 1
		}
		return describe(state)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		setupLogging(*logLevel, "info")
		slog.Error("failed to load config", log.ErrAttr(err), slog.String(log.PathKey, *configPath))
		return 1
	}
	setupLogging(*logLevel, cfg.LogLevel)

	switch cmd {
	case "fit":
		res, err := runner.Fit(ctx, cfg)
		if err != nil {
			slog.Error("fit failed", log.ErrAttr(err), slog.String(log.PathKey, cfg.Input.Path))
			return 1
		}
		slog.Info("fit finished",
			slog.String(log.RunIDKey, res.RunID),
			slog.Int(log.SamplesKey, res.RowsOut),
			slog.Int(log.FeaturesKey, len(res.Columns)),
			slog.String("output.data", res.DataPath),
			slog.String("output.state", res.StatePath),
		)
	case "transform":
		res, err := runner.Apply(ctx, cfg)
		if err != nil {
			slog.Error("transform failed", log.ErrAttr(err), slog.String(log.PathKey, cfg.Input.Path))
			return 1
		}
		slog.Info("transform finished",
			slog.String(log.RunIDKey, res.RunID),
			slog.Int(log.SamplesKey, res.RowsOut),
			slog.String("output.data", res.DataPath),
		)
	case "inspect":
		state, _, err := runner.LoadState(cfg)
		if err != nil {
			slog.Error("failed to load fitted state", log.ErrAttr(err))
			return 1
		}
		return describe(state)
	}
	return 0
}

func describe(state *preprocessing.FittedState) int {
	if err := runner.Describe(os.Stdout, state); err != nil {
		slog.Error("failed to write summary", log.ErrAttr(err))
		return 1
	}
	return 0
}

// setupLogging configures slog for the command and the zerolog provider used
// by library components. The flag wins over the configured level.
func setupLogging(flagLevel, cfgLevel string) {
	level := cfgLevel
	if flagLevel != "" {
		level = flagLevel
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		level, parsed = "info", log.LevelInfo
	}
	log.SetupLoggerTo(os.Stderr, level)
	log.SetProvider(log.NewZerologProvider(parsed))
}
