// GridCut places rectangular products onto occupancy-grid stocks.
//
// Usage:
//
//	gridcut run   -job job.json -out ./out
//	gridcut run   -stocks stocks.csv -products products.xlsx -dxf parts.dxf -out ./out
//	gridcut next  -job job.json
//	gridcut serve -addr :8080
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/piwi3910/GridCut/internal/logger"
	"github.com/piwi3910/GridCut/internal/metrics"
	"github.com/piwi3910/GridCut/internal/project"
)

const usage = `usage: gridcut <command> [flags]

commands:
  run    place every product and write reports
  next   place a single product into a job file
  serve  start the HTTP API
`

func main() {
	if err := execute(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error().Err(err).Msg("gridcut failed")
		os.Exit(1)
	}
}

func execute(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return flag.ErrHelp
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	configPath := fs.String("config", project.DefaultConfigPath(), "path to the application config file")

	var cmd func(project.AppConfig) error
	switch args[0] {
	case "run":
		cmd = runFlags(fs, stdout)
	case "next":
		cmd = nextFlags(fs, stdout)
	case "serve":
		cmd = serveFlags(fs)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := project.LoadAppConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)

	err = cmd(cfg)
	if cfg.MetricsFile != "" {
		if merr := metrics.WriteTextfile(cfg.MetricsFile); merr != nil {
			log.Warn().Err(merr).Str("path", cfg.MetricsFile).Msg("Failed to write metrics textfile")
		}
	}
	return err
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
