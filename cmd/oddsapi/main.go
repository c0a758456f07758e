package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/samvad-hq/oddsapi-go/internal/app"
	"github.com/samvad-hq/oddsapi-go/internal/config"
	"github.com/samvad-hq/oddsapi-go/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "oddsapi: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		if len(args) == 0 {
			return errors.New("missing command")
		}
		return nil
	}

	cmd, ok := lookupCommand(args[0])
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: oddsapi %s %s\n\n%s\n\nFlags:\n", cmd.name, cmd.usage, cmd.summary)
		fs.PrintDefaults()
	}
	registerCommonFlags(fs)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("oddsapi starting", "config", cfg.Redacted())

	runner, err := app.NewRunner(ctx, cfg, log, app.Options{Out: stdout})
	if err != nil {
		logger.ErrorObj("failed to initialize runner", "error", err.Error())
		return err
	}

	_, execErr := cmd.exec(ctx, runner, fs)
	closeErr := runner.Close(ctx)
	if closeErr != nil {
		logger.WarnObj("runner shutdown incomplete", "error", closeErr.Error())
	}
	return errors.Join(execErr, closeErr)
}

func registerCommonFlags(fs *pflag.FlagSet) {
	fs.String("api-key", "", "Odds API key (default: $ODDS_API_KEY, then the key file)")
	fs.String("api-key-file", "odds_api_key.txt", "file holding the Odds API key")
	fs.String("base-url", "https://api.the-odds-api.com", "Odds API base URL")
	fs.Int64("timeout", 15, "HTTP timeout in seconds")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Bool("pretty", true, "indent the JSON written to stdout")
	fs.String("publishers", "", "publishers file (YAML/JSON); results are fanned out when set")
	fs.String("pushgateway", "", "Prometheus pushgateway URL; metrics are pushed on exit when set")
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: oddsapi <command> [flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-7s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun 'oddsapi <command> --help' for command flags.\n")
}
