// Command characters prints the names of the characters listed in a Star Wars
// film, one per line, in the order the film lists them.
//
//	characters <film-id>
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

	"github.com/mark-c-hall/swapi-characters/internal/config"
	"github.com/mark-c-hall/swapi-characters/internal/logging"
	"github.com/mark-c-hall/swapi-characters/internal/roster"
	"github.com/mark-c-hall/swapi-characters/internal/swapi"
	"github.com/mark-c-hall/swapi-characters/internal/telemetry"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("characters", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: characters <film-id>")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "Error loading config:", err)
		return exitError
	}
	logger := logging.New(cfg.Log, stderr)

	filmID, err := config.ParseFilmID(flags.Arg(0))
	if err != nil {
		logger.Error("invalid film id", "error", err)
		return exitUsage
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, telemetry.Options{TraceWriter: stderr})
	if err != nil {
		logger.Error("failed to set up telemetry", "error", err)
		return exitError
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	svc := roster.NewService(swapi.NewClient(*cfg), logger)

	names, err := svc.CharacterNames(ctx, filmID)
	if err != nil {
		logger.Error("error fetching characters", "film_id", filmID, "error", err)
		return exitError
	}

	if err := roster.Print(stdout, names); err != nil {
		logger.Error("error printing characters", "error", err)
		return exitError
	}
	return exitOK
}
