package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/chaoslens/internal/debug"
	"github.com/standardbeagle/chaoslens/internal/ingestion"
	"github.com/standardbeagle/chaoslens/internal/types"
)

var ingestCommand = &cli.Command{
	Name:  "ingest",
	Usage: "Walk the project root, encode every file through C1/C2, and populate the store",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "clear",
			Usage: "Delete the existing corpus before ingesting (facts are preserved)",
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output the ingest summary as JSON",
		},
	},
	Action: func(c *cli.Context) error {
		st, err := openStore(c)
		if err != nil {
			return err
		}
		coordinator, _ := buildCoordinator(st)

		summary, err := coordinator.Ingest(context.Background(), c.Bool("clear"))
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		return printIngestSummary(c, summary)
	},
}

func printIngestSummary(c *cli.Context, summary types.IngestSummary) error {
	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(summary)
	}
	fmt.Printf("text=%d binary=%d signatures=%d skipped=%d errors=%d avg_chaos=%.3f high_risk=%d elapsed_ms=%d cancelled=%t\n",
		summary.TextFiles, summary.BinaryFiles, summary.Signatures, summary.Skipped,
		summary.Errors, summary.AvgChaos, summary.HighRiskCount, summary.ElapsedMs, summary.Cancelled)
	return nil
}

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "Ingest the project root, then keep the store in sync with filesystem changes until interrupted",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "skip-initial-ingest",
			Usage: "Start watching without running an initial ingest",
		},
	},
	Action: func(c *cli.Context) error {
		st, err := openStore(c)
		if err != nil {
			return err
		}
		coordinator, _ := buildCoordinator(st)

		if !c.Bool("skip-initial-ingest") {
			summary, err := coordinator.Ingest(context.Background(), false)
			if err != nil {
				return fmt.Errorf("initial ingest failed: %w", err)
			}
			if err := printIngestSummary(c, summary); err != nil {
				return err
			}
		}

		debounce := time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond
		watcher, err := ingestion.NewWatcher(coordinator, debounce)
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		debug.LogWatch("watching %s (debounce=%s)\n", cfg.Project.Root, debounce)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Fprintln(os.Stderr, "shutting down watcher...")
		persistWatchStats(st, watcher.GetStats())
		return watcher.Stop()
	},
}
