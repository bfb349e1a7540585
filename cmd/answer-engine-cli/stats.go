package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// newStatsCmd creates the stats subcommand.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base and feedback statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			eng, cleanup, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			stats := eng.Stats(ctx)

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			printInfo("Knowledge base")
			printKeyValue("total entries", stats.TotalEntries)
			for src, n := range stats.BySource {
				printKeyValue(fmt.Sprintf("  %s", src), n)
			}

			printInfo("Feedback")
			printKeyValue("accuracy", fmt.Sprintf("%.2f", stats.FeedbackAccuracy))

			return nil
		},
	}
}

// newReindexCmd creates the reindex subcommand.
func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the inverted index and write a fresh snapshot",
		Long: `Reindex forces a full index rebuild from the knowledge base and writes the
snapshot file configured under storage.snapshot.path. The snapshot is a
warm-start cache; the next API start skips the rebuild when it is current.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if cfg.Storage.Snapshot.Path == "" {
				return fmt.Errorf("no snapshot path configured (storage.snapshot.path)")
			}

			sp := newLoadSpinner("rebuilding index")
			sp.Start()
			eng, cleanup, err := openEngine(ctx)
			sp.Stop()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := eng.WriteSnapshot(); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}

			if outputJSON {
				fmt.Printf("{\"snapshot\":%q}\n", cfg.Storage.Snapshot.Path)
				return nil
			}

			printSuccess("Index snapshot written to %s", cfg.Storage.Snapshot.Path)
			return nil
		},
	}
}
