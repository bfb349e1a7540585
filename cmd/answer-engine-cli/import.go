package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/onec-assist/answer-engine/internal/storage"
)

// importEntry is one row of a bulk import file: a JSON array of these.
type importEntry struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// newImportCmd creates the import subcommand.
func newImportCmd() *cobra.Command {
	var (
		input  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-import entries from a JSON file",
		Long: `Import reads a JSON array of {question, answer, tags, source} objects and
adds each one to the knowledge base. Use --dry-run to validate without
committing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input file: %w", err)
			}

			var rows []importEntry
			if err := json.Unmarshal(data, &rows); err != nil {
				return fmt.Errorf("parse input file: %w", err)
			}

			for i, row := range rows {
				if row.Question == "" || row.Answer == "" {
					return fmt.Errorf("row %d: question and answer are required", i)
				}
				if row.Source != "" && !storage.KnownSource(storage.Source(row.Source)) {
					return fmt.Errorf("row %d: unknown source %q", i, row.Source)
				}
			}

			if dryRun {
				printSuccess("Dry run: %d entries are valid", len(rows))
				return nil
			}

			sp := newLoadSpinner("opening knowledge base")
			sp.Start()
			eng, cleanup, err := openEngine(ctx)
			sp.Stop()
			if err != nil {
				return err
			}
			defer cleanup()

			bar := newImportBar(int64(len(rows)))
			var imported int
			for i, row := range rows {
				src := storage.Source(row.Source)
				if row.Source == "" {
					src = storage.SourceManual
				}
				if _, err := eng.AddEntry(ctx, row.Question, row.Answer, row.Tags, src, nil); err != nil {
					_ = bar.Finish()
					return fmt.Errorf("row %d: %w", i, err)
				}
				imported++
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			if outputJSON {
				fmt.Printf("{\"imported\":%d}\n", imported)
				return nil
			}

			printSuccess("Imported %d entries from %s", imported, input)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input file path (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without committing")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}
