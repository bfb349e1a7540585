package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/onec-assist/answer-engine/internal/storage"
)

// newLearnCmd creates the learn subcommand.
func newLearnCmd() *cobra.Command {
	var (
		source string
		tags   []string
	)

	cmd := &cobra.Command{
		Use:   "learn [question | answer]",
		Short: "Teach the engine a new question/answer pair",
		Long: `Learn adds a new entry to the knowledge base. The argument is split on
the first "|": the left side is the question, the right side the answer.

  answer-engine-cli learn "Как создать счет? | Меню Документы, пункт Счета, кнопка Создать."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			raw := strings.Join(args, " ")
			question, answer, found := strings.Cut(raw, "|")
			if !found {
				return fmt.Errorf("expected \"question | answer\", got %q", raw)
			}
			question = strings.TrimSpace(question)
			answer = strings.TrimSpace(answer)
			if question == "" || answer == "" {
				return fmt.Errorf("question and answer must both be non-empty")
			}

			src := storage.Source(source)
			if !storage.KnownSource(src) {
				return fmt.Errorf("unknown source: %s", source)
			}

			eng, cleanup, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			entry, err := eng.AddEntry(ctx, question, answer, tags, src, nil)
			if err != nil {
				return fmt.Errorf("add entry: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entry)
			}

			printSuccess("Learned entry %d", entry.ID)
			printKeyValue("question", entry.Question)
			printKeyValue("answer", entry.Answer)
			if len(entry.Tags) > 0 {
				printKeyValue("tags", strings.Join(entry.Tags, ", "))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", string(storage.SourceManual), "entry source (manual, menu, button, user_feedback)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "tags for the new entry")

	return cmd
}
