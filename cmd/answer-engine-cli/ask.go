package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/storage"
)

// newAskCmd creates the ask subcommand.
func newAskCmd() *cobra.Command {
	var (
		source    string
		buttonish bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against the knowledge base",
		Long: `Ask runs the tiered match pipeline for a question and prints the best
answer with its confidence and the tier that produced it.

Typos are tolerated: "как саздать накладную" still finds the entry for
"Как создать накладную?".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			question := strings.Join(args, " ")

			eng, cleanup, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var res engine.MatchResult
			if buttonish {
				res = eng.Answer(ctx, question)
			} else {
				var filter storage.Source
				if source != "" {
					if !storage.KnownSource(storage.Source(source)) {
						return fmt.Errorf("unknown source filter: %s", source)
					}
					filter = storage.Source(source)
				}
				res = eng.FindBestMatch(ctx, question, filter)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			if !res.Matched() {
				printError("Ничего не нашлось для: %s", question)
				printInfo("Попробуйте переформулировать вопрос или добавьте ответ через 'learn'.")
				return nil
			}

			answerColor.Println(res.Entry.Answer)
			fmt.Println()
			printKeyValue("matched question", res.Entry.Question)
			printKeyValue("confidence", fmt.Sprintf("%.2f", res.Confidence))
			printKeyValue("tier", string(res.Tier))
			printKeyValue("source", string(res.Entry.Source))

			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "restrict matching to a source (manual, menu, button, user_feedback)")
	cmd.Flags().BoolVar(&buttonish, "button-aware", false, "route the text through the button classifier first")

	return cmd
}
