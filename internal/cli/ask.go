package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
	"docrag/internal/usecase"
)

var (
	askText   string
	askTopK   int
	askFilter map[string]string
	askQuiet  bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the documents under the root directory",
	Long: `Ingest the root directory, retrieve the passages most similar to the
question and stream an answer grounded in them, followed by its sources.

Examples:
  rag ask -q "What was the revenue in 2024?"
  rag ask -q "How often is the dog fed?" -k 3 --filter source=pets.md`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question to answer (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	askCmd.Flags().StringToStringVar(&askFilter, "filter", nil, "exact metadata match, e.g. source=notes.md")
	askCmd.Flags().BoolVar(&askQuiet, "quiet", false, "suppress ingestion progress")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if _, err := ingestDir(ctx, a, GetRootDir(), askQuiet, cmd.ErrOrStderr()); err != nil {
		return err
	}

	topK := GetConfig().Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	req := usecase.QueryRequest{Query: askText, TopK: topK, Filter: askFilter}
	for ev := range a.Answer.Stream(ctx, req) {
		switch ev.Type {
		case domain.EventContentDelta:
			fmt.Fprint(out, ev.Delta)
		case domain.EventSources:
			fmt.Fprintln(out)
			if !ev.Grounded {
				fmt.Fprintln(out, "\n(no matching documents)")
				continue
			}
			fmt.Fprintln(out, "\nSources:")
			for i, s := range ev.Sources {
				fmt.Fprintf(out, "  [%d] %s (%s, score %.3f)\n", i+1, s.Source, s.ID, s.Score)
			}
		case domain.EventError:
			return fmt.Errorf("%s: %s", ev.Error.Kind, ev.Error.Message)
		}
	}

	if err := ctx.Err(); err != nil {
		fmt.Fprintln(out)
		return err
	}
	return nil
}
