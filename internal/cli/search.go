package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
)

var (
	searchText   string
	searchTopK   int
	searchJSON   bool
	searchFilter map[string]string
	searchQuiet  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Rank stored passages by similarity to a query",
	Long: `Ingest the root directory into a fresh in-memory store, then print the
passages most similar to the query.

Examples:
  rag search -q "quarterly revenue"
  rag search -q "feeding schedule" --top-k 10 --filter source=pets.md --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().StringToStringVar(&searchFilter, "filter", nil, "exact metadata match, e.g. source=notes.md")
	searchCmd.Flags().BoolVar(&searchQuiet, "quiet", false, "suppress ingestion progress")
	searchCmd.MarkFlagRequired("query")
}

// searchResult is the JSON shape of one hit.
type searchResult struct {
	ID    string          `json:"id"`
	Score float64         `json:"score"`
	Meta  domain.Metadata `json:"metadata"`
	Text  string          `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if _, err := ingestDir(ctx, a, GetRootDir(), searchQuiet || searchJSON, cmd.ErrOrStderr()); err != nil {
		return err
	}

	topK := GetConfig().Retrieve.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	results, err := a.Retrieve.Retrieve(ctx, searchText, topK, searchFilter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		hits := make([]searchResult, len(results))
		for i, r := range results {
			hits[i] = searchResult{ID: r.Document.ID, Score: r.Score, Meta: r.Document.Metadata, Text: r.Document.Content}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d results for: %s\n\n", len(results), searchText)
	for i, r := range results {
		fmt.Fprintf(out, "--- [%d] %s (score: %.3f) ---\n", i+1, r.Document.ID, r.Score)
		text := []rune(r.Document.Content)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Fprintln(out, string(text))
		fmt.Fprintln(out)
	}
	return nil
}
