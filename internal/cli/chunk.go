package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/fs"
)

var (
	chunkJSON    bool
	chunkSize    int
	chunkOverlap int
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Split a text file into overlapping chunks",
	Long: `Split a text file the way ingestion does and print every chunk with its
length and the number of characters it repeats from the previous chunk.

Examples:
  rag chunk notes.md
  rag chunk report.txt --size 500 --overlap 50 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "output as JSON")
	chunkCmd.Flags().IntVar(&chunkSize, "size", 0, "chunk size in characters (default from config)")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", -1, "chunk overlap in characters (default from config)")
}

func runChunk(cmd *cobra.Command, args []string) error {
	cc := GetConfig().ChunkerConfig()
	if chunkSize > 0 {
		cc.ChunkSize = chunkSize
	}
	if chunkOverlap >= 0 {
		cc.ChunkOverlap = chunkOverlap
	}

	ch, err := chunker.NewRecursiveChunker(cc)
	if err != nil {
		return err
	}

	text, err := fs.ReadText(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	chunks, err := ch.Chunk(text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if chunkJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}

	fmt.Fprintf(out, "%d chunks (size %d, overlap %d)\n\n", len(chunks), cc.ChunkSize, cc.ChunkOverlap)
	for _, c := range chunks {
		fmt.Fprintf(out, "--- [%d] %d chars, %d overlap ---\n", c.Index, c.Length, c.Overlap)
		fmt.Fprintln(out, c.Text)
		fmt.Fprintln(out)
	}
	return nil
}
