package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"docrag/config"
	"docrag/internal/app"
	"docrag/internal/domain"
)

func main() {
	dir := flag.String("dir", ".", "Directory of documents to ingest")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 5, "Number of results")
	runs := flag.Int("n", 20, "Number of timed retrievals")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir ./docs -q \"query\"")
		fmt.Println("\nMeasures:")
		fmt.Println("  1. Ingestion throughput (chunking + batch embedding)")
		fmt.Println("  2. Retrieval latency (query embedding + linear scan)")
		fmt.Println("  3. Similarity of the top matches")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	// Repeated queries would only measure the cache.
	cfg.Embedding.CacheSize = 0

	a, err := app.New(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building pipeline: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Model: %s (%s)\n", a.Embedder.ModelName(), cfg.Embedding.Provider)

	start := time.Now()
	ingested, err := a.Ingest.IngestDir(ctx, *dir, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion error: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)
	fmt.Printf("Ingested: %d files, %d chunks in %s (%.1f chunks/s)\n",
		ingested.FilesIngested, ingested.ChunksCreated, elapsed.Round(time.Millisecond),
		float64(ingested.ChunksCreated)/elapsed.Seconds())
	fmt.Printf("Dimension: %d\n\n", a.Embedder.Dimension())

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	var results []domain.SearchResult
	latencies := make([]time.Duration, 0, *runs)
	for i := 0; i < *runs; i++ {
		start := time.Now()
		results, err = a.Retrieve.Retrieve(ctx, *query, *topK, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Retrieval error: %v\n", err)
			os.Exit(1)
		}
		latencies = append(latencies, time.Since(start))
	}

	if len(results) == 0 {
		fmt.Println("No documents matched.")
		return
	}

	fmt.Printf("Top %d matches:\n\n", len(results))

	totalScore := 0.0
	for i, r := range results {
		preview := []rune(strings.ReplaceAll(r.Document.Content, "\n", " "))
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}

		totalScore += r.Score

		rating := "LOW"
		if r.Score > 0.7 {
			rating = "HIGH"
		} else if r.Score > 0.5 {
			rating = "GOOD"
		} else if r.Score > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, r.Score, r.Document.ID)
		fmt.Printf("   %s\n\n", string(preview))
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("LATENCY (%d runs):\n", len(latencies))
	fmt.Printf("  p50: %s\n", percentile(latencies, 0.50))
	fmt.Printf("  p95: %s\n", percentile(latencies, 0.95))
	fmt.Printf("  max: %s\n", latencies[len(latencies)-1])
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average similarity: %.3f\n", totalScore/float64(len(results)))
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
