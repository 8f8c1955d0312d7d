//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"strings"
	"syscall/js"

	"docrag/config"
	"docrag/internal/app"
	"docrag/internal/domain"
	"docrag/internal/usecase"
)

var pipeline *app.App

func init() {
	pipeline = newPipeline()
}

// newPipeline uses the offline providers; the browser has no API keys.
func newPipeline() *app.App {
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "hash"
	cfg.Generation.Provider = "extractive"
	a, err := app.New(cfg, nil)
	if err != nil {
		panic(err)
	}
	return a
}

func main() {
	c := make(chan struct{})

	js.Global().Set("ragIndex", js.FuncOf(indexContent))
	js.Global().Set("ragQuery", js.FuncOf(queryContent))
	js.Global().Set("ragAsk", js.FuncOf(askContent))
	js.Global().Set("ragClear", js.FuncOf(clearIndex))
	js.Global().Set("ragStats", js.FuncOf(getStats))

	<-c
}

func indexContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: ragIndex(filename, content)")
	}

	filename := args[0].String()
	n, err := pipeline.Ingest.IngestText(context.Background(), usecase.Source{
		Name: filename,
		Text: args[1].String(),
	})
	if err != nil {
		return makeError("indexing failed: " + err.Error())
	}

	return makeResult(map[string]interface{}{
		"success":  true,
		"chunks":   n,
		"filename": filename,
	})
}

func queryContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: ragQuery(query, [topK])")
	}

	query := args[0].String()
	results, err := pipeline.Retrieve.Retrieve(context.Background(), query, topKArg(args), nil)
	if err != nil {
		return makeError("search failed: " + err.Error())
	}

	output := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		output = append(output, map[string]interface{}{
			"id":     r.Document.ID,
			"source": r.Document.Metadata.Source,
			"chunk":  r.Document.Metadata.Chunk,
			"score":  r.Score,
			"text":   r.Document.Content,
		})
	}

	return makeResult(map[string]interface{}{
		"results": output,
		"query":   query,
	})
}

func askContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: ragAsk(query, [topK])")
	}

	var (
		answer  strings.Builder
		sources []domain.SourceRef
	)
	req := usecase.QueryRequest{Query: args[0].String(), TopK: topKArg(args)}
	for ev := range pipeline.Answer.Stream(context.Background(), req) {
		switch ev.Type {
		case domain.EventContentDelta:
			answer.WriteString(ev.Delta)
		case domain.EventSources:
			sources = ev.Sources
		case domain.EventError:
			return makeError(ev.Error.Message)
		}
	}

	return makeResult(map[string]interface{}{
		"answer":  answer.String(),
		"sources": sources,
	})
}

func clearIndex(this js.Value, args []js.Value) interface{} {
	pipeline.Store.Clear()
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) interface{} {
	stats := pipeline.Store.Stats()
	return makeResult(map[string]interface{}{
		"totalDocs":   stats.DocumentCount,
		"totalChars":  stats.TotalCharacters,
		"avgChunkLen": stats.AverageCharacters,
		"sources":     stats.Sources,
	})
}

// topKArg reads the optional second argument; 0 selects the default.
func topKArg(args []js.Value) int {
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		return args[1].Int()
	}
	return 0
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
