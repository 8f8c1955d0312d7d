package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/analyzer"
	"docrag/internal/adapter/metrics"
	"docrag/internal/domain"
)

func (f *fixture) answerer(gen *scriptedGenerator, cfg AnswerConfig, m *metrics.Metrics) *AnswerUseCase {
	packer := NewContextPacker(2000, 0, analyzer.NewTokenizer())
	return NewAnswerUseCase(f.embedder, f.searcher, packer, gen, cfg, nil, m)
}

func types(events []domain.StreamEvent) []domain.EventType {
	out := make([]domain.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestAnswerGrounded(t *testing.T) {
	f := newFixture(t)
	f.seedScenario(t)
	gen := &scriptedGenerator{fragments: []string{"Revenue ", "was ", "2.1M euros."}}

	events := collect(t, f.answerer(gen, AnswerConfig{}, nil).Stream(context.Background(), QueryRequest{
		Query: "What was the revenue in 2024?",
		TopK:  1,
	}))

	require.Equal(t, []domain.EventType{
		domain.EventContentDelta, domain.EventContentDelta, domain.EventContentDelta,
		domain.EventSources, domain.EventDone,
	}, types(events))

	var answer strings.Builder
	for _, ev := range events[:3] {
		answer.WriteString(ev.Delta)
	}
	assert.Equal(t, "Revenue was 2.1M euros.", answer.String())

	sources := events[3]
	assert.True(t, sources.Grounded)
	require.Len(t, sources.Sources, 1)
	assert.Equal(t, "a.txt-chunk-0", sources.Sources[0].ID)
	assert.Equal(t, "a.txt", sources.Sources[0].Source)
	assert.Greater(t, sources.Sources[0].Score, 0.0)

	req := gen.request()
	assert.Contains(t, req.Prompt, "Revenue was 2.1M euros in 2024.")
	assert.Contains(t, req.Prompt, "What was the revenue in 2024?")
	assert.NotContains(t, req.Context, "Dog feeding")
	assert.NotEmpty(t, req.SystemPrompt)
}

func TestAnswerEmptyStoreIsUngrounded(t *testing.T) {
	f := newFixture(t)
	gen := &scriptedGenerator{fragments: []string{"I don't know."}}

	events := collect(t, f.answerer(gen, AnswerConfig{}, nil).Stream(context.Background(), QueryRequest{Query: "anything?"}))

	require.Equal(t, []domain.EventType{domain.EventContentDelta, domain.EventSources, domain.EventDone}, types(events))
	assert.False(t, events[1].Grounded)
	assert.Empty(t, events[1].Sources)
	assert.Empty(t, gen.request().Context)
	assert.Contains(t, gen.request().Prompt, "No stored documents matched")
}

func TestAnswerDefaultsTopKAndPassesFilter(t *testing.T) {
	f := newFixture(t)
	f.seedScenario(t)
	gen := &scriptedGenerator{}

	events := collect(t, f.answerer(gen, AnswerConfig{}, nil).Stream(context.Background(), QueryRequest{
		Query:  "revenue",
		Filter: domain.MetadataFilter{"source": "b.txt"},
	}))

	require.Equal(t, []domain.EventType{domain.EventSources, domain.EventDone}, types(events))
	assert.Equal(t, DefaultTopK, f.searcher.topK)
	assert.Equal(t, domain.MetadataFilter{"source": "b.txt"}, f.searcher.filter)
	for _, s := range events[0].Sources {
		assert.Equal(t, "b.txt", s.Source)
	}
}

func TestAnswerRejectsInvalidQuery(t *testing.T) {
	tests := []struct {
		name string
		req  QueryRequest
	}{
		{"empty", QueryRequest{}},
		{"whitespace", QueryRequest{Query: "  \n\t"}},
		{"negative top_k", QueryRequest{Query: "revenue", TopK: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			gen := &scriptedGenerator{}

			events := collect(t, f.answerer(gen, AnswerConfig{}, nil).Stream(context.Background(), tt.req))

			require.Len(t, events, 1)
			assert.Equal(t, domain.EventError, events[0].Type)
			assert.Equal(t, domain.KindInvalidArgument, events[0].Error.Kind)
		})
	}
}

func TestAnswerEmbeddingFailure(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = errors.New("embedding service unavailable")
	gen := &scriptedGenerator{fragments: []string{"never"}}

	events := collect(t, f.answerer(gen, AnswerConfig{}, nil).Stream(context.Background(), QueryRequest{Query: "revenue"}))

	require.Len(t, events, 1)
	assert.Equal(t, domain.KindEmbeddingFailed, events[0].Error.Kind)
	assert.Contains(t, events[0].Error.Message, "embedding service unavailable")
}

func TestAnswerEmbeddingTimeout(t *testing.T) {
	f := newFixture(t)
	f.embedder.block = true

	events := collect(t, f.answerer(&scriptedGenerator{}, AnswerConfig{EmbedTimeout: 20 * time.Millisecond}, nil).
		Stream(context.Background(), QueryRequest{Query: "revenue"}))

	require.Len(t, events, 1)
	assert.Equal(t, domain.KindGatewayTimeout, events[0].Error.Kind)
}

func TestAnswerGenerationFailures(t *testing.T) {
	tests := []struct {
		name       string
		gen        *scriptedGenerator
		cfg        AnswerConfig
		wantDeltas int
		wantKind   domain.ErrorKind
	}{
		{
			name:       "error mid stream",
			gen:        &scriptedGenerator{fragments: []string{"partial "}, err: errors.New("malformed chunk")},
			wantDeltas: 1,
			wantKind:   domain.KindGenerationFailed,
		},
		{
			name:       "stream closed without end signal",
			gen:        &scriptedGenerator{fragments: []string{"a", "b"}, noDone: true},
			wantDeltas: 2,
			wantKind:   domain.KindGenerationFailed,
		},
		{
			name:     "start failure",
			gen:      &scriptedGenerator{startErr: errors.New("401 unauthorized")},
			wantKind: domain.KindGenerationFailed,
		},
		{
			name:     "timeout",
			gen:      &scriptedGenerator{block: true},
			cfg:      AnswerConfig{GenerationTimeout: 20 * time.Millisecond},
			wantKind: domain.KindGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedScenario(t)

			events := collect(t, f.answerer(tt.gen, tt.cfg, nil).Stream(context.Background(), QueryRequest{Query: "revenue"}))

			require.Len(t, events, tt.wantDeltas+1)
			for _, ev := range events[:tt.wantDeltas] {
				assert.Equal(t, domain.EventContentDelta, ev.Type)
			}
			last := events[len(events)-1]
			assert.Equal(t, domain.EventError, last.Type)
			assert.Equal(t, tt.wantKind, last.Error.Kind)
		})
	}
}

func TestAnswerCancellation(t *testing.T) {
	f := newFixture(t)
	f.seedScenario(t)
	gen := &scriptedGenerator{endless: true}
	ctx, cancel := context.WithCancel(context.Background())

	stream := f.answerer(gen, AnswerConfig{}, nil).Stream(ctx, QueryRequest{Query: "revenue"})

	for i := 0; i < 2; i++ {
		ev := <-stream
		require.Equal(t, domain.EventContentDelta, ev.Type)
	}
	cancel()

	rest := collect(t, stream)
	for _, ev := range rest {
		assert.Equal(t, domain.EventContentDelta, ev.Type, "no terminal event after cancellation")
	}
	assert.LessOrEqual(t, len(rest), 1)
	assert.Eventually(t, gen.wasCanceled, time.Second, 5*time.Millisecond)
}

func TestAnswerCancelledDuringEmbedding(t *testing.T) {
	f := newFixture(t)
	f.embedder.block = true
	gen := &scriptedGenerator{fragments: []string{"never"}}
	ctx, cancel := context.WithCancel(context.Background())

	stream := f.answerer(gen, AnswerConfig{EmbedTimeout: time.Second}, nil).Stream(ctx, QueryRequest{Query: "revenue"})
	cancel()

	assert.Empty(t, collect(t, stream))
	assert.Empty(t, gen.request().Prompt, "generation must not start")
}

func TestAnswerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	f := newFixture(t)
	f.seedScenario(t)

	collect(t, f.answerer(&scriptedGenerator{fragments: []string{"ok"}}, AnswerConfig{}, m).
		Stream(context.Background(), QueryRequest{Query: "revenue"}))
	collect(t, f.answerer(&scriptedGenerator{}, AnswerConfig{}, m).
		Stream(context.Background(), QueryRequest{Query: ""}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnswersTotal.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnswersTotal.WithLabelValues(string(domain.KindInvalidArgument))))
}

func TestAnswerStateNames(t *testing.T) {
	assert.Equal(t, "generating", StateGenerating.String())
	assert.Equal(t, "state(42)", AnswerState(42).String())
}
