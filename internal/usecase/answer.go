package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docrag/internal/adapter/metrics"
	"docrag/internal/domain"
	"docrag/internal/logging"
	"docrag/internal/port"
)

const DefaultGenerationTimeout = 2 * time.Minute

// AnswerState is a step of the answer protocol. States only move forward.
type AnswerState int

const (
	StateIdle AnswerState = iota
	StateEmbedding
	StateSearching
	StateGenerating
	StateDone
	StateFailed
)

func (s AnswerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEmbedding:
		return "embedding"
	case StateSearching:
		return "searching"
	case StateGenerating:
		return "generating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// QueryRequest is the caller-facing query.
type QueryRequest struct {
	Query  string                `json:"query"`
	TopK   int                   `json:"top_k,omitempty"`
	Filter domain.MetadataFilter `json:"metadata_filter,omitempty"`
}

// AnswerConfig bounds the gateway calls of one answer.
type AnswerConfig struct {
	EmbedTimeout      time.Duration
	GenerationTimeout time.Duration
}

// AnswerUseCase turns a query into a streamed, grounded answer.
type AnswerUseCase struct {
	embedder  port.Embedder
	searcher  port.Searcher
	packer    port.Packer
	generator port.Generator

	embedTimeout      time.Duration
	generationTimeout time.Duration

	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewAnswerUseCase(
	embedder port.Embedder,
	searcher port.Searcher,
	packer port.Packer,
	generator port.Generator,
	cfg AnswerConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *AnswerUseCase {
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = DefaultEmbedTimeout
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	return &AnswerUseCase{
		embedder:          embedder,
		searcher:          searcher,
		packer:            packer,
		generator:         generator,
		embedTimeout:      cfg.EmbedTimeout,
		generationTimeout: cfg.GenerationTimeout,
		logger:            logging.OrNop(logger),
		metrics:           m,
	}
}

// Stream answers req on a new goroutine. The channel carries zero or more
// content deltas followed by either sources and done, or a single error.
// Cancelling ctx stops the answer; the channel is then closed without a
// terminal event. The channel is always closed.
func (u *AnswerUseCase) Stream(ctx context.Context, req QueryRequest) <-chan domain.StreamEvent {
	out := make(chan domain.StreamEvent)
	go u.run(ctx, req, out)
	return out
}

type answerRun struct {
	ctx    context.Context
	out    chan<- domain.StreamEvent
	logger *zap.Logger
	state  AnswerState
}

func (r *answerRun) enter(s AnswerState) {
	r.logger.Debug("answer state", zap.Stringer("from", r.state), zap.Stringer("to", s))
	r.state = s
}

// emit delivers ev unless the caller has gone away.
func (r *answerRun) emit(ev domain.StreamEvent) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.out <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *answerRun) fail(err error) string {
	r.enter(StateFailed)
	r.logger.Warn("answer failed", zap.Error(err))
	r.emit(domain.ErrorEvent(err))
	return string(domain.KindOf(err))
}

func (u *AnswerUseCase) run(ctx context.Context, req QueryRequest, out chan<- domain.StreamEvent) {
	defer close(out)

	run := &answerRun{
		ctx:    ctx,
		out:    out,
		logger: u.logger.With(zap.String("request_id", uuid.NewString())),
	}

	outcome := "canceled"
	var generation time.Duration
	defer func() { u.metrics.RecordAnswer(outcome, generation) }()

	topK, err := normalizeQuery(req.Query, req.TopK)
	if err != nil {
		outcome = run.fail(err)
		return
	}

	run.enter(StateEmbedding)
	vec, err := u.embedDetached(ctx, req.Query)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		outcome = run.fail(err)
		return
	}

	run.enter(StateSearching)
	results, err := u.searcher.Search(ctx, vec, topK, req.Filter)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		outcome = run.fail(err)
		return
	}

	run.enter(StateGenerating)
	contextBlock, used := u.packer.Pack(results)
	prompt, grounded, err := RenderPrompt(req.Query, contextBlock)
	if err != nil {
		outcome = run.fail(err)
		return
	}
	run.logger.Debug("context packed",
		zap.Int("results", len(results)),
		zap.Int("used", len(used)),
		zap.Bool("grounded", grounded))

	start := time.Now()
	completed, err := u.generate(run, port.GenerationRequest{
		SystemPrompt: SystemPrompt(),
		Prompt:       prompt,
		Context:      contextBlock,
	})
	generation = time.Since(start)
	if err != nil {
		outcome = run.fail(err)
		return
	}
	if !completed {
		return
	}

	sources := make([]domain.SourceRef, len(used))
	for i, r := range used {
		sources[i] = domain.SourceRef{
			ID:     r.Document.ID,
			Source: r.Document.Metadata.Source,
			Score:  r.Score,
		}
	}
	if !run.emit(domain.StreamEvent{Type: domain.EventSources, Sources: sources, Grounded: grounded}) {
		return
	}
	run.enter(StateDone)
	if run.emit(domain.StreamEvent{Type: domain.EventDone}) {
		outcome = "done"
	}
}

// embedDetached embeds the query on a context that survives cancellation of
// ctx, so an in-flight call finishes within its timeout. When ctx is
// cancelled first, the result is discarded.
func (u *AnswerUseCase) embedDetached(ctx context.Context, query string) ([]float32, error) {
	type result struct {
		vec []float32
		err error
	}

	done := make(chan result, 1)
	go func() {
		vec, err := embedQuery(context.WithoutCancel(ctx), u.embedder, u.embedTimeout, query)
		done <- result{vec, err}
	}()

	select {
	case r := <-done:
		return r.vec, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// generate forwards fragments as content deltas. It reports completed=false
// with a nil error when the caller went away.
func (u *AnswerUseCase) generate(run *answerRun, req port.GenerationRequest) (bool, error) {
	genCtx, cancel := context.WithTimeout(run.ctx, u.generationTimeout)
	defer cancel()

	stream, err := u.generator.GenerateStream(genCtx, req)
	if err != nil {
		return false, domain.GatewayError(genCtx, domain.ErrGenerationFailed, "start generation", err)
	}

	for {
		select {
		case chunk, ok := <-stream:
			if run.ctx.Err() != nil {
				return false, nil
			}
			switch {
			case !ok:
				if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
					return false, domain.GatewayError(genCtx, domain.ErrGenerationFailed, "generate", genCtx.Err())
				}
				return false, fmt.Errorf("%w: stream ended without a completion signal", domain.ErrGenerationFailed)
			case chunk.Err != nil:
				return false, domain.GatewayError(genCtx, domain.ErrGenerationFailed, "generate", chunk.Err)
			case chunk.Done:
				return true, nil
			case chunk.Text != "":
				if !run.emit(domain.StreamEvent{Type: domain.EventContentDelta, Delta: chunk.Text}) {
					return false, nil
				}
			}
		case <-genCtx.Done():
			if run.ctx.Err() != nil {
				return false, nil
			}
			return false, domain.GatewayError(genCtx, domain.ErrGenerationFailed, "generate", genCtx.Err())
		}
	}
}
