// Package server exposes the document store and answer pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

// Server provides the REST and streaming endpoints.
type Server struct {
	echo     *echo.Echo
	store    port.DocumentStore
	ingest   *usecase.IngestUseCase
	retrieve *usecase.RetrieveUseCase
	answer   *usecase.AnswerUseCase
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Deps are the components the server routes to.
type Deps struct {
	Store    port.DocumentStore
	Ingest   *usecase.IngestUseCase
	Retrieve *usecase.RetrieveUseCase
	Answer   *usecase.AnswerUseCase
	Gatherer prometheus.Gatherer
}

func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if deps.Store == nil || deps.Ingest == nil || deps.Retrieve == nil || deps.Answer == nil {
		return nil, fmt.Errorf("store, ingest, retrieve and answer are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		store:    deps.Store,
		ingest:   deps.Ingest,
		retrieve: deps.Retrieve,
		answer:   deps.Answer,
		gatherer: deps.Gatherer,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/documents", s.handleIngest)
	v1.GET("/documents", s.handleListDocuments)
	v1.DELETE("/documents", s.handleClearDocuments)
	v1.GET("/documents/:id", s.handleGetDocument)
	v1.DELETE("/documents/:id", s.handleDeleteDocument)
	v1.GET("/stats", s.handleStats)
	v1.POST("/search", s.handleSearch)
	v1.POST("/chat", s.handleChat)
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Documents: s.store.Size()})
}

func (s *Server) handleIngest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	n, err := s.ingest.IngestText(c.Request().Context(), usecase.Source{
		Name:  req.Name,
		Text:  req.Text,
		Page:  req.Page,
		Extra: req.Metadata,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, IngestResponse{Source: req.Name, Chunks: n})
}

func (s *Server) handleListDocuments(c echo.Context) error {
	docs := s.store.All()
	views := make([]DocumentView, len(docs))
	for i, d := range docs {
		views[i] = newDocumentView(d)
	}
	return c.JSON(http.StatusOK, ListResponse{Documents: views, Count: len(views)})
}

func (s *Server) handleClearDocuments(c echo.Context) error {
	s.store.Clear()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetDocument(c echo.Context) error {
	doc, err := s.store.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newDocumentView(doc))
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	id := c.Param("id")
	if !s.store.Remove(id) {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Stats())
}

func (s *Server) handleSearch(c echo.Context) error {
	var req usecase.QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	results, err := s.retrieve.Retrieve(c.Request().Context(), req.Query, req.TopK, req.Filter)
	if err != nil {
		return err
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{DocumentView: newDocumentView(r.Document), Score: r.Score}
	}
	return c.JSON(http.StatusOK, SearchResponse{Results: hits})
}

// handleChat streams answer events as Server-Sent Events. A client that
// disconnects cancels the request context, which stops generation.
func (s *Server) handleChat(c echo.Context) error {
	var req usecase.QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	for ev := range s.answer.Stream(ctx, req) {
		if ctx.Err() != nil {
			continue
		}
		if err := writeEvent(w, ev); err != nil {
			s.logger.Debug("client went away", zap.Error(err))
			cancel()
			continue
		}
		w.Flush()
	}
	return nil
}

func writeEvent(w http.ResponseWriter, ev domain.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

// errorHandler renders domain errors with a status code derived from their kind.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := fmt.Sprint(he.Message)
			if e := c.JSON(he.Code, ErrorResponse{Kind: kindForStatus(he.Code), Message: msg}); e != nil {
				logger.Warn("failed to write error response", zap.Error(e))
			}
			return
		}

		kind := domain.KindOf(err)
		status := statusForKind(kind)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", zap.Error(err))
		}
		if e := c.JSON(status, ErrorResponse{Kind: kind, Message: err.Error()}); e != nil {
			logger.Warn("failed to write error response", zap.Error(e))
		}
	}
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidArgument, domain.KindInvalidConfig:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindEmbeddingFailed, domain.KindGenerationFailed:
		return http.StatusBadGateway
	case domain.KindGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func kindForStatus(status int) domain.ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return domain.KindInvalidArgument
	case http.StatusNotFound:
		return domain.KindNotFound
	default:
		return domain.KindInternal
	}
}
