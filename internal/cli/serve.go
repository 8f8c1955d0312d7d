package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveHost   string
	servePort   int
	serveIngest string
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document store and answer pipeline over HTTP",
	Long: `Start the HTTP API. Documents can be posted to /api/v1/documents or
loaded from a directory at startup with --ingest.

Examples:
  rag serve
  rag serve --port 9000 --ingest ./docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	serveCmd.Flags().StringVar(&serveIngest, "ingest", "", "directory to ingest before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if serveIngest != "" {
		if _, err := ingestDir(ctx, a, serveIngest, false, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	srv, err := a.Server()
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
