package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/intraday/report"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve journaled runs and chart datasets over HTTP",
	Long: `Serve exposes the SQLite journal as a read-only JSON API:

  GET /healthz
  GET /api/v1/runs[?limit=N]
  GET /api/v1/runs/:id
  GET /api/v1/runs/:id/trades
  GET /api/v1/runs/:id/chart[?reveal_close=true]

Example:
  intraday serve --db runs.db --addr :8080`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	serveCmd.Flags().StringVar(&jDBPath, "db", "", "SQLite journal path (default journal.db_path)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = appCfg.Server.Addr
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              addr,
		Handler:           report.NewRouter(j, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
	}

	logger.Info("shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
