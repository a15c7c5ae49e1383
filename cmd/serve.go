package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/khanhnv2901/sitesniffer/internal/api"
	"github.com/khanhnv2901/sitesniffer/internal/application/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveOptions struct {
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       int
	RateBurst       int
	MaxJobs         int
}

var serveOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run sitesniffer as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cliConfig.Serve.Addr
		out := cmd.OutOrStdout()

		orchestrator := report.NewOrchestrator(cliConfig.inspectorConfig(logger), 0)
		jobManager := api.NewJobManager(orchestrator, &report.Runner{
			Concurrency: cliConfig.Batch.Concurrency,
			RateLimit:   cliConfig.Batch.RateLimit,
		}, logger)
		defer jobManager.Close()
		if serveOpts.MaxJobs > 0 {
			jobManager.SetMaxJobs(serveOpts.MaxJobs)
		}

		health := &healthService{}
		server := api.NewServer(api.Config{
			Inspector:   orchestrator,
			Health:      health,
			Jobs:        jobManager,
			AuthToken:   cliConfig.Serve.AuthToken,
			Logger:      logger,
			CORSOrigins: serveOpts.CORSOrigins,
			RateLimit:   serveOpts.RateLimit,
			RateBurst:   serveOpts.RateBurst,
		})
		defer server.Close()

		httpServer := &http.Server{
			Addr:         addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // job streams stay open
			IdleTimeout:  120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Fprintf(out, "%s API server listening on %s\n", colorInfo("→"), addr)
			fmt.Fprintf(out, "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Fprintf(out, "\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)
			health.draining.Store(true)
			logger.Info("shutting down", zap.String("signal", sig.String()))

			ctx, cancel := context.WithTimeout(context.Background(), serveOpts.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Fprintf(out, "%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&cliConfig.Serve.Addr, "addr", cliConfig.Serve.Addr, "Address for the API server")
	flags.StringVar(&cliConfig.Serve.AuthToken, "auth-token", "", "Optional shared secret for API requests")
	flags.DurationVar(&serveOpts.ShutdownTimeout, "shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	flags.StringSliceVar(&serveOpts.CORSOrigins, "cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	flags.IntVar(&serveOpts.RateLimit, "rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	flags.IntVar(&serveOpts.RateBurst, "rate-burst", 20, "Rate limit burst size")
	flags.IntVar(&serveOpts.MaxJobs, "max-jobs", 1000, "Finished jobs kept in memory")
}

// healthService reports the server healthy while it runs and not ready once
// shutdown has begun.
type healthService struct {
	draining atomic.Bool
}

func (h *healthService) Check(context.Context) error {
	return nil
}

func (h *healthService) Ready(context.Context) error {
	if h.draining.Load() {
		return errors.New("server is shutting down")
	}
	return nil
}
