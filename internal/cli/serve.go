package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jengzang/records-timeline/internal/api"
	"github.com/jengzang/records-timeline/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reconciliation scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
	cmd.Flags().String("port", "", "listen address, e.g. :8080")
	cmd.Flags().Bool("scheduler", true, "run periodic reconciliation")
	_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("scheduler.enabled", cmd.Flags().Lookup("scheduler"))
	return cmd
}

func serve(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Scheduler.Enabled {
		loc, _ := a.cfg.Location()
		scheduler, err := service.NewScheduler(a.cfg.Scheduler.Cron, a.services.Samples, a.services.Reprocess, loc)
		if err != nil {
			return err
		}
		go scheduler.Run(ctx)
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Port,
		Handler:           api.SetupRouter(a.cfg, a.services, a.metrics, ctx.Done()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", a.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
