package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/playground/internal/di"
	ledgerhandlers "github.com/aristath/playground/internal/modules/ledger/handlers"
	"github.com/aristath/playground/internal/scheduler"
	"github.com/aristath/playground/internal/server"
)

// newServeCmd creates the serve command
func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger API and scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				a.cfg.Port = port
			}
			return a.withContainer(cmd.Context(), func(c *di.Container) error {
				return a.serve(c)
			})
		},
	}
	cmd.Flags().Int("port", 0, "HTTP port (PORT if not provided)")
	return cmd
}

func (a *app) serve(c *di.Container) error {
	sched := scheduler.New(a.log)
	jobs, err := di.RegisterJobs(c, a.cfg, sched, a.log)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       a.log,
		Port:      a.cfg.Port,
		DevMode:   a.cfg.DevMode,
		DataDir:   a.cfg.DataDir,
		Databases: c.Databases(),
		Modules: []server.RouteRegistrar{
			ledgerhandlers.NewHandler(c.Ledger, c.Reference, a.log),
		},
		Jobs:      jobs.All(),
		Scheduler: sched,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		a.log.Info().Msg("Shutting down")
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.log.Error().Err(err).Msg("Server forced to shutdown")
	}
	a.log.Info().Msg("Server stopped")
	return nil
}
