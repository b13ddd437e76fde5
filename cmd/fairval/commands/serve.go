package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/fairval/internal/api"
	"github.com/quantlab/fairval/internal/api/handlers"
	"github.com/quantlab/fairval/internal/scheduler"
	"github.com/quantlab/fairval/internal/scheduler/jobs"
)

var serveNoScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	Long: `Starts the API server with the daily refresh and retention jobs.

Examples:
  fairval serve
  fairval serve --no-scheduler`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "serve the API without background jobs")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := newApp(ctx)
	cancel()
	if err != nil {
		return err
	}
	defer a.Close()

	var sched *scheduler.Scheduler
	var runner handlers.JobRunner
	if !serveNoScheduler {
		sched = scheduler.New(a.log)
		if err := sched.AddJob(jobs.NewRefreshJob(a.repo, a.fetcher, a.log)); err != nil {
			return fmt.Errorf("failed to register refresh job: %w", err)
		}
		if err := sched.AddJob(jobs.NewRetentionJob(a.repo, a.cfg.Cache.RetentionDays, a.log)); err != nil {
			return fmt.Errorf("failed to register retention job: %w", err)
		}
		sched.Start()
		runner = sched
	}

	router := api.NewRouter(
		handlers.NewRankingHandler(a.analyzer, a.log),
		handlers.NewSectorsHandler(a.settings, a.log),
		handlers.NewMaintenanceHandler(a.repo, a.cfg.Cache.RetentionDays, a.log),
		handlers.NewJobsHandler(runner, a.log),
		a.log,
	)
	server := api.NewServer(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if sched != nil {
			sched.Stop()
		}
		return err
	case sig := <-stop:
		a.log.WithField("signal", sig.String()).Info("shutting down")
	}

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
