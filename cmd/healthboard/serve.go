package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"healthboard/internal/board"
	"healthboard/internal/config"
	"healthboard/internal/logger"
	"healthboard/internal/metrics"
	"healthboard/internal/monitor"
	"healthboard/internal/render"
	"healthboard/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server and the poller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := logger.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.Named("main")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	log.Info(ctx, "configuration loaded",
		logger.Int("targets", len(cfg.Targets)),
		logger.Int("interval_seconds", cfg.IntervalSeconds))

	m := metrics.NewManager()
	b := board.New(
		board.WithDiskSpaceComponent(cfg.DiskSpaceComponent),
		board.WithChartRenderer(render.NewSVGPie()),
	)
	mon := monitor.New(cfg.Interval(), cfg.Targets, b,
		monitor.WithLogger(logger.Named("monitor")),
		monitor.WithRecorder(m),
		monitor.WithRequestTimeout(cfg.RequestTimeout()),
	)

	srv, err := server.New(cfg.Addr, b, m, cfg.Targets, cfg.Interval(), logger.Named("server"))
	if err != nil {
		return err
	}

	mon.Start()
	defer mon.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown", logger.Error(err))
		}
	}()

	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info(context.Background(), "shut down")
	return nil
}
