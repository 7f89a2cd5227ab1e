package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bayesnet/internal/config"
	"bayesnet/internal/handler"
	"bayesnet/internal/hub"
	"bayesnet/internal/inference"
	"bayesnet/internal/loader"
	"bayesnet/internal/repository/sqlite"
	"bayesnet/internal/service"
	"bayesnet/internal/watcher"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		dbPath   string
		watch    []string
		examples bool
	)

	cmd := &cobra.Command{
		Use:   "serve [FILE...]",
		Short: "Serve the HTTP API",
		Long: `Starts the HTTP API. Networks stored in the database are restored on
start; network files given as arguments or with --watch are loaded, and
watched files are reloaded whenever they change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			if dbPath == "" {
				dbPath = a.cfg.Database.Path
			}
			cfg.Watch = append(cfg.Watch, watch...)

			return a.serve(cmd.Context(), cfg, dbPath, args, examples)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	cmd.Flags().StringSliceVarP(&watch, "watch", "w", nil, "Network files to load and reload on change")
	cmd.Flags().BoolVar(&examples, "examples", false, "Register the built-in example networks")
	return cmd
}

func (a *app) serve(ctx context.Context, cfg config.ServerConfig, dbPath string, files []string, examples bool) error {
	logger := a.logger

	repo, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	logger.Info("database opened", zap.String("path", dbPath))

	algorithm := a.cfg.Inference.Algorithm
	if algorithm == config.AlgorithmBoth {
		algorithm = inference.AlgorithmEnumeration
	}

	eventBus := service.NewEventBus()
	metrics := service.NewMetrics()
	svc := service.NewNetworkService(eventBus,
		service.WithRepository(repo),
		service.WithLoader(a.loader()),
		service.WithMetrics(metrics),
		service.WithLogger(logger),
		service.WithDefaultAlgorithm(algorithm),
		service.WithHistoryLimit(cfg.HistoryLimit),
	)

	if _, err := svc.Restore(ctx); err != nil {
		return err
	}
	if examples {
		for _, name := range loader.Examples() {
			net, _ := loader.Example(name)
			if err := svc.Register(ctx, net, "example"); err != nil {
				return err
			}
		}
	}
	for _, path := range append(files, cfg.Watch...) {
		if _, err := svc.LoadFile(ctx, path); err != nil {
			return err
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	sseHub := hub.New(logger)
	g.Go(func() error {
		sseHub.Run(gCtx)
		return nil
	})

	// Connect event bus to SSE hub
	events := make(chan service.Event, 100)
	eventBus.Subscribe(events)
	defer eventBus.Unsubscribe(events)
	g.Go(func() error {
		hub.Forward(gCtx, sseHub, events)
		return nil
	})

	if len(cfg.Watch) > 0 {
		w := watcher.New(cfg.Watch, func(path string) {
			if _, err := svc.LoadFile(gCtx, path); err != nil {
				logger.Warn("reload failed, keeping previous network", zap.String("path", path), zap.Error(err))
			}
		}).WithLogger(logger)
		g.Go(func() error {
			if err := w.Watch(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler.NewServerHandler(handler.NewNetworkHandler(svc, logger), sseHub, metrics.Handler(), logger),
		ReadTimeout:  cfg.ReadTimeout.Duration(),
		WriteTimeout: cfg.WriteTimeout.Duration(),
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration())
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
