// Command mazewars-server runs the maze-combat game server: it listens for
// TCP clients, routes each to its own session, and serves Prometheus metrics
// over HTTP until a termination signal arrives.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/duskforge/mazewars/internal/config"
	"github.com/duskforge/mazewars/pkg/maze"
	"github.com/duskforge/mazewars/pkg/metrics"
	"github.com/duskforge/mazewars/pkg/player"
	"github.com/duskforge/mazewars/pkg/registry"
	"github.com/duskforge/mazewars/pkg/session"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if level, parseErr := logrus.ParseLevel(cfg.LogLevel); parseErr == nil {
		log.SetLevel(level)
	}

	template := maze.DefaultTemplate
	if cfg.MazeTemplatePath != "" {
		loaded, readErr := loadTemplate(cfg.MazeTemplatePath)
		if readErr != nil {
			log.WithError(readErr).Fatal("failed to load maze template")
		}
		template = loaded
	}
	m, err := maze.New(template)
	if err != nil {
		log.WithError(err).Fatal("failed to build maze")
	}

	reg := prometheus.NewRegistry()
	mx := metrics.New(reg)
	m.SetMetrics(mx)

	connRegistry := registry.NewWithLimit(cfg.MaxClients)
	done := make(chan struct{})
	table := player.NewTable(m, log, mx, done)

	listener, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		log.WithError(err).Fatalf("failed to listen on %s", cfg.Address)
	}
	log.WithField("address", cfg.Address).Info("server listening")

	metricsServer := &http.Server{Addr: cfg.MetricsAddress, Handler: metrics.Handler(reg)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("address", cfg.MetricsAddress).Info("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return acceptLoop(gctx, listener, connRegistry, table, mx, log)
	})

	<-gctx.Done()
	log.Info("shutting down")

	close(done)
	_ = listener.Close()
	connRegistry.ShutdownAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := connRegistry.WaitEmpty(shutdownCtx); err != nil {
		log.WithError(err).Warn("timed out waiting for clients to disconnect")
	}

	metricsShutdownCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	_ = metricsServer.Shutdown(metricsShutdownCtx)

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
	log.Info("server stopped")
}

func acceptLoop(ctx context.Context, listener net.Listener, reg *registry.Registry, table *player.Table, mx *metrics.Metrics, log *logrus.Logger) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.WithError(err).Warn("accept error")
				continue
			}
		}
		sess := session.New(conn, table, reg, mx, log)
		go sess.Run()
	}
}

func loadTemplate(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	return lines, nil
}
