// Command nautilus runs the notification core: the presence and
// contact-list server that front-end protocol adapters and
// switchboards build on.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/nautilusim/nautilus/internal/auth"
	"github.com/nautilusim/nautilus/internal/backend"
	"github.com/nautilusim/nautilus/internal/config"
	"github.com/nautilusim/nautilus/internal/db"
	"github.com/nautilusim/nautilus/internal/logging"
	"github.com/nautilusim/nautilus/internal/models"
	"github.com/nautilusim/nautilus/internal/session"
	"github.com/nautilusim/nautilus/internal/store"
)

var version = "dev"

func main() {
	logging.Setup()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("nautilus", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	showVersion := fs.Bool("version", false, "print version and exit")
	_ = fs.Parse(args)

	if *showVersion {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer database.Close()
	if err := db.Migrate(database); err != nil {
		return err
	}

	be := backend.New(
		slog.Default(),
		store.New(database, cfg.StorageRoot()),
		auth.NewService(),
		session.NewRegistry(),
		backend.WithSwitchboardAddress(models.ServiceAddress{
			Host: cfg.Switchboard.Host,
			Port: cfg.Switchboard.Port,
		}),
		backend.WithPump(cfg.PumpInterval, cfg.PumpBatch),
		backend.WithTokenLifetime(cfg.TokenLifetime),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("nautilus starting", "version", version, "metrics", cfg.MetricsAddr, "data", cfg.DataDir)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return be.RunPump(ctx)
	})
	g.Go(func() error {
		return serveMetrics(ctx, cfg.MetricsAddr)
	})
	return g.Wait()
}

// serveMetrics exposes Prometheus metrics until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
