package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vango-dev/gaze/internal/config"
	"github.com/vango-dev/gaze/internal/errors"
	"github.com/vango-dev/gaze/pkg/bridge"
	"github.com/vango-dev/gaze/pkg/catalog"
	"github.com/vango-dev/gaze/pkg/metrics"
	"github.com/vango-dev/gaze/pkg/snapshot"
	"github.com/vango-dev/gaze/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var (
		dir  string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the source server",
		Long: `Start an HTTP server exposing the sources declared in gaze.json.

Examples:
  gaze serve
  gaze serve --dir ./deploy
  gaze serve --addr 0.0.0.0:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(dir)
			if err != nil {
				return err
			}
			if addr != "" {
				if err := applyAddr(cfg, addr); err != nil {
					return err
				}
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory containing gaze.json")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address, overrides server.host and server.port")

	return cmd
}

// loadConfig loads gaze.json from dir, falling back to defaults when the
// file does not exist.
func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if err == nil {
		return cfg, nil
	}
	var ge *errors.GazeError
	if stderrors.As(err, &ge) && ge.Code == "G100" {
		warn("No %s in %s, using defaults", config.ConfigFileName, dir)
		return config.New(), nil
	}
	return nil, err
}

func applyAddr(cfg *config.Config, addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.New("G102").WithDetail("--addr: " + err.Error())
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errors.New("G102").WithDetail("--addr: invalid port " + strconv.Quote(portStr))
	}
	cfg.Server.Host = host
	cfg.Server.Port = port
	return cfg.Validate()
}

// server holds everything runServer wires together.
type server struct {
	catalog   *catalog.Catalog
	bridge    *bridge.Bridge
	collector *metrics.Collector
	snapshots *snapshot.Snapshotter
	handler   http.Handler
}

func (s *server) Close() {
	s.bridge.Close()
	if s.collector != nil {
		s.collector.Close()
	}
	if s.snapshots != nil {
		s.snapshots.Close()
	}
}

// newServer builds the catalog and its watchers from cfg.
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, store snapshot.Store) (*server, error) {
	cat, err := buildCatalog(cfg.Sources)
	if err != nil {
		return nil, err
	}
	s := &server{catalog: cat}

	if store != nil {
		s.snapshots = snapshot.New(store, cat,
			snapshot.WithPrefix(cfg.Snapshot.Prefix),
			snapshot.WithTimeout(cfg.SnapshotTimeout()),
			snapshot.WithLogger(logger),
		)
		if err := s.snapshots.Restore(ctx); err != nil {
			logger.Warn("snapshot restore incomplete", "error", errors.New("G141").Wrap(err))
		}
	}

	var tracer *tracing.Tracer
	if cfg.Tracing.Enabled {
		tracer = tracing.New(tracing.WithTracerName(cfg.Tracing.TracerName))
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.collector = metrics.New(
			metrics.WithRegistry(reg),
			metrics.WithNamespace(cfg.Metrics.Namespace),
		)
		s.collector.TrackCatalog(cat)
	}

	bridgeOpts := []bridge.Option{bridge.WithLogger(logger), bridge.WithTracer(tracer)}
	if check := originChecker(cfg.Server.AllowedOrigins); check != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithCheckOrigin(check))
	}
	if s.collector != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithSetObserver(s.collector.ObserveSet))
	}
	s.bridge = bridge.New(cat, bridgeOpts...)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if reg != nil {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Mount("/", s.bridge.Router())
	s.handler = r
	return s, nil
}

// openStore returns the configured snapshot store, or nil when disabled.
func openStore(ctx context.Context, cfg config.SnapshotConfig) (snapshot.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Bucket == "" {
		return snapshot.NewMemoryStore(), nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New("G140").Wrap(err)
	}
	return snapshot.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Bucket), nil
}

// originChecker returns nil for same-origin only.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		return set[r.Header.Get("Origin")]
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg.Snapshot)
	if err != nil {
		return err
	}

	s, err := newServer(ctx, cfg, logger, store)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("gaze listening", "addr", cfg.Address(), "sources", s.catalog.Len())

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("G160").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	if s.snapshots != nil {
		if err := s.snapshots.SaveAll(shutdownCtx); err != nil {
			logger.Error("final snapshot failed", "error", err)
		}
	}
	return nil
}
