package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/AngelCh415/fakestat/internal/config"
	"github.com/AngelCh415/fakestat/internal/httpx"
	"github.com/AngelCh415/fakestat/internal/metrics"
	"github.com/AngelCh415/fakestat/internal/preset"
	"github.com/AngelCh415/fakestat/internal/realtime"
	"github.com/AngelCh415/fakestat/internal/store"
	"github.com/AngelCh415/fakestat/internal/telemetry"
)

// App is the wired service: store, generator, push hub, collectors and router.
type App struct {
	Store     *store.MemoryStore
	Generator *preset.Generator
	Hub       *realtime.Hub
	Telemetry *telemetry.Collectors
	Handler   http.Handler

	cfg config.Config
	log *slog.Logger
}

func New(cfg config.Config, log *slog.Logger) *App {
	tel := telemetry.New()

	var storeOpts []store.Option
	genOpts := []preset.Option{preset.WithRunHook(tel.ObservePreset)}
	if cfg.RandomSeed != 0 {
		storeOpts = append(storeOpts, store.WithRand(rand.New(rand.NewSource(cfg.RandomSeed))))
		genOpts = append(genOpts, preset.WithRand(rand.New(rand.NewSource(cfg.RandomSeed+1))))
	}

	st := store.NewMemoryStore(storeOpts...)
	if cfg.SeedSample {
		st.LoadSample()
	}
	tel.SetRecords(st.Len())

	hub := realtime.NewHub(log, st.List())
	st.Subscribe(tel.ObserveStore)
	st.Subscribe(hub.Broadcast)

	gen := preset.NewGenerator(log, genOpts...)

	return &App{
		Store:     st,
		Generator: gen,
		Hub:       hub,
		Telemetry: tel,
		Handler: httpx.NewRouter(log, httpx.Deps{
			Store:     st,
			Stats:     metrics.NewService(st),
			Preset:    gen,
			Hub:       http.HandlerFunc(hub.HandleWebSocket),
			Metrics:   tel.Handler(),
			StaticDir: cfg.StaticDir,
		}),
		cfg: cfg,
		log: log,
	}
}

// Serve runs the HTTP server on ln until ctx is done, then shuts down within
// the configured timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.HTTPTimeout,
		WriteTimeout:      a.cfg.HTTPTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting server", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down", slog.Duration("timeout", a.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.cfg.Port)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}
