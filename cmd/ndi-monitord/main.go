package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/smithevan-qanc/ndi-monitor/internal/config"
	"github.com/smithevan-qanc/ndi-monitor/internal/display"
	"github.com/smithevan-qanc/ndi-monitor/internal/monitor"
	"github.com/smithevan-qanc/ndi-monitor/internal/source"
	"github.com/smithevan-qanc/ndi-monitor/internal/web"
)

const discoverTimeout = 3 * time.Second

func init() {
	// SDL video must stay on the thread that initialized it.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Path to service configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	headless := flag.Bool("headless", false, "Run without a display output (web interface only)")
	synthetic := flag.Bool("synthetic", false, "Use synthetic sources instead of NDI")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}

	// The ring handler feeds the web log view; everything still reaches
	// stdout through the wrapped JSON handler.
	ring := web.NewRingHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}), web.DefaultLogCapacity)
	slog.SetDefault(slog.New(ring))

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load configuration", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *synthetic {
		cfg.Synthetic = true
	}

	slog.Info("starting ndi-monitor",
		"listen_addr", cfg.ListenAddr,
		"shared_config", cfg.SharedConfigPath,
		"synthetic", cfg.Synthetic,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var finder source.Finder
	var connector source.Connector
	if cfg.Synthetic {
		f := source.SyntheticFinder{}
		finder = f
		connector = source.ConnectSynthetic
	} else {
		f, err := source.NewGstFinder()
		if err != nil {
			slog.Error("failed to initialize NDI discovery", "error", err)
			os.Exit(1)
		}
		finder = f
		connector = func(name string) (source.Source, error) {
			return source.ConnectGst(f, name)
		}
	}

	store := config.NewStore(cfg.SharedConfigPath)
	state := monitor.NewState(connector)
	defer state.Close()

	watcher := config.NewWatcher(store)
	go watcher.Run(ctx)
	go state.Reconcile(ctx, monitor.DefaultRetryConfig())

	srv := web.NewServer(state, store, finder, ring)
	go srv.Hub().Run(ctx)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Handler()}
	errChan := make(chan error, 1)
	go func() {
		slog.Info("web interface listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Honor the persisted selection, or latch onto the first discovered
	// source on a fresh install.
	go func() {
		doc := store.Load()
		if doc.SelectedSource != "" {
			state.RequestSource(doc.SelectedSource)
			return
		}
		names, err := finder.ListSources(discoverTimeout)
		if err != nil || len(names) == 0 {
			slog.Info("no sources discovered at startup")
			return
		}
		slog.Info("auto-connecting to first discovered source", "name", names[0])
		if err := store.Merge(func(d *config.Document) { d.SelectedSource = names[0] }); err != nil {
			slog.Warn("failed to persist auto-selected source", "error", err)
		}
		state.RequestSource(names[0])
	}()

	// Cancel the run context on a signal or a web server failure.
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig)
		case err := <-errChan:
			slog.Error("web server failed", "error", err)
		case <-ctx.Done():
		}
		cancel()
	}()

	// SDL is not thread safe, so the render loop owns the main goroutine.
	if *headless {
		<-ctx.Done()
	} else {
		surface, err := display.NewSDLSurface(cfg.Display.Width, cfg.Display.Height)
		if err != nil {
			slog.Error("failed to open display", "error", err)
			os.Exit(1)
		}
		defer surface.Close()

		renderer := display.NewRenderer(state, surface, watcher.Updates(),
			time.Duration(cfg.Display.FadeMS)*time.Millisecond)
		if err := renderer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("render loop failed", "error", err)
			cancel()
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("web server shutdown incomplete", "error", err)
	}

	slog.Info("ndi-monitor stopped")
}
