package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go-stream-listener/internal/application/facade"
	"go-stream-listener/internal/infrastructure/config"
	"go-stream-listener/internal/infrastructure/logger"
	"go-stream-listener/internal/infrastructure/server"
	"go-stream-listener/internal/infrastructure/stream"
	"go-stream-listener/internal/infrastructure/transport"
)

func main() {
	configPath := flag.String("config", os.Getenv("STREAM_LISTENER_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	sctx := WithSignal(ctx)

	log := logger.NewLogrusLogger(&cfg.Log)

	registry := transport.NewDefaultRegistry(cfg.Transport.SSE, cfg.Transport.WebSocket, log)
	manager := stream.NewManager(registry, log)
	if err := manager.Start(ctx); err != nil {
		log.Errorf("failed to start stream manager: %v", err)
		return
	}

	service := facade.NewStreamApplicationService(manager, cfg.HistorySize, log)
	openConfiguredStreams(service, cfg.Streams, log)

	router := InitRouter(service, log)
	httpSrv := server.NewHTTPServer(cfg.Server.Addr, router)
	app := newApplication(log, httpSrv, manager)
	log.Infof("listening on %s", cfg.Server.Addr)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
	}
}

// openConfiguredStreams opens the boot streams. A stream that cannot be acquired is
// logged and skipped.
func openConfiguredStreams(service *facade.StreamApplicationService, streams []config.StreamConfig, log logger.Logger) {
	for _, s := range streams {
		sub, err := service.Open(s.Name, s.Address, facade.Policy{
			StopOn:      s.StopOn,
			MaxEvents:   s.MaxEvents,
			StopOnError: s.StopOnError,
		})
		if err != nil {
			log.Errorf("failed to open stream %q: %v", s.Name, err)
			continue
		}
		log.Infof("opened configured stream %s as %s", sub.Name, sub.ID)
	}
}

// Application runs the HTTP server and shuts the stream manager down with it.
type Application struct {
	logger  logger.Logger
	httpSrv server.Server
	manager *stream.Manager
}

func newApplication(
	logger logger.Logger,
	httpSrv server.Server,
	manager *stream.Manager,
) *Application {
	return &Application{
		logger:  logger.WithField("app", "stream-listener"),
		httpSrv: httpSrv,
		manager: manager,
	}
}

// Run serves until ctx is done, then stops the manager and the server.
func (app *Application) Run(ctx context.Context) error {
	eg := errgroup.Group{}

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()

		gracefulshutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()

		// Stop upstream connections before the relay clients go away
		if err := app.manager.Stop(gracefulshutdownCtx); err != nil {
			app.logger.Errorf("failed to stop stream manager: %v", err)
		}

		return app.httpSrv.Stop(gracefulshutdownCtx)
	})

	return eg.Wait()
}

// WithSignal returns a context cancelled on SIGINT or SIGTERM.
func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
