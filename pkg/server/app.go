package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	xhttp "TourCast/pkg/http"
	pkgkafka "TourCast/pkg/kafka"
	applogger "TourCast/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	closers    []io.Closer
}

// New creates a new App. consumer and kh may be nil when Kafka is not
// configured. closers are closed in order after the server and consumer stop.
func New(
	log *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	closers ...io.Closer,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		log:        log,
		httpServer: httpServer,
		consumer:   consumer,
		kh:         kh,
		closers:    closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the consumer and HTTP server and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()
	return a.shutdown(shutdownCtx)
}

func (a *App) shutdown(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http server stop error", applogger.Error(err))
		keep(err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Error("kafka consumer stop error", applogger.Error(err))
			keep(err)
		}
	}
	for _, c := range a.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
			keep(err)
		}
	}

	a.log.Info("application stopped")
	return firstErr
}
