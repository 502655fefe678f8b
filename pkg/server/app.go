package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Quantra/internal/domain/repository"
	"Quantra/internal/usecase"
	pkgch "Quantra/pkg/clickhouse"
	"Quantra/pkg/config"
	xhttp "Quantra/pkg/http"
	pkgkafka "Quantra/pkg/kafka"
	applogger "Quantra/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	collector  *usecase.TickCollector
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	chClient   *pkgch.Client
	pub        repository.Publisher
	sessions   *usecase.SessionRegistry
	retrain    *usecase.RetrainWorker
	httpServer *xhttp.Server
	handler    xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	pub repository.Publisher,
	sessions *usecase.SessionRegistry,
	retrain *usecase.RetrainWorker,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		pub:       pub,
		sessions:  sessions,
		retrain:   retrain,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Live tick ingestion is optional. Training and backtests work from
	// stored history and exchange REST alone.
	if a.cfg.Ingest.Enabled && a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.l.Error("collector error", applogger.Error(err))
			}
		}()
		a.l.Info("collector started", applogger.Strings("symbols", a.cfg.Binance.Symbols))

		if a.cfg.Ingest.Backend == "kafka" && a.consumer != nil && a.kh != nil {
			a.consumer.RegisterHandler(a.kh)
			go func() {
				if err := a.consumer.Start(); err != nil {
					a.l.Error("kafka consumer error", applogger.Error(err))
				}
			}()
			a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
		}
	}

	if a.retrain != nil {
		if err := a.retrain.Start(); err != nil {
			a.l.Error("retrain worker start error", applogger.Error(err))
		} else {
			a.l.Info("retrain worker started")
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// Paper sessions flush their positions before anything else closes.
	if a.sessions != nil {
		a.sessions.StopAll(ctx)
	}

	if a.retrain != nil {
		if err := a.retrain.Stop(ctx); err != nil {
			a.l.Warn("retrain worker stop error", applogger.Error(err))
		}
	}

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.l.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.l.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
