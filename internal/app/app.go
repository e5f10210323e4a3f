package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/avstrong/rentals/internal/config"
	"github.com/avstrong/rentals/internal/idgen/simple"
	"github.com/avstrong/rentals/internal/logger"
	"github.com/avstrong/rentals/internal/migration"
	"github.com/avstrong/rentals/internal/refresh"
	"github.com/avstrong/rentals/internal/rental"
	"github.com/avstrong/rentals/internal/search"
	"github.com/avstrong/rentals/internal/storage/memory"
	"github.com/avstrong/rentals/internal/storage/postgres"
	"github.com/avstrong/rentals/internal/transport/amqp"
	"github.com/avstrong/rentals/internal/transport/web"
)

const (
	shutdownTimeout = 4 * time.Second
	amqpPrefetch    = 1
	amqpRetryDelay  = 5 * time.Second
)

type snapshotSource interface {
	Load(ctx context.Context) (*rental.Snapshot, error)
}

func Run(conf *config.Config, l *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	source, closeSource, err := newSource(ctx, conf, l)
	if err != nil {
		return err
	}
	defer closeSource()

	storage := memory.New(memory.Config{L: l, Versions: simple.New()})
	refresher := refresh.New(l, source, storage)

	if _, err = refresher.Reload(ctx); err != nil {
		return fmt.Errorf("load initial catalog: %w", err)
	}

	if conf.RefreshInterval > 0 {
		go func() {
			if err := refresher.Run(ctx, conf.RefreshInterval); err != nil {
				l.LogErrorf("Catalog refresher stopped: %v", err.Error())
			}
		}()

		l.LogInfo("Catalog is reloaded every %s", conf.RefreshInterval)
	}

	if conf.RabbitMQ.URL != "" {
		consumer, err := startConsumer(ctx, conf, l, refresher)
		if err != nil {
			return err
		}
		defer consumer.Close()
	}

	manager := search.New(l, storage, search.Limits{
		DefaultPageSize: conf.Search.DefaultPageSize,
		MaxPageSize:     conf.Search.MaxPageSize,
		MaxStayNights:   conf.Search.MaxStayNights,
	})

	//nolint:exhaustruct
	webConf := web.Conf{
		L:                 l,
		ServerLogger:      log.Default(),
		Host:              conf.HTTP.Host,
		Port:              conf.HTTP.Port,
		ReadHeaderTimeout: conf.HTTP.ReadHeaderTimeout,
		LivenessEndpoint:  "/liveness",
		AllowedOrigins:    conf.HTTP.AllowedOrigins,
	}

	srv, err := web.New(ctx, webConf, manager)
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	//nolint:contextcheck
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}
	}()

	l.LogInfo("Application is running on %v:%v...", webConf.Host, webConf.Port)

	if err := srv.Srv().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		l.LogErrorf("Failed to run http server: %v", err.Error())

		cancel()
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}

// newSource picks postgres when DATABASE_URL is set and the embedded
// fixtures otherwise.
func newSource(ctx context.Context, conf *config.Config, l *logger.Logger) (snapshotSource, func(), error) {
	if conf.DatabaseURL == "" {
		loader, err := migration.NewLoader()
		if err != nil {
			return nil, nil, fmt.Errorf("init fixtures loader: %w", err)
		}

		l.LogInfo("DATABASE_URL is not set, serving the embedded fixtures")

		return loader, func() {}, nil
	}

	db, err := postgres.Open(ctx, conf.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}

	return postgres.New(db), func() { closeDB(l, db) }, nil
}

func closeDB(l *logger.Logger, db *sql.DB) {
	if err := db.Close(); err != nil {
		l.LogErrorf("Failed to close postgres: %v", err.Error())
	}
}

func startConsumer(ctx context.Context, conf *config.Config, l *logger.Logger, r *refresh.Refresher) (*amqp.Consumer, error) {
	consumer := amqp.New(amqp.Conf{
		L:          l,
		URL:        conf.RabbitMQ.URL,
		Exchange:   conf.RabbitMQ.Exchange,
		Queue:      conf.RabbitMQ.Queue,
		RoutingKey: conf.RabbitMQ.RoutingKey,
		Prefetch:   amqpPrefetch,
		RetryDelay: amqpRetryDelay,
	}, r)

	if err := consumer.Dial(); err != nil {
		return nil, fmt.Errorf("connect catalog change consumer: %w", err)
	}

	go func() {
		if err := consumer.Run(ctx); err != nil {
			l.LogErrorf("Catalog change consumer stopped: %v", err.Error())
		}
	}()

	return consumer, nil
}
