package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	simpleproducer "github.com/Fuchsoria/couponslots/internal/amqp/producer"
	"github.com/Fuchsoria/couponslots/internal/app"
	"github.com/Fuchsoria/couponslots/internal/logger"
	gw "github.com/Fuchsoria/couponslots/internal/server/grpc"
	memorystorage "github.com/Fuchsoria/couponslots/internal/storage/memory"
	sqlstorage "github.com/Fuchsoria/couponslots/internal/storage/sql"
	"github.com/Fuchsoria/couponslots/internal/version"
	"github.com/streadway/amqp"
)

var (
	configFile string
)

func init() {
	flag.StringVar(&configFile, "config", "/etc/couponslots/config.json", "Path to configuration file")
}

type closableStorage interface {
	app.Storage
	io.Closer
}

func main() {
	flag.Parse()

	if flag.Arg(0) == "version" {
		version.PrintVersion()

		return
	}

	config, err := NewConfig()
	if err != nil {
		log.Fatal(err)
	}

	logg := logger.New(config.Logger.Level, config.Logger.File)
	defer func() { _ = logg.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())

	storage, err := initStorage(ctx, config, logg)
	if err != nil {
		logg.Error(err.Error())

		log.Fatal(err)
	}
	defer storage.Close()

	publisher, closePublisher, err := initPublisher(config)
	if err != nil {
		logg.Error(err.Error())

		log.Fatal(err)
	}
	defer closePublisher()

	csApp := app.New(logg, storage, publisher)

	server, err := gw.NewServer(csApp, config.HTTP.Host, config.HTTP.Port, config.HTTP.GrpcPort)
	if err != nil {
		logg.Error(err.Error())

		log.Fatal(err)
	}

	defer cancel()

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

		select {
		case <-ctx.Done():
			return
		case <-signals:
		}

		signal.Stop(signals)
		cancel()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			logg.Error("failed to stop server: " + err.Error())
		}
	}()

	logg.Info("couponslots service is running...")

	if err := server.Start(ctx); err != nil {
		logg.Error("failed to start server: " + err.Error())
		cancel()
		os.Exit(1) //nolint:gocritic
	}
}

func initStorage(ctx context.Context, config Config, logg *logger.Logger) (closableStorage, error) {
	if config.Storage.Type == storageMemory {
		logg.Warn("using in-memory storage, data is lost on restart")

		return memorystorage.New(), nil
	}

	storage, err := sqlstorage.New(ctx, config.DB.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("can't create new storage instance, %w", err)
	}

	err = storage.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't connect to storage, %w", err)
	}

	if config.DB.Migrate {
		schema, err := storage.Migrate()
		if err != nil {
			return nil, fmt.Errorf("cannot migrate storage, %w", err)
		}

		logg.Info("storage schema is up to date", "version", schema)
	}

	return storage, nil
}

func initPublisher(config Config) (app.Publisher, func(), error) {
	if !config.AMQP.Enabled {
		return app.NopPublisher{}, func() {}, nil
	}

	conn, err := amqp.Dial(config.AMQP.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to amqp, %w", err)
	}

	producer := simpleproducer.New(config.AMQP.Exchange, conn)
	if err := producer.Connect(); err != nil {
		_ = conn.Close()

		return nil, nil, err
	}

	return producer, func() {
		_ = producer.Close()
		_ = conn.Close()
	}, nil
}
