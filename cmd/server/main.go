package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/classattendance/internal/attendance"
	"github.com/classattendance/internal/config"
	httpx "github.com/classattendance/internal/http"
	"github.com/classattendance/internal/keys"
	"github.com/classattendance/internal/kv"
	"github.com/classattendance/internal/logger"
	"github.com/classattendance/internal/metrics"
	"github.com/classattendance/internal/migrations"
	"github.com/classattendance/internal/subjects"
	"github.com/classattendance/internal/telegram"
	"github.com/classattendance/internal/timezone"
	"github.com/dgraph-io/badger/v4"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, toml or json)")
	addr := flag.String("address", "", "http address to listen to, overrides the config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[ERROR] config: %s", err)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogger := logger.New(cfg.App.Env, os.Stderr)

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[ERROR] storage: %s", err)
	}
	defer closer.Close()

	if cfg.Storage.EncryptionKey != "" {
		encryptionKey, err := keys.ParseKey([]byte(cfg.Storage.EncryptionKey))
		if err != nil {
			log.Fatalf("[ERROR] encryption-key: %s", err)
		}
		store = kv.NewEncrypted(store, encryptionKey)
	}

	if err := migrations.Run(ctx, slogger, store); err != nil {
		log.Fatalf("[ERROR] db migrations: %s", err)
	}

	zone, err := timezone.Load(cfg.App.Timezone)
	if err != nil {
		log.Fatalf("[ERROR] timezone: %s", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	registry := subjects.NewRegistry(slogger, store)
	ledger := attendance.NewLedger(slogger, store, registry)
	registry.OnAdded(ledger.Drop)
	registry.OnRemoved(ledger.Drop)

	if cfg.Telegram.Token != "" {
		telegramStore := telegram.NewStore(store)
		commands := telegram.NewCommands(slogger, telegramStore, registry, ledger, zone)
		bot, err := telegram.NewBot(slogger, telegramStore, commands, m, cfg.Telegram.Token)
		if err != nil {
			log.Fatalf("[ERROR] telegram: %s", err)
		}
		slogger = slog.New(telegram.NewSlogHandler(bot, slogger.Handler()))

		go func() {
			if err := bot.Listen(ctx); err != nil {
				slogger.Error("telegram listen", "error", err)
			}
		}()
	}

	httpServer := http.Server{
		Handler: httpx.Handler(slogger, m, registry, ledger),
	}

	// Wait for shut down in a separate goroutine.
	errCh := make(chan error)
	go func() {
		shutdownCh := make(chan os.Signal, 1)
		signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
		sig := <-shutdownCh

		slogger.Info("shutting down", "signal", sig.String())
		cancel()

		shutdownTimeout := 15 * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		errCh <- httpServer.Shutdown(shutdownCtx)
	}()

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		log.Fatalf("[ERROR] tcp: %s", err)
	}
	slogger.Info("listening", "address", ln.Addr().String(), "storage", cfg.Storage.Driver)

	if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		slogger.Error("http serve", "error", err)
	}

	if err := <-errCh; err != nil {
		slogger.Error("error during shutdown", "error", err)
	}

	slogger.Info("application stopped")
}

func openStore(ctx context.Context, cfg config.Config) (kv.Store, io.Closer, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := kv.OpenSQLite(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.DriverRedis:
		store, err := kv.OpenRedis(ctx, kv.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		db, err := badger.Open(badger.DefaultOptions(cfg.Storage.Path))
		if err != nil {
			return nil, nil, err
		}
		return kv.NewBadger(db), db, nil
	}
}
