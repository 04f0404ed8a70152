package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/JustinTDCT/CineLog/internal/api"
	"github.com/JustinTDCT/CineLog/internal/auth"
	"github.com/JustinTDCT/CineLog/internal/catalog"
	"github.com/JustinTDCT/CineLog/internal/collection"
	"github.com/JustinTDCT/CineLog/internal/config"
	"github.com/JustinTDCT/CineLog/internal/db"
	"github.com/JustinTDCT/CineLog/internal/jobs"
	"github.com/JustinTDCT/CineLog/internal/kv"
	"github.com/JustinTDCT/CineLog/internal/scheduler"
	"github.com/JustinTDCT/CineLog/internal/version"
	"github.com/JustinTDCT/CineLog/internal/watcher"
)

func main() {
	hashKey := flag.String("hash-key", "", "print a bcrypt hash of the given API key and exit")
	flag.Parse()

	if *hashKey != "" {
		hash, err := auth.HashKey(*hashKey)
		if err != nil {
			log.Fatalf("hash key: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg := config.Load()
	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}))
	}

	ver := version.Load()
	log.Printf("CineLog %s starting...", ver.Version)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	backend, database, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer backend.Close()
	if database != nil {
		defer database.Close()
		cfg.MergeFromDB(database)
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	log.Printf("[catalog] %d movies loaded", cat.Len())
	if cfg.CatalogFile != "" {
		w, err := watcher.New(cfg.CatalogFile, watcher.DefaultSettle, func() error {
			return cat.Reload(cfg.CatalogFile)
		})
		if err != nil {
			log.Printf("[watcher] catalog reload disabled: %v", err)
		} else {
			w.Start()
			defer w.Stop()
		}
	}

	hub := api.NewWSHub()
	store := collection.NewStore(backend, collection.WithNotifier(hub))
	if err := store.Load(ctx); err != nil {
		log.Fatalf("collection: %v", err)
	}

	exporter := jobs.NewExporter(afero.NewOsFs(), filepath.Join(cfg.DataDir, "exports"), store)

	var queue *jobs.Queue
	var sched *scheduler.Scheduler
	if cfg.JobsEnabled() {
		queue = jobs.NewQueue(cfg.RedisAddr)
		jobs.RegisterHandlers(queue, exporter, hub)
		if err := queue.Start(ctx); err != nil {
			log.Fatalf("job queue: %v", err)
		}
		defer queue.Stop()

		sched, err = scheduler.New(cfg.ExportCron, func() error {
			_, err := jobs.EnqueueExport(queue, "scheduled")
			return err
		})
		if err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		sched.Start()
	}

	srv, err := api.NewServer(cfg, api.Deps{
		DB:       database,
		Catalog:  cat,
		Store:    store,
		Exporter: exporter,
		JobQueue: queue,
		Hub:      hub,
	})
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d (backend=%s, auth=%v, jobs=%v)", cfg.Port, cfg.KVBackend, cfg.AuthEnabled(), cfg.JobsEnabled())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	httpServer.Shutdown(shutdownCtx)
}

// openBackend returns the collection's key-value store and, for SQL
// backends, the database that also holds settings.
func openBackend(ctx context.Context, cfg *config.Config) (kv.Store, *db.DB, error) {
	switch cfg.KVBackend {
	case config.BackendMemory:
		log.Println("[storage] using in-memory backend; the collection will not survive a restart")
		return kv.NewMemoryStore(), nil, nil
	case config.BackendFile:
		store, err := kv.NewFileStore(afero.NewOsFs(), cfg.DataDir)
		return store, nil, err
	case config.BackendRedis:
		store, err := kv.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		return store, nil, err
	case config.BackendPostgres, config.BackendSQLite:
		dialect, dsn := db.Postgres, cfg.DatabaseURL
		if cfg.KVBackend == config.BackendSQLite {
			dialect, dsn = db.SQLite, cfg.SQLitePath
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, nil, err
			}
		}
		database, err := db.Connect(dialect, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(database); err != nil {
			database.Close()
			return nil, nil, err
		}
		return kv.NewSQLStore(database), database, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.KVBackend)
}
