package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"assetgraph/internal/config"
	"assetgraph/internal/loader"
	"assetgraph/internal/repository"
	"assetgraph/internal/repository/neo4j"
	"assetgraph/internal/repository/sqlite"
)

func main() {
	configPath := flag.String("config", "", "config file path (overrides search)")
	seedPath := flag.String("seed", "", "YAML seed file to import")
	flag.Parse()

	if err := run(*configPath, *seedPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, seedPath string) error {
	var cfg *config.Config
	var loaded string
	var err error
	if configPath != "" {
		cfg, loaded, err = config.LoadFromPath(configPath)
	} else {
		cfg, loaded, err = config.Load()
	}
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	if loaded != "" {
		log.Info("config loaded", zap.String("path", loaded))
	} else {
		log.Info("no config file found, using defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	opts := []repository.Option{repository.WithLogger(log)}
	if !cfg.EnforceTaxonomy() {
		opts = append(opts, repository.WithoutTaxonomy())
	}
	var events *repository.EventLog
	if cfg.Events.Emit {
		events = repository.NewEventLog()
		opts = append(opts, repository.WithEvents(events))
	}

	repo := repository.New(store, opts...)
	defer repo.Close()

	if seedPath != "" {
		summary, err := loader.Load(ctx, repo, seedPath)
		if err != nil {
			return fmt.Errorf("import seed: %w", err)
		}
		log.Info("seed imported",
			zap.String("path", seedPath),
			zap.Int("assets", summary.Assets),
			zap.Int("relations", summary.Relations),
			zap.Int("tags", summary.Tags))
		if events != nil {
			for _, ev := range repo.FlushEvents() {
				log.Info("event", zap.String("type", string(ev.Type)))
			}
		}
	}

	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverNeo4j:
		return neo4j.Connect(ctx, neo4j.Config{
			URI:      cfg.Database.URI,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
		}, log)
	default:
		log.Info("opening sqlite store", zap.String("path", cfg.Database.Path))
		return sqlite.Open(cfg.Database.Path)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
