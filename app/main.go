package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	appcfg "github.com/lysyi3m/epg-comb/app/cfg"
	"github.com/lysyi3m/epg-comb/app/config"
	"github.com/lysyi3m/epg-comb/app/database"
	"github.com/lysyi3m/epg-comb/app/feed"
	"github.com/lysyi3m/epg-comb/app/pipeline"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg == nil {
		// Help was shown, exit gracefully
		return
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting EPG merge", "version", cfg.Version)

	db, err := database.NewConnection(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open run ledger: ", err)
	}
	defer db.Close()

	migrationVersion, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to migrate run ledger: ", err)
	}
	slog.Debug("Run ledger ready", "path", cfg.DBPath, "migration", migrationVersion, "dirty", dirty)

	sources, err := config.NewLoader(cfg.SourcesPath).Load()
	if err != nil {
		log.Fatal("Failed to load source list: ", err)
	}
	slog.Info("Source list loaded", "count", len(sources))

	fetcher := feed.NewFetcher(cfg.UserAgent, time.Duration(cfg.Timeout)*time.Second, cfg.Retries)
	repo := database.NewRunRepository(db)

	if last, err := repo.GetLastSuccessfulRun(); err != nil {
		slog.Warn("Failed to read run history", "error", err)
	} else if last != nil {
		slog.Info("Last successful run", "started", last.StartedAt.Format(time.RFC3339), "changed", last.Changed,
			"size_mb", fmt.Sprintf("%.2f", float64(last.OutputBytes)/(1024*1024)))
	}

	p := pipeline.NewPipeline(pipeline.Options{
		PlaylistPath:  cfg.PlaylistPath,
		OutputPath:    cfg.OutputPath,
		TmpDir:        cfg.TmpDir,
		MaxOutputSize: cfg.MaxOutputSize,
	}, sources, fetcher, repo)

	if err := p.Run(context.Background()); err != nil {
		log.Fatal("Merge failed: ", err)
	}
}
