package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lysyi3m/epg-comb/app/config"
	"github.com/lysyi3m/epg-comb/app/database"
	"github.com/lysyi3m/epg-comb/app/epg"
	"github.com/lysyi3m/epg-comb/app/feed"
	"github.com/lysyi3m/epg-comb/app/playlist"
)

// Options carries the paths and limits of one pipeline run.
type Options struct {
	PlaylistPath  string
	OutputPath    string
	TmpDir        string
	MaxOutputSize int // megabytes, 0 disables the cap
}

// Pipeline runs the merge end to end: load allow-list, download each
// source, scan and filter its blocks, publish the merged document.
// Execution is strictly sequential; the previously published output is
// replaced atomically and only on content change.
type Pipeline struct {
	opts    Options
	sources []config.Source
	fetcher *feed.Fetcher
	repo    database.RunRepository
}

// NewPipeline creates a new pipeline
func NewPipeline(opts Options, sources []config.Source, fetcher *feed.Fetcher, repo database.RunRepository) *Pipeline {
	return &Pipeline{
		opts:    opts,
		sources: sources,
		fetcher: fetcher,
		repo:    repo,
	}
}

// Run executes one merge. Any error aborts the run; no partial output is
// ever published.
func (p *Pipeline) Run(ctx context.Context) error {
	started := time.Now()

	allowed, err := playlist.NewLoader(p.opts.PlaylistPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load allow-list: %w", err)
	}
	slog.Info("Allow-list loaded", "playlist", p.opts.PlaylistPath, "ids", allowed.Len())

	if err := os.MkdirAll(p.opts.TmpDir, 0755); err != nil {
		return fmt.Errorf("failed to create tmp dir: %w", err)
	}

	runID, err := p.repo.CreateRun(started)
	if err != nil {
		return fmt.Errorf("failed to create run record: %w", err)
	}

	writer := epg.NewWriter(p.opts.OutputPath, p.opts.MaxOutputSize)
	if err := writer.Begin(); err != nil {
		return p.fail(runID, err)
	}
	defer writer.Discard()

	scanner := feed.NewScanner(allowed)

	enabled := enabledSources(p.sources)
	for i, source := range enabled {
		if err := ctx.Err(); err != nil {
			return p.fail(runID, err)
		}

		dest := filepath.Join(p.opts.TmpDir, fmt.Sprintf("%02d.xml.gz", i+1))
		slog.Info("Downloading guide", "source", source.Name, "url", source.URL, "position", fmt.Sprintf("%d/%d", i+1, len(enabled)))

		fetchStart := time.Now()
		attempts, err := p.fetcher.Fetch(ctx, source.URL, dest)
		if err != nil {
			return p.fail(runID, fmt.Errorf("failed to download %s: %w", source.URL, err))
		}

		stats, size, err := p.scanGuide(scanner, dest, writer)
		if err != nil {
			return p.fail(runID, fmt.Errorf("failed to scan %s: %w", source.Name, err))
		}

		p.recordFetch(database.Fetch{
			RunID:          runID,
			SourceName:     source.Name,
			SourceURL:      source.URL,
			Position:       i + 1,
			Attempts:       attempts,
			Bytes:          size,
			ChannelsKept:   stats.ChannelsKept,
			ProgrammesKept: stats.ProgrammesKept,
			DurationMs:     time.Since(fetchStart).Milliseconds(),
		})

		slog.Info("Guide merged", "source", source.Name,
			"channels", fmt.Sprintf("%d/%d", stats.ChannelsKept, stats.ChannelsSeen),
			"programmes", fmt.Sprintf("%d/%d", stats.ProgrammesKept, stats.ProgrammesSeen))
	}

	result, err := writer.Publish()
	if err != nil {
		return p.fail(runID, err)
	}

	if err := p.repo.FinishRun(runID, database.RunStatusOK, result.Hash, result.Bytes, result.Changed, ""); err != nil {
		slog.Warn("Failed to record run completion", "run", runID, "error", err)
	}

	if result.Changed {
		slog.Info("Output updated", "path", p.opts.OutputPath,
			"size_mb", fmt.Sprintf("%.2f", float64(result.Bytes)/(1024*1024)),
			"duration", time.Since(started).Round(time.Millisecond))
	} else {
		slog.Info("Output unchanged", "path", p.opts.OutputPath,
			"duration", time.Since(started).Round(time.Millisecond))
	}

	return nil
}

// scanGuide filters one downloaded guide into the merged document.
func (p *Pipeline) scanGuide(scanner *feed.Scanner, path string, writer *epg.Writer) (feed.Stats, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return feed.Stats{}, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return feed.Stats{}, 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	stats, err := scanner.Run(f, writer)
	if err != nil {
		return stats, info.Size(), err
	}

	return stats, info.Size(), nil
}

// fail marks the run failed in the ledger and passes the error through.
func (p *Pipeline) fail(runID int64, runErr error) error {
	if err := p.repo.FinishRun(runID, database.RunStatusFailed, "", 0, false, runErr.Error()); err != nil {
		slog.Warn("Failed to record run failure", "run", runID, "error", err)
	}
	return runErr
}

func (p *Pipeline) recordFetch(fetch database.Fetch) {
	if err := p.repo.RecordFetch(fetch); err != nil {
		slog.Warn("Failed to record fetch", "source", fetch.SourceName, "error", err)
	}
}

func enabledSources(sources []config.Source) []config.Source {
	enabled := make([]config.Source, 0, len(sources))
	for _, s := range sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}
