package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Pipeline inputs
	PlaylistPath string `long:"playlist" env:"PLAYLIST" default:"playlist.m3u" description:"Path to the M3U playlist carrying the allowed tvg-id values"`
	SourcesPath  string `long:"sources" env:"SOURCES" default:"sources.yml" description:"Path to the YAML source list (built-in defaults are used when the file is absent)"`

	// Pipeline outputs
	OutputPath    string `long:"output" env:"OUTPUT" default:"epg.xml" description:"Path of the merged XMLTV output"`
	TmpDir        string `long:"tmp-dir" env:"TMP_DIR" default:".tmp_epg" description:"Working directory for downloaded guide archives"`
	MaxOutputSize int    `long:"max-output-size" env:"MAX_OUTPUT_SIZE" default:"95" description:"Maximum merged output size in megabytes (0 disables the cap)"`

	// Run ledger
	DBPath string `long:"db-path" env:"DB_PATH" default:"epg-comb.db" description:"Path of the SQLite run ledger"`

	// Network
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (GitHubActions EPG Merger)" description:"User agent string for HTTP requests"`
	Timeout   int    `long:"timeout" env:"TIMEOUT" default:"120" description:"Per-request timeout in seconds"`
	Retries   int    `long:"retries" env:"RETRIES" default:"5" description:"Download attempts per source before giving up"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		PlaylistPath:  raw.PlaylistPath,
		SourcesPath:   raw.SourcesPath,
		OutputPath:    raw.OutputPath,
		TmpDir:        raw.TmpDir,
		MaxOutputSize: raw.MaxOutputSize,
		DBPath:        raw.DBPath,
		UserAgent:     raw.UserAgent,
		Timeout:       raw.Timeout,
		Retries:       raw.Retries,
		Timezone:      raw.Timezone,
		Debug:         raw.Debug,
		Version:       GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
