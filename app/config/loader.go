package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of the guide source list
type Loader struct {
	path string
}

// NewLoader creates a new source list loader
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads the YAML source list. When the file does not exist the
// built-in default set is returned instead, so a checkout works without
// any configuration.
func (l *Loader) Load() ([]Source, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		slog.Debug("Source list not found, using built-in defaults", "path", l.path)
		return DefaultSources(), nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source list: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("no sources defined in %s", l.path)
	}

	sources := make([]Source, 0, len(file.Sources))
	for i, raw := range file.Sources {
		source, err := l.normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid source #%d in %s: %w", i+1, l.path, err)
		}
		sources = append(sources, source)
	}

	return sources, nil
}

// normalize applies defaults and validates a single source entry
func (l *Loader) normalize(raw rawSource) (Source, error) {
	if raw.URL == "" {
		return Source{}, fmt.Errorf("missing url")
	}

	parsed, err := url.Parse(raw.URL)
	if err != nil {
		return Source{}, fmt.Errorf("invalid url %q: %w", raw.URL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Source{}, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	source := Source{
		Name:    raw.Name,
		URL:     raw.URL,
		Enabled: true,
	}

	if raw.Enabled != nil {
		source.Enabled = *raw.Enabled
	}

	if source.Name == "" {
		source.Name = slugFromURL(raw.URL)
	}

	return source, nil
}

// slugFromURL derives a source name from the URL basename, e.g.
// ".../epg_ripper_US_SPORTS1.xml.gz" becomes "us-sports1".
func slugFromURL(rawURL string) string {
	base := path.Base(rawURL)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".xml")
	base = strings.TrimPrefix(base, "epg_ripper_")
	base = strings.ToLower(base)
	base = strings.ReplaceAll(base, "_", "-")
	if base == "" || base == "." || base == "/" {
		return "source"
	}
	return base
}
