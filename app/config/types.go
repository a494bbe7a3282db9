package config

// Source describes one remote gzip-compressed XMLTV guide. Order in the
// source list is the merge order of the final document.
type Source struct {
	Name    string
	URL     string
	Enabled bool
}

type rawSource struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled *bool  `yaml:"enabled"`
}

type sourcesFile struct {
	Sources []rawSource `yaml:"sources"`
}
