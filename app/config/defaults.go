package config

// defaultURLs is the guide set merged when no source list file is present.
var defaultURLs = []string{
	"https://epgshare01.online/epgshare01/epg_ripper_US2.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_US_SPORTS1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_US_LOCALS1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_UK1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_CA2.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_AU1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_FR1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_DE1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_ES1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_PT1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_IT1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_NL1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_BE2.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_CH1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_NZ1.xml.gz",
	"https://epgshare01.online/epgshare01/epg_ripper_GR1.xml.gz",
}

// DefaultSources returns the built-in source set, all enabled, named after
// their ripper suffix.
func DefaultSources() []Source {
	sources := make([]Source, 0, len(defaultURLs))
	for _, u := range defaultURLs {
		sources = append(sources, Source{
			Name:    slugFromURL(u),
			URL:     u,
			Enabled: true,
		})
	}
	return sources
}
