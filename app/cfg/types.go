package cfg

type Cfg struct {
	// Pipeline inputs
	PlaylistPath string
	SourcesPath  string

	// Pipeline outputs
	OutputPath    string
	TmpDir        string
	MaxOutputSize int // megabytes, 0 disables the cap

	// Run ledger
	DBPath string

	// Network
	UserAgent string
	Timeout   int // seconds, per request
	Retries   int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
