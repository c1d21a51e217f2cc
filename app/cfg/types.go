package cfg

type Cfg struct {
	// Subscription sources (first non-empty wins: URL, file, directory)
	OPMLURL  string
	OPMLPath string
	FeedsDir string

	// Dedup cache
	CacheBackend string // "file" or "sqlite"
	CachePath    string
	LockPath     string

	// Delivery
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	MailTo       []string
	SendRetries  int

	// Application configuration
	Interval    int // seconds between runs; 0 means run once and exit
	WorkerCount int
	Port        string // status API port, daemon mode only; empty disables
	LogDir      string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
