package manager

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"pacm/internal/installtask"
	"pacm/internal/pkgmodel"
	"pacm/internal/transport"
)

// Defaults applied when the corresponding Options field is unset.
const (
	DefaultInstallDir        = "pacm/install"
	DefaultDataDir           = "pacm/data"
	DefaultTempDir           = "pacm/tmp"
	DefaultChecksumAlgorithm = "md5"
	defaultHTTPTimeout       = 30 * time.Second
)

// Config bundles Options with the injected collaborators the design notes
// call for in place of the source's process-wide singletons. Logger is
// nil-safe: an unset Logger falls back to a discard logger so every call
// site in the manager, its tasks, and its monitors can log unconditionally.
type Config struct {
	Options
	Publisher  EventPublisher
	Downloader transport.Downloader
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// NewWithConfig constructs a Manager from Config, applying defaults for
// any unset directory, checksum algorithm, or collaborator.
func NewWithConfig(cfg Config) *Manager {
	opts := cfg.Options
	if opts.InstallDir == "" {
		opts.InstallDir = DefaultInstallDir
	}
	if opts.DataDir == "" {
		opts.DataDir = DefaultDataDir
	}
	if opts.TempDir == "" {
		opts.TempDir = DefaultTempDir
	}
	if opts.ChecksumAlgorithm == "" {
		opts.ChecksumAlgorithm = DefaultChecksumAlgorithm
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = noopPublisher{}
	}
	downloader := cfg.Downloader
	if downloader == nil {
		downloader = transport.New(defaultHTTPTimeout)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Manager{
		opts:           opts,
		localPackages:  make(map[string]*pkgmodel.LocalPackage),
		remotePackages: make(map[string]*pkgmodel.RemotePackage),
		tasks:          make(map[string]*installtask.Task),
		publisher:      publisher,
		downloader:     downloader,
		httpClient:     httpClient,
		logger:         logger,
		startTime:      time.Now(),
	}
}

// New constructs a Manager from Options alone, using default
// collaborators (a real HTTP downloader and a no-op event publisher).
func New(opts Options) *Manager {
	return NewWithConfig(Config{Options: opts})
}
