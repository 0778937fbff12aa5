package manager

// Platform is the build-time OS tag kept in Options. QueryRemotePackages
// does not include it in the index request, and the client does not
// filter assets by platform.
type Platform string

const (
	PlatformWindows Platform = "win32"
	PlatformMac     Platform = "mac"
	PlatformLinux   Platform = "linux"
)

// Options carries every tunable the manager needs to reach the remote
// index, authenticate, and lay out its three working directories.
type Options struct {
	Endpoint string
	IndexURI string

	HTTPUsername   string
	HTTPPassword   string
	HTTPOAuthToken string

	InstallDir string
	DataDir    string
	TempDir    string

	Platform          Platform
	ChecksumAlgorithm string
	ClearFailedCache  bool
	Whiny             bool
}
