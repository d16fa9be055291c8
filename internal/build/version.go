package build

// Set at link time:
//
//	go build -ldflags "-X github.com/rohmanhakim/webstory-importer/internal/build.Version=1.2.0"
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// UserAgent is the default User-Agent for story and asset fetches.
func UserAgent() string {
	return "webstory-importer/" + Version
}
