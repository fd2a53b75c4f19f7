package version

import "runtime"

// Build metadata, overridden with -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the build metadata shown by `caret version`.
func String() string {
	return "caret " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// Short is the bare version, used as the cobra root Version.
func Short() string {
	return Version
}
