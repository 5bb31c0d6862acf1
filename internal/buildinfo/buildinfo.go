package buildinfo

import (
	"fmt"
	"runtime"
)

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string // when the binary was compiled
	CommitHash string // short git commit hash
)

// UserAgent identifies this client to the entries service.
func UserAgent() string {
	if CommitHash == "" {
		return "k2ctl/" + Version
	}
	return fmt.Sprintf("k2ctl/%s (%s)", Version, CommitHash)
}

// Summary is the one-line version banner.
func Summary() string {
	built := BuildTime
	if built == "" {
		built = "unknown"
	}
	return fmt.Sprintf("%s commit=%s built=%s go=%s", UserAgent(), orDash(CommitHash), built, runtime.Version())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
