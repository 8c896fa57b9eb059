// Package version holds build metadata set at link time, e.g.
//
//	go build -ldflags "-X github.com/Norgate-AV/kbuild/internal/version.Version=v1.0.0"
package version

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// String renders the metadata for --version
func String() string {
	return Version + " (" + Commit + ") " + BuildTime
}
