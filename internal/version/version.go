// Package version holds build information, overridable with
// -ldflags "-X concertjournal/internal/version.Version=1.2.3".
package version

var (
	Version   = "1.0.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with a short commit hash when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}
