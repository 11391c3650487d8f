package version

import "fmt"

// These variables are injected at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String returns a human-readable version string.
func String() string {
	return fmt.Sprintf("whanos %s (%s, %s)", Version, Commit, BuildDate)
}

// IsDev reports whether v is the placeholder used when no release version
// was injected at build time.
func IsDev(v string) bool {
	return v == "" || v == "dev"
}
