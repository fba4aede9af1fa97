package version

// Version is overridden at build time with
// -ldflags "-X warpdir/internal/version.Version=v1.2.3".
var Version = "dev"

func String() string {
	if Version == "" {
		return "dev"
	}
	return Version
}
