// Package version holds the build version surfaced in logs and health checks.
package version

// Version is the current release version.
var Version = "0.3.1"

// DevVersion is the development version.
var DevVersion = "0.3.1"

func GetCurrentVersion(mode string) string {
	if mode == "dev" {
		return DevVersion
	}
	return Version
}
