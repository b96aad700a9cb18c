package version

import "runtime/debug"

// Build-time parameters set via -ldflags
var Version = "devel"

// A user may install chatscroller using `go install
// github.com/tloncorp/chatscroller@latest`. Without -ldflags, Version stays
// "devel", so fall back to the module version.
func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	mainVersion := info.Main.Version
	if mainVersion != "" && mainVersion != "(devel)" {
		Version = mainVersion
	}
}
