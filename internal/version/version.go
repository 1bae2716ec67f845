package version

import "runtime/debug"

// Version is the build version. Set via -ldflags for releases;
// development builds fall back to the VCS revision.
var Version = "dev"

func init() {
	if Version != "dev" {
		return
	}
	if rev := vcsRevision(); rev != "" {
		Version = rev
	}
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return ""
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if modified {
		revision += "-dirty"
	}
	return revision
}
