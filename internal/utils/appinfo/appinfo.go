// Package appinfo provides build and environment information
package appinfo

import (
	"os"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X badgekit/internal/utils/appinfo.version=..."
var (
	version = ""
	commit  = ""
)

// Info describes the running binary
type Info struct {
	Version     string `json:"version"`
	Commit      string `json:"commit,omitempty"`
	GoVersion   string `json:"go_version"`
	Environment string `json:"environment"`
}

// Get returns the build and environment information of the binary
func Get() Info {
	return Info{
		Version:     GetVersion(),
		Commit:      GetCommit(),
		GoVersion:   runtime.Version(),
		Environment: GetEnvironment(),
	}
}

// GetEnvironment returns the normalized value of GO_ENV, defaulting to
// development
func GetEnvironment() string {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}

	switch strings.ToLower(env) {
	case "":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	case "dev", "development":
		return "development"
	default:
		return env
	}
}

// GetVersion returns the linked version, then APP_VERSION, then the module
// version from build info
func GetVersion() string {
	if version != "" {
		return version
	}
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}

	return "0.0.0-unknown"
}

// GetCommit returns the linked commit or the VCS revision recorded at build
func GetCommit() string {
	if commit != "" {
		return commit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}

	return ""
}
