package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/satishbabariya/go-dao/dao"
)

// Set with -ldflags "-X .../internal/version.Version=..." at release time.
// Empty values are filled from the module build info.
var (
	Version   = ""
	BuildDate = ""
	GitCommit = ""
)

const unknown = "unknown"

// Provider describes one compiled-in database dialect.
type Provider struct {
	Name       string
	Driver     string
	MinVersion string
}

// Info describes the running binary.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
	Providers []Provider
}

// Get returns version information for the running binary.
func Get() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(bi)
}

func resolve(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if bi != nil {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = strings.TrimPrefix(bi.Main.Version, "v")
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	if info.GitCommit == "" {
		info.GitCommit = unknown
	}

	for _, d := range dao.Dialects() {
		info.Providers = append(info.Providers, Provider{Name: d.Provider, Driver: d.Driver, MinVersion: d.MinVersion})
	}
	return info
}

// String returns a one-line version string.
func (i Info) String() string {
	return fmt.Sprintf("daocore %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString returns the version, build details and supported providers.
func (i Info) FullString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "daocore %s\n", i.Version)
	fmt.Fprintf(&sb, "Build Date: %s\n", i.BuildDate)
	fmt.Fprintf(&sb, "Git Commit: %s\n", i.GitCommit)
	fmt.Fprintf(&sb, "Platform: %s\n", i.Platform)
	fmt.Fprintf(&sb, "Go Version: %s\n", i.GoVersion)
	sb.WriteString("Providers:")
	for _, p := range i.Providers {
		fmt.Fprintf(&sb, "\n  %s (driver %s, server >= %s)", p.Name, p.Driver, p.MinVersion)
	}
	return sb.String()
}
