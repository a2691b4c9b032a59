package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withLdflags(t *testing.T, version, date, commit string) {
	t.Helper()
	prevVersion, prevDate, prevCommit := Version, BuildDate, GitCommit
	Version, BuildDate, GitCommit = version, date, commit
	t.Cleanup(func() {
		Version, BuildDate, GitCommit = prevVersion, prevDate, prevCommit
	})
}

func TestResolve_FromBuildInfo(t *testing.T) {
	withLdflags(t, "", "", "")

	info := resolve(&debug.BuildInfo{
		Main: debug.Module{Path: "github.com/satishbabariya/go-dao", Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2025-06-01T10:00:00Z"},
		},
	})

	assert.Equal(t, "0.4.1", info.Version)
	assert.Equal(t, "abc123", info.GitCommit)
	assert.Equal(t, "2025-06-01T10:00:00Z", info.BuildDate)
}

func TestResolve_LdflagsWin(t *testing.T) {
	withLdflags(t, "1.2.3", "2024-01-01", "def456")

	info := resolve(&debug.BuildInfo{
		Main:     debug.Module{Version: "v0.4.1"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
	})

	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "def456", info.GitCommit)
	assert.Equal(t, "2024-01-01", info.BuildDate)
}

func TestResolve_DevelBuild(t *testing.T) {
	withLdflags(t, "", "", "")

	info := resolve(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "unknown", info.GitCommit)

	info = resolve(nil)
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "unknown", info.BuildDate)
}

func TestInfo_Providers(t *testing.T) {
	info := resolve(nil)

	require.Len(t, info.Providers, 3)
	assert.Equal(t, []Provider{
		{Name: "mysql", Driver: "mysql", MinVersion: "5.7"},
		{Name: "postgres", Driver: "postgres", MinVersion: "9.5"},
		{Name: "sqlite", Driver: "sqlite3", MinVersion: "3.8.3"},
	}, info.Providers)

	full := info.FullString()
	assert.Contains(t, full, "sqlite (driver sqlite3, server >= 3.8.3)")
	assert.Contains(t, full, "Go Version: "+info.GoVersion)
	assert.Equal(t, "daocore "+info.Version+" ("+info.Platform+" "+info.GoVersion+")", info.String())
}
