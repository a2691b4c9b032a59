package config

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useMemFs swaps AppFs for an in-memory filesystem and hides DATABASE_URL
// from the process environment for the duration of the test.
func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	prevFs, prevLookup := AppFs, lookupEnv
	AppFs = fs
	lookupEnv = func(string) (string, bool) { return "", false }
	t.Cleanup(func() {
		AppFs = prevFs
		lookupEnv = prevLookup
	})
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	useMemFs(t)

	l, err := NewLoader("")
	require.NoError(t, err)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Provider)
	assert.Equal(t, "file:daocore.db?cache=shared", cfg.DatabaseURL)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 8, cfg.Goroutines)
	assert.Equal(t, 1000, cfg.Iterations)
	assert.Empty(t, l.ConfigFile())
}

func TestLoad_ConfigFile(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "/etc/daocore.yaml", []byte(`provider: postgres
database_url: postgres://localhost/notes
debug: true
goroutines: 4
iterations: 50
`), 0o644))

	l, err := NewLoader("/etc/daocore.yaml")
	require.NoError(t, err)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Provider:    "postgres",
		DatabaseURL: "postgres://localhost/notes",
		Debug:       true,
		Goroutines:  4,
		Iterations:  50,
	}, cfg)
	assert.Equal(t, "/etc/daocore.yaml", l.ConfigFile())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	useMemFs(t)

	l, err := NewLoader("/nope/daocore.yaml")
	require.NoError(t, err)
	_, err = l.Load()
	assert.Error(t, err)
}

func TestLoad_EnvPrefix(t *testing.T) {
	useMemFs(t)
	t.Setenv("DAOCORE_PROVIDER", "mysql")
	t.Setenv("DAOCORE_GOROUTINES", "3")

	l, err := NewLoader("")
	require.NoError(t, err)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Provider)
	assert.Equal(t, 3, cfg.Goroutines)
}

func TestLoad_DotEnvOverrides(t *testing.T) {
	fs := useMemFs(t)
	require.NoError(t, afero.WriteFile(fs, ".env", []byte("DATABASE_URL=file:base.db\n"), 0o644))

	l, err := NewLoader("")
	require.NoError(t, err)
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "file:base.db", cfg.DatabaseURL)

	require.NoError(t, afero.WriteFile(fs, ".env.local", []byte("DATABASE_URL=file:local.db\n"), 0o644))
	cfg, err = l.Load()
	require.NoError(t, err)
	assert.Equal(t, "file:local.db", cfg.DatabaseURL)

	lookupEnv = func(key string) (string, bool) {
		if key == "DATABASE_URL" {
			return "file:process.db", true
		}
		return os.LookupEnv(key)
	}
	cfg, err = l.Load()
	require.NoError(t, err)
	assert.Equal(t, "file:process.db", cfg.DatabaseURL)
}

func TestLoad_RejectsNonPositiveCounts(t *testing.T) {
	useMemFs(t)
	t.Setenv("DAOCORE_ITERATIONS", "0")

	l, err := NewLoader("")
	require.NoError(t, err)
	_, err = l.Load()
	assert.ErrorContains(t, err, "iterations must be positive")
}
