package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaults_LocalDerivesSqlite(t *testing.T) {
	cfg := &Config{BuildTarget: "local", DBDriver: "auto"}
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestResolveDefaults_CloudDerivesPostgres(t *testing.T) {
	for _, target := range []string{"cloud-dev", "cloud"} {
		cfg := &Config{BuildTarget: target, DBDriver: ""}
		require.NoError(t, cfg.ResolveDefaults())
		assert.Equal(t, "postgres", cfg.DBDriver)
	}
}

func TestResolveDefaults_ExplicitDriverKept(t *testing.T) {
	cfg := &Config{BuildTarget: "cloud-dev", DBDriver: "sqlite"}
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestResolveDefaults_RejectsUnknownTarget(t *testing.T) {
	cfg := &Config{BuildTarget: "orbital"}
	assert.Error(t, cfg.ResolveDefaults())
}

func TestResolveDefaults_RejectsUnknownDriver(t *testing.T) {
	cfg := &Config{BuildTarget: "local", DBDriver: "spanner"}
	assert.Error(t, cfg.ResolveDefaults())
}

func TestNew_ReadsPrefixedEnv(t *testing.T) {
	t.Setenv("RETREAT_SCOUT_HTTP_PORT", "9191")
	t.Setenv("RETREAT_SCOUT_BUILD_TARGET", "local")
	t.Setenv("RETREAT_SCOUT_SEARCH_API_KEY", "k")
	t.Setenv("RETREAT_SCOUT_SEARCH_CX", "cx")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.HTTPPort)
	assert.Equal(t, ":9191", cfg.GetHTTPAddr())
	assert.Equal(t, "k", cfg.SearchAPIKey)
	assert.Equal(t, "cx", cfg.SearchCX)
}
