package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.NewFromValues(nil)

	require.Equal(t, ":8090", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "http://localhost:8000/api/v1", c.GetAPIBaseURL())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
	require.Equal(t, config.StorageKindFile, c.GetTokenStorageKind())
	require.Equal(t, filepath.Join("./data", "tokens.json"), c.GetTokenFilePath())
	require.Empty(t, c.GetStorageKey())
}

func TestOverrides(t *testing.T) {
	c := config.NewFromValues(map[string]any{
		"port":         ":9000",
		"env":          "prod",
		"api.baseurl":  "https://auth.example.com/api/v1/",
		"api.timeout":  "2s",
		"storage.kind": "SQLite",
		"data.folder":  "/var/lib/client",
	})

	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, "PROD", c.GetEnv())
	require.Equal(t, "https://auth.example.com/api/v1", c.GetAPIBaseURL())
	require.Equal(t, 2*time.Second, c.GetRequestTimeout())
	require.Equal(t, config.StorageKindSQLite, c.GetTokenStorageKind())
	require.Equal(t, "/var/lib/client/tokens.db", c.GetTokenDBPath())
}

func TestEnvironmentBinding(t *testing.T) {
	t.Setenv("AUTHCLIENT_API_BASEURL", "http://api.internal/api/v1")
	t.Setenv("AUTHCLIENT_PORT", "7000")

	c := config.New()
	require.Equal(t, "http://api.internal/api/v1", c.GetAPIBaseURL())
	require.Equal(t, ":7000", c.GetPort())
}
