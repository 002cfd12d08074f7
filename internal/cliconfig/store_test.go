package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	configPathOverride = path
	t.Cleanup(func() { configPathOverride = "" })
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	useTempConfig(t)

	cfg, err := Load()
	require.NoError(t, err)
	_, err = cfg.GetCredential("http://localhost:8080")
	require.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestSaveAndLoad(t *testing.T) {
	path := useTempConfig(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.SetCredential("https://auth.example.com/api", &Credential{
		IdentityRef:  "alice",
		AccessToken:  "a",
		RefreshToken: "r",
	}))
	require.NoError(t, Save(cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	cred, err := loaded.GetCredential("https://auth.example.com")
	require.NoError(t, err)
	require.Equal(t, "alice", cred.IdentityRef)
	require.Equal(t, "r", cred.RefreshToken)

	require.NoError(t, loaded.RemoveCredential("https://auth.example.com"))
	_, err = loaded.GetCredential("https://auth.example.com")
	require.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestCredential_Expired(t *testing.T) {
	now := time.Now()
	require.False(t, (&Credential{}).Expired(now))
	require.False(t, (&Credential{ExpiresAt: now.Add(time.Minute)}).Expired(now))
	require.True(t, (&Credential{ExpiresAt: now.Add(-time.Minute)}).Expired(now))
}

func TestGetCredential_InvalidServer(t *testing.T) {
	cfg := &CLIConfig{}
	_, err := cfg.GetCredential("not a url")
	require.Error(t, err)
}
