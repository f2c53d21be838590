package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "github", config.Source)
	assert.Equal(t, "https://api.github.com", config.APIURL)
	assert.Equal(t, "Mercantec-GHC", config.RepoOwner)
	assert.Equal(t, "h4-projekt-gruppe-0-sm", config.RepoName)
	assert.Equal(t, "main", config.TargetBranch)
	assert.Equal(t, "script", config.Deployer)
	assert.Equal(t, "./deploy/redeploy_as_root.sh", config.DeployScript)
	assert.Equal(t, 300, config.CheckInterval)
	assert.Equal(t, 60, config.ErrorDelay)
	assert.False(t, config.DryRun)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redeploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
repoOwner: octo
repoName: app
targetBranch: release
checkInterval: 60
dryRun: true
statusAddr: "127.0.0.1:9090"
`), 0o644))
	t.Setenv("REDEPLOY_ERRORDELAY", "15")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "octo", config.RepoOwner)
	assert.Equal(t, "app", config.RepoName)
	assert.Equal(t, "release", config.TargetBranch)
	assert.Equal(t, 60, config.CheckInterval)
	assert.Equal(t, 15, config.ErrorDelay)
	assert.True(t, config.DryRun)
	assert.Equal(t, "127.0.0.1:9090", config.StatusAddr)
}

func TestLoadConfigFromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("source: git\nrepoURL: https://example.com/app.git\n"), 0o644))
	chdir(t, dir)

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "git", config.Source)
	assert.Equal(t, "https://example.com/app.git", config.RepoURL)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown source", body: "source: svn\n"},
		{name: "git source without url", body: "source: git\n"},
		{name: "compose without deployment dir", body: "deployer: compose\nrepoURL: https://example.com/app.git\n"},
		{name: "zero interval", body: "checkInterval: 0\n"},
		{name: "bad log level", body: "logLevel: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := LoadConfig(path)
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Seconds(300))
}
