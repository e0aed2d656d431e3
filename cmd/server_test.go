package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Daskott/safenest/shared"
	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevServerConfig(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	isDevEnv = true
	defer func() { isDevEnv = false; serverConfigFile = "" }()

	config, err := serverConfig()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "dev", "config", "server.yml"))

	serverConfig := shared.ServerConfig{}
	require.NoError(t, config.Unmarshal(&serverConfig))
	require.NoError(t, validator.New().Struct(serverConfig))

	assert.Equal(t, 3000, serverConfig.SafeNest.Listener.Port)
	assert.Equal(t, "edge", serverConfig.Geofence.TriggerMode)
	assert.Equal(t, "sqlite", serverConfig.Database.Type)
	assert.Contains(t, serverConfig.SafeNest.PrivateKeyPem, "BEGIN PRIVATE KEY")
}

func TestServerConfigRequiresFile(t *testing.T) {
	serverConfigFile = ""
	_, err := serverConfig()
	assert.Error(t, err)
}
