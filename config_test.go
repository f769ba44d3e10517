package ember

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{
		"address": "0.0.0.0:9000",
		"public_path": "/assets",
		"dev_mode": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Address)
	assert.Equal(t, "/assets", cfg.PublicPath)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, DefaultPatternCacheCapacity, cfg.PatternCacheSize, "unset fields should keep their default")
}

func TestLoadConfigJSONRender404And500(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{
		"render_404": "custom-404",
		"render_500": "custom-500"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-404", cfg.Render404JSX)
	assert.Equal(t, "custom-500", cfg.Render500JSX)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeTempConfig(t, "config.toml", "address = \"localhost:3000\"\nh2c = true\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", cfg.Address)
	assert.True(t, cfg.H2C)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", "address: localhost:4000\nstatic_root: dist\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:4000", cfg.Address)
	assert.Equal(t, "dist", cfg.StaticRoot)
}

func TestLoadConfigUnrecognizedExtension(t *testing.T) {
	path := writeTempConfig(t, "config.ini", "address=localhost:5000")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestApplyEnvPortRewritesListenAddress(t *testing.T) {
	t.Setenv("PORT", "3000")

	cfg := defaultConfig()
	cfg.applyEnv()
	assert.Equal(t, "localhost:3000", cfg.Address)
}

func TestApplyEnvPublicPathPreservesEmpty(t *testing.T) {
	t.Setenv("PUBLIC_PATH", "")

	cfg := defaultConfig()
	cfg.applyEnv()
	assert.Equal(t, "", cfg.PublicPath)
}

func TestApplyEnvDevTrue(t *testing.T) {
	t.Setenv("DEV", "true")

	cfg := defaultConfig()
	cfg.applyEnv()
	assert.True(t, cfg.DevMode)
}

func TestApplyEnvUnsetLeavesConfigAlone(t *testing.T) {
	for _, key := range []string{"PORT", "PUBLIC_PATH", "DEV"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := defaultConfig()
	before := cfg
	cfg.applyEnv()
	assert.Equal(t, before, cfg)
}
