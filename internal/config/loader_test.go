package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_NoConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.Equal(t, "36h11", cfg.Detector.Family)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_FileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	content := `
log_level: debug
detector:
  black_border: 2
  warmup_iterations: 3
server:
  port: 9090
batch:
  workers: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aprilgo.yaml"), []byte(content), 0o600))

	l := NewLoaderWithViper(viper.New())
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Detector.BlackBorder)
	assert.Equal(t, 3, cfg.Detector.WarmupIterations)
	assert.Equal(t, "36h11", cfg.Detector.Family)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Contains(t, l.GetConfigFileUsed(), "aprilgo.yaml")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APRILGO_DETECTOR_BLACK_BORDER", "2")
	t.Setenv("APRILGO_SERVER_PORT", "7000")

	cfg, err := NewLoaderWithViper(viper.New()).Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Detector.BlackBorder)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadWithFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("detector:\n  family: 99z99\n"), 0o600))

	_, err := NewLoaderWithViper(viper.New()).LoadWithFile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	cfg, err := NewLoaderWithViper(viper.New()).load(p, false)
	require.NoError(t, err)
	assert.Equal(t, "99z99", cfg.Detector.Family)
}

func TestLoadWithFile_Missing(t *testing.T) {
	_, err := NewLoaderWithViper(viper.New()).LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestWriteDefaultConfig_RoundTrips(t *testing.T) {
	p := filepath.Join(t.TempDir(), "aprilgo.yaml")
	require.NoError(t, WriteDefaultConfig(p))

	cfg, err := NewLoaderWithViper(viper.New()).LoadWithFile(p)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Detector, cfg.Detector)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join("/tmp/xdg", "aprilgo"))
	assert.Equal(t, "/etc/aprilgo", paths[len(paths)-1])
}
