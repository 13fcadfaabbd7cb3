package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facewarp/pkg/colorutil"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1024, cfg.Texture.Width)
	assert.Equal(t, 1024, cfg.Texture.Height)
	assert.Equal(t, DetectorPigo, cfg.Detector.Kind)
	assert.Equal(t, 30*time.Second, cfg.Detector.Timeout)
	assert.Equal(t, 400, cfg.Viewer.ViewportWidth)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, colorutil.Transparent, cfg.Background())
	assert.Equal(t, colorutil.Mesh, cfg.OverlayColor())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
texture:
  width: 512
  background: "#000000"
warp:
  workers: 2
detector:
  kind: command
  command: /usr/local/bin/facemesh
  args: ["--json"]
  timeout: 5s
logging:
  level: debug
  log_file: facewarp.log
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, path))

	assert.Equal(t, 512, cfg.Texture.Width)
	assert.Equal(t, 1024, cfg.Texture.Height)
	assert.Equal(t, colorutil.Black, cfg.Background())
	assert.Equal(t, 2, cfg.Warp.Workers)
	assert.Equal(t, DetectorCommand, cfg.Detector.Kind)
	assert.Equal(t, []string{"--json"}, cfg.Detector.Args)
	assert.Equal(t, 5*time.Second, cfg.Detector.Timeout)
	assert.InDelta(t, 1.1, cfg.Detector.ScaleFactor, 1e-12)
	assert.Equal(t, "facewarp.log", cfg.Logging.LogFile)
}

func TestLoadFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("texture:\n  width: wide\n  nonsense here\n"), 0644))
	assert.Error(t, loadFromFile(Default(), path))
	assert.Error(t, loadFromFile(Default(), filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Texture.Width = 0 }},
		{"negative workers", func(c *Config) { c.Warp.Workers = -2 }},
		{"unknown detector", func(c *Config) { c.Detector.Kind = "oracle" }},
		{"bad background", func(c *Config) { c.Texture.Background = "#12" }},
		{"bad overlay color", func(c *Config) { c.Overlay.Color = "teal" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyFlags(t *testing.T) {
	*flagDebug = true
	*flagWidth = 256
	*flagWorkers = 0
	*flagKeypoints = "faces.json"
	defer func() {
		*flagDebug = false
		*flagWidth = 0
		*flagWorkers = -1
		*flagKeypoints = ""
	}()

	cfg := Default()
	cfg.Warp.Workers = 4
	applyFlags(cfg)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 256, cfg.Texture.Width)
	assert.Equal(t, 1024, cfg.Texture.Height)
	assert.Equal(t, 0, cfg.Warp.Workers)
	assert.Equal(t, DetectorFile, cfg.Detector.Kind)
	assert.Equal(t, "faces.json", cfg.Detector.Keypoints)
}

func TestLoadPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("texture:\n  width: 600\n  height: 700\n"), 0644))

	*flagConfig = path
	*flagWidth = 800
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Texture.Width)
	assert.Equal(t, 700, cfg.Texture.Height)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("detector:\n  kind: oracle\n"), 0644))
	*flagConfig = path
	defer func() { *flagConfig = "" }()

	_, err := Load()
	assert.Error(t, err)
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Topology.Path = "mesh.yaml"
	require.NoError(t, cfg.SaveTo(path))

	loaded := Default()
	require.NoError(t, loadFromFile(loaded, path))
	assert.Equal(t, cfg, loaded)
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := ConfigDir()
	assert.NotEmpty(t, dir)
	assert.True(t, filepath.IsAbs(dir))
}
