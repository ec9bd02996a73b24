package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Processing.BinSize)
	assert.Equal(t, 1.0, cfg.Processing.NumberPeriods)
	assert.Nil(t, cfg.Processing.NormalizationROI)
	assert.Nil(t, cfg.Processing.CropROI)
	assert.Equal(t, "interferometry_maps", cfg.Output.Dir)
	assert.True(t, cfg.Output.SaveOscillation)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "ngireduce.yaml")

	cfg := DefaultConfig()
	cfg.Data.SampleDir = "/data/sample"
	cfg.Data.OpenBeamDir = "/data/ob"
	cfg.Data.DarkFieldDir = "/data/df"
	cfg.Processing.BinSize = 2
	cfg.Processing.NumberPeriods = 0.5
	cfg.Processing.NormalizationROI = &ROIConfig{X0: 1, Y0: 2, X1: 10, Y1: 12}
	cfg.Processing.CropROI = &ROIConfig{X0: 0, Y0: 0, X1: 63, Y1: 63}

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, SaveConfig(DefaultConfig(), path))

	// overwrite with garbage
	require.NoError(t, os.WriteFile(path, []byte("processing: [not a map"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestROIConfigToROI(t *testing.T) {
	rc := &ROIConfig{X0: 1, Y0: 1, X1: 4, Y1: 4}
	r, err := rc.ToROI()
	require.NoError(t, err)
	assert.Equal(t, 1, r.X0())
	assert.Equal(t, 4, r.Y1())

	bad := &ROIConfig{X0: 5, Y0: 0, X1: 1, Y1: 0}
	_, err = bad.ToROI()
	assert.Error(t, err)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ngireduce.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
