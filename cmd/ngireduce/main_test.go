package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"ngireduce/pkg/config"
)

func TestNewLoggerLevels(t *testing.T) {
	log, err := newLogger(false)
	require.NoError(t, err)
	defer log.Sync()
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))

	debug, err := newLogger(true)
	require.NoError(t, err)
	defer debug.Sync()
	assert.True(t, debug.Core().Enabled(zapcore.DebugLevel))
}

func TestParseROIFlag(t *testing.T) {
	rc, err := parseROIFlag("1, 2,10,12")
	require.NoError(t, err)
	assert.Equal(t, &config.ROIConfig{X0: 1, Y0: 2, X1: 10, Y1: 12}, rc)

	_, err = parseROIFlag("1,2,3")
	assert.Error(t, err)

	_, err = parseROIFlag("1,2,three,4")
	assert.Error(t, err)
}

func TestOptionalROI(t *testing.T) {
	r, err := optionalROI(nil)
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = optionalROI(&config.ROIConfig{X0: 0, Y0: 0, X1: 3, Y1: 3})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 3, r.X1())

	_, err = optionalROI(&config.ROIConfig{X0: 5, Y0: 0, X1: 1, Y1: 0})
	assert.Error(t, err)
}
