package export

import (
	"encoding/binary"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ngireduce/internal/models"
	"ngireduce/pkg/interferometry"
)

func testFrame() *models.Frame {
	f := models.NewFrame(2, 3)
	for i := range f.Data {
		f.Data[i] = float64(i)
	}
	return f
}

func TestSavePNG(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	frame := testFrame()
	frame.Set(0, 0, math.NaN())
	frame.Set(0, 1, math.Inf(1))

	path, err := w.SavePNG("transmission", frame)
	require.NoError(t, err)
	assert.Equal(t, "transmission.png", filepath.Base(path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Equal(t, 3, bounds.Dx())
	assert.Equal(t, 2, bounds.Dy())
}

func TestSaveBinary(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	frame := testFrame()
	path, err := w.SaveBinary("dark_field", frame)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 8*len(frame.Data))

	// payload is little-endian float64, pixel for pixel
	for i := range frame.Data {
		bits := binary.LittleEndian.Uint64(raw[i*8 : (i+1)*8])
		assert.Equal(t, frame.Data[i], math.Float64frombits(bits))
	}
}

func TestSaveBinaryKeepsNonFiniteValues(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	frame := models.NewFrame(1, 2)
	frame.Data[0] = math.NaN()
	frame.Data[1] = math.Inf(-1)

	path, err := w.SaveBinary("degenerate", frame)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(math.Float64frombits(binary.LittleEndian.Uint64(raw[0:8]))))
	assert.True(t, math.IsInf(math.Float64frombits(binary.LittleEndian.Uint64(raw[8:16])), -1))
}

func TestSaveMapsWritesAllEight(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	maps := &interferometry.Maps{
		Transmission:      testFrame(),
		DiffPhaseContrast: testFrame(),
		DarkField:         testFrame(),
		VisibilityMap:     testFrame(),
	}
	require.NoError(t, w.SaveMaps(maps))

	for _, name := range []string{
		"transmission", "diff_phase_contrast", "dark_field", "visibility_map",
	} {
		assert.FileExists(t, filepath.Join(dir, name+".png"))
		assert.FileExists(t, filepath.Join(dir, name+".bin"))
	}
}

func TestSaveOscillationCSV(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	path, err := w.SaveOscillationCSV("oscillation", []float64{1.5, 2.5}, []float64{3, 4})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "step,sample,ob\n1,1.5,3\n2,2.5,4\n", string(raw))
}

func TestNewWriterCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "maps")
	_, err := NewWriter(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}
