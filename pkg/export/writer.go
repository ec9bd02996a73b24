// Package export persists derived maps and oscillation curves to disk.
// Each map is written twice: as a contrast-normalized 16-bit grayscale PNG
// for quick inspection, and as raw little-endian float64 for quantitative
// downstream use. PNG is used rather than a lossy format because the maps
// are quantitative data.
package export

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"ngireduce/internal/models"
	"ngireduce/pkg/interferometry"
)

// Writer writes frames into a single output directory.
type Writer struct {
	outDir string
}

// NewWriter creates the output directory if needed and returns a writer
// bound to it.
func NewWriter(outDir string) (*Writer, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{outDir: outDir}, nil
}

// SavePNG renders the frame as a 16-bit grayscale PNG named <name>.png,
// scaling the finite value range onto 0..65535. Non-finite pixels render
// black. Returns the written path.
func (w *Writer) SavePNG(name string, f *models.Frame) (string, error) {
	lo, hi := finiteRange(f.Data)
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	img := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			v := f.At(y, x)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			scaled := (v - lo) / span * 65535
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Max(0, math.Min(65535, scaled)))})
		}
	}

	path := filepath.Join(w.outDir, name+".png")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return path, nil
}

// SaveBinary writes the frame's pixels as raw little-endian float64 named
// <name>.bin, non-finite values included unchanged. Returns the written
// path.
func (w *Writer) SaveBinary(name string, f *models.Frame) (string, error) {
	path := filepath.Join(w.outDir, name+".bin")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create binary file: %w", err)
	}
	defer file.Close()

	if err := binary.Write(file, binary.LittleEndian, f.Data); err != nil {
		return "", fmt.Errorf("failed to write binary data: %w", err)
	}
	return path, nil
}

// SaveMaps writes all four interferometry maps in both formats.
func (w *Writer) SaveMaps(maps *interferometry.Maps) error {
	for name, frame := range map[string]*models.Frame{
		"transmission":        maps.Transmission,
		"diff_phase_contrast": maps.DiffPhaseContrast,
		"dark_field":          maps.DarkField,
		"visibility_map":      maps.VisibilityMap,
	} {
		if _, err := w.SavePNG(name, frame); err != nil {
			return err
		}
		if _, err := w.SaveBinary(name, frame); err != nil {
			return err
		}
	}
	return nil
}

// SaveOscillationCSV writes the sample and open-beam oscillation sequences
// side by side as <name>.csv with a header row. Returns the written path.
func (w *Writer) SaveOscillationCSV(name string, sample, ob []float64) (string, error) {
	path := filepath.Join(w.outDir, name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintln(file, "step,sample,ob"); err != nil {
		return "", err
	}
	n := len(sample)
	if len(ob) > n {
		n = len(ob)
	}
	for i := 0; i < n; i++ {
		sampleVal, obVal := "", ""
		if i < len(sample) {
			sampleVal = fmt.Sprintf("%g", sample[i])
		}
		if i < len(ob) {
			obVal = fmt.Sprintf("%g", ob[i])
		}
		if _, err := fmt.Fprintf(file, "%d,%s,%s\n", i+1, sampleVal, obVal); err != nil {
			return "", err
		}
	}
	return path, nil
}

// finiteRange returns the minimum and maximum finite values, (0,0) if none.
func finiteRange(data []float64) (lo, hi float64) {
	first := true
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
