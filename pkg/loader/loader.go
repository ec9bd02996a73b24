// Package loader reads individual image files and sorted folder listings
// for the pipeline. Decoding is dispatched on the file extension through a
// registry: the built-in decoder handles plain numeric text grids, and
// callers plug in decoders for binary detector formats (FITS, TIFF, HDF)
// without the core taking a dependency on any of them.
package loader

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"ngireduce/internal/models"
)

// ErrNotFound reports a path that does not resolve to an existing file.
var ErrNotFound = errors.New("file does not exist")

// ErrUnsupportedFormat reports a file extension with no registered decoder.
var ErrUnsupportedFormat = errors.New("file extension not supported")

// DecodeFunc parses one image file into a frame.
type DecodeFunc func(path string) (*models.Frame, error)

// FileLoader dispatches file loading by extension.
type FileLoader struct {
	decoders map[string]DecodeFunc
}

// NewFileLoader returns a loader with the text-grid decoder registered
// for .csv, .txt and .dat files.
func NewFileLoader() *FileLoader {
	l := &FileLoader{decoders: make(map[string]DecodeFunc)}
	for _, ext := range []string{".csv", ".txt", ".dat"} {
		l.Register(ext, DecodeTextGrid)
	}
	return l
}

// Register installs a decoder for the given extension (".fits", ".tif",
// ...). The extension match is case-insensitive. A later registration for
// the same extension replaces the earlier one.
func (l *FileLoader) Register(ext string, fn DecodeFunc) {
	l.decoders[strings.ToLower(ext)] = fn
}

// Load reads a single file into a frame. It fails with ErrNotFound if the
// path is not an existing regular file and with ErrUnsupportedFormat if no
// decoder is registered for its extension.
func (l *FileLoader) Load(path string) (*models.Frame, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, errors.Wrapf(ErrNotFound, "%s", path)
	}
	decode, ok := l.decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
	return decode(path)
}

// ListImages returns the full paths of loadable files in a folder, sorted
// by the numeric component of the filename and then lexically, so that
// stepped acquisitions named frame_1, frame_2, ... frame_10 come back in
// acquisition order.
func (l *FileLoader) ListImages(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "%s", folder)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := l.decoders[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			names = append(names, entry.Name())
		}
	}

	sort.Slice(names, func(i, j int) bool {
		ni, nj := extractNumber(names[i]), extractNumber(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(folder, name)
	}
	return paths, nil
}

// extractNumber extracts the numeric part of a filename, 0 if none.
func extractNumber(filename string) int {
	numStr := ""
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}
	if numStr == "" {
		return 0
	}
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0
	}
	return num
}

// DecodeTextGrid parses a whitespace-, comma- or semicolon-separated grid
// of numbers into a frame. Every row must have the same number of values.
func DecodeTextGrid(path string) (*models.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "%s", path)
	}
	defer file.Close()

	var data []float64
	width := 0
	height := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t'
		})
		if width == 0 {
			width = len(fields)
		} else if len(fields) != width {
			return nil, errors.Newf("%s: row %d has %d values, expected %d",
				path, height+1, len(fields), width)
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: row %d", path, height+1)
			}
			data = append(data, v)
		}
		height++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	if height == 0 {
		return nil, errors.Newf("%s: no numeric rows", path)
	}
	return models.NewFrameFromData(height, width, data), nil
}
