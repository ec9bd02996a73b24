package models

// Role identifies which acquisition a stack of frames belongs to.
type Role string

const (
	// RoleSample is the exposure with the sample in the beam path.
	RoleSample Role = "sample"

	// RoleOpenBeam is the reference exposure without the sample.
	RoleOpenBeam Role = "ob"

	// RoleDarkField is the detector background captured with no beam.
	RoleDarkField Role = "df"
)

// Shape describes the pixel dimensions shared by every frame in a stack.
// The zero value means the shape is not known yet (no frame recorded).
type Shape struct {
	Height int
	Width  int
}

// Known reports whether the shape has been recorded.
func (s Shape) Known() bool {
	return s.Height > 0 && s.Width > 0
}

// Frame is a single 2D detector image stored as a flat row-major array.
type Frame struct {
	// Data holds the pixel values in row-major order, length Width*Height
	Data []float64

	// Width and Height are the frame dimensions in pixels
	Width  int
	Height int
}

// NewFrame allocates a zero-filled frame of the given dimensions.
func NewFrame(height, width int) *Frame {
	return &Frame{
		Data:   make([]float64, height*width),
		Width:  width,
		Height: height,
	}
}

// NewFrameFromData wraps an existing row-major array as a frame.
// The slice is retained, not copied.
func NewFrameFromData(height, width int, data []float64) *Frame {
	return &Frame{
		Data:   data,
		Width:  width,
		Height: height,
	}
}

// At returns the pixel value at row y, column x.
func (f *Frame) At(y, x int) float64 {
	return f.Data[y*f.Width+x]
}

// Set writes the pixel value at row y, column x.
func (f *Frame) Set(y, x int, v float64) {
	f.Data[y*f.Width+x] = v
}

// Shape returns the frame dimensions.
func (f *Frame) Shape() Shape {
	return Shape{Height: f.Height, Width: f.Width}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	data := make([]float64, len(f.Data))
	copy(data, f.Data)
	return &Frame{Data: data, Width: f.Width, Height: f.Height}
}
