// Package imagestack provides the ordered frame container shared by the
// sample, open-beam and dark-field datasets. A stack records the shape of
// the first frame appended to it and rejects any later frame that does not
// match, so every consumer downstream can rely on a single shape per stack.
package imagestack

import (
	"github.com/cockroachdb/errors"

	"ngireduce/internal/models"
)

// ErrShapeMismatch reports frames that disagree in dimensions where
// equality is required, either within one stack or across stacks.
var ErrShapeMismatch = errors.New("frame shape mismatch")

// Stack is an ordered collection of frames of identical shape together
// with one provenance name per frame. Insertion order is acquisition
// order and is semantically meaningful for the harmonic reduction.
type Stack struct {
	frames      []*models.Frame
	sourceNames []string
	shape       models.Shape
}

// New returns an empty stack with an unknown shape.
func New() *Stack {
	return &Stack{}
}

// Append adds a frame and its provenance name to the stack. The first
// append records the stack shape; later appends fail with
// ErrShapeMismatch if the frame dimensions differ.
func (s *Stack) Append(frame *models.Frame, sourceName string) error {
	if !s.shape.Known() {
		s.shape = frame.Shape()
	} else if frame.Shape() != s.shape {
		return errors.Wrapf(ErrShapeMismatch,
			"frame %q is %dx%d, stack is %dx%d",
			sourceName, frame.Height, frame.Width, s.shape.Height, s.shape.Width)
	}
	s.frames = append(s.frames, frame)
	s.sourceNames = append(s.sourceNames, sourceName)
	return nil
}

// IsEmpty reports whether no frames have been appended.
func (s *Stack) IsEmpty() bool {
	return len(s.frames) == 0
}

// Len returns the number of frames in the stack.
func (s *Stack) Len() int {
	return len(s.frames)
}

// Frame returns the i-th frame in acquisition order.
func (s *Stack) Frame(i int) *models.Frame {
	return s.frames[i]
}

// Frames returns the frames in acquisition order. The slice is shared,
// not copied; destructive stages go through ReplaceFrames instead.
func (s *Stack) Frames() []*models.Frame {
	return s.frames
}

// SourceNames returns the provenance names parallel to Frames.
func (s *Stack) SourceNames() []string {
	return s.sourceNames
}

// Shape returns the shape shared by every frame, or the unknown shape for
// an empty stack.
func (s *Stack) Shape() models.Shape {
	return s.shape
}

// ReplaceFrames swaps in a new set of frames, re-deriving the stack shape
// from the first one. Used by the destructive pipeline stages (crop,
// binning) that legitimately change frame dimensions. The frame count must
// stay the same so provenance names remain parallel, and the new frames
// must agree with each other.
func (s *Stack) ReplaceFrames(frames []*models.Frame) error {
	if len(frames) != len(s.frames) {
		return errors.Newf("replacement count %d does not match stack size %d",
			len(frames), len(s.frames))
	}
	if len(frames) == 0 {
		return nil
	}
	shape := frames[0].Shape()
	for i, f := range frames {
		if f.Shape() != shape {
			return errors.Wrapf(ErrShapeMismatch,
				"replacement frame %d is %dx%d, expected %dx%d",
				i, f.Height, f.Width, shape.Height, shape.Width)
		}
	}
	s.frames = frames
	s.shape = shape
	return nil
}
