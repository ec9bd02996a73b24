// Package roi provides the rectangular region-of-interest value object used
// by the correction pipeline. Bounds are inclusive on both ends, so an ROI
// of (1,1,2,2) selects a 2x2 pixel block.
package roi

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"ngireduce/internal/models"
)

// ErrInvalidBounds reports an ROI whose coordinates are negative or
// whose corners are not ordered x0<=x1, y0<=y1.
var ErrInvalidBounds = errors.New("roi bounds are invalid")

// ROI is an immutable rectangle with inclusive bounds. The zero value is
// not a valid ROI; construct one with New.
type ROI struct {
	x0, y0, x1, y1 int
}

// New validates the corner coordinates and returns the ROI value.
func New(x0, y0, x1, y1 int) (ROI, error) {
	if x0 < 0 || y0 < 0 {
		return ROI{}, errors.Wrapf(ErrInvalidBounds, "negative corner (%d,%d)", x0, y0)
	}
	if x1 < x0 || y1 < y0 {
		return ROI{}, errors.Wrapf(ErrInvalidBounds,
			"corners out of order: (%d,%d)-(%d,%d)", x0, y0, x1, y1)
	}
	return ROI{x0: x0, y0: y0, x1: x1, y1: y1}, nil
}

// MustNew is New for statically known coordinates; it panics on invalid
// bounds. Intended for tests and literals.
func MustNew(x0, y0, x1, y1 int) ROI {
	r, err := New(x0, y0, x1, y1)
	if err != nil {
		panic(err)
	}
	return r
}

// X0 returns the left column of the rectangle.
func (r ROI) X0() int { return r.x0 }

// Y0 returns the top row of the rectangle.
func (r ROI) Y0() int { return r.y0 }

// X1 returns the right column of the rectangle (inclusive).
func (r ROI) X1() int { return r.x1 }

// Y1 returns the bottom row of the rectangle (inclusive).
func (r ROI) Y1() int { return r.y1 }

// Width returns the number of columns covered by the rectangle.
func (r ROI) Width() int { return r.x1 - r.x0 + 1 }

// Height returns the number of rows covered by the rectangle.
func (r ROI) Height() int { return r.y1 - r.y0 + 1 }

// FitsWithin reports whether the rectangle lies strictly inside a frame of
// the given shape.
func (r ROI) FitsWithin(s models.Shape) bool {
	return r.x1 < s.Width && r.y1 < s.Height
}

// String renders the rectangle as (x0,y0)-(x1,y1).
func (r ROI) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.x0, r.y0, r.x1, r.y1)
}
