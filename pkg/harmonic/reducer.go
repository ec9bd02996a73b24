// Package harmonic decomposes the per-pixel temporal oscillation of an
// image stack into offset, amplitude and phase by linear least squares
// against a fixed sinusoidal basis, following the reduction of Marathe et
// al. (2014), http://dx.doi.org/10.1063/1.4861199.
//
// For N frames the basis functions are
//
//	{ 1, cos(2*pi*i*p/(N-1)), sin(2*pi*i*p/(N-1)) }   i = 0..N-1
//
// where p is the number of grating periods stepped over the N
// acquisitions. The fit is a closed-form batch computation: one shared
// N x 3 design matrix, its normal-equation inverse G = (B'B)^-1 B', and a
// single matrix product against the N x (H*W) reshaped stack.
package harmonic

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"

	"ngireduce/internal/models"
	"ngireduce/pkg/imagestack"
)

// ErrTooFewFrames reports a stack with fewer than three frames, for which
// the three-parameter fit is underdetermined.
var ErrTooFewFrames = errors.New("harmonic reduction needs at least 3 frames")

// ErrDegenerateDesign reports step positions that make the design matrix
// rank deficient, e.g. a whole number of periods sampled so that the
// sine column vanishes.
var ErrDegenerateDesign = errors.New("design matrix is rank deficient")

// Result holds the per-pixel fit coefficients, each with the shape of the
// source stack.
type Result struct {
	// Offset is the constant term of the fit (mean beam intensity)
	Offset *models.Frame

	// Amplitude is the magnitude of the oscillation,
	// sqrt(cos_coef^2 + sin_coef^2)
	Amplitude *models.Frame

	// Phase is atan(sin_coef/cos_coef); pixels whose cosine coefficient
	// is exactly zero are NaN rather than an error
	Phase *models.Frame
}

// Reduce fits the sinusoidal model to every pixel of the stack. The frame
// order must be the acquisition order of the stepped grating.
func Reduce(stack *imagestack.Stack, numberPeriods float64) (*Result, error) {
	n := stack.Len()
	if n < 3 {
		return nil, errors.Wrapf(ErrTooFewFrames, "stack has %d frames", n)
	}

	shape := stack.Shape()
	height, width := shape.Height, shape.Width
	pixels := height * width

	b := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) * numberPeriods / float64(n-1)
		b.Set(i, 0, 1)
		b.Set(i, 1, math.Cos(theta))
		b.Set(i, 2, math.Sin(theta))
	}

	data := mat.NewDense(n, pixels, nil)
	for i, frame := range stack.Frames() {
		data.SetRow(i, frame.Data)
	}

	// G = (B'B)^-1 B'
	var btb mat.Dense
	btb.Mul(b.T(), b)
	var inv mat.Dense
	if err := inv.Inverse(&btb); err != nil {
		return nil, errors.Wrapf(ErrDegenerateDesign,
			"%d frames over %g periods", n, numberPeriods)
	}
	var g mat.Dense
	g.Mul(&inv, b.T())

	// coeffs is 3 x (H*W): row 0 offset, row 1 cosine, row 2 sine
	var coeffs mat.Dense
	coeffs.Mul(&g, data)

	result := &Result{
		Offset:    models.NewFrame(height, width),
		Amplitude: models.NewFrame(height, width),
		Phase:     models.NewFrame(height, width),
	}
	for p := 0; p < pixels; p++ {
		cosCoef := coeffs.At(1, p)
		sinCoef := coeffs.At(2, p)
		result.Offset.Data[p] = coeffs.At(0, p)
		result.Amplitude.Data[p] = math.Hypot(cosCoef, sinCoef)
		if cosCoef == 0 {
			result.Phase.Data[p] = math.NaN()
		} else {
			result.Phase.Data[p] = math.Atan(sinCoef / cosCoef)
		}
	}
	return result, nil
}
