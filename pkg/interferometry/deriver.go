// Package interferometry combines the harmonic reductions of the sample
// and open-beam stacks into the four derived physical maps. All divisions
// use IEEE-754 semantics: a zero denominator yields infinity or NaN at
// that pixel rather than an error, so degenerate pixels stay visible
// downstream instead of aborting the reduction.
package interferometry

import (
	"math"

	"github.com/cockroachdb/errors"

	"ngireduce/internal/models"
	"ngireduce/pkg/harmonic"
	"ngireduce/pkg/imagestack"
)

// Maps holds the four derived images, each with the (possibly cropped and
// binned) shape of the corrected sample stack.
type Maps struct {
	// Transmission is sample offset over open-beam offset
	Transmission *models.Frame

	// DiffPhaseContrast is the phase difference wrapped into the
	// principal range via atan(tan(...))
	DiffPhaseContrast *models.Frame

	// DarkField is the sample visibility over the open-beam visibility,
	// the loss-of-visibility metric attributable to small-angle
	// scattering in the sample
	DarkField *models.Frame

	// VisibilityMap is the open-beam fringe contrast, amplitude/offset
	VisibilityMap *models.Frame
}

// Derive combines the two reductions into the four maps. Non-finite
// values in either offset are treated as zero intensity before use.
func Derive(sample, ob *harmonic.Result) (*Maps, error) {
	if sample.Offset.Shape() != ob.Offset.Shape() {
		return nil, errors.Wrapf(imagestack.ErrShapeMismatch,
			"sample reduction is %dx%d, open-beam reduction is %dx%d",
			sample.Offset.Height, sample.Offset.Width,
			ob.Offset.Height, ob.Offset.Width)
	}

	sampleOffset := zeroNonFinite(sample.Offset)
	obOffset := zeroNonFinite(ob.Offset)

	height, width := sampleOffset.Height, sampleOffset.Width
	maps := &Maps{
		Transmission:      models.NewFrame(height, width),
		DiffPhaseContrast: models.NewFrame(height, width),
		DarkField:         models.NewFrame(height, width),
		VisibilityMap:     models.NewFrame(height, width),
	}

	for i := range sampleOffset.Data {
		maps.Transmission.Data[i] = sampleOffset.Data[i] / obOffset.Data[i]
		maps.DiffPhaseContrast.Data[i] =
			math.Atan(math.Tan(sample.Phase.Data[i] - ob.Phase.Data[i]))

		sampleVisibility := sample.Amplitude.Data[i] / sampleOffset.Data[i]
		obVisibility := ob.Amplitude.Data[i] / obOffset.Data[i]
		maps.DarkField.Data[i] = sampleVisibility / obVisibility
		maps.VisibilityMap.Data[i] = obVisibility
	}
	return maps, nil
}

// zeroNonFinite returns a copy of the frame with every infinity and NaN
// replaced by zero.
func zeroNonFinite(f *models.Frame) *models.Frame {
	out := f.Clone()
	for i, v := range out.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out.Data[i] = 0
		}
	}
	return out
}
