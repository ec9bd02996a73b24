package pipeline

import (
	"gonum.org/v1/gonum/stat"

	"ngireduce/internal/models"
	"ngireduce/pkg/roi"
)

// Per-frame numeric helpers shared by the pipeline stages. These operate
// on single frames; the stages decide which stacks they apply to.

// roiMean returns the mean pixel value of the frame restricted to the
// region, or over the whole frame when region is nil.
func roiMean(f *models.Frame, region *roi.ROI) float64 {
	if region == nil {
		return stat.Mean(f.Data, nil)
	}
	values := make([]float64, 0, region.Width()*region.Height())
	for y := region.Y0(); y <= region.Y1(); y++ {
		row := f.Data[y*f.Width : (y+1)*f.Width]
		values = append(values, row[region.X0():region.X1()+1]...)
	}
	return stat.Mean(values, nil)
}

// averageFrames returns the pixel-wise mean across a set of frames of
// identical shape.
func averageFrames(frames []*models.Frame) *models.Frame {
	avg := models.NewFrame(frames[0].Height, frames[0].Width)
	for _, f := range frames {
		for i, v := range f.Data {
			avg.Data[i] += v
		}
	}
	n := float64(len(frames))
	for i := range avg.Data {
		avg.Data[i] /= n
	}
	return avg
}

// subtractInPlace subtracts the second frame pixel-wise from the first.
func subtractInPlace(f, other *models.Frame) {
	for i := range f.Data {
		f.Data[i] -= other.Data[i]
	}
}

// divideFrame returns a new frame with every pixel divided by the scalar.
// IEEE semantics apply: a zero divisor yields infinities, not an error.
func divideFrame(f *models.Frame, divisor float64) *models.Frame {
	out := models.NewFrame(f.Height, f.Width)
	for i, v := range f.Data {
		out.Data[i] = v / divisor
	}
	return out
}

// cropFrame returns the inclusive sub-rectangle of the frame at the
// region bounds.
func cropFrame(f *models.Frame, region roi.ROI) *models.Frame {
	out := models.NewFrame(region.Height(), region.Width())
	for y := 0; y < region.Height(); y++ {
		srcRow := (region.Y0() + y) * f.Width
		copy(out.Data[y*region.Width():(y+1)*region.Width()],
			f.Data[srcRow+region.X0():srcRow+region.X1()+1])
	}
	return out
}

// binFrame truncates the frame to whole multiples of binSize and reduces
// each binSize x binSize block to its mean. Trailing rows and columns
// that do not fill a complete bin are discarded.
func binFrame(f *models.Frame, binSize int) *models.Frame {
	newHeight := f.Height / binSize
	newWidth := f.Width / binSize
	out := models.NewFrame(newHeight, newWidth)
	norm := float64(binSize * binSize)
	for by := 0; by < newHeight; by++ {
		for bx := 0; bx < newWidth; bx++ {
			sum := 0.0
			for y := by * binSize; y < (by+1)*binSize; y++ {
				for x := bx * binSize; x < (bx+1)*binSize; x++ {
					sum += f.At(y, x)
				}
			}
			out.Set(by, bx, sum/norm)
		}
	}
	return out
}
