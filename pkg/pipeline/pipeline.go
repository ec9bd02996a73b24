// Package pipeline implements the stateful correction pipeline for grating
// interferometry image stacks. An Interferometer owns one stack per
// acquisition role (sample, open beam, dark field) and applies the
// destructive corrections (dark-field subtraction, per-frame flat-field
// normalization, cropping and binning), tracking which stages have already
// run so that re-invocation without force is an idempotent no-op.
//
// The stage semantics follow Marathe et al. (2014),
// http://dx.doi.org/10.1063/1.4861199: corrected sample and open-beam
// stacks are reduced per pixel into offset/amplitude/phase and combined
// into transmission, differential phase contrast, dark field and
// visibility maps.
package pipeline

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ngireduce/internal/models"
	"ngireduce/pkg/harmonic"
	"ngireduce/pkg/imagestack"
	"ngireduce/pkg/interferometry"
	"ngireduce/pkg/roi"
)

// Loader is the file-loading collaborator consumed by Load. The core only
// requires extension-dispatched decoding and sorted folder listings; the
// concrete implementation lives in pkg/loader.
type Loader interface {
	// Load reads a single file into a frame.
	Load(path string) (*models.Frame, error)

	// ListImages returns the loadable files in a folder, sorted in
	// acquisition order.
	ListImages(folder string) ([]string, error)
}

// Plotter renders an oscillation overview. Visualization is outside the
// core; the pipeline only forwards the data when plotting is requested.
type Plotter interface {
	PlotOscillation(first *models.Frame, region *roi.ROI, sample, ob []float64) error
}

// Interferometer is the pipeline instance. It exclusively owns its three
// role stacks and mutates them in place at each stage; pre-stage data is
// discarded, not versioned.
type Interferometer struct {
	sample *imagestack.Stack
	ob     *imagestack.Stack
	df     *imagestack.Stack

	// oscillation holds one mean intensity per frame for sample and ob
	oscillation map[models.Role][]float64

	// dfAverage caches the averaged dark-field frame once computed
	dfAverage *models.Frame

	status  ProcessStatus
	maps    *interferometry.Maps
	loader  Loader
	plotter Plotter
	log     *zap.Logger
}

// Option configures an Interferometer.
type Option func(*Interferometer)

// WithLoader sets the file-loading collaborator used by Load.
func WithLoader(l Loader) Option {
	return func(g *Interferometer) { g.loader = l }
}

// WithPlotter sets the oscillation plotting collaborator.
func WithPlotter(p Plotter) Option {
	return func(g *Interferometer) { g.plotter = p }
}

// WithLogger sets the logger used for stage tracing.
func WithLogger(log *zap.Logger) Option {
	return func(g *Interferometer) { g.log = log }
}

// New returns a fresh pipeline instance with empty stacks and all status
// flags cleared. There is no reset: a new dataset needs a new instance.
func New(opts ...Option) *Interferometer {
	g := &Interferometer{
		sample:      imagestack.New(),
		ob:          imagestack.New(),
		df:          imagestack.New(),
		oscillation: make(map[models.Role][]float64),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// stackFor maps a role to its stack.
func (g *Interferometer) stackFor(role models.Role) (*imagestack.Stack, error) {
	switch role {
	case models.RoleSample:
		return g.sample, nil
	case models.RoleOpenBeam:
		return g.ob, nil
	case models.RoleDarkField:
		return g.df, nil
	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "unknown role %q", role)
	}
}

// Load reads a single file, a whole folder, or both into the given role's
// stack. It fails with ErrOperationNotAllowed once any pipeline stage has
// executed on this instance, because the corrections are destructive and
// frames loaded afterwards would not be comparable.
func (g *Interferometer) Load(file, folder string, role models.Role) error {
	if g.status.Any() {
		return errors.Wrap(ErrOperationNotAllowed,
			"this instance has already been processed")
	}
	if g.loader == nil {
		return errors.Wrap(ErrInvalidArgument, "no loader configured")
	}
	if file != "" {
		if err := g.loadFile(file, role); err != nil {
			return err
		}
	}
	if folder != "" {
		paths, err := g.loader.ListImages(folder)
		if err != nil {
			return err
		}
		for _, path := range paths {
			if err := g.loadFile(path, role); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Interferometer) loadFile(path string, role models.Role) error {
	stack, err := g.stackFor(role)
	if err != nil {
		return err
	}
	frame, err := g.loader.Load(path)
	if err != nil {
		return err
	}
	if err := stack.Append(frame, path); err != nil {
		return err
	}
	g.log.Debug("loaded frame",
		zap.String("role", string(role)), zap.String("path", path))
	return nil
}

// AppendFrame ingests an in-memory frame into the given role's stack,
// under the same gate as Load.
func (g *Interferometer) AppendFrame(role models.Role, frame *models.Frame, sourceName string) error {
	if g.status.Any() {
		return errors.Wrap(ErrOperationNotAllowed,
			"this instance has already been processed")
	}
	stack, err := g.stackFor(role)
	if err != nil {
		return err
	}
	return stack.Append(frame, sourceName)
}

// DFCorrection subtracts the averaged dark-field frame from every sample
// and open-beam frame. A second call without force is a no-op. With no
// dark-field data loaded the stage silently does nothing; that is not an
// error. The averaged frame is computed once and cached.
func (g *Interferometer) DFCorrection(force bool) error {
	if g.status.DFCorrection && !force {
		g.log.Debug("df correction already run, skipping")
		return nil
	}
	if g.df.IsEmpty() {
		g.status.DFCorrection = true
		g.log.Debug("no dark-field data loaded, df correction is a no-op")
		return nil
	}

	if g.dfAverage == nil {
		g.dfAverage = averageFrames(g.df.Frames())
	}

	// Validate both target roles before touching either one.
	for _, stack := range []*imagestack.Stack{g.sample, g.ob} {
		if stack.IsEmpty() {
			continue
		}
		if stack.Shape() != g.df.Shape() {
			return errors.Wrapf(imagestack.ErrShapeMismatch,
				"target is %dx%d, dark field is %dx%d",
				stack.Shape().Height, stack.Shape().Width,
				g.df.Shape().Height, g.df.Shape().Width)
		}
	}

	for _, stack := range []*imagestack.Stack{g.sample, g.ob} {
		if stack.IsEmpty() {
			continue
		}
		for _, frame := range stack.Frames() {
			subtractInPlace(frame, g.dfAverage)
		}
	}
	g.status.DFCorrection = true
	g.log.Info("dark-field correction applied",
		zap.Int("sampleFrames", g.sample.Len()), zap.Int("obFrames", g.ob.Len()))
	return nil
}

// Normalization divides every sample and open-beam frame by the mean of
// its own pixels restricted to the region, or the whole frame when region
// is nil. Each frame is scaled by its own mean, not a shared constant:
// this is per-frame flat-field normalization. A second call without force
// is a pass-through.
func (g *Interferometer) Normalization(region *roi.ROI, force bool) error {
	if g.status.Normalization && !force {
		g.log.Debug("normalization already run, skipping")
		return nil
	}
	if g.sample.IsEmpty() {
		return errors.Wrap(ErrMissingData, "no sample data loaded")
	}
	if g.ob.IsEmpty() {
		return errors.Wrap(ErrMissingData, "no open-beam data loaded")
	}
	if g.sample.Len() != g.ob.Len() {
		return errors.Wrapf(ErrCountMismatch, "%d sample vs %d open-beam frames",
			g.sample.Len(), g.ob.Len())
	}
	if err := g.checkLoadedShapesAgree(); err != nil {
		return err
	}
	if region != nil && !region.FitsWithin(g.sample.Shape()) {
		return errors.Wrapf(ErrInvalidROI, "roi %s against %dx%d frames",
			region, g.sample.Shape().Height, g.sample.Shape().Width)
	}

	for _, stack := range []*imagestack.Stack{g.sample, g.ob} {
		normalized := make([]*models.Frame, stack.Len())
		for i, frame := range stack.Frames() {
			normalized[i] = divideFrame(frame, roiMean(frame, region))
		}
		if err := stack.ReplaceFrames(normalized); err != nil {
			return err
		}
	}
	g.status.Normalization = true
	g.log.Info("normalization applied", zap.Bool("roi", region != nil))
	return nil
}

// checkLoadedShapesAgree verifies that sample, open beam and, when
// loaded, dark field all share one shape.
func (g *Interferometer) checkLoadedShapesAgree() error {
	if g.sample.Shape() != g.ob.Shape() {
		return errors.Wrapf(imagestack.ErrShapeMismatch,
			"sample is %dx%d, open beam is %dx%d",
			g.sample.Shape().Height, g.sample.Shape().Width,
			g.ob.Shape().Height, g.ob.Shape().Width)
	}
	if !g.df.IsEmpty() && g.sample.Shape() != g.df.Shape() {
		return errors.Wrapf(imagestack.ErrShapeMismatch,
			"sample is %dx%d, dark field is %dx%d",
			g.sample.Shape().Height, g.sample.Shape().Width,
			g.df.Shape().Height, g.df.Shape().Width)
	}
	return nil
}

// Crop replaces every sample and open-beam frame with its inclusive
// sub-rectangle at the region bounds. Destructive: the uncropped data is
// discarded. A second call without force is a no-op.
func (g *Interferometer) Crop(region roi.ROI, force bool) error {
	if g.sample.IsEmpty() || g.ob.IsEmpty() {
		return errors.Wrap(ErrMissingData, "crop needs sample and open-beam data")
	}
	// Both target stacks are validated before either one is touched.
	for _, stack := range []*imagestack.Stack{g.sample, g.ob} {
		if !region.FitsWithin(stack.Shape()) {
			return errors.Wrapf(ErrInvalidROI, "roi %s against %dx%d frames",
				region, stack.Shape().Height, stack.Shape().Width)
		}
	}
	if g.status.Crop && !force {
		g.log.Debug("crop already run, skipping")
		return nil
	}

	for _, stack := range []*imagestack.Stack{g.sample, g.ob} {
		cropped := make([]*models.Frame, stack.Len())
		for i, frame := range stack.Frames() {
			cropped[i] = cropFrame(frame, region)
		}
		if err := stack.ReplaceFrames(cropped); err != nil {
			return err
		}
	}
	g.status.Crop = true
	g.log.Info("crop applied", zap.Stringer("roi", region))
	return nil
}

// Oscillation computes, for sample and open beam independently, one mean
// intensity per frame over the region (or the whole frame when nil) and
// stores the sequences on the instance. Recomputing is harmless, so the
// stage always runs; its status flag is recorded only for the load gate.
// When plot is true and a Plotter is configured, the data is forwarded to
// it for rendering.
func (g *Interferometer) Oscillation(region *roi.ROI, plot bool) error {
	if region != nil {
		for _, stack := range []*imagestack.Stack{g.sample, g.ob} {
			if !stack.IsEmpty() && !region.FitsWithin(stack.Shape()) {
				return errors.Wrapf(ErrInvalidROI, "roi %s against %dx%d frames",
					region, stack.Shape().Height, stack.Shape().Width)
			}
		}
	}

	for role, stack := range map[models.Role]*imagestack.Stack{
		models.RoleSample:   g.sample,
		models.RoleOpenBeam: g.ob,
	} {
		means := make([]float64, stack.Len())
		for i, frame := range stack.Frames() {
			means[i] = roiMean(frame, region)
		}
		g.oscillation[role] = means
	}
	g.status.Oscillation = true

	if plot && g.plotter != nil && !g.sample.IsEmpty() {
		return g.plotter.PlotOscillation(g.sample.Frame(0), region,
			g.oscillation[models.RoleSample], g.oscillation[models.RoleOpenBeam])
	}
	return nil
}

// Binning truncates every sample and open-beam frame to whole multiples
// of binSize and reduces each binSize x binSize block to its mean,
// producing frames of shape (height/binSize, width/binSize). Trailing
// rows and columns that do not fill a complete bin are discarded. A
// second call without force is a no-op.
func (g *Interferometer) Binning(binSize int, force bool) error {
	if binSize < 1 {
		return errors.Wrapf(ErrInvalidArgument, "bin size must be a positive integer, got %d", binSize)
	}
	if g.status.Bin && !force {
		g.log.Debug("binning already run, skipping")
		return nil
	}
	if g.sample.IsEmpty() {
		return errors.Wrap(ErrMissingData, "no sample data loaded")
	}
	if g.ob.IsEmpty() {
		return errors.Wrap(ErrMissingData, "no open-beam data loaded")
	}
	if shape := g.sample.Shape(); binSize > shape.Height || binSize > shape.Width {
		return errors.Wrapf(ErrInvalidArgument,
			"bin size %d exceeds frame dimensions %dx%d",
			binSize, shape.Height, shape.Width)
	}

	for _, stack := range []*imagestack.Stack{g.sample, g.ob} {
		binned := make([]*models.Frame, stack.Len())
		for i, frame := range stack.Frames() {
			binned[i] = binFrame(frame, binSize)
		}
		if err := stack.ReplaceFrames(binned); err != nil {
			return err
		}
	}
	g.status.Bin = true
	g.log.Info("binning applied", zap.Int("binSize", binSize),
		zap.Int("height", g.sample.Shape().Height),
		zap.Int("width", g.sample.Shape().Width))
	return nil
}

// CreateInterferometryImages reduces the corrected sample and open-beam
// stacks per pixel into offset/amplitude/phase and derives the four
// interferometry maps. The maps are stored on the instance and returned.
func (g *Interferometer) CreateInterferometryImages(numberPeriods float64) (*interferometry.Maps, error) {
	if g.sample.IsEmpty() {
		return nil, errors.Wrap(ErrMissingData, "no sample data loaded")
	}
	if g.ob.IsEmpty() {
		return nil, errors.Wrap(ErrMissingData, "no open-beam data loaded")
	}

	sampleReduction, err := harmonic.Reduce(g.sample, numberPeriods)
	if err != nil {
		return nil, errors.Wrap(err, "sample reduction")
	}
	obReduction, err := harmonic.Reduce(g.ob, numberPeriods)
	if err != nil {
		return nil, errors.Wrap(err, "open-beam reduction")
	}

	maps, err := interferometry.Derive(sampleReduction, obReduction)
	if err != nil {
		return nil, err
	}
	g.maps = maps
	g.log.Info("interferometry maps derived",
		zap.Float64("numberPeriods", numberPeriods),
		zap.Int("height", maps.Transmission.Height),
		zap.Int("width", maps.Transmission.Width))
	return maps, nil
}

// Status returns a copy of the stage execution flags.
func (g *Interferometer) Status() ProcessStatus {
	return g.status
}

// Stack returns the stack owned by the given role, or nil for an unknown
// role. Callers must not append to it directly; ingestion goes through
// Load or AppendFrame.
func (g *Interferometer) Stack(role models.Role) *imagestack.Stack {
	stack, err := g.stackFor(role)
	if err != nil {
		return nil
	}
	return stack
}

// OscillationValues returns the per-frame mean intensities computed by
// the last Oscillation call for the given role, or nil if none.
func (g *Interferometer) OscillationValues(role models.Role) []float64 {
	return g.oscillation[role]
}

// Maps returns the interferometry maps derived by the last
// CreateInterferometryImages call, or nil if none.
func (g *Interferometer) Maps() *interferometry.Maps {
	return g.maps
}
