package pipeline

import "github.com/cockroachdb/errors"

// Sentinel errors for the pipeline stage preconditions. Shape violations
// surface as imagestack.ErrShapeMismatch and loading failures as the
// loader package sentinels; everything is matched with errors.Is.
var (
	// ErrMissingData reports a stage that requires a role's frames before
	// any have been loaded.
	ErrMissingData = errors.New("required image data has not been loaded")

	// ErrCountMismatch reports differing sample and open-beam frame counts
	// at normalization time.
	ErrCountMismatch = errors.New("sample and open-beam frame counts differ")

	// ErrInvalidROI reports an ROI whose bounds do not fit inside the
	// frames it is applied to.
	ErrInvalidROI = errors.New("roi does not fit inside the loaded frames")

	// ErrInvalidArgument reports a malformed stage parameter.
	ErrInvalidArgument = errors.New("invalid stage argument")

	// ErrOperationNotAllowed reports an attempt to load new data after a
	// pipeline stage has already executed on this instance.
	ErrOperationNotAllowed = errors.New("operation not allowed once processing has started")
)
