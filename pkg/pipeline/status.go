package pipeline

// ProcessStatus records which destructive stages have executed on the
// in-memory data of one pipeline instance. Flags are never cleared; a
// fresh dataset requires a fresh Interferometer.
type ProcessStatus struct {
	DFCorrection  bool
	Normalization bool
	Crop          bool
	Oscillation   bool
	Bin           bool
}

// Any reports whether at least one stage has run. Loading new data is
// forbidden once this is true.
func (p ProcessStatus) Any() bool {
	return p.DFCorrection || p.Normalization || p.Crop || p.Oscillation || p.Bin
}
