package monosweep

import "fmt"

// Wavelength thresholds between the three filter bands, in nm. A band
// boundary belongs to the higher band: exactly 420nm already needs the
// 400nm long-pass filter.
const (
	Filter400Threshold = 420
	Filter700Threshold = 720
)

// Filter names as they appear on the monochromator's filter wheel.
const (
	FilterBlank  = "BLANK"
	Filter400LPF = "400nm LPF"
	Filter700LPF = "700nm LPF"
)

// Default sweep bounds used when the config leaves them unset.
const (
	DefaultStartNm = 350
	DefaultStopNm  = 850
	DefaultStepNm  = 10
)

// Parked wavelength target before any sweep has been configured.
const defaultNextWavelength = 550

// FilterForWavelength returns the filter that must be in the beam path
// for a given grating wavelength.
func FilterForWavelength(nm int) string {
	switch {
	case nm < Filter400Threshold:
		return FilterBlank
	case nm < Filter700Threshold:
		return Filter400LPF
	default:
		return Filter700LPF
	}
}

// SweepParams holds sweep configuration and progress state. It is owned
// by a single MonoSweep and never talks to the instrument itself.
type SweepParams struct {
	StartNm int
	StopNm  int
	StepNm  int

	// Wavelengths is the full scan list, regenerated by SetWavelengths.
	Wavelengths []int

	// NextWavelength is the wavelength commanded on the next Step call,
	// with NextFilter the filter expected to be in place for it.
	NextWavelength int
	NextFilter     string
	FilterChanged  bool
	InProgress     bool

	// Pre-sweep targets snapshotted by Start and restored by Stop.
	saveFilter     string
	saveWavelength int

	// Last values the instrument actually acknowledged. Wavelength stays
	// 0 and Filter stays "UNKNOWN" until the first successful command.
	Wavelength int
	Filter     string
}

// NewSweepParams creates sweep state for the given bounds.
func NewSweepParams(startNm, stopNm, stepNm int) *SweepParams {
	p := &SweepParams{
		NextFilter:     FilterBlank,
		NextWavelength: defaultNextWavelength,
		Wavelength:     0,
		Filter:         "UNKNOWN",
	}
	p.SetWavelengths(startNm, stopNm, stepNm)
	p.saveFilter = p.NextFilter
	p.saveWavelength = p.NextWavelength
	return p
}

// SetWavelengths stores the sweep bounds and regenerates the scan list.
// The list runs from startNm through stopNm inclusive; the loop bound is
// stopNm+stepNm so the stop wavelength itself is always included. Bounds
// are otherwise the caller's responsibility.
func (p *SweepParams) SetWavelengths(startNm, stopNm, stepNm int) {
	p.StartNm = startNm
	p.StopNm = stopNm
	p.StepNm = stepNm

	p.Wavelengths = nil
	if stepNm <= 0 {
		return
	}
	for nm := startNm; nm < stopNm+stepNm; nm += stepNm {
		p.Wavelengths = append(p.Wavelengths, nm)
	}
}

// Start flags the sweep as running, snapshots the current targets so
// Stop can restore them, and rewinds the next wavelength to the start
// of the range. The filter is resolved lazily by the first Step.
func (p *SweepParams) Start() string {
	p.InProgress = true
	p.saveFilter = p.NextFilter
	p.saveWavelength = p.NextWavelength
	p.NextWavelength = p.StartNm
	return fmt.Sprintf("Scan: %dnm to %dnm in %dnm steps. Moving filter...",
		p.StartNm, p.StopNm, p.StepNm)
}

// Stop clears the in-progress flag and restores the pre-sweep filter
// and wavelength targets. It does not talk to the instrument.
func (p *SweepParams) Stop() {
	p.InProgress = false
	p.NextFilter = p.saveFilter
	p.NextWavelength = p.saveWavelength
}
