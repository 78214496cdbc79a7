package monosweep

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

// MonoSweep sequences the monochromator through a wavelength sweep,
// pairing each grating move with the long-pass filter its band
// requires. It composes a Driver with SweepParams; all operations
// return plain status strings for the operator surface, and a non-nil
// error only means the serial transport itself failed.
type MonoSweep struct {
	driver *Driver
	params *SweepParams
	logger logging.Logger
}

// NewMonoSweep wraps an open driver with fresh sweep state for the
// given bounds. The driver's lifetime belongs to the caller.
func NewMonoSweep(driver *Driver, startNm, stopNm, stepNm int, logger logging.Logger) *MonoSweep {
	return &MonoSweep{
		driver: driver,
		params: NewSweepParams(startNm, stopNm, stepNm),
		logger: logger,
	}
}

// Params exposes the sweep state for status reporting.
func (m *MonoSweep) Params() *SweepParams {
	return m.params
}

// SetFilter moves the filter wheel and interprets the response. An
// unrecognized name is an expected, recoverable failure: it comes back
// as an "ERROR:"-prefixed status string, never as an error. A non-ack
// response is logged and echoed back verbatim; the confirmed filter is
// only updated on an exact ack.
func (m *MonoSweep) SetFilter(name string) (string, error) {
	raw, err := m.driver.SetFilter(name)
	if errors.Is(err, ErrUnknownFilter) {
		return fmt.Sprintf("ERROR: unrecognized filter name: '%s'", name), nil
	}
	if err != nil {
		return "", err
	}

	if !bytes.Equal(raw, AckOK) {
		m.logger.Warnf("Unexpected monochromator response: %q", raw)
		return fmt.Sprintf("monochromator response: `%s`", raw), nil
	}

	m.params.Filter = name
	return fmt.Sprintf("Filter set to '%s'.", name), nil
}

// SetNm moves the grating to nm and interprets the response the same
// way SetFilter does.
func (m *MonoSweep) SetNm(nm int) (string, error) {
	raw, err := m.driver.SetNm(nm)
	if err != nil {
		return "", err
	}

	if !bytes.Equal(raw, AckOK) {
		m.logger.Warnf("Unexpected monochromator response: %q", raw)
		return fmt.Sprintf("monochromator response: `%s`", raw), nil
	}

	m.params.Wavelength = nm
	return fmt.Sprintf("Wavelength: %dnm.", nm), nil
}

// Step advances the sweep by one wavelength. The filter wheel always
// moves before the grating within a step. The completion check runs
// after the wavelength command, so the first value past StopNm is still
// sent to the instrument; that call then restores the pre-sweep filter
// and wavelength and its status reports the restoration.
func (m *MonoSweep) Step() (string, error) {
	p := m.params

	expect := FilterForWavelength(p.NextWavelength)
	p.FilterChanged = p.NextFilter != expect
	if p.FilterChanged {
		p.NextFilter = expect
		m.logger.Infof("Loading filter: %s...", p.NextFilter)
		if _, err := m.SetFilter(p.NextFilter); err != nil {
			return "", err
		}
	}

	if _, err := m.SetNm(p.NextWavelength); err != nil {
		return "", err
	}
	status := fmt.Sprintf("Filter: %s, Wavelength: %dnm", p.NextFilter, p.NextWavelength)

	if p.NextWavelength > p.StopNm {
		p.Stop()
		m.logger.Infof("Loading filter: %s...", p.NextFilter)
		if _, err := m.SetFilter(p.NextFilter); err != nil {
			return "", err
		}
		var err error
		status, err = m.SetNm(p.NextWavelength)
		if err != nil {
			return "", err
		}
	} else {
		p.NextWavelength += p.StepNm
	}

	return status, nil
}
