package monosweep

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.viam.com/rdk/logging"
)

// AckOK is the exact acknowledgment the grating controller returns for
// an accepted command: two leading spaces, "ok", CR, LF. Anything else
// is surfaced to the caller as-is.
var AckOK = []byte("  ok\r\n")

// ErrUnknownFilter is returned by SetFilter for names missing from the
// filter wheel table.
var ErrUnknownFilter = errors.New("unknown filter name")

const (
	// DefaultBaudrate matches the monochromator's USB serial bridge.
	DefaultBaudrate = 9600

	// DefaultTimeout bounds the wait for a command acknowledgment. The
	// controller only answers once the grating or wheel has settled, so
	// this has to cover a full mechanical move.
	DefaultTimeout = 5 * time.Second

	responseBufSize = 64
)

// serialPort is the subset of serial.Port the driver uses. Tests
// substitute a scripted mock.
type serialPort interface {
	Write(p []byte) (n int, err error)
	Read(p []byte) (n int, err error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Driver handles low-level command/response traffic with the
// monochromator over its USB serial port. Commands are strictly
// serialized: every write blocks until the instrument responds or the
// read times out, so grating and filter wheel motion never overlap.
type Driver struct {
	port    serialPort
	filters FilterTable
	timeout time.Duration
	logger  logging.Logger
	mu      sync.Mutex
}

// NewDriver opens the serial port and wraps it in a Driver. The caller
// owns the Driver and must Close it; the shared registry handles this
// when drivers are obtained through it.
func NewDriver(portName string, baudrate int, filters FilterTable, timeout time.Duration, logger logging.Logger) (*Driver, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", portName)
	}

	logger.Infof("Connected to monochromator on port %s at %d baud", portName, baudrate)
	return &Driver{
		port:    port,
		filters: filters,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port != nil {
		err := d.port.Close()
		d.port = nil
		return err
	}
	return nil
}

// sendCommand writes one CR-LF-terminated command and returns the raw
// response bytes, ack or not. Transport failures are the only errors.
func (d *Driver) sendCommand(cmd string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return nil, errors.New("not connected to serial port")
	}

	if _, err := d.port.Write([]byte(cmd + "\r\n")); err != nil {
		return nil, errors.Wrapf(err, "failed to write command %q", cmd)
	}

	if err := d.port.SetReadTimeout(d.timeout); err != nil {
		return nil, errors.Wrap(err, "failed to set read timeout")
	}

	buf := make([]byte, responseBufSize)
	n, err := d.port.Read(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response to %q", cmd)
	}

	return buf[:n], nil
}

// SetNm commands the grating to the given wavelength and returns the
// controller's raw response.
func (d *Driver) SetNm(nm int) ([]byte, error) {
	return d.sendCommand(fmt.Sprintf("%d nm", nm))
}

// SetFilter rotates the filter wheel to the position registered for
// name. Names missing from the table fail with ErrUnknownFilter before
// any bytes hit the wire.
func (d *Driver) SetFilter(name string) ([]byte, error) {
	position, ok := d.filters[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFilter, "%q", name)
	}
	return d.sendCommand(fmt.Sprintf("%d filter", position))
}

// Query asks the controller for its current grating position. Discovery
// uses this to tell a monochromator apart from other USB serial devices
// without moving any hardware.
func (d *Driver) Query() ([]byte, error) {
	return d.sendCommand("nm?")
}
