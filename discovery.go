package monosweep

import (
	"context"
	"strings"
	"unicode"

	"go.bug.st/serial/enumerator"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/discovery"
)

var MonoDiscoveryModel = resource.NewModel("devrel", "monochromator", "discovery")

func init() {
	resource.RegisterService(
		discovery.API,
		MonoDiscoveryModel,
		resource.Registration[discovery.Service, *MonoDiscoveryConfig]{
			Constructor: newMonoDiscovery,
		})
}

// MonoDiscoveryConfig is the configuration for the discovery service.
type MonoDiscoveryConfig struct {
	Baudrate int `json:"baudrate,omitempty"`
}

// Validate ensures the config is valid.
func (cfg *MonoDiscoveryConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Baudrate == 0 {
		cfg.Baudrate = DefaultBaudrate
	}
	return nil, nil, nil
}

// monoDiscovery implements the discovery service.
type monoDiscovery struct {
	resource.Named
	resource.AlwaysRebuild
	resource.TriviallyCloseable
	cfg    *MonoDiscoveryConfig
	logger logging.Logger
}

func newMonoDiscovery(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (discovery.Service, error) {
	cfg, err := resource.NativeConfig[*MonoDiscoveryConfig](conf)
	if err != nil {
		return nil, err
	}

	return &monoDiscovery{
		Named:  conf.ResourceName().AsNamed(),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// DiscoverResources scans serial ports for a monochromator and returns
// suggested sweep sensor configurations.
func (dis *monoDiscovery) DiscoverResources(ctx context.Context, extra map[string]any) ([]resource.Config, error) {
	dis.logger.Info("Starting monochromator discovery")

	allPorts := enumerateSerialPorts(dis.logger)
	dis.logger.Debugf("Found %d total serial ports", len(allPorts))

	candidates := filterCandidatePorts(allPorts)
	dis.logger.Debugf("Filtered to %d candidate ports", len(candidates))

	var configs []resource.Config
	for _, portPath := range candidates {
		select {
		case <-ctx.Done():
			dis.logger.Info("Discovery cancelled")
			return configs, ctx.Err()
		default:
		}

		if !dis.probePort(portPath) {
			dis.logger.Debugf("No monochromator detected on %s", portPath)
			continue
		}

		dis.logger.Infof("Discovered monochromator on %s", portPath)
		configs = append(configs, resource.Config{
			Name:  "monochromator-" + extractPortSuffix(portPath),
			API:   sensor.API,
			Model: MonoSweepModel,
			Attributes: map[string]interface{}{
				"port": portPath,
			},
		})
	}

	if len(configs) == 0 {
		dis.logger.Info("No monochromators discovered")
	}
	return configs, nil
}

// probePort opens the port and issues a position query. A grating
// controller always answers the query; silence or an open failure means
// something else owns the device node.
func (dis *monoDiscovery) probePort(portPath string) bool {
	driver, err := NewDriver(portPath, dis.cfg.Baudrate, DefaultFilterTable, DefaultTimeout, dis.logger)
	if err != nil {
		dis.logger.Debugf("Failed to open port %s: %v", portPath, err)
		return false
	}
	defer driver.Close()

	resp, err := driver.Query()
	if err != nil {
		dis.logger.Debugf("No response from %s: %v", portPath, err)
		return false
	}
	return len(resp) > 0
}

// enumerateSerialPorts lists serial device paths, preferring detailed
// USB enumeration and falling back to names only.
func enumerateSerialPorts(logger logging.Logger) []string {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		logger.Debugf("Detailed port enumeration failed: %v", err)
		return nil
	}

	var paths []string
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		paths = append(paths, port.Name)
	}
	return paths
}

// filterCandidatePorts keeps only port names that look like USB serial
// devices on Linux, macOS, or Windows.
func filterCandidatePorts(ports []string) []string {
	candidates := []string{}
	for _, port := range ports {
		switch {
		case strings.HasPrefix(port, "/dev/ttyUSB"),
			strings.HasPrefix(port, "/dev/ttyACM"),
			strings.HasPrefix(port, "/dev/tty.usb"):
			candidates = append(candidates, port)
		case strings.HasPrefix(port, "COM") && len(port) > 3:
			if isDigits(port[3:]) {
				candidates = append(candidates, port)
			}
		}
	}
	return candidates
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// extractPortSuffix turns a device path into a short name suitable for
// a resource name, e.g. /dev/ttyUSB0 -> ttyUSB0.
func extractPortSuffix(portPath string) string {
	if idx := strings.LastIndex(portPath, "/"); idx >= 0 {
		return portPath[idx+1:]
	}
	return portPath
}
