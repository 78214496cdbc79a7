package monosweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	goutils "go.viam.com/utils"
)

var MonoSweepModel = resource.NewModel("devrel", "monochromator", "sweep")

func init() {
	resource.RegisterComponent(sensor.API, MonoSweepModel,
		resource.Registration[sensor.Sensor, *MonoSweepConfig]{
			Constructor: NewMonoSweepSensor,
		},
	)
}

// stepSettleTime is the pause between steps when a whole sweep is run
// from a single "run_sweep" command, giving the detector time to read
// out at each wavelength.
const stepSettleTime = 250 * time.Millisecond

// monoSweepSensor exposes the sweep as a Viam sensor: Readings reports
// sweep state, DoCommand drives it. The instrument link is strictly
// single-writer, so every operation holds the same lock.
type monoSweepSensor struct {
	resource.Named
	resource.AlwaysRebuild

	logger logging.Logger
	cfg    *MonoSweepConfig
	port   string

	mu    sync.Mutex
	sweep *MonoSweep
}

// NewMonoSweepSensor creates the sweep sensor for a monochromator on a
// shared serial port.
func NewMonoSweepSensor(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (sensor.Sensor, error) {
	cfg, err := resource.NativeConfig[*MonoSweepConfig](conf)
	if err != nil {
		return nil, err
	}
	cfg.Logger = logger

	filters, fromFile := cfg.LoadFilterTable(logger)
	if fromFile {
		logger.Infof("Filter table: %v", filters)
	}

	driver, err := sharedDrivers.GetDriver(cfg.Port, cfg, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize monochromator driver: %w", err)
	}

	s := &monoSweepSensor{
		Named:  conf.ResourceName().AsNamed(),
		logger: logger,
		cfg:    cfg,
		port:   cfg.Port,
		sweep:  NewMonoSweep(driver, cfg.StartNm, cfg.StopNm, cfg.StepNm, logger),
	}

	logger.Infof("Monochromator sweep initialized on port %s: %dnm to %dnm in %dnm steps",
		cfg.Port, cfg.StartNm, cfg.StopNm, cfg.StepNm)
	return s, nil
}

// Readings reports the sweep state: the last instrument-confirmed
// wavelength and filter plus the progress of the configured scan.
func (s *monoSweepSensor) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.sweep.Params()
	return map[string]interface{}{
		"wavelength":      p.Wavelength,
		"filter":          p.Filter,
		"next_wavelength": p.NextWavelength,
		"next_filter":     p.NextFilter,
		"in_progress":     p.InProgress,
		"start_nm":        p.StartNm,
		"stop_nm":         p.StopNm,
		"step_nm":         p.StepNm,
	}, nil
}

func (s *monoSweepSensor) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.sweep.Params()

	switch cmd["command"] {
	case "start_sweep":
		status := p.Start()
		return map[string]interface{}{"status": status, "in_progress": p.InProgress}, nil

	case "step":
		status, err := s.sweep.Step()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"status": status, "in_progress": p.InProgress}, nil

	case "stop_sweep":
		p.Stop()
		return map[string]interface{}{"status": "Sweep stopped.", "in_progress": p.InProgress}, nil

	case "run_sweep":
		status := p.Start()
		s.logger.Info(status)
		for p.InProgress {
			status, err := s.sweep.Step()
			if err != nil {
				return nil, err
			}
			s.logger.Info(status)
			if !goutils.SelectContextOrWait(ctx, stepSettleTime) {
				return nil, ctx.Err()
			}
		}
		return map[string]interface{}{"status": "Sweep complete.", "in_progress": p.InProgress}, nil

	case "set_nm":
		nm, ok := cmd["nm"].(float64)
		if !ok {
			return nil, fmt.Errorf("set_nm command requires 'nm' number parameter")
		}
		status, err := s.sweep.SetNm(int(nm))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"status": status}, nil

	case "set_filter":
		name := FilterBlank
		if v, ok := cmd["filter"].(string); ok {
			name = v
		}
		status, err := s.sweep.SetFilter(name)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"status": status}, nil

	case "set_wavelengths":
		startNm, ok := cmd["start_nm"].(float64)
		if !ok {
			return nil, fmt.Errorf("set_wavelengths command requires 'start_nm' number parameter")
		}
		stopNm, ok := cmd["stop_nm"].(float64)
		if !ok {
			return nil, fmt.Errorf("set_wavelengths command requires 'stop_nm' number parameter")
		}
		stepNm, ok := cmd["step_nm"].(float64)
		if !ok {
			return nil, fmt.Errorf("set_wavelengths command requires 'step_nm' number parameter")
		}
		p.SetWavelengths(int(startNm), int(stopNm), int(stepNm))
		return map[string]interface{}{
			"status":      fmt.Sprintf("Scan range set: %dnm to %dnm in %dnm steps.", p.StartNm, p.StopNm, p.StepNm),
			"wavelengths": len(p.Wavelengths),
		}, nil

	case "status":
		return map[string]interface{}{
			"status": fmt.Sprintf("Filter: %s, Wavelength: %dnm", p.Filter, p.Wavelength),
		}, nil

	default:
		return nil, fmt.Errorf("unknown command: %v", cmd["command"])
	}
}

func (s *monoSweepSensor) Close(ctx context.Context) error {
	s.logger.Info("Closing monochromator sweep")
	sharedDrivers.ReleaseDriver(s.port)
	return nil
}
