package monosweep

import (
	"context"
	"strings"
	"testing"

	"go.viam.com/rdk/logging"
)

func newTestSensor(t *testing.T, port *mockPort, startNm, stopNm, stepNm int) *monoSweepSensor {
	t.Helper()
	logger := logging.NewTestLogger(t)
	return &monoSweepSensor{
		logger: logger,
		sweep:  NewMonoSweep(newTestDriver(t, port), startNm, stopNm, stepNm, logger),
	}
}

func TestSensorReadings(t *testing.T) {
	s := newTestSensor(t, &mockPort{}, 300, 550, 50)

	readings, err := s.Readings(context.Background(), nil)
	if err != nil {
		t.Fatalf("Readings failed: %v", err)
	}

	if readings["in_progress"] != false {
		t.Fatal("Sweep must not be in progress initially")
	}
	if readings["filter"] != "UNKNOWN" {
		t.Fatalf("Expected unconfirmed filter, got %v", readings["filter"])
	}
	if readings["start_nm"] != 300 || readings["stop_nm"] != 550 || readings["step_nm"] != 50 {
		t.Fatalf("Unexpected sweep bounds in readings: %v", readings)
	}
}

func TestSensorDoCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("start then step then stop", func(t *testing.T) {
		s := newTestSensor(t, &mockPort{}, 300, 550, 50)

		resp, err := s.DoCommand(ctx, map[string]interface{}{"command": "start_sweep"})
		if err != nil {
			t.Fatalf("start_sweep failed: %v", err)
		}
		if resp["in_progress"] != true {
			t.Fatal("Expected sweep in progress after start_sweep")
		}
		status, _ := resp["status"].(string)
		if !strings.HasPrefix(status, "Scan: 300nm to 550nm") {
			t.Fatalf("Unexpected start status: %q", status)
		}

		resp, err = s.DoCommand(ctx, map[string]interface{}{"command": "step"})
		if err != nil {
			t.Fatalf("step failed: %v", err)
		}
		if resp["status"] != "Filter: BLANK, Wavelength: 300nm" {
			t.Fatalf("Unexpected step status: %v", resp["status"])
		}

		resp, err = s.DoCommand(ctx, map[string]interface{}{"command": "stop_sweep"})
		if err != nil {
			t.Fatalf("stop_sweep failed: %v", err)
		}
		if resp["in_progress"] != false {
			t.Fatal("Expected sweep stopped")
		}
	})

	t.Run("set_nm", func(t *testing.T) {
		s := newTestSensor(t, &mockPort{}, 300, 550, 50)

		resp, err := s.DoCommand(ctx, map[string]interface{}{"command": "set_nm", "nm": 500.0})
		if err != nil {
			t.Fatalf("set_nm failed: %v", err)
		}
		if resp["status"] != "Wavelength: 500nm." {
			t.Fatalf("Unexpected status: %v", resp["status"])
		}

		if _, err := s.DoCommand(ctx, map[string]interface{}{"command": "set_nm"}); err == nil {
			t.Fatal("Expected error for missing nm parameter")
		}
	})

	t.Run("set_filter defaults to BLANK", func(t *testing.T) {
		port := &mockPort{}
		s := newTestSensor(t, port, 300, 550, 50)

		resp, err := s.DoCommand(ctx, map[string]interface{}{"command": "set_filter"})
		if err != nil {
			t.Fatalf("set_filter failed: %v", err)
		}
		if resp["status"] != "Filter set to 'BLANK'." {
			t.Fatalf("Unexpected status: %v", resp["status"])
		}
		if cmds := port.sentCommands(); len(cmds) != 1 || cmds[0] != "1 filter\r\n" {
			t.Fatalf("Unexpected traffic: %v", cmds)
		}
	})

	t.Run("set_filter unknown name", func(t *testing.T) {
		s := newTestSensor(t, &mockPort{}, 300, 550, 50)

		resp, err := s.DoCommand(ctx, map[string]interface{}{"command": "set_filter", "filter": "NOT_A_FILTER"})
		if err != nil {
			t.Fatalf("set_filter must recover locally, got %v", err)
		}
		status, _ := resp["status"].(string)
		if !strings.HasPrefix(status, "ERROR:") {
			t.Fatalf("Expected ERROR: status, got %q", status)
		}
	})

	t.Run("set_wavelengths", func(t *testing.T) {
		s := newTestSensor(t, &mockPort{}, 300, 550, 50)

		resp, err := s.DoCommand(ctx, map[string]interface{}{
			"command":  "set_wavelengths",
			"start_nm": 400.0,
			"stop_nm":  500.0,
			"step_nm":  25.0,
		})
		if err != nil {
			t.Fatalf("set_wavelengths failed: %v", err)
		}
		if resp["wavelengths"] != 5 {
			t.Fatalf("Expected 5 wavelengths, got %v", resp["wavelengths"])
		}
		if s.sweep.Params().StartNm != 400 {
			t.Fatalf("Expected start 400, got %d", s.sweep.Params().StartNm)
		}
	})

	t.Run("run_sweep drives to completion", func(t *testing.T) {
		port := &mockPort{}
		s := newTestSensor(t, port, 300, 400, 50)

		resp, err := s.DoCommand(ctx, map[string]interface{}{"command": "run_sweep"})
		if err != nil {
			t.Fatalf("run_sweep failed: %v", err)
		}
		if resp["in_progress"] != false {
			t.Fatal("Expected sweep finished")
		}
		// 3 in-range grating moves + completion traffic (filter, 450nm,
		// filter restore, wavelength restore)
		if len(port.writes) != 7 {
			t.Fatalf("Expected 7 commands, got %d: %v", len(port.writes), port.sentCommands())
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		s := newTestSensor(t, &mockPort{}, 300, 550, 50)
		if _, err := s.DoCommand(ctx, map[string]interface{}{"command": "frobnicate"}); err == nil {
			t.Fatal("Expected error for unknown command")
		}
	})
}
