package monosweep

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.viam.com/rdk/logging"
)

type MonoSweepConfig struct {
	Port     string        `json:"port"`
	Baudrate int           `json:"baudrate,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`

	// Sweep bounds, inclusive of stop_nm.
	StartNm int `json:"start_nm,omitempty"`
	StopNm  int `json:"stop_nm,omitempty"`
	StepNm  int `json:"step_nm,omitempty"`

	// Optional JSON file mapping filter names to wheel positions.
	FilterTableFile string `json:"filter_table_file,omitempty"`

	// Not serialized
	Logger logging.Logger `json:"-"`
}

// Validate ensures all parts of the config are valid and fills defaults.
func (cfg *MonoSweepConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Port == "" {
		return nil, nil, fmt.Errorf("must specify port for serial communication")
	}

	if cfg.Baudrate == 0 {
		cfg.Baudrate = DefaultBaudrate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.StartNm == 0 {
		cfg.StartNm = DefaultStartNm
	}
	if cfg.StopNm == 0 {
		cfg.StopNm = DefaultStopNm
	}
	if cfg.StepNm == 0 {
		cfg.StepNm = DefaultStepNm
	}

	if cfg.StepNm < 0 {
		return nil, nil, fmt.Errorf("step_nm must be positive, got %d", cfg.StepNm)
	}
	if cfg.StopNm < cfg.StartNm {
		return nil, nil, fmt.Errorf("stop_nm %d must not be below start_nm %d", cfg.StopNm, cfg.StartNm)
	}

	return nil, nil, nil
}

// FilterTable maps filter names to filter wheel positions.
type FilterTable map[string]int

// DefaultFilterTable is the wheel layout of the stock instrument: an
// open position and the two long-pass filters the sweep bands use.
var DefaultFilterTable = FilterTable{
	FilterBlank:  1,
	Filter400LPF: 2,
	Filter700LPF: 3,
}

// Validate checks that every entry names a real wheel position and no
// two filters share one.
func (t FilterTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("filter table is empty")
	}

	seen := make(map[int]string, len(t))
	for name, position := range t {
		if position < 1 {
			return fmt.Errorf("filter %q: wheel position must be >= 1, got %d", name, position)
		}
		if other, ok := seen[position]; ok {
			return fmt.Errorf("filters %q and %q share wheel position %d", name, other, position)
		}
		seen[position] = name
	}
	return nil
}

// LoadFilterTable loads the filter table from file or returns the
// default table. Returns (table, fromFile) where fromFile indicates it
// was loaded from file.
func (cfg *MonoSweepConfig) LoadFilterTable(logger logging.Logger) (FilterTable, bool) {
	if cfg.FilterTableFile == "" {
		if logger != nil {
			logger.Debug("No filter table file specified, using default filter table")
		}
		return DefaultFilterTable, false
	}

	// Handle relative paths using VIAM_MODULE_DATA
	if !filepath.IsAbs(cfg.FilterTableFile) {
		moduleDataDir := os.Getenv("VIAM_MODULE_DATA")
		if moduleDataDir == "" {
			moduleDataDir = "/tmp"
		}
		cfg.FilterTableFile = filepath.Join(moduleDataDir, cfg.FilterTableFile)
	}

	table, err := LoadFilterTableFromFile(cfg.FilterTableFile)
	if err != nil {
		if logger != nil {
			logger.Warnf("Failed to load filter table from %s: %v, using default filter table", cfg.FilterTableFile, err)
		}
		return DefaultFilterTable, false
	}

	if logger != nil {
		logger.Infof("Successfully loaded filter table from %s", cfg.FilterTableFile)
	}
	return table, true
}

// LoadFilterTableFromFile loads and validates a filter table from a JSON file.
func LoadFilterTableFromFile(filePath string) (FilterTable, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter table file: %w", err)
	}

	var table FilterTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse filter table JSON: %w", err)
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("filter table validation failed: %w", err)
	}

	return table, nil
}

// SaveFilterTableToFile saves a filter table to a JSON file.
func SaveFilterTableToFile(filePath string, table FilterTable) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal filter table: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write filter table file: %w", err)
	}

	return nil
}

// Equal reports whether two filter tables describe the same wheel layout.
func (t FilterTable) Equal(other FilterTable) bool {
	if len(t) != len(other) {
		return false
	}
	for name, position := range t {
		if other[name] != position {
			return false
		}
	}
	return true
}
