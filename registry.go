package monosweep

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DriverEntry tracks one open monochromator port and who is using it.
type DriverEntry struct {
	driver    *Driver
	config    *MonoSweepConfig
	filters   FilterTable
	refCount  int64 // Atomic reference counter
	lastError error
	mu        sync.RWMutex
}

// DriverRegistry hands out shared Driver instances keyed by port path.
// The serial port is an exclusively-owned resource; the registry lets
// the sweep sensor and discovery share one open handle instead of
// fighting over the device node.
type DriverRegistry struct {
	entries map[string]*DriverEntry // port path -> entry
	mu      sync.RWMutex
}

func NewDriverRegistry() *DriverRegistry {
	return &DriverRegistry{
		entries: make(map[string]*DriverEntry),
	}
}

// sharedDrivers is the process-wide registry the module components use.
var sharedDrivers = NewDriverRegistry()

func (r *DriverRegistry) GetDriver(portPath string, config *MonoSweepConfig, filters FilterTable) (*Driver, error) {
	r.mu.RLock()
	entry, exists := r.entries[portPath]
	r.mu.RUnlock()

	if exists {
		return r.getExistingDriver(entry, config)
	}

	return r.createNewDriver(portPath, config, filters)
}

func (r *DriverRegistry) getExistingDriver(entry *DriverEntry, config *MonoSweepConfig) (*Driver, error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.driver == nil {
		if entry.lastError != nil {
			return nil, fmt.Errorf("cached driver creation error: %w", entry.lastError)
		}
		return nil, fmt.Errorf("driver not available for port %s", entry.config.Port)
	}

	if !configsEqual(entry.config, config) {
		currentRefCount := atomic.LoadInt64(&entry.refCount)
		return nil, fmt.Errorf("conflict: existing driver uses different config (refCount: %d)", currentRefCount)
	}

	atomic.AddInt64(&entry.refCount, 1)
	return entry.driver, nil
}

func (r *DriverRegistry) createNewDriver(portPath string, config *MonoSweepConfig, filters FilterTable) (*Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.entries[portPath]; exists {
		return r.getExistingDriver(entry, config)
	}

	entry := &DriverEntry{
		config:  config,
		filters: filters,
	}

	driver, err := NewDriver(config.Port, config.Baudrate, filters, config.Timeout, config.Logger)
	if err != nil {
		entry.lastError = err
		r.entries[portPath] = entry
		return nil, fmt.Errorf("failed to open monochromator driver: %w", err)
	}

	entry.driver = driver
	entry.lastError = nil
	atomic.StoreInt64(&entry.refCount, 1)

	r.entries[portPath] = entry

	if config.Logger != nil {
		config.Logger.Infof("Created new monochromator driver for port %s", portPath)
	}

	return driver, nil
}

func (r *DriverRegistry) ReleaseDriver(portPath string) {
	r.mu.RLock()
	entry, exists := r.entries[portPath]
	r.mu.RUnlock()

	if !exists {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	currentRefCount := atomic.AddInt64(&entry.refCount, -1)
	if currentRefCount <= 0 {
		if entry.driver != nil {
			if err := entry.driver.Close(); err != nil && entry.config != nil && entry.config.Logger != nil {
				entry.config.Logger.Warnf("error closing shared driver for port %s: %v", portPath, err)
			}
		}

		r.mu.Lock()
		delete(r.entries, portPath)
		r.mu.Unlock()

		entry.driver = nil
		entry.config = nil
		entry.filters = nil
		atomic.StoreInt64(&entry.refCount, 0)
		entry.lastError = nil
	}
}

func (r *DriverRegistry) ForceCloseDriver(portPath string) error {
	r.mu.Lock()
	entry, exists := r.entries[portPath]
	if exists {
		delete(r.entries, portPath)
	}
	r.mu.Unlock()

	if !exists {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	var err error
	if entry.driver != nil {
		err = entry.driver.Close()
		entry.driver = nil
		entry.config = nil
		entry.filters = nil
		atomic.StoreInt64(&entry.refCount, 0)
		entry.lastError = nil
	}

	return err
}

func (r *DriverRegistry) GetDriverStatus(portPath string) (int64, bool, string) {
	r.mu.RLock()
	entry, exists := r.entries[portPath]
	r.mu.RUnlock()

	if !exists {
		return 0, false, ""
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()

	currentRefCount := atomic.LoadInt64(&entry.refCount)
	hasDriver := entry.driver != nil
	configSummary := ""

	if entry.config != nil {
		filterInfo := "default"
		if !entry.filters.Equal(DefaultFilterTable) {
			filterInfo = "custom"
		}
		configSummary = fmt.Sprintf("Serial: %s@%d, Filters: %s",
			entry.config.Port, entry.config.Baudrate, filterInfo)
	}

	return currentRefCount, hasDriver, configSummary
}

// Compare configs for compatibility on the shared serial link.
func configsEqual(a, b *MonoSweepConfig) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Port == b.Port &&
		a.Baudrate == b.Baudrate &&
		a.Timeout == b.Timeout
}
