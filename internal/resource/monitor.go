// Package resource periodically samples host CPU/memory/load so capacity
// decisions (the max_streams gate) can be logged alongside live system
// pressure instead of a bare rejection count.
package resource

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/DishankChauhan/streamX/internal/logger"
)

// Stats holds the most recently collected system metrics.
type Stats struct {
	CPUPercent    float64
	MemoryPercent float64
	LoadAverage1  float64
}

// Monitor collects Stats on a fixed interval until Stop is called.
type Monitor struct {
	log      *logger.Logger
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup

	mu    sync.RWMutex
	stats Stats
}

// NewMonitor creates a Monitor sampling every interval (default 15s when <=0).
func NewMonitor(log *logger.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		log:      log.With("component", "resource_monitor"),
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins periodic collection in a background goroutine.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop halts collection and waits for the background goroutine to exit.
func (m *Monitor) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// Stats returns the most recently collected sample (zero value before the
// first tick).
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collect()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *Monitor) collect() {
	var s Stats

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	} else if err != nil {
		m.log.Debug("cpu sample failed", "error", err)
	}

	if v, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = v.UsedPercent
	} else {
		m.log.Debug("memory sample failed", "error", err)
	}

	if l, err := load.Avg(); err == nil {
		s.LoadAverage1 = l.Load1
	} else {
		m.log.Debug("load sample failed", "error", err)
	}

	m.mu.Lock()
	m.stats = s
	m.mu.Unlock()
}

// LogRejection logs a max_streams capacity rejection alongside the most
// recent resource sample, so operators can tell "configured too low" from
// "host genuinely overloaded".
func (m *Monitor) LogRejection(streamKey string, active, limit int) {
	s := m.Stats()
	m.log.Warn("publish rejected: max_streams exceeded",
		"stream_key", streamKey,
		"active_streams", active,
		"max_streams", limit,
		"cpu_percent", s.CPUPercent,
		"memory_percent", s.MemoryPercent,
		"load1", s.LoadAverage1,
	)
}
