package monitor

import (
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of monitoring throughput.
type Stats struct {
	FilesTailed    int
	LinesEmitted   int64
	BytesProcessed int64
	Errors         int64
	StartedAt      time.Time
	LinesPerSecond float64
}

// statsCollector accumulates counters since daemon start or the last reset.
// A disabled collector ignores all recordings and reports zeroed counters.
type statsCollector struct {
	enabled bool

	mu             sync.Mutex
	linesEmitted   int64
	bytesProcessed int64
	errors         int64
	startedAt      time.Time
}

func newStatsCollector(enabled bool) *statsCollector {
	return &statsCollector{enabled: enabled, startedAt: time.Now()}
}

func (s *statsCollector) recordLines(lines int, bytes int64) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linesEmitted += int64(lines)
	s.bytesProcessed += bytes
}

func (s *statsCollector) recordError() {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

// snapshot computes derived rates against the collection window. filesTailed
// is owned by the service, passed in at read time.
func (s *statsCollector) snapshot(filesTailed int) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.startedAt).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(s.linesEmitted) / elapsed
	}
	return Stats{
		FilesTailed:    filesTailed,
		LinesEmitted:   s.linesEmitted,
		BytesProcessed: s.bytesProcessed,
		Errors:         s.errors,
		StartedAt:      s.startedAt,
		LinesPerSecond: rate,
	}
}

func (s *statsCollector) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linesEmitted = 0
	s.bytesProcessed = 0
	s.errors = 0
	s.startedAt = time.Now()
}
