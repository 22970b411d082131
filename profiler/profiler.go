// Package profiler - per-stage timing for the censoring pipeline.
package profiler

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TimeTracker tracks timing statistics of one named stage.
type TimeTracker struct {
	Name  string
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration
	Count int64
}

// Avg returns the mean duration of the stage.
func (t TimeTracker) Avg() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// Stopwatch accumulates stage timings across frames. It is safe for
// concurrent use; a nil *Stopwatch discards everything.
type Stopwatch struct {
	mu     sync.Mutex
	start  time.Time
	stages map[string]*TimeTracker
	now    func() time.Time
}

// NewStopwatch returns an empty stopwatch.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{
		start:  time.Now(),
		stages: make(map[string]*TimeTracker),
		now:    time.Now,
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the stage to track.
//
// Returns:
//   - func() time.Duration: Call when the operation completes; it records and
//     returns the elapsed time.
func (s *Stopwatch) StartOperation(name string) func() time.Duration {
	if s == nil {
		start := time.Now()
		return func() time.Duration { return time.Since(start) }
	}
	start := s.now()
	return func() time.Duration {
		d := s.now().Sub(start)
		s.Record(name, d)
		return d
	}
}

// Record adds one sample for the named stage.
func (s *Stopwatch) Record(name string, d time.Duration) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.stages[name]
	if !ok {
		t = &TimeTracker{Name: name, Min: d, Max: d}
		s.stages[name] = t
	}
	t.Total += d
	t.Last = d
	t.Count++
	t.Min = min(t.Min, d)
	t.Max = max(t.Max, d)
}

// Stages returns a snapshot of every stage, sorted by name.
func (s *Stopwatch) Stages() []TimeTracker {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TimeTracker, 0, len(s.stages))
	for _, t := range s.stages {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Report writes one debug entry per stage.
func (s *Stopwatch) Report(log logrus.FieldLogger) {
	if s == nil {
		return
	}
	uptime := time.Since(s.start).Truncate(time.Millisecond)
	for _, t := range s.Stages() {
		log.WithFields(logrus.Fields{
			"stage":  t.Name,
			"count":  t.Count,
			"avg":    t.Avg().Truncate(time.Microsecond),
			"min":    t.Min.Truncate(time.Microsecond),
			"max":    t.Max.Truncate(time.Microsecond),
			"uptime": uptime,
		}).Debug("stage timing")
	}
}
