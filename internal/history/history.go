// Package history keeps the bounded log of threat verdicts and the
// security posture score derived from them.
package history

import (
	"sync"

	"sentryd/internal/classifier"
)

// DefaultCapacity bounds the in-memory verdict log. When full, the
// oldest entry is evicted first.
const DefaultCapacity = 50

// Posture score bounds and the neutral starting point.
const (
	PostureStart = 850
	PostureMin   = 500
	PostureMax   = 1000
)

// Status is the coarse posture band shown to operators.
type Status string

const (
	StatusExcellent Status = "Excellent"
	StatusGood      Status = "Good"
	StatusFair      Status = "Fair"
	StatusPoor      Status = "Poor"
)

// Stats summarizes the recorded verdicts.
type Stats struct {
	Total      int  `json:"total"`
	Suspicious int  `json:"suspicious"`
	Posture    int  `json:"posture"`
	HasLatest  bool `json:"has_latest"`

	Latest classifier.ThreatVerdict `json:"latest,omitempty"`
}

// Log is a concurrency-safe bounded verdict log with a running posture
// score. Each recorded verdict applies its severity's penalty; the
// score never recovers on its own and only Reset restores it.
type Log struct {
	mu       sync.RWMutex
	entries  []classifier.ThreatVerdict
	capacity int
	posture  int
}

// New returns an empty log with the given capacity. Non-positive
// capacities fall back to DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries:  make([]classifier.ThreatVerdict, 0, capacity),
		capacity: capacity,
		posture:  PostureStart,
	}
}

// penalty is the posture cost of recording a verdict at this severity.
func penalty(s classifier.Severity) int {
	switch s {
	case classifier.SeverityCritical:
		return 50
	case classifier.SeverityHigh:
		return 30
	case classifier.SeverityMedium:
		return 15
	case classifier.SeverityLow:
		return 5
	default:
		return 0
	}
}

// Record appends a verdict, evicting the oldest entry when the log is
// full, and applies the severity penalty to the posture score. It
// returns the posture after the update.
func (l *Log) Record(v classifier.ThreatVerdict) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, v)

	l.posture -= penalty(v.Severity)
	if l.posture < PostureMin {
		l.posture = PostureMin
	}
	if l.posture > PostureMax {
		l.posture = PostureMax
	}
	return l.posture
}

// Recent returns up to n verdicts, oldest first. n <= 0 returns all.
func (l *Log) Recent(n int) []classifier.ThreatVerdict {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]classifier.ThreatVerdict, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Posture returns the current posture score.
func (l *Log) Posture() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.posture
}

// Status bands the posture score for display.
func (l *Log) Status() Status {
	return StatusFor(l.Posture())
}

// StatusFor bands an arbitrary posture score.
func StatusFor(posture int) Status {
	switch {
	case posture >= 900:
		return StatusExcellent
	case posture >= 750:
		return StatusGood
	case posture >= 600:
		return StatusFair
	default:
		return StatusPoor
	}
}

// Stats returns counts over the retained entries. Suspicious counts
// Medium severity and above. Evicted entries no longer contribute.
func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Stats{Total: len(l.entries), Posture: l.posture}
	for _, v := range l.entries {
		if v.Suspicious() {
			s.Suspicious++
		}
	}
	if len(l.entries) > 0 {
		s.HasLatest = true
		s.Latest = l.entries[len(l.entries)-1]
	}
	return s
}

// Reset restores the posture score to its starting value. The verdict
// log is left intact.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.posture = PostureStart
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
