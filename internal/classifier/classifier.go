// Package classifier turns detector verdicts and raw behavioral speeds
// into a threat assessment by matching them against a library of threat
// patterns. Matching is deterministic: every pattern whose conditions
// hold is collected, and the most severe match wins, with library order
// breaking ties.
package classifier

import (
	"time"

	"sentryd/internal/behavior"
	"sentryd/internal/detector"
)

// Severity is the threat level assigned to a matched pattern.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityNone     Severity = "None"
)

// Rank orders severities for dominance, most severe first. Unknown
// severities sort after None so they can never win a tie.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	case SeverityNone:
		return 4
	default:
		return 5
	}
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	return s.Rank() < 5
}

// Consistency is the coarse agreement between the two behavioral
// channels.
type Consistency string

const (
	ConsistencyHigh Consistency = "high"
	ConsistencyLow  Consistency = "low"
)

// MeasureConsistency compares typing speed against mouse speed scaled
// into the same range. Channels within two units of each other are
// considered consistent, which is characteristic of automated input
// where both rates are driven by the same clock.
func MeasureConsistency(s behavior.FeatureSample) Consistency {
	diff := s.TypingSpeed - s.MouseSpeed/100
	if diff < 0 {
		diff = -diff
	}
	if diff < 2 {
		return ConsistencyHigh
	}
	return ConsistencyLow
}

// ThreatVerdict is the classifier's full assessment of one sample.
type ThreatVerdict struct {
	Pattern     string   `json:"pattern"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`

	Sample         behavior.FeatureSample `json:"sample"`
	TypingCategory behavior.Category      `json:"typing_category"`
	MouseCategory  behavior.Category      `json:"mouse_category"`
	Consistency    Consistency            `json:"consistency"`

	Forest   detector.Verdict `json:"forest"`
	Boundary detector.Verdict `json:"boundary"`

	Analysis string    `json:"analysis"`
	Actions  []string  `json:"actions"`
	At       time.Time `json:"at"`
}

// Suspicious reports whether the verdict warrants operator attention,
// i.e. Medium severity or above.
func (v ThreatVerdict) Suspicious() bool {
	return v.Severity.Rank() <= SeverityMedium.Rank()
}
