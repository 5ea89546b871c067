package classifier

import (
	"time"

	"sentryd/internal/behavior"
	"sentryd/internal/detector"
)

// Classifier matches observations against a pattern library.
type Classifier struct {
	categorizer behavior.Categorizer
	patterns    []Pattern
	now         func() time.Time
}

// Option adjusts classifier construction.
type Option func(*Classifier)

// WithPatterns replaces the builtin pattern library.
func WithPatterns(patterns []Pattern) Option {
	return func(c *Classifier) { c.patterns = patterns }
}

// WithCategorizer replaces the default speed thresholds.
func WithCategorizer(cat behavior.Categorizer) Option {
	return func(c *Classifier) { c.categorizer = cat }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// New returns a classifier with the builtin library and default
// thresholds unless options say otherwise.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		categorizer: behavior.DefaultCategorizer(),
		patterns:    BuiltinPatterns(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Patterns returns the active library.
func (c *Classifier) Patterns() []Pattern {
	return c.patterns
}

// Categorizer returns the active speed thresholds.
func (c *Classifier) Categorizer() behavior.Categorizer {
	return c.categorizer
}

// Classify assesses one sample given both detector verdicts. Every
// pattern with a matching condition is collected and the most severe
// wins; equal severities resolve to the earliest pattern in the
// library. No match at all falls back to normal_user.
func (c *Classifier) Classify(sample behavior.FeatureSample, forest, boundary detector.Verdict) ThreatVerdict {
	obs := observation{
		typing:      c.categorizer.CategorizeTyping(sample.TypingSpeed),
		mouse:       c.categorizer.CategorizeMouse(sample.MouseSpeed),
		consistency: MeasureConsistency(sample),
		forest:      forest.IsAnomaly,
		boundary:    boundary.IsAnomaly,
	}

	selected := fallbackPattern()
	matched := false
	for _, p := range c.patterns {
		if !p.matches(obs) {
			continue
		}
		if !matched || p.Severity.Rank() < selected.Severity.Rank() {
			selected = p
			matched = true
		}
	}

	v := ThreatVerdict{
		Pattern:        selected.Name,
		Description:    selected.Description,
		Severity:       selected.Severity,
		Sample:         sample,
		TypingCategory: obs.typing,
		MouseCategory:  obs.mouse,
		Consistency:    obs.consistency,
		Forest:         forest,
		Boundary:       boundary,
		At:             c.now(),
	}
	v.Analysis = renderAnalysis(v)
	v.Actions = recommendedActions(v.Severity)
	return v
}

// observation is the flattened view of a sample that conditions match
// against.
type observation struct {
	typing      behavior.Category
	mouse       behavior.Category
	consistency Consistency
	forest      bool
	boundary    bool
}

func (p Pattern) matches(obs observation) bool {
	for _, cond := range p.Conditions {
		if cond.matches(obs) {
			return true
		}
	}
	return false
}

func (c Condition) matches(obs observation) bool {
	if c.Typing != nil && obs.typing != *c.Typing {
		return false
	}
	if c.Mouse != nil && obs.mouse != *c.Mouse {
		return false
	}
	if c.Consistency != nil && obs.consistency != *c.Consistency {
		return false
	}
	if c.ForestAnomaly != nil && obs.forest != *c.ForestAnomaly {
		return false
	}
	if c.BoundaryAnomaly != nil && obs.boundary != *c.BoundaryAnomaly {
		return false
	}
	if c.EitherAnomaly != nil && (obs.forest || obs.boundary) != *c.EitherAnomaly {
		return false
	}
	return true
}
