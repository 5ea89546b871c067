package classifier

import "sentryd/internal/behavior"

// Condition is one conjunctive clause of a pattern. Nil fields are
// wildcards: only the set predicates must hold for the clause to match.
type Condition struct {
	Typing      *behavior.Category `json:"typing,omitempty"`
	Mouse       *behavior.Category `json:"mouse,omitempty"`
	Consistency *Consistency       `json:"consistency,omitempty"`

	// ForestAnomaly and BoundaryAnomaly pin each detector's anomaly flag
	// individually; EitherAnomaly pins their disjunction.
	ForestAnomaly   *bool `json:"forest_anomaly,omitempty"`
	BoundaryAnomaly *bool `json:"boundary_anomaly,omitempty"`
	EitherAnomaly   *bool `json:"either_anomaly,omitempty"`
}

// Pattern is a named threat archetype. It matches when any one of its
// conditions matches.
type Pattern struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Severity    Severity    `json:"severity"`
	Conditions  []Condition `json:"conditions"`
}

func catRef(c behavior.Category) *behavior.Category { return &c }
func consRef(c Consistency) *Consistency            { return &c }
func boolRef(b bool) *bool                          { return &b }

// BuiltinPatterns is the default threat library. Order matters only for
// tie-breaking between equal severities; the two Medium patterns keep
// unusual_behavior ahead of possible_shared_account.
func BuiltinPatterns() []Pattern {
	return []Pattern{
		{
			Name:        "bot_pattern",
			Description: "Automated bot or script activity",
			Severity:    SeverityCritical,
			Conditions: []Condition{
				{Typing: catRef(behavior.VeryFast), Mouse: catRef(behavior.VerySlow), Consistency: consRef(ConsistencyHigh)},
				{Typing: catRef(behavior.VeryFast), Mouse: catRef(behavior.VeryFast), Consistency: consRef(ConsistencyHigh)},
			},
		},
		{
			Name:        "advanced_attacker",
			Description: "Advanced human attacker with tools",
			Severity:    SeverityHigh,
			Conditions: []Condition{
				{Typing: catRef(behavior.Normal), Mouse: catRef(behavior.Fast), ForestAnomaly: boolRef(true), BoundaryAnomaly: boolRef(true)},
			},
		},
		{
			Name:        "unusual_behavior",
			Description: "Unusual behavior patterns",
			Severity:    SeverityMedium,
			Conditions: []Condition{
				{Typing: catRef(behavior.VerySlow), Mouse: catRef(behavior.VeryFast)},
				{Typing: catRef(behavior.Fast), Mouse: catRef(behavior.VerySlow)},
			},
		},
		{
			Name:        "possible_shared_account",
			Description: "Possible shared account or different user",
			Severity:    SeverityMedium,
			Conditions: []Condition{
				{Typing: catRef(behavior.Normal), Mouse: catRef(behavior.Normal), EitherAnomaly: boolRef(true)},
			},
		},
		{
			Name:        "learning_user",
			Description: "Legitimate user learning the system",
			Severity:    SeverityLow,
			Conditions: []Condition{
				{Typing: catRef(behavior.Slow), Mouse: catRef(behavior.Slow), EitherAnomaly: boolRef(true)},
			},
		},
		{
			Name:        "normal_user",
			Description: "Normal user behavior",
			Severity:    SeverityNone,
			Conditions: []Condition{
				{Typing: catRef(behavior.Normal), Mouse: catRef(behavior.Normal), ForestAnomaly: boolRef(false), BoundaryAnomaly: boolRef(false)},
			},
		},
	}
}

// fallbackPattern is assigned when nothing in the library matches.
func fallbackPattern() Pattern {
	return Pattern{
		Name:        "normal_user",
		Description: "Normal user behavior",
		Severity:    SeverityNone,
	}
}
