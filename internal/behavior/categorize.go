package behavior

// Category is an ordinal speed bucket.
type Category string

const (
	VerySlow Category = "very_slow"
	Slow     Category = "slow"
	Normal   Category = "normal"
	Fast     Category = "fast"
	VeryFast Category = "very_fast"
)

// Describe returns the human-readable form of a category used in
// analysis text ("extremely slow" rather than "very_slow").
func (c Category) Describe() string {
	switch c {
	case VerySlow:
		return "extremely slow"
	case Slow:
		return "very slow"
	case Normal:
		return "normal"
	case Fast:
		return "fast"
	case VeryFast:
		return "extremely fast"
	default:
		return string(c)
	}
}

// Thresholds are the ascending bucket boundaries for one channel.
// A speed below VerySlow falls in the very_slow bucket, below Slow in
// slow, and so on; at or above Fast it is very_fast. Comparison is
// strictly `<`, so a value exactly at a boundary lands in the higher
// bucket.
type Thresholds struct {
	VerySlow float64 `toml:"very_slow" json:"very_slow" yaml:"very_slow"`
	Slow     float64 `toml:"slow" json:"slow" yaml:"slow"`
	Normal   float64 `toml:"normal" json:"normal" yaml:"normal"`
	Fast     float64 `toml:"fast" json:"fast" yaml:"fast"`
}

// Categorize buckets a speed against the thresholds.
func (t Thresholds) Categorize(speed float64) Category {
	switch {
	case speed < t.VerySlow:
		return VerySlow
	case speed < t.Slow:
		return Slow
	case speed < t.Normal:
		return Normal
	case speed < t.Fast:
		return Fast
	default:
		return VeryFast
	}
}

// Ascending reports whether the thresholds are strictly increasing.
// Non-ascending thresholds are a configuration error.
func (t Thresholds) Ascending() bool {
	return t.VerySlow < t.Slow && t.Slow < t.Normal && t.Normal < t.Fast
}

// DefaultTypingThresholds are the built-in typing boundaries in
// keystrokes per second.
func DefaultTypingThresholds() Thresholds {
	return Thresholds{VerySlow: 2.0, Slow: 3.5, Normal: 5.5, Fast: 7.5}
}

// DefaultMouseThresholds are the built-in mouse boundaries in pixels
// per second.
func DefaultMouseThresholds() Thresholds {
	return Thresholds{VerySlow: 100, Slow: 200, Normal: 400, Fast: 600}
}

// Categorizer buckets both channels of a sample.
type Categorizer struct {
	Typing Thresholds
	Mouse  Thresholds
}

// DefaultCategorizer returns a categorizer with the built-in thresholds.
func DefaultCategorizer() Categorizer {
	return Categorizer{
		Typing: DefaultTypingThresholds(),
		Mouse:  DefaultMouseThresholds(),
	}
}

// CategorizeTyping buckets a typing speed.
func (c Categorizer) CategorizeTyping(speed float64) Category {
	return c.Typing.Categorize(speed)
}

// CategorizeMouse buckets a mouse movement speed.
func (c Categorizer) CategorizeMouse(speed float64) Category {
	return c.Mouse.Categorize(speed)
}
