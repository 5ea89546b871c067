// Package behavior defines the behavioral feature model: the two-channel
// observation scored by the detectors, the training corpus the detectors
// are fit on, and the fixed-threshold categorization of raw speeds into
// ordinal buckets.
package behavior

// FeatureSample is a single two-dimensional behavioral observation.
// Both channels are non-negative rates measured by an external collector.
type FeatureSample struct {
	// TypingSpeed in keystrokes per second.
	TypingSpeed float64 `json:"typing_speed"`

	// MouseSpeed in pixels per second.
	MouseSpeed float64 `json:"mouse_speed"`
}

// Features returns the sample as an ordered feature vector.
// Index 0 is typing speed, index 1 is mouse speed.
func (s FeatureSample) Features() [2]float64 {
	return [2]float64{s.TypingSpeed, s.MouseSpeed}
}

// TrainingCorpus holds the labeled samples used at detector fit time.
// Normal and Suspicious are disjoint sets; Normal must be non-empty for
// the boundary detector, and the combined corpus non-empty for the forest.
type TrainingCorpus struct {
	Normal     []FeatureSample
	Suspicious []FeatureSample
}

// Combined returns all samples, normal first.
func (c *TrainingCorpus) Combined() []FeatureSample {
	out := make([]FeatureSample, 0, len(c.Normal)+len(c.Suspicious))
	out = append(out, c.Normal...)
	out = append(out, c.Suspicious...)
	return out
}

// Size returns the total number of samples in the corpus.
func (c *TrainingCorpus) Size() int {
	return len(c.Normal) + len(c.Suspicious)
}
