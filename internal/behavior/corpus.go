package behavior

import (
	"math/rand"
)

// Baseline distribution parameters for synthetic corpus generation.
// Normal users cluster around 4.5 keystrokes/sec and 320 px/sec; the
// suspicious profiles mirror the populations the detectors are expected
// to separate.
const (
	normalTypingMean   = 4.5
	normalTypingStddev = 0.8
	normalMouseMean    = 320.0
	normalMouseStddev  = 50.0
)

// suspiciousProfile is one of the generator's adversarial archetypes.
type suspiciousProfile int

const (
	// profileBotFast types and moves unnaturally fast.
	profileBotFast suspiciousProfile = iota
	// profileBotSlow moves too methodically to be human.
	profileBotSlow
	// profileErratic combines channels in unusual ways.
	profileErratic
)

// GenerateCorpus produces a reproducible synthetic training corpus with
// the given population sizes. The same seed always yields the same
// corpus, which keeps detector fits reproducible across reruns.
func GenerateCorpus(normalCount, suspiciousCount int, seed int64) *TrainingCorpus {
	rng := rand.New(rand.NewSource(seed))

	corpus := &TrainingCorpus{
		Normal:     make([]FeatureSample, 0, normalCount),
		Suspicious: make([]FeatureSample, 0, suspiciousCount),
	}

	for i := 0; i < normalCount; i++ {
		corpus.Normal = append(corpus.Normal, FeatureSample{
			TypingSpeed: clampNonNegative(normalTypingMean + rng.NormFloat64()*normalTypingStddev),
			MouseSpeed:  clampNonNegative(normalMouseMean + rng.NormFloat64()*normalMouseStddev),
		})
	}

	for i := 0; i < suspiciousCount; i++ {
		profile := suspiciousProfile(rng.Intn(3))
		corpus.Suspicious = append(corpus.Suspicious, generateSuspicious(rng, profile))
	}

	return corpus
}

func generateSuspicious(rng *rand.Rand, profile suspiciousProfile) FeatureSample {
	switch profile {
	case profileBotFast:
		return FeatureSample{
			TypingSpeed: uniform(rng, 7.0, 12.0),
			MouseSpeed:  uniform(rng, 500.0, 700.0),
		}
	case profileBotSlow:
		return FeatureSample{
			TypingSpeed: uniform(rng, 1.0, 2.0),
			MouseSpeed:  uniform(rng, 100.0, 150.0),
		}
	default: // erratic
		return FeatureSample{
			TypingSpeed: uniform(rng, 0.5, 1.5),
			MouseSpeed:  uniform(rng, 600.0, 800.0),
		}
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
