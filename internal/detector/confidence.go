package detector

import (
	"math"

	"sentryd/internal/behavior"
)

// The two detectors emit raw scores on different scales: the forest is
// roughly [-0.5, 1.0] after the offset shift and the boundary is an
// unbounded kernel margin. Normalization maps both to [0,1] before the
// shared confidence transform so verdicts are comparable.

// normalizeForest maps a forest decision value to [0,1] with an affine
// transform over its effective range.
func normalizeForest(raw float64) float64 {
	return clamp01((raw + 0.5) / 1.5)
}

// normalizeBoundary maps a boundary margin to [0,1] with a sigmoid,
// since the kernel margin has no fixed bounds.
func normalizeBoundary(raw float64) float64 {
	return 1 / (1 + math.Exp(-raw))
}

// verdictFrom turns a prediction and a normalized score into a Verdict.
// Normalized scores lean toward 1 for normal samples, so for anomalies
// the confidence is the complement: a strongly negative score yields a
// confidently suspicious verdict.
func verdictFrom(prediction int, normalized float64) Verdict {
	isAnomaly := prediction == -1
	confidence := normalized * 100
	if isAnomaly {
		confidence = (1 - normalized) * 100
	}
	return Verdict{
		IsAnomaly:  isAnomaly,
		Confidence: clampPercent(confidence),
		Label:      labelFor(isAnomaly),
	}
}

// Evaluate scores a sample and returns the normalized verdict.
func (f *IsolationForest) Evaluate(sample behavior.FeatureSample) Verdict {
	return verdictFrom(f.Predict(sample), normalizeForest(f.Score(sample)))
}

// Evaluate scores a sample and returns the normalized verdict.
func (b *Boundary) Evaluate(sample behavior.FeatureSample) Verdict {
	return verdictFrom(b.Predict(sample), normalizeBoundary(b.Score(sample)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
