package detector

import (
	"math"
	"testing"

	"sentryd/internal/behavior"
)

func TestNormalizeForestRange(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{-0.5, 0},
		{0.25, 0.5},
		{1.0, 1},
		{-2.0, 0}, // clamped
		{3.0, 1},  // clamped
	}
	for _, tt := range tests {
		if got := normalizeForest(tt.raw); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("normalizeForest(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeBoundaryRange(t *testing.T) {
	if got := normalizeBoundary(0); got != 0.5 {
		t.Errorf("normalizeBoundary(0) = %v, want 0.5", got)
	}
	if got := normalizeBoundary(50); got <= 0.99 || got > 1 {
		t.Errorf("normalizeBoundary(50) = %v, want near 1", got)
	}
	if got := normalizeBoundary(-50); got < 0 || got >= 0.01 {
		t.Errorf("normalizeBoundary(-50) = %v, want near 0", got)
	}
}

func TestVerdictConfidenceInversion(t *testing.T) {
	// Strongly negative score, predicted anomalous: confidence in the
	// suspicious label should be high, not low.
	v := verdictFrom(-1, 0.05)
	if !v.IsAnomaly || v.Label != LabelSuspicious {
		t.Fatalf("verdict = %+v, want suspicious", v)
	}
	if v.Confidence != 95 {
		t.Errorf("confidence = %v, want 95", v.Confidence)
	}

	// Strongly positive score, predicted normal.
	v = verdictFrom(1, 0.9)
	if v.IsAnomaly || v.Label != LabelNormal {
		t.Fatalf("verdict = %+v, want normal", v)
	}
	if math.Abs(v.Confidence-90) > 1e-9 {
		t.Errorf("confidence = %v, want 90", v.Confidence)
	}
}

func TestEvaluateConfidenceBounds(t *testing.T) {
	corpus := behavior.GenerateCorpus(200, 30, DefaultSeed)
	forest, err := FitForest(corpus, DefaultForestOptions())
	if err != nil {
		t.Fatalf("fit forest: %v", err)
	}
	boundary, err := FitBoundary(corpus.Normal, DefaultBoundaryOptions())
	if err != nil {
		t.Fatalf("fit boundary: %v", err)
	}

	extremes := []behavior.FeatureSample{
		{TypingSpeed: 0, MouseSpeed: 0},
		{TypingSpeed: 1e6, MouseSpeed: 1e6},
		{TypingSpeed: 4.5, MouseSpeed: 320},
		{TypingSpeed: 1e-9, MouseSpeed: 1e9},
	}
	for _, s := range extremes {
		for name, v := range map[string]Verdict{
			"forest":   forest.Evaluate(s),
			"boundary": boundary.Evaluate(s),
		} {
			if v.Confidence < 0 || v.Confidence > 100 {
				t.Errorf("%s confidence %v out of [0,100] for %+v", name, v.Confidence, s)
			}
			if v.IsAnomaly && v.Label != LabelSuspicious {
				t.Errorf("%s label %q inconsistent with anomaly flag", name, v.Label)
			}
			if !v.IsAnomaly && v.Label != LabelNormal {
				t.Errorf("%s label %q inconsistent with normal flag", name, v.Label)
			}
		}
	}
}
