package detector

import (
	"strings"
	"testing"

	"sentryd/internal/behavior"
)

func TestFitBoundaryValidation(t *testing.T) {
	normal := behavior.GenerateCorpus(50, 0, DefaultSeed).Normal

	for _, nu := range []float64{0, 1, -0.5, 2} {
		_, err := FitBoundary(normal, BoundaryOptions{Nu: nu})
		if err == nil || !strings.Contains(err.Error(), "nu") {
			t.Errorf("nu=%v: expected nu validation error, got %v", nu, err)
		}
	}

	_, err := FitBoundary(normal[:4], DefaultBoundaryOptions())
	if err != ErrInsufficientData {
		t.Errorf("4 samples: expected ErrInsufficientData, got %v", err)
	}

	if _, err := FitBoundary(normal[:5], DefaultBoundaryOptions()); err != nil {
		t.Errorf("5 samples: unexpected error %v", err)
	}
}

func TestBoundarySeparatesOutliers(t *testing.T) {
	normal := behavior.GenerateCorpus(200, 0, DefaultSeed).Normal
	b, err := FitBoundary(normal, DefaultBoundaryOptions())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	inside := behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320}
	if b.Predict(inside) != 1 {
		t.Errorf("cluster center outside boundary, score %v", b.Score(inside))
	}

	outliers := []behavior.FeatureSample{
		{TypingSpeed: 15, MouseSpeed: 1200},
		{TypingSpeed: 0.1, MouseSpeed: 900},
	}
	for _, o := range outliers {
		if b.Predict(o) != -1 {
			t.Errorf("outlier %+v inside boundary, score %v", o, b.Score(o))
		}
	}
}

func TestBoundaryNuControlsStrictness(t *testing.T) {
	normal := behavior.GenerateCorpus(200, 0, DefaultSeed).Normal

	loose, err := FitBoundary(normal, BoundaryOptions{Nu: 0.05})
	if err != nil {
		t.Fatalf("fit loose: %v", err)
	}
	strict, err := FitBoundary(normal, BoundaryOptions{Nu: 0.5})
	if err != nil {
		t.Fatalf("fit strict: %v", err)
	}

	count := func(b *Boundary) int {
		var n int
		for _, s := range normal {
			if b.Predict(s) == -1 {
				n++
			}
		}
		return n
	}
	if count(strict) <= count(loose) {
		t.Errorf("higher nu should exclude more training points: strict=%d loose=%d",
			count(strict), count(loose))
	}
}

func TestBoundaryExplicitGamma(t *testing.T) {
	normal := behavior.GenerateCorpus(50, 0, DefaultSeed).Normal

	b, err := FitBoundary(normal, BoundaryOptions{Nu: 0.1, Gamma: 0.001})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if b.gamma != 0.001 {
		t.Errorf("gamma = %v, want explicit 0.001", b.gamma)
	}
}
