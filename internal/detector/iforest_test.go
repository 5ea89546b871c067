package detector

import (
	"testing"

	"sentryd/internal/behavior"
)

func TestFitForestEmptyCorpus(t *testing.T) {
	_, err := FitForest(&behavior.TrainingCorpus{}, DefaultForestOptions())
	if err != ErrInsufficientData {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestForestSeparatesPopulations(t *testing.T) {
	corpus := behavior.GenerateCorpus(200, 30, DefaultSeed)
	forest, err := FitForest(corpus, DefaultForestOptions())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	// A typical normal sample should score well inside the boundary.
	normal := behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320}
	if forest.Predict(normal) != 1 {
		t.Errorf("typical normal sample predicted anomalous, score %v", forest.Score(normal))
	}

	// An extreme bot profile isolates in very few splits.
	bot := behavior.FeatureSample{TypingSpeed: 15, MouseSpeed: 1200}
	if forest.Predict(bot) != -1 {
		t.Errorf("extreme bot sample predicted normal, score %v", forest.Score(bot))
	}
	if forest.Score(bot) >= forest.Score(normal) {
		t.Errorf("bot score %v not below normal score %v", forest.Score(bot), forest.Score(normal))
	}
}

func TestForestDeterministic(t *testing.T) {
	corpus := behavior.GenerateCorpus(150, 20, DefaultSeed)

	a, err := FitForest(corpus, DefaultForestOptions())
	if err != nil {
		t.Fatalf("fit a: %v", err)
	}
	b, err := FitForest(corpus, DefaultForestOptions())
	if err != nil {
		t.Fatalf("fit b: %v", err)
	}

	probes := []behavior.FeatureSample{
		{TypingSpeed: 4.5, MouseSpeed: 320},
		{TypingSpeed: 9.0, MouseSpeed: 780},
		{TypingSpeed: 1.2, MouseSpeed: 130},
		{TypingSpeed: 0, MouseSpeed: 0},
	}
	for _, p := range probes {
		if a.Score(p) != b.Score(p) {
			t.Errorf("scores diverge for %+v: %v vs %v", p, a.Score(p), b.Score(p))
		}
	}
}

func TestForestContaminationOffset(t *testing.T) {
	corpus := behavior.GenerateCorpus(200, 0, DefaultSeed)
	opts := DefaultForestOptions()
	opts.Contamination = 0.2

	forest, err := FitForest(corpus, opts)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	// Roughly the contamination fraction of the training corpus should
	// land below the decision offset.
	var flagged int
	for _, s := range corpus.Normal {
		if forest.Predict(s) == -1 {
			flagged++
		}
	}
	frac := float64(flagged) / float64(len(corpus.Normal))
	if frac < 0.10 || frac > 0.30 {
		t.Errorf("flagged fraction %v, want near contamination 0.2", frac)
	}
}

func TestExpectedPathLength(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{1, 0},
		{2, 1},
	}
	for _, tt := range tests {
		if got := expectedPathLength(tt.n); got != tt.want {
			t.Errorf("expectedPathLength(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
	// c(n) grows monotonically for larger subsets.
	if expectedPathLength(256) <= expectedPathLength(16) {
		t.Error("expectedPathLength not increasing")
	}
}

func TestQuantile(t *testing.T) {
	vals := []float64{5, 1, 4, 2, 3}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.2, 2},
		{0.5, 3},
		{1, 5},
	}
	for _, tt := range tests {
		if got := quantile(vals, tt.q); got != tt.want {
			t.Errorf("quantile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
	if got := quantile(nil, 0.5); got != 0 {
		t.Errorf("quantile(nil) = %v, want 0", got)
	}
}
