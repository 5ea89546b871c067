package engine

import (
	"errors"
	"sync"
	"testing"

	"sentryd/internal/behavior"
	"sentryd/internal/classifier"
	"sentryd/internal/detector"
	"sentryd/internal/history"
)

func fittedEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(DefaultOptions())
	corpus := behavior.GenerateCorpus(200, 20, detector.DefaultSeed)
	if err := e.Fit(corpus); err != nil {
		t.Fatalf("fit: %v", err)
	}
	return e
}

func TestScoreBeforeFit(t *testing.T) {
	e := New(DefaultOptions())
	_, err := e.Score(behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320})
	if !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestScoreEndToEnd(t *testing.T) {
	e := fittedEngine(t)

	tests := []struct {
		name         string
		sample       behavior.FeatureSample
		wantSeverity classifier.Severity
	}{
		{
			name:         "typical user is not a threat",
			sample:       behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320},
			wantSeverity: classifier.SeverityNone,
		},
		{
			name: "consistent very fast channels classify as bot",
			// typing 9 k/s with mouse 780 px/s: both very_fast and the
			// channels agree within the consistency window.
			sample:       behavior.FeatureSample{TypingSpeed: 9.0, MouseSpeed: 780},
			wantSeverity: classifier.SeverityCritical,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Score(tt.sample)
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			if v.Severity != tt.wantSeverity {
				t.Errorf("severity = %v (pattern %q), want %v", v.Severity, v.Pattern, tt.wantSeverity)
			}
			if v.Forest.Confidence < 0 || v.Forest.Confidence > 100 {
				t.Errorf("forest confidence %v out of range", v.Forest.Confidence)
			}
			if v.Boundary.Confidence < 0 || v.Boundary.Confidence > 100 {
				t.Errorf("boundary confidence %v out of range", v.Boundary.Confidence)
			}
		})
	}
}

func TestClassifyDoesNotRecord(t *testing.T) {
	e := fittedEngine(t)

	v, err := e.Classify(behavior.FeatureSample{TypingSpeed: 9.0, MouseSpeed: 780})
	if err != nil {
		t.Fatal(err)
	}
	if v.Severity != classifier.SeverityCritical {
		t.Errorf("severity = %v (pattern %q)", v.Severity, v.Pattern)
	}
	if e.History().Len() != 0 {
		t.Error("classify must not touch the threat log")
	}
	if e.Posture() != history.PostureStart {
		t.Errorf("classify changed posture to %d", e.Posture())
	}
}

func TestFailedRefitKeepsSnapshot(t *testing.T) {
	e := fittedEngine(t)
	before := e.Snapshot()
	if before == nil {
		t.Fatal("no snapshot after fit")
	}

	err := e.Fit(&behavior.TrainingCorpus{})
	if !errors.Is(err, detector.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if e.Snapshot() != before {
		t.Error("failed re-fit must keep the previous snapshot")
	}

	// Scoring still works against the retained snapshot.
	if _, err := e.Score(behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320}); err != nil {
		t.Errorf("score after failed re-fit: %v", err)
	}
}

func TestScoreRecordsHistoryAndPosture(t *testing.T) {
	e := fittedEngine(t)

	if e.Posture() != history.PostureStart {
		t.Fatalf("initial posture = %d", e.Posture())
	}

	if _, err := e.Score(behavior.FeatureSample{TypingSpeed: 9.0, MouseSpeed: 780}); err != nil {
		t.Fatal(err)
	}
	if e.Posture() != history.PostureStart-50 {
		t.Errorf("posture after critical = %d, want %d", e.Posture(), history.PostureStart-50)
	}

	stats := e.Stats()
	if stats.Total != 1 || stats.Suspicious != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if !stats.HasLatest || stats.Latest.Pattern != "bot_pattern" {
		t.Errorf("latest = %+v", stats.Latest)
	}

	e.ResetPosture()
	if e.Posture() != history.PostureStart {
		t.Errorf("posture after reset = %d", e.Posture())
	}
	if e.History().Len() != 1 {
		t.Error("reset must not clear history")
	}
}

type recordingJournal struct {
	mu       sync.Mutex
	verdicts []classifier.ThreatVerdict
	fail     bool
}

func (j *recordingJournal) AppendVerdict(v classifier.ThreatVerdict) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("journal closed")
	}
	j.verdicts = append(j.verdicts, v)
	return nil
}

func TestScoreJournalsVerdicts(t *testing.T) {
	journal := &recordingJournal{}
	opts := DefaultOptions()
	opts.Journal = journal
	e := New(opts)
	if err := e.Fit(behavior.GenerateCorpus(200, 20, detector.DefaultSeed)); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Score(behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320}); err != nil {
		t.Fatal(err)
	}
	if len(journal.verdicts) != 1 {
		t.Fatalf("journal has %d verdicts, want 1", len(journal.verdicts))
	}

	// A failing journal must not fail the scoring path.
	journal.fail = true
	if _, err := e.Score(behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320}); err != nil {
		t.Errorf("score with failing journal: %v", err)
	}
}

func TestSetPatternsHotSwap(t *testing.T) {
	e := fittedEngine(t)

	e.SetPatterns([]classifier.Pattern{
		{Name: "everything", Description: "catch all", Severity: classifier.SeverityHigh,
			Conditions: []classifier.Condition{{}}},
	})

	v, err := e.Score(behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320})
	if err != nil {
		t.Fatal(err)
	}
	if v.Pattern != "everything" {
		t.Errorf("pattern = %q, want everything", v.Pattern)
	}
}

func TestConcurrentScoreAndRefit(t *testing.T) {
	e := fittedEngine(t)
	corpus := behavior.GenerateCorpus(200, 20, detector.DefaultSeed)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := e.Score(behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320}); err != nil {
					t.Errorf("score: %v", err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if err := e.Fit(corpus); err != nil {
					t.Errorf("fit: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
