package ipc

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sentryd/internal/behavior"
	"sentryd/internal/classifier"
	"sentryd/internal/config"
	"sentryd/internal/engine"
)

func startTestServer(t *testing.T, fitted bool) (*Client, *engine.Engine) {
	t.Helper()

	eng := engine.New(engine.DefaultOptions())
	if fitted {
		if err := eng.Fit(behavior.GenerateCorpus(200, 20, 42)); err != nil {
			t.Fatal(err)
		}
	}

	corpus := config.CorpusConfig{NormalCount: 100, SuspiciousCount: 10, Seed: 42}
	handler := NewHandler(eng, corpus, "test", nil)

	socketPath := filepath.Join(t.TempDir(), "sentryd.sock")
	srv := NewServer(socketPath, handler, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Start(ctx); err != nil {
			t.Errorf("server: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	var client *Client
	var err error
	for i := 0; i < 50; i++ {
		client, err = Dial(socketPath)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, eng
}

func TestPing(t *testing.T) {
	client, _ := startTestServer(t, false)
	if err := client.Ping(); err != nil {
		t.Fatal(err)
	}
}

func TestStatusOverSocket(t *testing.T) {
	client, _ := startTestServer(t, true)

	status, err := client.Status()
	if err != nil {
		t.Fatal(err)
	}
	if !status.Fitted {
		t.Error("status should report fitted models")
	}
	if status.CorpusSize != 220 {
		t.Errorf("corpus size = %d, want 220", status.CorpusSize)
	}
	if status.Version != "test" {
		t.Errorf("version = %q", status.Version)
	}
}

func TestScoreOverSocket(t *testing.T) {
	client, eng := startTestServer(t, true)

	resp, err := client.Score(behavior.FeatureSample{TypingSpeed: 9.0, MouseSpeed: 780})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Verdict.Severity != classifier.SeverityCritical {
		t.Errorf("severity = %v (pattern %q)", resp.Verdict.Severity, resp.Verdict.Pattern)
	}
	if resp.Posture != eng.Posture() {
		t.Errorf("posture %d != engine posture %d", resp.Posture, eng.Posture())
	}
}

func TestScoreUnfittedReturnsError(t *testing.T) {
	client, _ := startTestServer(t, false)

	_, err := client.Score(behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320})
	if err == nil || !strings.Contains(err.Error(), "not fitted") {
		t.Errorf("expected not-fitted error, got %v", err)
	}
}

func TestScoreRejectsNegativeSpeeds(t *testing.T) {
	client, _ := startTestServer(t, true)

	_, err := client.Score(behavior.FeatureSample{TypingSpeed: -1, MouseSpeed: 320})
	if err == nil || !strings.Contains(err.Error(), "negative") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRefitOverSocket(t *testing.T) {
	client, eng := startTestServer(t, false)

	resp, err := client.Refit(RefitRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.CorpusSize != 110 {
		t.Errorf("corpus size = %d, want configured 110", resp.CorpusSize)
	}
	if eng.Snapshot() == nil {
		t.Error("engine not fitted after refit")
	}
}

// An omitted suspicious count must fall back to the daemon's configured
// cohort, not train on zero suspicious samples.
func TestRefitEmptyRequestKeepsSuspiciousCohort(t *testing.T) {
	client, eng := startTestServer(t, false)

	if _, err := client.Refit(RefitRequest{NormalCount: 100}); err != nil {
		t.Fatal(err)
	}
	if got := eng.Snapshot().CorpusSize; got != 110 {
		t.Errorf("corpus size = %d, want 110 (100 normal + 10 configured suspicious)", got)
	}
}

func TestRefitOverridesCorpusCounts(t *testing.T) {
	client, _ := startTestServer(t, false)

	resp, err := client.Refit(RefitRequest{NormalCount: 60, SuspiciousCount: 6, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	if resp.CorpusSize != 66 {
		t.Errorf("corpus size = %d, want 66", resp.CorpusSize)
	}
}

func TestHistoryAndPostureOverSocket(t *testing.T) {
	client, _ := startTestServer(t, true)

	if _, err := client.Score(behavior.FeatureSample{TypingSpeed: 9.0, MouseSpeed: 780}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Score(behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320}); err != nil {
		t.Fatal(err)
	}

	verdicts, err := client.History(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(verdicts) != 2 {
		t.Fatalf("history has %d entries, want 2", len(verdicts))
	}
	if verdicts[0].Pattern != "bot_pattern" {
		t.Errorf("oldest entry = %q", verdicts[0].Pattern)
	}

	posture, err := client.Posture()
	if err != nil {
		t.Fatal(err)
	}
	if posture.Posture != 800 {
		t.Errorf("posture = %d, want 800 after one critical", posture.Posture)
	}

	reset, err := client.ResetPosture()
	if err != nil {
		t.Fatal(err)
	}
	if reset.Posture != 850 {
		t.Errorf("posture after reset = %d", reset.Posture)
	}
}
