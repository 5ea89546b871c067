package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sentryd/internal/classifier"
)

const testLibrary = `{
  "patterns": [
    {
      "name": "probe",
      "description": "Scripted probing",
      "severity": "High",
      "conditions": [{"either_anomaly": true}]
    }
  ]
}`

type reloadCollector struct {
	mu      sync.Mutex
	reloads [][]classifier.Pattern
	ch      chan struct{}
}

func newReloadCollector() *reloadCollector {
	return &reloadCollector{ch: make(chan struct{}, 16)}
}

func (c *reloadCollector) callback(patterns []classifier.Pattern) {
	c.mu.Lock()
	c.reloads = append(c.reloads, patterns)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *reloadCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reloads)
}

func (c *reloadCollector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.json")
	if err := os.WriteFile(path, []byte(testLibrary), 0o600); err != nil {
		t.Fatal(err)
	}

	collector := newReloadCollector()
	w, err := New(path, collector.callback, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.Start(context.Background())

	if err := os.WriteFile(path, []byte(testLibrary), 0o600); err != nil {
		t.Fatal(err)
	}
	collector.wait(t)

	collector.mu.Lock()
	patterns := collector.reloads[0]
	collector.mu.Unlock()
	if len(patterns) != 1 || patterns[0].Name != "probe" {
		t.Errorf("reloaded patterns = %+v", patterns)
	}
}

func TestInvalidUpdateIsDropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.json")
	if err := os.WriteFile(path, []byte(testLibrary), 0o600); err != nil {
		t.Fatal(err)
	}

	collector := newReloadCollector()
	w, err := New(path, collector.callback, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.Start(context.Background())

	if err := os.WriteFile(path, []byte(`{"patterns": []}`), 0o600); err != nil {
		t.Fatal(err)
	}
	// Give the debounced reload time to run and reject the update.
	time.Sleep(debounceDelay + 500*time.Millisecond)

	if collector.count() != 0 {
		t.Errorf("invalid library delivered %d reloads", collector.count())
	}

	// A subsequent valid write still comes through.
	if err := os.WriteFile(path, []byte(testLibrary), 0o600); err != nil {
		t.Fatal(err)
	}
	collector.wait(t)
}

func TestUnrelatedFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.json")
	if err := os.WriteFile(path, []byte(testLibrary), 0o600); err != nil {
		t.Fatal(err)
	}

	collector := newReloadCollector()
	w, err := New(path, collector.callback, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.Start(context.Background())

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(debounceDelay + 500*time.Millisecond)

	if collector.count() != 0 {
		t.Errorf("unrelated file triggered %d reloads", collector.count())
	}
}
