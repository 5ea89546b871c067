package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentryd/internal/behavior"
	"sentryd/internal/classifier"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x5a, 0x3c}, 16)
}

func openTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, testKey())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func sampleVerdict(pattern string, severity classifier.Severity, at time.Time) classifier.ThreatVerdict {
	return classifier.ThreatVerdict{
		Pattern:     pattern,
		Description: "test verdict",
		Severity:    severity,
		Sample:      behavior.FeatureSample{TypingSpeed: 4.5, MouseSpeed: 320},
		At:          at,
	}
}

func TestOpenRejectsShortKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	_, err := Open(path, []byte("short"))
	require.Error(t, err, "short HMAC key accepted")
}

func TestAppendAndRecent(t *testing.T) {
	j, _ := openTestJournal(t)

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	patterns := []string{"normal_user", "learning_user", "bot_pattern"}
	for i, p := range patterns {
		require.NoError(t, j.AppendVerdict(sampleVerdict(p, classifier.SeverityLow, base.Add(time.Duration(i)*time.Minute))))
	}

	records, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	// Oldest first.
	for i, p := range patterns {
		assert.Equal(t, p, records[i].Verdict.Pattern)
	}

	limited, err := j.Recent(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "learning_user", limited[0].Verdict.Pattern)

	n, err := j.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestChainSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	at := time.Now()

	j, err := Open(path, testKey())
	require.NoError(t, err)
	require.NoError(t, j.AppendVerdict(sampleVerdict("first", classifier.SeverityNone, at)))
	require.NoError(t, j.Close())

	j, err = Open(path, testKey())
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.AppendVerdict(sampleVerdict("second", classifier.SeverityNone, at.Add(time.Second))))
	assert.NoError(t, j.VerifyChain(), "chain broken across reopen")
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	j, _ := openTestJournal(t)

	at := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, j.AppendVerdict(sampleVerdict("x", classifier.SeverityMedium, at.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, j.VerifyChain(), "clean journal fails verification")

	// Rewrite a record's payload behind the journal's back.
	_, err := j.db.Exec(`UPDATE verdicts SET payload = ? WHERE id = 3`, []byte(`{"pattern":"forged"}`))
	require.NoError(t, err)
	assert.ErrorIs(t, j.VerifyChain(), ErrTampered)
}

func TestJournalFilePermissions(t *testing.T) {
	j, path := openTestJournal(t)
	require.NoError(t, j.AppendVerdict(sampleVerdict("x", classifier.SeverityNone, time.Now())))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestVerdictRoundTrip(t *testing.T) {
	j, _ := openTestJournal(t)

	want := classifier.ThreatVerdict{
		Pattern:        "bot_pattern",
		Description:    "Automated bot or script activity",
		Severity:       classifier.SeverityCritical,
		Sample:         behavior.FeatureSample{TypingSpeed: 9.0, MouseSpeed: 780},
		TypingCategory: behavior.VeryFast,
		MouseCategory:  behavior.VeryFast,
		Consistency:    classifier.ConsistencyHigh,
		Analysis:       "automation detected",
		Actions:        []string{"block", "audit"},
		At:             time.Date(2026, 8, 23, 11, 30, 0, 0, time.UTC),
	}
	require.NoError(t, j.AppendVerdict(want))

	records, err := j.Recent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0].Verdict
	assert.Equal(t, want.Pattern, got.Pattern)
	assert.Equal(t, want.Severity, got.Severity)
	assert.Equal(t, want.Sample, got.Sample)
	assert.Equal(t, want.Consistency, got.Consistency)
	assert.Equal(t, want.Actions, got.Actions)
	assert.True(t, records[0].At.Equal(want.At))
}
