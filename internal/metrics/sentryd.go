package metrics

import (
	"strings"
	"time"

	"sentryd/internal/classifier"
)

// EngineMetrics holds the sentryd scoring pipeline's metrics.
type EngineMetrics struct {
	registry *Registry

	SamplesTotal        *Counter
	JournalWritesTotal  *Counter
	JournalErrorsTotal  *Counter
	FitsTotal           *Counter
	FitErrorsTotal      *Counter
	PatternReloadsTotal *Counter

	PostureScore *Gauge
	HistorySize  *Gauge
	CorpusSize   *Gauge

	ScoreDuration *Histogram
	FitDuration   *Histogram

	// One counter per severity band.
	verdicts map[classifier.Severity]*Counter
}

// NewEngineMetrics creates and registers the engine metric set.
func NewEngineMetrics(registry *Registry) *EngineMetrics {
	if registry == nil {
		registry = Default()
	}

	m := &EngineMetrics{
		registry: registry,

		SamplesTotal: registry.RegisterCounter(
			"samples_total",
			"Total number of behavioral samples scored",
			nil,
		),
		JournalWritesTotal: registry.RegisterCounter(
			"journal_writes_total",
			"Total number of verdicts appended to the journal",
			nil,
		),
		JournalErrorsTotal: registry.RegisterCounter(
			"journal_errors_total",
			"Total number of failed journal appends",
			nil,
		),
		FitsTotal: registry.RegisterCounter(
			"fits_total",
			"Total number of successful model fits",
			nil,
		),
		FitErrorsTotal: registry.RegisterCounter(
			"fit_errors_total",
			"Total number of rejected model fits",
			nil,
		),
		PatternReloadsTotal: registry.RegisterCounter(
			"pattern_reloads_total",
			"Total number of pattern library hot reloads",
			nil,
		),

		PostureScore: registry.RegisterGauge(
			"posture_score",
			"Current security posture score",
			nil,
		),
		HistorySize: registry.RegisterGauge(
			"history_size",
			"Number of verdicts retained in the threat log",
			nil,
		),
		CorpusSize: registry.RegisterGauge(
			"corpus_size",
			"Size of the corpus the current models were fitted on",
			nil,
		),

		ScoreDuration: registry.RegisterHistogram(
			"score_duration_seconds",
			"Duration of sample scoring in seconds",
			nil,
			DurationBuckets,
		),
		FitDuration: registry.RegisterHistogram(
			"fit_duration_seconds",
			"Duration of model fitting in seconds",
			nil,
			DurationBuckets,
		),

		verdicts: make(map[classifier.Severity]*Counter),
	}

	for _, sev := range []classifier.Severity{
		classifier.SeverityNone,
		classifier.SeverityLow,
		classifier.SeverityMedium,
		classifier.SeverityHigh,
		classifier.SeverityCritical,
	} {
		m.verdicts[sev] = registry.RegisterCounter(
			"verdicts_total",
			"Total number of verdicts by severity",
			Labels{"severity": strings.ToLower(string(sev))},
		)
	}

	return m
}

// RecordScore records one scored sample and its resulting state.
func (m *EngineMetrics) RecordScore(v classifier.ThreatVerdict, duration time.Duration, posture, historySize int) {
	m.SamplesTotal.Inc()
	m.ScoreDuration.ObserveDuration(duration)
	m.PostureScore.Set(int64(posture))
	m.HistorySize.Set(int64(historySize))
	if c, ok := m.verdicts[v.Severity]; ok {
		c.Inc()
	}
}

// RecordFit records a fit attempt.
func (m *EngineMetrics) RecordFit(duration time.Duration, corpusSize int, err error) {
	if err != nil {
		m.FitErrorsTotal.Inc()
		return
	}
	m.FitsTotal.Inc()
	m.FitDuration.ObserveDuration(duration)
	m.CorpusSize.Set(int64(corpusSize))
}

// RecordJournalWrite records a journal append attempt.
func (m *EngineMetrics) RecordJournalWrite(err error) {
	if err != nil {
		m.JournalErrorsTotal.Inc()
		return
	}
	m.JournalWritesTotal.Inc()
}

// RecordPatternReload records a pattern library hot reload.
func (m *EngineMetrics) RecordPatternReload() {
	m.PatternReloadsTotal.Inc()
}

var defaultRegistry = NewRegistry("sentryd")

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}
