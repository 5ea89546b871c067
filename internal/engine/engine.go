// Package engine composes the detectors, classifier, and threat log
// into the scoring pipeline. A fitted model pair is published as an
// immutable snapshot behind an atomic pointer, so scoring never blocks
// on a concurrent re-fit and a failed re-fit leaves the last good
// snapshot serving.
package engine

import (
	"errors"
	"time"

	"sentryd/internal/behavior"
	"sentryd/internal/classifier"
	"sentryd/internal/detector"
	"sentryd/internal/history"
	"sentryd/internal/logging"
	"sentryd/internal/metrics"

	"sync/atomic"
)

// ErrNotFitted is returned by Score before the first successful Fit.
var ErrNotFitted = errors.New("engine: models not fitted")

// Snapshot is one immutable fitted model pair. Snapshots are replaced
// wholesale, never mutated.
type Snapshot struct {
	Forest   *detector.IsolationForest
	Boundary *detector.Boundary

	FittedAt   time.Time
	CorpusSize int
}

// Journal receives every verdict the engine produces. Implementations
// must be safe for concurrent use.
type Journal interface {
	AppendVerdict(v classifier.ThreatVerdict) error
}

// Options configures engine construction.
type Options struct {
	Forest     detector.ForestOptions
	Boundary   detector.BoundaryOptions
	Classifier *classifier.Classifier
	Capacity   int

	// Journal is optional. Journal failures degrade to a log line and
	// never fail the scoring path.
	Journal Journal

	// Metrics is optional.
	Metrics *metrics.EngineMetrics

	Logger *logging.Logger
}

// DefaultOptions returns the baseline engine configuration.
func DefaultOptions() Options {
	return Options{
		Forest:   detector.DefaultForestOptions(),
		Boundary: detector.DefaultBoundaryOptions(),
		Capacity: history.DefaultCapacity,
	}
}

// Engine is the scoring pipeline. All methods are safe for concurrent
// use.
type Engine struct {
	opts     Options
	snapshot atomic.Pointer[Snapshot]
	log      *history.Log
	cls      atomic.Pointer[classifier.Classifier]
	logger   *logging.Logger
	now      func() time.Time
}

// New returns an unfitted engine.
func New(opts Options) *Engine {
	if opts.Forest.Trees == 0 {
		opts.Forest = detector.DefaultForestOptions()
	}
	if opts.Boundary.Nu == 0 {
		opts.Boundary = detector.DefaultBoundaryOptions()
	}
	cls := opts.Classifier
	if cls == nil {
		cls = classifier.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		opts:   opts,
		log:    history.New(opts.Capacity),
		logger: logger,
		now:    time.Now,
	}
	e.cls.Store(cls)
	return e
}

// Fit trains both detectors on the corpus and atomically publishes the
// new snapshot. On error the previous snapshot, if any, keeps serving.
func (e *Engine) Fit(corpus *behavior.TrainingCorpus) error {
	start := e.now()
	forest, err := detector.FitForest(corpus, e.opts.Forest)
	if err != nil {
		e.logger.Warn("fit rejected", "stage", "forest", "corpus_size", corpus.Size(), "error", err)
		e.recordFit(start, corpus.Size(), err)
		return err
	}
	boundary, err := detector.FitBoundary(corpus.Normal, e.opts.Boundary)
	if err != nil {
		e.logger.Warn("fit rejected", "stage", "boundary", "normal_size", len(corpus.Normal), "error", err)
		e.recordFit(start, corpus.Size(), err)
		return err
	}

	snap := &Snapshot{
		Forest:     forest,
		Boundary:   boundary,
		FittedAt:   e.now(),
		CorpusSize: corpus.Size(),
	}
	e.snapshot.Store(snap)
	e.logger.Info("models fitted", "corpus_size", snap.CorpusSize, "normal", len(corpus.Normal), "suspicious", len(corpus.Suspicious))
	e.recordFit(start, corpus.Size(), nil)
	return nil
}

func (e *Engine) recordFit(start time.Time, corpusSize int, err error) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordFit(e.now().Sub(start), corpusSize, err)
	}
}

// Snapshot returns the current fitted snapshot, or nil before the
// first successful Fit.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Classify evaluates one sample against the current snapshot without
// recording it. Useful for what-if queries; the threat log and posture
// are untouched.
func (e *Engine) Classify(sample behavior.FeatureSample) (classifier.ThreatVerdict, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return classifier.ThreatVerdict{}, ErrNotFitted
	}

	forestVerdict := snap.Forest.Evaluate(sample)
	boundaryVerdict := snap.Boundary.Evaluate(sample)
	return e.cls.Load().Classify(sample, forestVerdict, boundaryVerdict), nil
}

// Score evaluates one sample against the current snapshot, classifies
// it, records the verdict in the threat log, and journals it if a
// journal is attached.
func (e *Engine) Score(sample behavior.FeatureSample) (classifier.ThreatVerdict, error) {
	start := e.now()
	verdict, err := e.Classify(sample)
	if err != nil {
		return classifier.ThreatVerdict{}, err
	}

	posture := e.log.Record(verdict)
	e.logger.Info("sample scored",
		"pattern", verdict.Pattern,
		"severity", string(verdict.Severity),
		"typing", sample.TypingSpeed,
		"mouse", sample.MouseSpeed,
		"posture", posture)

	if e.opts.Journal != nil {
		err := e.opts.Journal.AppendVerdict(verdict)
		if err != nil {
			e.logger.Error("journal append failed", "error", err)
		}
		if e.opts.Metrics != nil {
			e.opts.Metrics.RecordJournalWrite(err)
		}
	}
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordScore(verdict, e.now().Sub(start), posture, e.log.Stats().Total)
	}
	return verdict, nil
}

// History returns the threat log.
func (e *Engine) History() *history.Log {
	return e.log
}

// Stats summarizes the retained verdicts and current posture.
func (e *Engine) Stats() history.Stats {
	return e.log.Stats()
}

// Posture returns the current posture score.
func (e *Engine) Posture() int {
	return e.log.Posture()
}

// Status returns the posture band.
func (e *Engine) Status() history.Status {
	return e.log.Status()
}

// ResetPosture restores the posture score to its starting value.
func (e *Engine) ResetPosture() {
	e.log.Reset()
	e.logger.Info("posture reset", "posture", e.log.Posture())
}

// SetPatterns swaps the classifier's pattern library, keeping the
// active categorizer. Used by the pattern watcher on hot reload;
// scoring in flight keeps the library it started with.
func (e *Engine) SetPatterns(patterns []classifier.Pattern) {
	e.cls.Store(classifier.New(
		classifier.WithPatterns(patterns),
		classifier.WithCategorizer(e.cls.Load().Categorizer()),
	))
	e.logger.Info("pattern library replaced", "patterns", len(patterns))
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordPatternReload()
	}
}
