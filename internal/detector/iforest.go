package detector

import (
	"math"
	"math/rand"

	"sentryd/internal/behavior"
)

// Isolation forest defaults. The subsample cap follows the standard
// recommendation of 256 points per tree; trees and contamination match
// the baseline the corpus models were tuned against.
const (
	DefaultTrees         = 100
	DefaultContamination = 0.1
	DefaultSubsample     = 256
	DefaultSeed          = 42
)

// eulerMascheroni is used in the expected-path-length constant.
const eulerMascheroni = 0.5772156649015329

// ForestOptions controls isolation forest construction.
type ForestOptions struct {
	// Trees is the ensemble size.
	Trees int

	// Contamination is the fraction of training points expected to be
	// anomalous; it positions the decision offset so that exactly this
	// fraction of the training corpus scores below zero.
	Contamination float64

	// Subsample caps the number of points each tree is built from.
	Subsample int

	// Seed makes tree construction reproducible. The same corpus,
	// options, and seed always produce the same forest.
	Seed int64
}

// DefaultForestOptions returns the baseline configuration.
func DefaultForestOptions() ForestOptions {
	return ForestOptions{
		Trees:         DefaultTrees,
		Contamination: DefaultContamination,
		Subsample:     DefaultSubsample,
		Seed:          DefaultSeed,
	}
}

// IsolationForest scores how easily a sample is isolated by random
// axis-aligned splits. Anomalies sit in sparse regions and take few
// splits to isolate, giving them short average path lengths.
type IsolationForest struct {
	trees     []*isoTree
	subsample int
	offset    float64
}

type isoTree struct {
	root *isoNode
}

type isoNode struct {
	feature int
	split   float64
	left    *isoNode
	right   *isoNode
	size    int // leaf only: points that ended here
}

// FitForest builds an isolation forest over the combined corpus.
// An empty corpus returns ErrInsufficientData.
func FitForest(corpus *behavior.TrainingCorpus, opts ForestOptions) (*IsolationForest, error) {
	points := corpus.Combined()
	if len(points) == 0 {
		return nil, ErrInsufficientData
	}

	if opts.Trees <= 0 {
		opts.Trees = DefaultTrees
	}
	if opts.Subsample <= 0 {
		opts.Subsample = DefaultSubsample
	}

	sub := opts.Subsample
	if sub > len(points) {
		sub = len(points)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sub) + 1)))

	rng := rand.New(rand.NewSource(opts.Seed))

	features := make([][2]float64, len(points))
	for i, p := range points {
		features[i] = p.Features()
	}

	f := &IsolationForest{
		trees:     make([]*isoTree, 0, opts.Trees),
		subsample: sub,
	}

	for t := 0; t < opts.Trees; t++ {
		sample := subsampleWithoutReplacement(rng, features, sub)
		f.trees = append(f.trees, &isoTree{root: buildIsoNode(rng, sample, 0, maxDepth)})
	}

	// Position the decision offset so the most anomalous contamination
	// fraction of the training corpus scores negative.
	raw := make([]float64, len(features))
	for i, x := range features {
		raw[i] = f.rawScore(x)
	}
	f.offset = quantile(raw, opts.Contamination)

	return f, nil
}

// Score returns the signed decision value for a sample. Negative means
// the sample isolates more easily than the trained contamination
// threshold allows, i.e. anomalous.
func (f *IsolationForest) Score(sample behavior.FeatureSample) float64 {
	return f.rawScore(sample.Features()) - f.offset
}

// Predict returns -1 for anomalies and +1 for normal samples.
func (f *IsolationForest) Predict(sample behavior.FeatureSample) int {
	if f.Score(sample) < 0 {
		return -1
	}
	return 1
}

// rawScore is the unshifted decision value: 0.5 - 2^(-E(h)/c(n)), where
// E(h) is the average path length across trees and c(n) the expected
// path length for the subsample size. Roughly [-0.5, 0.5]; higher means
// more normal.
func (f *IsolationForest) rawScore(x [2]float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(t.root, x, 0)
	}
	avg := total / float64(len(f.trees))
	return 0.5 - math.Exp2(-avg/expectedPathLength(f.subsample))
}

func buildIsoNode(rng *rand.Rand, points [][2]float64, depth, maxDepth int) *isoNode {
	if len(points) <= 1 || depth >= maxDepth {
		return &isoNode{feature: -1, size: len(points)}
	}

	feature := rng.Intn(2)
	lo, hi := points[0][feature], points[0][feature]
	for _, p := range points[1:] {
		v := p[feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		// Degenerate on this axis; the subset cannot be split further.
		return &isoNode{feature: -1, size: len(points)}
	}

	split := lo + rng.Float64()*(hi-lo)

	var left, right [][2]float64
	for _, p := range points {
		if p[feature] < split {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}

	return &isoNode{
		feature: feature,
		split:   split,
		left:    buildIsoNode(rng, left, depth+1, maxDepth),
		right:   buildIsoNode(rng, right, depth+1, maxDepth),
	}
}

func pathLength(n *isoNode, x [2]float64, depth int) float64 {
	if n.feature < 0 {
		return float64(depth) + expectedPathLength(n.size)
	}
	if x[n.feature] < n.split {
		return pathLength(n.left, x, depth+1)
	}
	return pathLength(n.right, x, depth+1)
}

// expectedPathLength is c(n), the average path length of an unsuccessful
// BST search over n points.
func expectedPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		h := math.Log(float64(n-1)) + eulerMascheroni
		return 2*h - 2*float64(n-1)/float64(n)
	}
}

func subsampleWithoutReplacement(rng *rand.Rand, points [][2]float64, n int) [][2]float64 {
	if n >= len(points) {
		out := make([][2]float64, len(points))
		copy(out, points)
		return out
	}
	perm := rng.Perm(len(points))
	out := make([][2]float64, n)
	for i := 0; i < n; i++ {
		out[i] = points[perm[i]]
	}
	return out
}
