package detector

import (
	"fmt"
	"math"

	"sentryd/internal/behavior"
)

// MinBoundarySamples is the smallest normal-only corpus the boundary
// detector will fit. Below this the bandwidth estimate is unstable.
const MinBoundarySamples = 5

// DefaultNu is the default fraction of training points allowed outside
// the learned boundary.
const DefaultNu = 0.1

// BoundaryOptions controls one-class boundary fitting.
type BoundaryOptions struct {
	// Nu in (0,1) is the fraction of the training set permitted to fall
	// outside the boundary; it positions the offset rho.
	Nu float64

	// Gamma is the RBF kernel width. Zero selects the "scale" rule
	// 1/(d * var) from the training data.
	Gamma float64
}

// DefaultBoundaryOptions returns the baseline configuration.
func DefaultBoundaryOptions() BoundaryOptions {
	return BoundaryOptions{Nu: DefaultNu}
}

// Boundary is a one-class detector fit only on normal samples. Typing
// and mouse speeds relate non-linearly, so the boundary is expressed
// through an RBF kernel: the decision function for a query is its mean
// kernel similarity to the training set minus a learned offset rho. A
// linear boundary would misclassify legitimate fast-typist/slow-mouse
// combinations.
type Boundary struct {
	support [][2]float64
	gamma   float64
	rho     float64
}

// FitBoundary fits a one-class boundary around the normal samples.
// Fewer than MinBoundarySamples points return ErrInsufficientData; a nu
// outside (0,1) is rejected outright.
func FitBoundary(normal []behavior.FeatureSample, opts BoundaryOptions) (*Boundary, error) {
	if opts.Nu <= 0 || opts.Nu >= 1 {
		return nil, fmt.Errorf("detector: nu must be in (0,1), got %v", opts.Nu)
	}
	if len(normal) < MinBoundarySamples {
		return nil, ErrInsufficientData
	}

	support := make([][2]float64, len(normal))
	for i, s := range normal {
		support[i] = s.Features()
	}

	gamma := opts.Gamma
	if gamma <= 0 {
		gamma = scaleGamma(support)
	}

	b := &Boundary{support: support, gamma: gamma}

	// rho is the nu-quantile of the training similarities, so that
	// approximately a nu fraction of the training set scores negative.
	sims := make([]float64, len(support))
	for i, x := range support {
		sims[i] = b.similarity(x)
	}
	b.rho = quantile(sims, opts.Nu)

	return b, nil
}

// Score returns the signed distance to the boundary. Positive means the
// sample is inside the learned normal region.
func (b *Boundary) Score(sample behavior.FeatureSample) float64 {
	return b.similarity(sample.Features()) - b.rho
}

// Predict returns -1 when the sample falls outside the boundary.
func (b *Boundary) Predict(sample behavior.FeatureSample) int {
	if b.Score(sample) < 0 {
		return -1
	}
	return 1
}

// similarity is the mean RBF kernel value between x and the support set.
func (b *Boundary) similarity(x [2]float64) float64 {
	var total float64
	for _, s := range b.support {
		d0 := x[0] - s[0]
		d1 := x[1] - s[1]
		total += math.Exp(-b.gamma * (d0*d0 + d1*d1))
	}
	return total / float64(len(b.support))
}

// scaleGamma implements the "scale" heuristic: 1/(d * var), with var the
// variance over every entry of the feature matrix.
func scaleGamma(points [][2]float64) float64 {
	n := float64(len(points) * 2)
	var sum float64
	for _, p := range points {
		sum += p[0] + p[1]
	}
	mean := sum / n

	var ss float64
	for _, p := range points {
		ss += (p[0] - mean) * (p[0] - mean)
		ss += (p[1] - mean) * (p[1] - mean)
	}
	variance := ss / n
	if variance <= 0 {
		return 1
	}
	return 1 / (2 * variance)
}
