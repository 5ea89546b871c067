// Package detector implements the two statistical outlier detectors that
// score behavioral samples, and the confidence normalization that makes
// their raw scores comparable.
//
// Both detectors follow the same contract: Fit builds an immutable model
// from a training corpus, Score returns a signed decision value where
// negative means anomalous, and Predict collapses the score to -1
// (anomaly) or +1 (normal). A fitted detector is never mutated; re-fits
// produce a new value.
package detector

import "errors"

// ErrInsufficientData is returned by Fit when the training corpus is
// empty or below the minimum viable size for the detector. Callers that
// drive periodic re-fitting should keep the previous model on this error
// rather than failing.
var ErrInsufficientData = errors.New("detector: insufficient training data")

// Label is a detector's binary reading of a sample.
type Label string

const (
	LabelNormal     Label = "Normal"
	LabelSuspicious Label = "Suspicious"
)

// Verdict is one detector's scored opinion of a single sample.
// Confidence expresses certainty in the returned label, not in
// anomalousness, so a confidently-normal and a confidently-suspicious
// verdict both read near 100.
type Verdict struct {
	IsAnomaly  bool    `json:"is_anomaly"`
	Confidence float64 `json:"confidence"` // percent in [0,100]
	Label      Label   `json:"label"`
}

// labelFor maps the anomaly flag to its label.
func labelFor(isAnomaly bool) Label {
	if isAnomaly {
		return LabelSuspicious
	}
	return LabelNormal
}
