package seal

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ayusman/handseal/internal/detector"
)

// Status summarizes the outcome of one extraction.
type Status string

const (
	StatusOK           Status = "ok"
	StatusInsufficient Status = "insufficient_input"
	StatusDegenerate   Status = "degenerate_palm"
	StatusNonFinite    Status = "non_finite"
	StatusError        Status = "error"
)

// Report is the transport form of an extraction result.
type Report struct {
	Status   Status    `json:"status"`
	Hands    int       `json:"hands"`
	Features *Features `json:"features,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// Evaluate runs Extract and folds the outcome into a Report.
func (e *Extractor) Evaluate(hands []detector.HandLandmarks) Report {
	features, err := e.Extract(hands)
	report := Report{
		Status:   StatusOf(err),
		Hands:    len(hands),
		Features: features,
	}
	if err != nil {
		report.Detail = err.Error()
	}
	return report
}

// StatusOf maps an Extract error to its Status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInsufficientHands):
		return StatusInsufficient
	case errors.Is(err, ErrDegeneratePalm):
		return StatusDegenerate
	case errors.Is(err, ErrNonFinite):
		return StatusNonFinite
	default:
		return StatusError
	}
}

// LogFeatures writes the diagnostic record for one frame's features.
func LogFeatures(logger *zap.Logger, f *Features) {
	logger.Info("seal ratios",
		zap.Float64s("hand1", f.Hand1.Values()),
		zap.Float64s("hand2", f.Hand2.Values()),
		zap.Float64("hand1_palm", f.Hand1Palm),
		zap.Float64("hand2_palm", f.Hand2Palm),
	)
}
