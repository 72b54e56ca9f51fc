// Package seal computes the hand-seal features: palm-normalized distances from
// the wrist to four fingertips, for each of two hands.
package seal

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/handseal/internal/detector"
)

// minPalmSize is the smallest palm size treated as non-degenerate.
const minPalmSize = 1e-10

var (
	// ErrInsufficientHands is returned when fewer than two hands are present.
	// It is the steady state whenever only one hand is in view.
	ErrInsufficientHands = errors.New("both hands must be detected")

	// ErrDegeneratePalm is returned when the index and pinky MCP landmarks
	// coincide, leaving no palm size to normalize by.
	ErrDegeneratePalm = errors.New("degenerate palm")

	// ErrNonFinite is returned when a landmark coordinate is NaN or infinite.
	ErrNonFinite = errors.New("non-finite landmark")
)

// Policy selects which palm size normalizes each hand's distances.
type Policy int

const (
	// PolicyOwnPalm normalizes every hand by its own palm size.
	PolicyOwnPalm Policy = iota
	// PolicyReferencePalm normalizes both hands by the first hand's palm size.
	PolicyReferencePalm
)

// String returns the flag spelling of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyOwnPalm:
		return "own"
	case PolicyReferencePalm:
		return "reference"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "own" or "reference".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "own", "":
		return PolicyOwnPalm, nil
	case "reference":
		return PolicyReferencePalm, nil
	default:
		return 0, fmt.Errorf("unknown normalization policy %q", s)
	}
}

// Ratios holds one hand's wrist-to-fingertip distances divided by palm size.
type Ratios struct {
	Thumb  float64 `json:"thumb"`
	Index  float64 `json:"index"`
	Middle float64 `json:"middle"`
	Pinky  float64 `json:"pinky"`
}

// Values returns the ratios ordered thumb, index, middle, pinky.
func (r Ratios) Values() []float64 {
	return []float64{r.Thumb, r.Index, r.Middle, r.Pinky}
}

// Features is the extractor output for one frame.
type Features struct {
	Hand1     Ratios  `json:"hand1"`
	Hand2     Ratios  `json:"hand2"`
	Hand1Palm float64 `json:"hand1_palm"`
	Hand2Palm float64 `json:"hand2_palm"`
}

// Extractor computes Features from pairs of hands. The zero value uses
// PolicyOwnPalm. An Extractor holds no state and is safe for concurrent use.
type Extractor struct {
	Policy Policy
}

// NewExtractor returns an Extractor using the given policy.
func NewExtractor(policy Policy) *Extractor {
	return &Extractor{Policy: policy}
}

// Extract computes features from the first two hands of a frame result.
// Hands beyond the second are ignored.
func (e *Extractor) Extract(hands []detector.HandLandmarks) (*Features, error) {
	if len(hands) < 2 {
		return nil, ErrInsufficientHands
	}
	return e.ExtractPair(&hands[0], &hands[1])
}

// ExtractPair computes features for hand1 and hand2. A nil hand yields
// ErrInsufficientHands without computing anything.
func (e *Extractor) ExtractPair(hand1, hand2 *detector.HandLandmarks) (*Features, error) {
	if hand1 == nil || hand2 == nil {
		return nil, ErrInsufficientHands
	}

	for i, h := range []*detector.HandLandmarks{hand1, hand2} {
		if !planarFinite(h) {
			return nil, fmt.Errorf("hand %d: %w", i+1, ErrNonFinite)
		}
	}

	palm1 := PalmSize(hand1)
	palm2 := PalmSize(hand2)
	if e.Policy == PolicyReferencePalm {
		palm2 = palm1
	}

	for i, palm := range []float64{palm1, palm2} {
		if !(palm >= minPalmSize) || math.IsInf(palm, 0) {
			return nil, fmt.Errorf("hand %d: %w (palm size %g)", i+1, ErrDegeneratePalm, palm)
		}
	}

	f := &Features{
		Hand1:     handRatios(hand1, palm1),
		Hand2:     handRatios(hand2, palm2),
		Hand1Palm: palm1,
		Hand2Palm: palm2,
	}

	// Finite coordinates can still overflow a distance or a quotient.
	for i, r := range []Ratios{f.Hand1, f.Hand2} {
		if !allFinite(r.Values()) {
			return nil, fmt.Errorf("hand %d: %w (ratio overflow)", i+1, ErrNonFinite)
		}
	}
	return f, nil
}

// planarFinite reports whether every X and Y is finite. Z is not read by
// the extractor, so a missing depth does not reject the hand.
func planarFinite(h *detector.HandLandmarks) bool {
	for _, p := range h.Points {
		if !allFinite([]float64{p.X, p.Y}) {
			return false
		}
	}
	return true
}

func allFinite(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PalmSize is the 2-D distance between the index and pinky MCP landmarks.
func PalmSize(h *detector.HandLandmarks) float64 {
	return Distance2D(h.Points[detector.IndexMCP], h.Points[detector.PinkyMCP])
}

// Distance2D is the Euclidean distance between a and b on X and Y; Z is ignored.
func Distance2D(a, b detector.Point3D) float64 {
	return floats.Distance([]float64{a.X, a.Y}, []float64{b.X, b.Y}, 2)
}

func handRatios(h *detector.HandLandmarks, palm float64) Ratios {
	wrist := h.Points[detector.Wrist]
	ratio := func(tip int) float64 {
		return Distance2D(wrist, h.Points[tip]) / palm
	}
	return Ratios{
		Thumb:  ratio(detector.ThumbTip),
		Index:  ratio(detector.IndexTip),
		Middle: ratio(detector.MiddleTip),
		Pinky:  ratio(detector.PinkyTip),
	}
}
