package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand landmark sources that work on
// captured video frames.
type Detector interface {
	// Detect analyzes a video frame captured at timestampMs and returns the
	// detected hand landmarks. Returns an empty slice if no hands are detected.
	// Timestamps must increase monotonically in video mode.
	Detect(frame *gocv.Mat, timestampMs int64) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// RunningMode selects how the landmark model treats successive frames.
type RunningMode string

const (
	// ModeImage treats every frame independently.
	ModeImage RunningMode = "image"
	// ModeVideo lets the model track hands between timestamped frames.
	ModeVideo RunningMode = "video"
)

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Mode is passed to the model on startup.
	Mode RunningMode
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		Mode:            ModeVideo,
	}
}
