// Package config holds the runtime configuration for handseal.
package config

import (
	"errors"
	"fmt"

	"github.com/ayusman/handseal/internal/detector"
	"github.com/ayusman/handseal/internal/seal"
)

// Source names where frame results come from.
type Source string

const (
	// SourceCamera reads frames from a local camera and runs the MediaPipe service.
	SourceCamera Source = "camera"
	// SourceBrowser accepts frame results pushed by browser clients over WebSocket.
	SourceBrowser Source = "browser"
)

// Config holds the settings for one handseal run.
type Config struct {
	Addr          string
	CameraID      int
	FPS           int
	Source        Source
	WebDir        string
	Normalization seal.Policy
	Tray          bool
	Debug         bool
	Detector      detector.Config
}

// Default returns the settings used when no flags are given.
func Default() Config {
	return Config{
		Addr:          ":8080",
		CameraID:      0,
		FPS:           15,
		Source:        SourceCamera,
		Normalization: seal.PolicyOwnPalm,
		Detector:      detector.DefaultConfig(),
	}
}

// ParseSource parses "camera" or "browser".
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceCamera, SourceBrowser:
		return Source(s), nil
	default:
		return "", fmt.Errorf("unknown source %q", s)
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.FPS <= 0 || c.FPS > 120 {
		return fmt.Errorf("fps must be in 1..120, got %d", c.FPS)
	}
	if _, err := ParseSource(string(c.Source)); err != nil {
		return err
	}
	if c.Source == SourceCamera && c.CameraID < 0 {
		return fmt.Errorf("camera id must not be negative, got %d", c.CameraID)
	}
	if c.Detector.MaxHands < 2 {
		return fmt.Errorf("max hands must be at least 2 to extract seal features, got %d", c.Detector.MaxHands)
	}
	for name, v := range map[string]float64{
		"min detection confidence": c.Detector.MinConfidence,
		"min tracking confidence":  c.Detector.MinTrackingConf,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
	}
	return nil
}
