// Package app runs the handseal frame pipeline: capture, landmark detection,
// and seal feature extraction on every tick.
package app

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/handseal/internal/capture"
	"github.com/ayusman/handseal/internal/config"
	"github.com/ayusman/handseal/internal/detector"
	"github.com/ayusman/handseal/internal/seal"
)

// FeaturesFunc is called with the features of every frame that had two usable hands.
type FeaturesFunc func(f seal.Features)

// App owns the landmark source, the latest frame slot, and the extractor.
type App struct {
	config    config.Config
	logger    *zap.Logger
	camera    capture.Camera
	detector  detector.Detector
	latest    *detector.Latest
	extractor *seal.Extractor

	// detectorErr is why the camera source has no detector.
	detectorErr error

	mu        sync.RWMutex
	enabled   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	observers []FeaturesFunc
	report    seal.Report

	// Owned by the pipeline goroutine.
	lastSeq uint64
}

// idleReport is the report before any frame, and after predictions are disabled.
var idleReport = seal.Report{Status: seal.StatusInsufficient}

// New creates a new App for the given configuration. In camera mode it opens
// nothing yet; the camera is opened by Start.
func New(cfg config.Config, logger *zap.Logger) *App {
	a := &App{
		config:    cfg,
		logger:    logger.Named("app"),
		latest:    detector.NewLatest(),
		extractor: seal.NewExtractor(cfg.Normalization),
		report:    idleReport,
	}

	if cfg.Source == config.SourceCamera {
		a.camera = capture.NewCamera(cfg.CameraID, cfg.FPS, nil)

		mp, err := detector.NewMediaPipeDetector(cfg.Detector, logger)
		if err != nil {
			a.detectorErr = err
		} else {
			a.detector = mp
			a.logger.Info("using MediaPipe hand detection")
		}
	}

	return a
}

// SetEnabled enables or disables predictions. Disabling clears the latest
// frame result so nothing stale is drawn or reported.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	was := a.enabled
	a.enabled = enabled
	a.mu.Unlock()

	if was && !enabled {
		a.latest.Clear()
		a.mu.Lock()
		a.report = idleReport
		a.mu.Unlock()
	}
	if was != enabled {
		a.logger.Info("predictions toggled", zap.Bool("enabled", enabled))
	}
}

// IsEnabled returns whether predictions are currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// OnFeatures registers fn to be called after every successful extraction.
func (a *App) OnFeatures(fn FeaturesFunc) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

// Start opens the camera (camera source only) and begins issuing ticks. The
// camera source fails to start without a hand detector.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if a.camera != nil {
		if a.detector == nil {
			err := a.detectorErr
			if err == nil {
				err = errNoDetector
			}
			return fmt.Errorf("camera source: %w", err)
		}
		if err := a.camera.Open(); err != nil {
			return err
		}
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	a.logger.Info("pipeline started",
		zap.String("source", string(a.config.Source)),
		zap.Int("fps", a.config.FPS),
		zap.Stringer("normalization", a.config.Normalization))
	return nil
}

// Stop stops issuing ticks, waits for the current tick to finish, and
// releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			a.logger.Warn("closing camera", zap.Error(err))
		}
	}

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			a.logger.Warn("closing detector", zap.Error(err))
		}
	}

	a.logger.Info("pipeline stopped")
}

// Latest returns the slot holding the most recent frame result.
func (a *App) Latest() *detector.Latest {
	return a.latest
}

// Extractor returns the seal feature extractor.
func (a *App) Extractor() *seal.Extractor {
	return a.extractor
}

// Camera returns the camera, or nil when frames come from browsers.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the hand detector, or nil when frames come from browsers.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Report returns the outcome of the most recent extraction.
func (a *App) Report() seal.Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.report
}

func (a *App) setReport(r seal.Report) []FeaturesFunc {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.report = r
	return a.observers
}
