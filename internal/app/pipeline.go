package app

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/handseal/internal/detector"
	"github.com/ayusman/handseal/internal/seal"
)

// errNoDetector is reported when the camera source has no hand detector.
var errNoDetector = errors.New("no detector configured")

// runPipeline issues one tick per frame interval until stopCh is closed.
//
// Each tick:
// 1. Camera source: read a frame, detect hands, store the result in the slot
// 2. Load the slot; if it has not changed since the last tick, do nothing
// 3. Extract seal features from the first two hands
// 4. Log the ratios and notify observers, or log why the frame was skipped
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	fps := a.config.FPS
	if fps <= 0 {
		fps = 15
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.tick()
		}
	}
}

// tick runs one pass of the pipeline.
func (a *App) tick() {
	if !a.IsEnabled() {
		return
	}

	if a.camera != nil {
		a.captureFrame()
	}

	result, seq := a.latest.Load()
	if seq == a.lastSeq {
		return
	}
	a.lastSeq = seq

	a.extract(result)
}

// captureFrame reads one camera frame and stores its detection result.
func (a *App) captureFrame() {
	d := a.Detector()
	if d == nil {
		a.logger.Warn("skipping frame", zap.Error(errNoDetector))
		return
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.logger.Warn("reading frame", zap.Error(err))
		return
	}
	defer frame.Close()

	ts := frame.TimestampMs
	hands, err := d.Detect(frame.Image, ts)
	if err != nil {
		a.logger.Warn("detecting hands", zap.Error(err), zap.Int64("timestamp", ts))
		return
	}

	a.latest.Store(detector.FrameResult{Hands: hands, TimestampMs: ts})
}

// extract runs the extractor over a frame result and publishes the outcome.
func (a *App) extract(result detector.FrameResult) {
	report := a.extractor.Evaluate(result.Hands)
	observers := a.setReport(report)

	switch report.Status {
	case seal.StatusOK:
		seal.LogFeatures(a.logger, report.Features)
		for _, fn := range observers {
			fn(*report.Features)
		}
	case seal.StatusInsufficient:
		a.logger.Debug("both hands must be detected", zap.Int("hands", report.Hands))
	default:
		a.logger.Warn("skipping frame",
			zap.String("status", string(report.Status)),
			zap.String("detail", report.Detail),
			zap.Int64("timestamp", result.TimestampMs))
	}
}
