// Package capture reads timestamped video frames for the landmark detector.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Capture defaults. MediaPipe is run on 640x480 frames.
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the device produced no image data.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Camera is a source of timestamped frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame; the caller closes it.
	ReadFrame() (*Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// device reads frames from an OpenCV capture device.
type device struct {
	id    int
	fps   int
	clock *Clock

	mu    sync.Mutex
	video *gocv.VideoCapture
}

// NewCamera returns a Camera for device id. A non-positive fps selects
// DefaultFPS. A nil clock stamps frames with the wall clock.
func NewCamera(id, fps int, clock *Clock) Camera {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if clock == nil {
		clock = NewClock(nil)
	}
	return &device{id: id, fps: fps, clock: clock}
}

func (d *device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.video != nil {
		return nil
	}

	video, err := gocv.OpenVideoCapture(d.id)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", d.id, err)
	}
	video.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	video.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	video.Set(gocv.VideoCaptureFPS, float64(d.fps))

	d.video = video
	return nil
}

func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.video == nil {
		return nil
	}
	err := d.video.Close()
	d.video = nil
	return err
}

func (d *device) ReadFrame() (*Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.video == nil {
		return nil, ErrCameraNotOpen
	}

	img := gocv.NewMat()
	if !d.video.Read(&img) {
		img.Close()
		return nil, fmt.Errorf("read frame from camera %d", d.id)
	}
	if img.Empty() {
		img.Close()
		return nil, ErrEmptyFrame
	}

	return &Frame{Image: &img, TimestampMs: d.clock.Next()}, nil
}

func (d *device) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.fps = fps
	if d.video != nil {
		d.video.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (d *device) FPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fps
}

func (d *device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.video != nil
}
