package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handseal/internal/capture"
	"github.com/ayusman/handseal/internal/detector"
	"github.com/ayusman/handseal/internal/render"
)

// StreamHandler serves MJPEG frames from the camera with the latest hand
// skeletons drawn on top.
type StreamHandler struct {
	camera capture.Camera
	latest *detector.Latest
}

// NewStreamHandler creates a new StreamHandler. latest may be nil, in which
// case frames are streamed without overlays.
func NewStreamHandler(camera capture.Camera, latest *detector.Latest) *StreamHandler {
	return &StreamHandler{camera: camera, latest: latest}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, err := h.camera.ReadFrame()
		if err != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if h.latest != nil {
			result, _ := h.latest.Load()
			render.DrawHands(frame.Image, result.Hands)
		}

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame.Image)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "X-Timestamp: %d\r\n", frame.TimestampMs)
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(BroadcastInterval)
	}
}
