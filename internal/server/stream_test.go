package server

import (
	"bufio"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/handseal/internal/capture"
	"github.com/ayusman/handseal/internal/detector"
)

func TestStreamHandler_ServesJPEGParts(t *testing.T) {
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	camera := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	if err := camera.Open(); err != nil {
		t.Fatalf("open camera: %v", err)
	}
	defer camera.Close()

	latest := detector.NewLatest()
	latest.Store(detector.FrameResult{Hands: []detector.HandLandmarks{detector.OpenPalmLandmarks()}})

	ts := httptest.NewServer(NewStreamHandler(camera, latest))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("unexpected content type %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	boundary, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read boundary: %v", err)
	}
	if boundary != "--frame\r\n" {
		t.Errorf("expected frame boundary, got %q", boundary)
	}

	header, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read part header: %v", err)
	}
	if header != "Content-Type: image/jpeg\r\n" {
		t.Errorf("expected jpeg part, got %q", header)
	}

	stamp, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read part header: %v", err)
	}
	if !strings.HasPrefix(stamp, "X-Timestamp: ") {
		t.Errorf("expected capture timestamp header, got %q", stamp)
	}

	// Skip Content-Length and the blank line, then check the JPEG magic.
	for range 2 {
		if _, err := r.ReadString('\n'); err != nil {
			t.Fatalf("read part header: %v", err)
		}
	}
	magic := make([]byte, 2)
	if _, err := io.ReadFull(r, magic); err != nil {
		t.Fatalf("read jpeg: %v", err)
	}
	if magic[0] != 0xFF || magic[1] != 0xD8 {
		t.Errorf("expected JPEG SOI marker, got % x", magic)
	}

	if camera.Reads() == 0 {
		t.Error("expected the camera to be read")
	}
}

func TestStreamHandler_OnlyGET(t *testing.T) {
	camera := capture.NewMockCamera(nil, false)
	h := NewStreamHandler(camera, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
