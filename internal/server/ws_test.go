package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handseal/internal/detector"
	"github.com/ayusman/handseal/internal/seal"
)

// framePayload encodes hands in the browser HandLandmarker result shape.
func framePayload(t *testing.T, timestamp int64, hands ...detector.HandLandmarks) []byte {
	t.Helper()

	type category struct {
		Score        float64 `json:"score"`
		CategoryName string  `json:"categoryName"`
	}
	body := struct {
		Timestamp  int64                `json:"timestamp"`
		Landmarks  [][]detector.Point3D `json:"landmarks"`
		Handedness [][]category         `json:"handedness"`
	}{Timestamp: timestamp}

	for _, h := range hands {
		body.Landmarks = append(body.Landmarks, h.Points[:])
		body.Handedness = append(body.Handedness, []category{{Score: h.Score, CategoryName: h.Handedness}})
	}

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/landmarks"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLandmarks_IngestAndBroadcast(t *testing.T) {
	latest := detector.NewLatest()
	s := New(Config{Latest: latest, AcceptFrames: true})
	ts := httptest.NewServer(s)
	defer ts.Close()
	defer s.Close()

	producer := dial(t, ts)
	viewer := dial(t, ts)
	waitFor(t, "two clients", func() bool { return s.landmarks.Clients() == 2 })

	palm := detector.OpenPalmLandmarks()
	fist := detector.FistLandmarks()
	if err := producer.WriteMessage(websocket.TextMessage, framePayload(t, 4242, palm, fist)); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	waitFor(t, "frame stored", func() bool {
		_, seq := latest.Load()
		return seq == 1
	})

	viewer.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg LandmarksMessage
	if err := viewer.ReadJSON(&msg); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}

	if msg.Seq != 1 || msg.Timestamp != 4242 {
		t.Errorf("expected seq 1 ts 4242, got seq %d ts %d", msg.Seq, msg.Timestamp)
	}
	if len(msg.Hands) != 2 || msg.Hands[0] != palm {
		t.Errorf("unexpected hands in broadcast: %d", len(msg.Hands))
	}
	if msg.Report.Status != seal.StatusOK || msg.Report.Features == nil {
		t.Errorf("expected ok report, got %+v", msg.Report)
	}
}

func TestLandmarks_RejectsInvalidFrames(t *testing.T) {
	latest := detector.NewLatest()
	s := New(Config{Latest: latest, AcceptFrames: true})
	ts := httptest.NewServer(s)
	defer ts.Close()
	defer s.Close()

	conn := dial(t, ts)

	conn.WriteMessage(websocket.TextMessage, []byte(`{"landmarks": [[{"x": 0.5, "y": 0.5}]]}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	conn.WriteMessage(websocket.TextMessage, framePayload(t, 1, detector.OpenPalmLandmarks()))

	waitFor(t, "valid frame stored", func() bool {
		_, seq := latest.Load()
		return seq > 0
	})

	result, seq := latest.Load()
	if seq != 1 {
		t.Errorf("expected only the valid frame to be stored, got seq %d", seq)
	}
	if len(result.Hands) != 1 {
		t.Errorf("expected 1 hand, got %d", len(result.Hands))
	}
}

func TestLandmarks_IgnoresFramesWhenNotAccepting(t *testing.T) {
	latest := detector.NewLatest()
	var enabled atomic.Bool
	s := New(Config{Latest: latest, AcceptFrames: true, Enabled: enabled.Load})
	ts := httptest.NewServer(s)
	defer ts.Close()
	defer s.Close()

	conn := dial(t, ts)
	conn.WriteMessage(websocket.TextMessage, framePayload(t, 1, detector.OpenPalmLandmarks()))
	time.Sleep(100 * time.Millisecond)

	if _, seq := latest.Load(); seq != 0 {
		t.Errorf("disabled handler should drop pushed frames, got seq %d", seq)
	}

	enabled.Store(true)
	conn.WriteMessage(websocket.TextMessage, framePayload(t, 2, detector.OpenPalmLandmarks()))
	waitFor(t, "frame stored once enabled", func() bool {
		_, seq := latest.Load()
		return seq == 1
	})
}

func TestLandmarks_CloseDisconnectsClients(t *testing.T) {
	s := New(Config{Latest: detector.NewLatest()})
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn := dial(t, ts)
	waitFor(t, "client registered", func() bool { return s.landmarks.Clients() == 1 })

	s.Close()
	s.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after server close")
	}
	waitFor(t, "client removed", func() bool { return s.landmarks.Clients() == 0 })
}
