package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handseal/internal/detector"
	"github.com/ayusman/handseal/internal/seal"
)

// do serves one request and returns the recorder.
func do(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	rec := do(s, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Uptime)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		assert.Equal(t, http.StatusMethodNotAllowed, do(s, method, "/api/health").Code, method)
	}
}

func TestServer_Routes(t *testing.T) {
	bare := New(Config{})
	withSlot := New(Config{Latest: detector.NewLatest()})
	defer withSlot.Close()

	tests := []struct {
		name   string
		server *Server
		path   string
		want   int
	}{
		{"unknown api path", withSlot, "/api/nonexistent", http.StatusNotFound},
		{"root without web dir", bare, "/", http.StatusNotFound},
		{"features need a slot", bare, "/api/features", http.StatusNotFound},
		{"landmarks need a slot", bare, "/api/landmarks", http.StatusNotFound},
		{"stream needs a camera", withSlot, "/api/stream", http.StatusNotFound},
		{"features with a slot", withSlot, "/api/features", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(tt.server, http.MethodGet, tt.path).Code)
		})
	}
}

func TestServer_StaticViewer(t *testing.T) {
	dir := t.TempDir()
	page := "<html><body>viewer</body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "viewer.js"), []byte("connect()"), 0o644))

	s := New(Config{StaticDir: dir})

	rec := do(s, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, page, rec.Body.String())

	rec = do(s, http.MethodGet, "/viewer.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connect()", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/missing.html").Code)
}

func TestServer_Features(t *testing.T) {
	latest := detector.NewLatest()
	s := New(Config{Latest: latest, Extractor: seal.NewExtractor(seal.PolicyReferencePalm)})
	defer s.Close()

	get := func(t *testing.T) featuresResponse {
		t.Helper()
		rec := do(s, http.MethodGet, "/api/features")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp featuresResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	t.Run("insufficient input before any frame", func(t *testing.T) {
		resp := get(t)
		assert.Zero(t, resp.Seq)
		assert.Equal(t, seal.StatusInsufficient, resp.Report.Status)
		assert.Nil(t, resp.Report.Features)
	})

	t.Run("ratios for two hands", func(t *testing.T) {
		latest.Store(detector.FrameResult{
			Hands:       []detector.HandLandmarks{detector.OpenPalmLandmarks(), detector.FistLandmarks()},
			TimestampMs: 777,
		})

		resp := get(t)
		assert.Equal(t, uint64(1), resp.Seq)
		assert.Equal(t, int64(777), resp.Timestamp)
		require.Equal(t, seal.StatusOK, resp.Report.Status, resp.Report.Detail)
		assert.Equal(t, 2, resp.Report.Hands)

		// The configured extractor is used, so both hands share hand1's palm.
		assert.Equal(t, resp.Report.Features.Hand1Palm, resp.Report.Features.Hand2Palm)
	})

	t.Run("degenerate palm is reported, not served as ratios", func(t *testing.T) {
		flat := detector.OpenPalmLandmarks()
		flat.Points[detector.PinkyMCP] = flat.Points[detector.IndexMCP]
		latest.Store(detector.FrameResult{Hands: []detector.HandLandmarks{flat, flat}})

		resp := get(t)
		assert.Equal(t, seal.StatusDegenerate, resp.Report.Status)
		assert.Nil(t, resp.Report.Features)
		assert.NotEmpty(t, resp.Report.Detail)
	})

	t.Run("only allows GET method", func(t *testing.T) {
		assert.Equal(t, http.StatusMethodNotAllowed, do(s, http.MethodPost, "/api/features").Code)
	})
}
