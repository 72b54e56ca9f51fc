package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/handseal/internal/detector"
	"github.com/ayusman/handseal/internal/seal"
)

// BroadcastInterval is the landmark broadcast period (~15 FPS).
const BroadcastInterval = 66 * time.Millisecond

// maxFrameMessage bounds a pushed frame result; 21 points per hand fit easily.
const maxFrameMessage = 64 << 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LandmarksConfig configures a LandmarksHandler.
type LandmarksConfig struct {
	Latest       *detector.Latest
	Extractor    *seal.Extractor
	Logger       *zap.Logger
	AcceptFrames bool
	Enabled      func() bool
	Interval     time.Duration
}

// LandmarksMessage is broadcast to clients whenever the latest frame changes.
type LandmarksMessage struct {
	Seq       uint64                   `json:"seq"`
	Timestamp int64                    `json:"timestamp"`
	Hands     []detector.HandLandmarks `json:"hands"`
	Report    seal.Report              `json:"report"`
}

// LandmarksHandler broadcasts hand landmarks and seal reports over WebSocket,
// and optionally accepts frame results pushed by browser clients.
type LandmarksHandler struct {
	config  LandmarksConfig
	logger  *zap.Logger
	clients map[*websocket.Conn]string
	mu      sync.RWMutex
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewLandmarksHandler creates a LandmarksHandler and starts its broadcaster.
func NewLandmarksHandler(config LandmarksConfig) *LandmarksHandler {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Extractor == nil {
		config.Extractor = seal.NewExtractor(seal.PolicyOwnPalm)
	}
	if config.Interval <= 0 {
		config.Interval = BroadcastInterval
	}

	h := &LandmarksHandler{
		config:  config,
		logger:  config.Logger.Named("landmarks"),
		clients: make(map[*websocket.Conn]string),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	id := uuid.New().String()
	log := h.logger.With(zap.String("client", id))

	h.mu.Lock()
	h.clients[conn] = id
	h.mu.Unlock()
	log.Info("client connected", zap.String("remote", r.RemoteAddr))

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		log.Info("client disconnected")
	}()

	conn.SetReadLimit(maxFrameMessage)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage || !h.config.AcceptFrames {
			continue
		}
		if h.config.Enabled != nil && !h.config.Enabled() {
			continue
		}

		result, err := detector.DecodeFrameResult(data)
		if err != nil {
			log.Warn("invalid frame result", zap.Error(err))
			continue
		}
		h.config.Latest.Store(result)
	}
}

// Clients returns the number of connected clients.
func (h *LandmarksHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops broadcasting and closes all client connections.
func (h *LandmarksHandler) Close() {
	h.once.Do(func() {
		close(h.stop)
		<-h.done

		h.mu.Lock()
		defer h.mu.Unlock()
		for conn := range h.clients {
			conn.Close()
		}
	})
}

// broadcast sends the latest frame result to all connected clients whenever
// it changes.
func (h *LandmarksHandler) broadcast() {
	defer close(h.done)

	ticker := time.NewTicker(h.config.Interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		result, seq := h.config.Latest.Load()
		if seq == lastSeq {
			continue
		}
		lastSeq = seq

		msg, err := json.Marshal(LandmarksMessage{
			Seq:       seq,
			Timestamp: result.TimestampMs,
			Hands:     result.Hands,
			Report:    h.config.Extractor.Evaluate(result.Hands),
		})
		if err != nil {
			h.logger.Error("encode landmarks", zap.Error(err))
			continue
		}

		h.mu.RLock()
		for conn, id := range h.clients {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("write landmarks", zap.String("client", id), zap.Error(err))
			}
		}
		h.mu.RUnlock()
	}
}
