package detector

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrLandmarkCount is returned when a decoded hand does not carry exactly
// NumLandmarks points.
var ErrLandmarkCount = errors.New("hand must have 21 landmarks")

// jsonHand represents a hand in the reply of the MediaPipe service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// jsonCategory mirrors the MediaPipe Tasks Category type.
type jsonCategory struct {
	Score        float64 `json:"score"`
	Index        int     `json:"index"`
	CategoryName string  `json:"categoryName"`
	DisplayName  string  `json:"displayName"`
}

// browserResult mirrors the HandLandmarkerResult produced by MediaPipe Tasks
// running in a browser, plus the frame timestamp.
type browserResult struct {
	Timestamp  int64            `json:"timestamp"`
	Landmarks  [][]jsonPoint    `json:"landmarks"`
	Handedness [][]jsonCategory `json:"handedness"`
}

func toHandLandmarks(points []jsonPoint, handedness string, score float64) (HandLandmarks, error) {
	lm := HandLandmarks{
		Handedness: handedness,
		Score:      score,
	}

	if len(points) != NumLandmarks {
		return lm, fmt.Errorf("%w: got %d", ErrLandmarkCount, len(points))
	}

	for i, p := range points {
		lm.Points[i] = Point3D{X: p.X, Y: p.Y, Z: p.Z}
	}

	return lm, nil
}

// decodeServiceReply parses one JSON line written by the MediaPipe service.
func decodeServiceReply(line []byte) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := make([]HandLandmarks, 0, len(response.Hands))
	for i, h := range response.Hands {
		lm, err := toHandLandmarks(h.Points, h.Handedness, h.Score)
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i, err)
		}
		result = append(result, lm)
	}

	return result, nil
}

// DecodeFrameResult parses a frame result pushed by a browser client running
// the MediaPipe hand landmarker.
func DecodeFrameResult(data []byte) (FrameResult, error) {
	var raw browserResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return FrameResult{}, fmt.Errorf("parse frame result: %w", err)
	}

	result := FrameResult{
		Hands:       make([]HandLandmarks, 0, len(raw.Landmarks)),
		TimestampMs: raw.Timestamp,
	}

	for i, points := range raw.Landmarks {
		var name string
		var score float64
		if i < len(raw.Handedness) && len(raw.Handedness[i]) > 0 {
			name = raw.Handedness[i][0].CategoryName
			score = raw.Handedness[i][0].Score
		}

		lm, err := toHandLandmarks(points, name, score)
		if err != nil {
			return FrameResult{}, fmt.Errorf("hand %d: %w", i, err)
		}
		result.Hands = append(result.Hands, lm)
	}

	return result, nil
}
