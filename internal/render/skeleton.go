// Package render draws detected hand skeletons onto video frames.
package render

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/handseal/internal/detector"
)

// Drawing defaults, matching the MediaPipe drawing utilities.
var (
	ConnectorColor = color.RGBA{G: 255, A: 255}
	LandmarkColor  = color.RGBA{R: 255, A: 255}
)

const (
	ConnectorWidth = 5
	LandmarkRadius = 4
)

// Connection joins two landmark indices.
type Connection [2]int

// Connections is the MediaPipe hand skeleton.
var Connections = []Connection{
	{detector.Wrist, detector.ThumbCMC},
	{detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP},
	{detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP},
	{detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP},
	{detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP},
	{detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP},
	{detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP},
	{detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP},
	{detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP},
	{detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP},
	{detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// ToPixel converts a normalized landmark to pixel coordinates in a frame of
// the given size. Points outside [0,1] map outside the frame.
func ToPixel(p detector.Point3D, width, height int) image.Point {
	return image.Point{
		X: int(math.Round(p.X * float64(width))),
		Y: int(math.Round(p.Y * float64(height))),
	}
}

// DrawHands draws each hand's connections and landmarks onto img in place.
// Hands with non-finite coordinates are skipped.
func DrawHands(img *gocv.Mat, hands []detector.HandLandmarks) {
	if img == nil || img.Empty() {
		return
	}

	width, height := img.Cols(), img.Rows()

	for i := range hands {
		hand := &hands[i]
		if !hand.Finite() {
			continue
		}

		for _, c := range Connections {
			gocv.Line(img,
				ToPixel(hand.Points[c[0]], width, height),
				ToPixel(hand.Points[c[1]], width, height),
				ConnectorColor, ConnectorWidth)
		}

		for _, p := range hand.Points {
			gocv.Circle(img, ToPixel(p, width, height), LandmarkRadius, LandmarkColor, -1)
		}
	}
}
