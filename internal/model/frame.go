package model

import "time"

// Point is a 2D coordinate in frame space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingRegion is an axis-aligned face bounding box given by two
// corner points.
type BoundingRegion struct {
	TopLeft     Point `json:"top_left"`
	BottomRight Point `json:"bottom_right"`
}

// Area returns the region's area (width × height).
func (b BoundingRegion) Area() float64 {
	return (b.BottomRight.X - b.TopLeft.X) * (b.BottomRight.Y - b.TopLeft.Y)
}

// FaceObservation is a single detected face. Both the bounding region
// and the landmark set are optional — the capability provider may
// supply either, both, or neither.
type FaceObservation struct {
	Bounds    *BoundingRegion `json:"bounds,omitempty"`
	Landmarks []Point         `json:"landmarks,omitempty"`
}

// FrameAnalysis is the per-sample output of the capability provider.
type FrameAnalysis struct {
	Faces []FaceObservation `json:"faces"`
}

// Frame is a raw video frame as published by the proctoring stream.
// Data is immutable once published.
type Frame struct {
	Data       []byte
	MimeType   string
	CapturedAt time.Time
}
