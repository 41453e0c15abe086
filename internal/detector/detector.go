package detector

import (
	"math"
	"sync"

	"github.com/talentbridge/aptitude-backend/internal/model"
)

// Verdict kinds, in evaluation priority order.
type Kind string

const (
	KindNoFaceDetected    Kind = "NO_FACE_DETECTED"
	KindFaceTooFarOrSmall Kind = "FACE_TOO_FAR_OR_SMALL"
	KindRapidHeadMovement Kind = "RAPID_HEAD_MOVEMENT"
	KindEyesClosed        Kind = "EYES_CLOSED_OR_COVERED"
	KindTabHidden         Kind = "TAB_HIDDEN_OR_BLURRED"
)

// Verdict is a flagged proctoring anomaly.
type Verdict struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// TabHiddenVerdict is raised by the visibility watcher, outside
// frame evaluation.
func TabHiddenVerdict() *Verdict {
	return &Verdict{Kind: KindTabHidden, Message: "Page hidden or switched tab"}
}

// Detection thresholds.
const (
	minFaceArea     = 2000 // bounding-region area below which the face is too far
	maxNoseJumpPx   = 120  // horizontal nose travel per sample that counts as a head snap
	minLandmarks    = 200  // landmark sets smaller than this are ignored
	earThreshold    = 0.12 // two-eye average aspect ratio treated as closed
	maxClosedFrames = 6    // consecutive closed frames tolerated before flagging
)

// MediaPipe facemesh semantic landmark indices. Fixed contract with the
// capability provider; never inferred at call sites.
const (
	landmarkNoseTip = 1

	landmarkLeftEyeTop    = 159
	landmarkLeftEyeBottom = 145
	landmarkLeftEyeOuter  = 33
	landmarkLeftEyeInner  = 133

	landmarkRightEyeTop    = 386
	landmarkRightEyeBottom = 374
	landmarkRightEyeInner  = 362
	landmarkRightEyeOuter  = 263
)

// Detector maps one frame's analysis to an optional violation verdict.
// State is scoped to a single session: the last known nose x position
// and the consecutive closed-eye frame count. Evaluate is safe for
// concurrent use; each call's read-modify-write of the running state is
// atomic, so overlapping analysis calls cannot interleave mid-update.
type Detector struct {
	mu           sync.Mutex
	lastNoseX    *float64
	closedFrames int
}

// New creates a Detector with fresh state.
func New() *Detector {
	return &Detector{}
}

// Reset clears the running state for a new session.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.lastNoseX = nil
	d.closedFrames = 0
	d.mu.Unlock()
}

// Evaluate applies the violation policy to one frame analysis.
// Checks run in fixed priority order and the first match wins, so at
// most one verdict is produced per frame. Returns nil when the frame
// passes every check.
func (d *Detector) Evaluate(analysis model.FrameAnalysis) *Verdict {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(analysis.Faces) == 0 {
		return &Verdict{Kind: KindNoFaceDetected, Message: "No face detected - possible cheating"}
	}

	face := analysis.Faces[0]

	if face.Bounds != nil && face.Bounds.Area() < minFaceArea {
		return &Verdict{Kind: KindFaceTooFarOrSmall, Message: "Face too small or too far from camera"}
	}

	if len(face.Landmarks) >= minLandmarks {
		if v := d.checkHeadMovement(face.Landmarks); v != nil {
			return v
		}
		if v := d.checkEyesClosed(face.Landmarks); v != nil {
			return v
		}
	}

	return nil
}

// checkHeadMovement flags a nose x jump beyond the threshold. The last
// nose position is updated regardless of the verdict.
func (d *Detector) checkHeadMovement(landmarks []model.Point) *Verdict {
	nx := landmarks[landmarkNoseTip].X
	prev := d.lastNoseX
	d.lastNoseX = &nx

	if prev != nil && math.Abs(nx-*prev) > maxNoseJumpPx {
		return &Verdict{Kind: KindRapidHeadMovement, Message: "Rapid head movement detected (possible cheating)"}
	}
	return nil
}

// checkEyesClosed tracks the consecutive count of frames where the
// two-eye average aspect ratio falls below the closed threshold.
func (d *Detector) checkEyesClosed(landmarks []model.Point) *Verdict {
	left := eyeAspectRatio(landmarks,
		landmarkLeftEyeTop, landmarkLeftEyeBottom,
		landmarkLeftEyeOuter, landmarkLeftEyeInner)
	right := eyeAspectRatio(landmarks,
		landmarkRightEyeTop, landmarkRightEyeBottom,
		landmarkRightEyeInner, landmarkRightEyeOuter)
	ear := (left + right) / 2

	if ear < earThreshold {
		d.closedFrames++
	} else {
		d.closedFrames = 0
	}

	if d.closedFrames > maxClosedFrames {
		return &Verdict{Kind: KindEyesClosed, Message: "Eyes appear closed or camera covered"}
	}
	return nil
}

// eyeAspectRatio is the vertical lid distance over the horizontal
// corner distance. Defined as 1 when any landmark is missing (an open
// eye is the safe assumption) and 0 when the horizontal distance is 0.
func eyeAspectRatio(landmarks []model.Point, top, bottom, cornerA, cornerB int) float64 {
	n := len(landmarks)
	if top >= n || bottom >= n || cornerA >= n || cornerB >= n {
		return 1
	}
	v := dist(landmarks[top], landmarks[bottom])
	h := dist(landmarks[cornerA], landmarks[cornerB])
	if h == 0 {
		return 0
	}
	return v / h
}

func dist(a, b model.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
