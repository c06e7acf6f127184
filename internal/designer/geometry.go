package designer

import "math"

// Point is a position in print-area coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RotationDelta computes the element rotation for one drag frame: the angle
// swept between the drag start pointer and the current pointer, measured
// around the element center, added to the rotation the element had when the
// drag began. Working from the drag origin every frame keeps repeated calls
// drift-free.
func RotationDelta(center, startPtr, curPtr Point, startRotation float64) float64 {
	startAngle := angleDegrees(center, startPtr)
	curAngle := angleDegrees(center, curPtr)
	return normalizeDegrees(startRotation + (curAngle - startAngle))
}

func angleDegrees(center, p Point) float64 {
	return math.Atan2(p.Y-center.Y, p.X-center.X) * 180 / math.Pi
}

func normalizeDegrees(deg float64) float64 {
	normalized := math.Mod(deg, 360)
	if normalized < 0 {
		normalized += 360
	}
	return normalized
}
