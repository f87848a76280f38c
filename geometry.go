package server

import "math"

// PointInRotatedRect reports whether a world-space point lies inside a
// rectangle centered at (centerX, centerY), rotated by rotation radians, with
// the given half extents. The padding factor scales the half extents; hit
// prediction passes a factor above 1 so observers err on the side of claiming.
//
// The point is transformed into the rectangle's local frame by the inverse
// rotation, reducing the test to two axis comparisons.
func PointInRotatedRect(pointX, pointY, centerX, centerY, halfX, halfY, rotation, padding float64) bool {
	if halfX <= 0 || halfY <= 0 {
		return false
	}
	if padding <= 0 {
		padding = 1
	}
	dx := pointX - centerX
	dy := pointY - centerY
	sin, cos := math.Sincos(-rotation)
	localX := dx*cos - dy*sin
	localY := dx*sin + dy*cos
	return math.Abs(localX) <= halfX*padding && math.Abs(localY) <= halfY*padding
}

// WithinDeckHeightBand reports whether a projectile's vertical elevation is
// close enough to deck height to participate in hull collision. Shots arcing
// overhead or already below the deck cannot register spurious hits.
func WithinDeckHeightBand(z, deckHeight, tolerance float64) bool {
	if tolerance <= 0 {
		return false
	}
	return math.Abs(z-deckHeight) <= tolerance
}

// rotatePoint rotates (x, y) about the origin by rotation radians. Used to
// place ship-relative offsets (cannon mounts) in world space.
func rotatePoint(x, y, rotation float64) (float64, float64) {
	sin, cos := math.Sincos(rotation)
	return x*cos - y*sin, x*sin + y*cos
}

// normalizeAngle wraps an angle into (-π, π].
func normalizeAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle <= -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

func clampFloat(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func clampInt(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
