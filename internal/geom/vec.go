package geom

import "math"

// Vec3 is a world-space vector. Z is up; X/Y form the horizontal plane.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Rotator holds Euler angles in degrees.
type Rotator struct {
	Pitch float64
	Yaw   float64
	Roll  float64
}

var (
	Zero = Vec3{}
	Up   = Vec3{Z: 1}
	// Forward is the fallback facing used when no better direction is known.
	Forward = Vec3{X: 1}
)

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) LenSq() float64 {
	return v.Dot(v)
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.LenSq())
}

// Horizontal drops the vertical component.
func (v Vec3) Horizontal() Vec3 {
	return Vec3{X: v.X, Y: v.Y}
}

// SafeNormal returns the unit vector, or Zero when the length is too small
// to normalise reliably.
func (v Vec3) SafeNormal() Vec3 {
	l := v.Len()
	if l < 1e-8 {
		return Zero
	}
	return v.Scale(1 / l)
}

// IsZero reports whether every component is exactly zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func (r Rotator) IsFinite() bool {
	return isFinite(r.Pitch) && isFinite(r.Yaw) && isFinite(r.Roll)
}

// HorizontalDistSq is the squared distance between a and b ignoring Z.
func HorizontalDistSq(a, b Vec3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// ForwardFromYaw converts a yaw in degrees into a horizontal unit vector.
func ForwardFromYaw(yaw float64) Vec3 {
	rad := yaw * math.Pi / 180.0
	return Vec3{X: math.Cos(rad), Y: math.Sin(rad)}
}

// YawOf returns the yaw in degrees of the horizontal part of v.
func YawOf(v Vec3) float64 {
	return math.Atan2(v.Y, v.X) * 180.0 / math.Pi
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func IsFinite(f float64) bool {
	return isFinite(f)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
