package sandbox

import (
	"math"

	"github.com/Versifine/arena/internal/geom"
)

const (
	entityPushMaxPerEntity = 8.0
	entityPushMaxPerTick   = 12.0
	entityPushStrength     = 0.7
)

// applyEntityPush nudges b out of every overlapping capsule. Ragdolls neither
// push nor get pushed.
func (w *World) applyEntityPush(b *Body) geom.Vec3 {
	pos := b.pos
	if b.ragdoll {
		return pos
	}

	var pushX, pushY float64
	push := func(other geom.Vec3) {
		if math.Abs(pos.Z-other.Z) >= 2*CapsuleHalfHeight {
			return
		}
		dx := pos.X - other.X
		dy := pos.Y - other.Y
		dist2 := dx*dx + dy*dy

		minDist := 2 * CapsuleRadius
		if dist2 >= minDist*minDist {
			return
		}

		dist := math.Sqrt(dist2)
		if dist < CollisionAxisTolerance {
			dx = 1
			dy = 0
			dist = 1
		}

		overlap := minDist - dist
		if overlap <= 0 {
			return
		}

		mag := overlap * entityPushStrength
		if mag > entityPushMaxPerEntity {
			mag = entityPushMaxPerEntity
		}
		pushX += (dx / dist) * mag
		pushY += (dy / dist) * mag
	}

	for _, other := range w.bodies {
		if other == b || other.ragdoll {
			continue
		}
		push(other.pos)
	}
	for _, d := range w.dummies {
		push(d.pos)
	}

	length := math.Sqrt(pushX*pushX + pushY*pushY)
	if length <= CollisionAxisTolerance {
		return pos
	}
	if length > entityPushMaxPerTick {
		scale := entityPushMaxPerTick / length
		pushX *= scale
		pushY *= scale
	}

	pos, _ = w.clampToArena(pos.Add(geom.Vec3{X: pushX, Y: pushY}), geom.Zero)
	return pos
}
