package sandbox

import (
	"math"

	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
)

// step integrates one frame. Movement input accumulated since the last step
// is consumed.
func (b *Body) step(dt float64) {
	if dt <= 0 {
		return
	}
	input := b.pending
	b.pending = geom.Zero
	if b.mode == engine.MovementNone && !b.ragdoll {
		return
	}
	if b.ragdoll || b.mode == engine.MovementNone {
		input = geom.Zero
	}

	b.onGround = b.isStanding()

	dir := input.Horizontal()
	if l := dir.Len(); l > 1 {
		dir = dir.Scale(1 / l)
	}
	accel := MaxAcceleration
	if !b.onGround {
		accel *= AirControl
	}
	if !dir.IsZero() {
		b.vel = accelerate(b.vel, dir.Scale(WalkSpeed), accel*dt)
		b.yaw = geom.YawOf(dir)
	} else if b.onGround {
		b.vel = brake(b.vel, BrakingDeceleration*dt)
	}
	if !b.onGround {
		b.vel.Z += GravityZ * dt
	}

	pos := b.pos.Add(b.vel.Scale(dt))
	pos, b.vel = b.world.clampToArena(pos, b.vel)
	if floor, ok := b.world.floorAt(pos.X, pos.Y); ok && pos.Z-CapsuleHalfHeight <= floor && b.vel.Z <= 0 {
		pos.Z = floor + CapsuleHalfHeight
		b.vel.Z = 0
	}
	b.pos = pos
	b.pos = b.world.applyEntityPush(b)
	b.onGround = b.isStanding()

	if b.mode != engine.MovementNone {
		if b.onGround {
			b.mode = engine.MovementWalking
		} else {
			b.mode = engine.MovementFalling
		}
	}
	zeroResidualVelocity(&b.vel)
}

func (b *Body) isStanding() bool {
	floor, ok := b.world.floorAt(b.pos.X, b.pos.Y)
	if !ok || b.vel.Z > 0 {
		return false
	}
	return b.pos.Z-CapsuleHalfHeight <= floor+GroundProbeDistance
}

// accelerate moves the horizontal velocity toward target by at most maxDelta.
func accelerate(vel, target geom.Vec3, maxDelta float64) geom.Vec3 {
	diff := target.Sub(vel.Horizontal())
	if l := diff.Len(); l > maxDelta {
		diff = diff.Scale(maxDelta / l)
	}
	return geom.Vec3{X: vel.X + diff.X, Y: vel.Y + diff.Y, Z: vel.Z}
}

func brake(vel geom.Vec3, decel float64) geom.Vec3 {
	h := vel.Horizontal()
	speed := h.Len()
	if speed <= decel {
		return geom.Vec3{Z: vel.Z}
	}
	h = h.Scale((speed - decel) / speed)
	return geom.Vec3{X: h.X, Y: h.Y, Z: vel.Z}
}

func zeroResidualVelocity(v *geom.Vec3) {
	if v == nil {
		return
	}
	if math.Abs(v.X) < MinimumResidualHorizontalSpeed {
		v.X = 0
	}
	if math.Abs(v.Y) < MinimumResidualHorizontalSpeed {
		v.Y = 0
	}
	if math.Abs(v.Z) < MinimumResidualVerticalSpeed {
		v.Z = 0
	}
}
