package sandbox

import (
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
)

// Body is a walking capsule on the sandbox floor. It implements
// engine.Movement and the socket lookup used by melee sweeps.
type Body struct {
	world *World
	owner any

	pos      geom.Vec3
	vel      geom.Vec3
	yaw      float64
	mode     engine.MovementMode
	onGround bool
	ragdoll  bool
	blend    float64
	pending  geom.Vec3
}

func newBody(w *World, at geom.Vec3) *Body {
	return &Body{world: w, pos: at, mode: engine.MovementWalking}
}

// entity is what sweeps report for this body: its owner once attached.
func (b *Body) entity() any {
	if b.owner != nil {
		return b.owner
	}
	return b
}

func (b *Body) Position() geom.Vec3 {
	return b.pos
}

func (b *Body) SetPosition(pos geom.Vec3) {
	b.pos = pos
	b.vel.Z = 0
}

func (b *Body) Velocity() geom.Vec3 {
	return b.vel
}

func (b *Body) Rotation() geom.Rotator {
	return geom.Rotator{Yaw: b.yaw}
}

func (b *Body) Forward() geom.Vec3 {
	return geom.ForwardFromYaw(b.yaw)
}

func (b *Body) AddImpulse(impulse geom.Vec3, velocityChange bool) {
	if !velocityChange {
		impulse = impulse.Scale(1 / BodyMass)
	}
	b.vel = b.vel.Add(impulse)
	if impulse.Z > 0 && b.mode == engine.MovementWalking {
		b.mode = engine.MovementFalling
		b.onGround = false
	}
}

func (b *Body) AddMovementInput(dir geom.Vec3, scale float64) {
	if !dir.IsFinite() || !geom.IsFinite(scale) {
		return
	}
	b.pending = b.pending.Add(dir.Scale(scale))
}

func (b *Body) SetMovementMode(mode engine.MovementMode) {
	b.mode = mode
	if mode == engine.MovementNone {
		b.vel = geom.Zero
		b.pending = geom.Zero
	}
}

func (b *Body) DisableMovement() {
	b.SetMovementMode(engine.MovementNone)
}

func (b *Body) SetRagdoll(enabled bool) {
	b.ragdoll = enabled
}

func (b *Body) IsRagdoll() bool {
	return b.ragdoll
}

func (b *Body) SetPhysicsBlend(weight float64) {
	b.blend = geom.Clamp(weight, 0, 1)
}

func (b *Body) PhysicsBlend() float64 {
	return b.blend
}

func (b *Body) IsFalling() bool {
	return b.mode == engine.MovementFalling
}

func (b *Body) OnGround() bool {
	return b.onGround
}

func (b *Body) Mode() engine.MovementMode {
	return b.mode
}

func (b *Body) CapsuleHalfHeight() float64 {
	return CapsuleHalfHeight
}

// SocketLocation places the hand sockets in front of the chest.
func (b *Body) SocketLocation(name string) (geom.Vec3, bool) {
	fwd := b.Forward()
	switch name {
	case "hand_r", "weapon":
		side := geom.Vec3{X: fwd.Y, Y: -fwd.X}
		return b.pos.Add(fwd.Scale(SocketReach)).Add(side.Scale(CapsuleRadius / 2)).Add(geom.Up.Scale(SocketHeight)), true
	case "hand_l":
		side := geom.Vec3{X: -fwd.Y, Y: fwd.X}
		return b.pos.Add(fwd.Scale(SocketReach)).Add(side.Scale(CapsuleRadius / 2)).Add(geom.Up.Scale(SocketHeight)), true
	default:
		return geom.Zero, false
	}
}
