// Package engine declares the capabilities the surrounding game provides to the
// sync layer: animation playback, movement, world queries and HUD widgets.
// Nothing in here renders or simulates; implementations live in the host
// (see internal/sandbox for the headless one).
package engine

import "github.com/Versifine/arena/internal/geom"

// Montage names an animation asset. The empty name means no asset is bound.
type Montage string

type Animator interface {
	// PlayMontage starts m at section and returns its length in seconds.
	// A non-positive length means the montage could not be played.
	PlayMontage(m Montage, section string) float64
	JumpToSection(m Montage, section string)
	StopMontage(blendOut float64)
	IsPlaying(m Montage) bool
}

type MovementMode int

const (
	MovementNone MovementMode = iota
	MovementWalking
	MovementFalling
)

type Movement interface {
	Position() geom.Vec3
	// SetPosition teleports without sweeping.
	SetPosition(pos geom.Vec3)
	Velocity() geom.Vec3
	Rotation() geom.Rotator
	Forward() geom.Vec3
	AddImpulse(impulse geom.Vec3, velocityChange bool)
	AddMovementInput(dir geom.Vec3, scale float64)
	SetMovementMode(mode MovementMode)
	DisableMovement()
	SetRagdoll(enabled bool)
	IsRagdoll() bool
	SetPhysicsBlend(weight float64)
	IsFalling() bool
	CapsuleHalfHeight() float64
}

type Color struct {
	R, G, B, A float64
}

type LifeBar interface {
	SetLifePercentage(pct float64)
	SetBarColor(c Color)
	SetHidden(hidden bool)
}

// Effects receives purely cosmetic combat feedback.
type Effects interface {
	DealtDamage(amount float64, at geom.Vec3)
	ReceivedDamage(amount float64, at geom.Vec3, dir geom.Vec3)
}

// Avatar is the host-side body of one character.
type Avatar interface {
	Animator() Animator
	Movement() Movement
	LifeBar() LifeBar
	Effects() Effects
}

// ObjectKind filters what a sweep may hit.
type ObjectKind uint8

const (
	ObjectPawn ObjectKind = 1 << iota
	ObjectDynamic
	ObjectStatic
)

type SweepQuery struct {
	Start  geom.Vec3
	End    geom.Vec3
	Radius float64
	Kinds  ObjectKind
	// Ignore is excluded from the results, usually the sweeping entity.
	Ignore any
}

type Hit struct {
	Entity       any
	ImpactPoint  geom.Vec3
	ImpactNormal geom.Vec3
}

type World interface {
	Sweep(q SweepQuery) []Hit
	// GroundTrace probes straight down at (x, y) from fromZ to toZ and returns
	// the height of the first solid surface.
	GroundTrace(x, y, fromZ, toZ float64, ignore any) (float64, bool)
}
