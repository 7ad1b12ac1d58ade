package protocol

import (
	"fmt"

	"github.com/Versifine/arena/internal/geom"
)

// NetworkState is one snapshot of a character as exchanged with the server.
type NetworkState struct {
	Position       geom.Vec3
	Rotation       geom.Rotator
	Velocity       geom.Vec3
	AnimState      AnimState
	ComboStage     int
	ChargeProgress float64
	CurrentHP      float64
	MaxHP          float64
	Timestamp      float64
}

// Validate reports the first field that would make the state unsafe to publish.
func (s NetworkState) Validate() error {
	switch {
	case !s.Position.IsFinite():
		return fmt.Errorf("%w: position %v", ErrInvalidState, s.Position)
	case !s.Rotation.IsFinite():
		return fmt.Errorf("%w: rotation %v", ErrInvalidState, s.Rotation)
	case !s.Velocity.IsFinite():
		return fmt.Errorf("%w: velocity %v", ErrInvalidState, s.Velocity)
	case !geom.IsFinite(s.ChargeProgress) || s.ChargeProgress < 0 || s.ChargeProgress > 1:
		return fmt.Errorf("%w: charge progress %v", ErrInvalidState, s.ChargeProgress)
	case !geom.IsFinite(s.MaxHP) || s.MaxHP < 0:
		return fmt.Errorf("%w: max hp %v", ErrInvalidState, s.MaxHP)
	case !geom.IsFinite(s.CurrentHP) || s.CurrentHP < 0 || s.CurrentHP > s.MaxHP:
		return fmt.Errorf("%w: hp %v of %v", ErrInvalidState, s.CurrentHP, s.MaxHP)
	case s.ComboStage < 0:
		return fmt.Errorf("%w: combo stage %d", ErrInvalidState, s.ComboStage)
	}
	return nil
}

// StateUpdateFrom builds the outbound payload for s.
func StateUpdateFrom(s NetworkState) StateUpdate {
	return StateUpdate{
		Position:       ArrayOf(s.Position),
		Rotation:       RotatorArray(s.Rotation),
		Velocity:       ArrayOf(s.Velocity),
		AnimState:      s.AnimState,
		ComboStage:     s.ComboStage,
		ChargeProgress: s.ChargeProgress,
		HP:             s.CurrentHP,
		MaxHP:          s.MaxHP,
	}
}
