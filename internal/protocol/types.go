package protocol

import "fmt"

// Client to server.
const (
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypeStateUpdate = "state_update"
	TypeAttack      = "attack"
)

// Server to client.
const (
	TypeJoinResponse       = "join_response"
	TypePlayerJoined       = "player_joined"
	TypePlayerState        = "player_state"
	TypePlayerLeft         = "player_left"
	TypePositionCorrection = "position_correction"
	TypeDamage             = "damage"
	TypeRespawn            = "respawn"
)

// AnimState is the animation state carried on the wire as an int.
type AnimState int

const (
	AnimIdle AnimState = iota
	AnimMoving
	AnimComboAttack
	AnimChargedAttackCharging
	AnimChargedAttackRelease
	AnimTakingDamage
	AnimDead
)

// AnimStateFromInt maps a wire value to an AnimState; unknown values become Idle.
func AnimStateFromInt(v int) AnimState {
	if v < int(AnimIdle) || v > int(AnimDead) {
		return AnimIdle
	}
	return AnimState(v)
}

func (a AnimState) String() string {
	switch a {
	case AnimIdle:
		return "Idle"
	case AnimMoving:
		return "Moving"
	case AnimComboAttack:
		return "ComboAttack"
	case AnimChargedAttackCharging:
		return "ChargedAttackCharging"
	case AnimChargedAttackRelease:
		return "ChargedAttackRelease"
	case AnimTakingDamage:
		return "TakingDamage"
	case AnimDead:
		return "Dead"
	default:
		return fmt.Sprintf("AnimState(%d)", int(a))
	}
}
