package character

import (
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/protocol"
)

const stopBlendOut = 0.2

// NetworkState snapshots the character for publication.
func (c *Character) NetworkState(now float64) protocol.NetworkState {
	if c.role == RoleRemote {
		return c.cur
	}
	s := protocol.NetworkState{
		CurrentHP: c.hp,
		MaxHP:     c.maxHP,
		Timestamp: now,
	}
	if c.move != nil {
		s.Position = c.move.Position()
		s.Rotation = c.move.Rotation()
		s.Velocity = c.move.Velocity()
	}
	if c.combat != nil {
		s.AnimState = c.combat.AnimState(c.hp, s.Velocity)
		s.ComboStage = c.combat.State().ComboCount
		s.ChargeProgress = c.combat.ChargeProgress()
	}
	if c.dead {
		s.AnimState = protocol.AnimDead
	}
	return s
}

// Snapshots returns the previous and current server states of a remote
// character and the local time the current one was received.
func (c *Character) Snapshots() (prev, cur protocol.NetworkState, receivedAt float64) {
	return c.prev, c.cur, c.receivedAt
}

// ApplyNetworkState reconciles a remote character with a server snapshot and
// reports whether it had to teleport.
func (c *Character) ApplyNetworkState(s protocol.NetworkState, now float64) bool {
	if c.role != RoleRemote || c.destroyed || c.move == nil {
		return false
	}
	c.prev = c.cur
	c.cur = s
	c.receivedAt = now
	if s.Timestamp == 0 {
		c.cur.Timestamp = now
	}

	teleported := false
	pos := c.move.Position()
	if geom.HorizontalDistSq(pos, s.Position) > c.remote.TeleportThreshold {
		c.move.SetPosition(geom.Vec3{X: s.Position.X, Y: s.Position.Y, Z: pos.Z})
		teleported = true
	}

	if s.AnimState != c.lastAnim || s.ComboStage != c.lastStep {
		c.lastAnim = s.AnimState
		c.lastStep = s.ComboStage
		c.mirrorAnim(s.AnimState, s.ComboStage)
	}

	if s.CurrentHP != c.hp || (s.MaxHP > 0 && s.MaxHP != c.maxHP) {
		c.applyNetworkHP(s.CurrentHP, s.MaxHP)
	}
	return teleported
}

func (c *Character) applyNetworkHP(hp, maxHP float64) {
	dropped := hp < c.hp && c.hp > 0 && hp > 0
	if maxHP > 0 {
		c.maxHP = maxHP
	}
	c.SetHP(hp)
	if !dropped {
		return
	}
	c.move.AddImpulse(c.move.Forward().Scale(-c.remote.HPDropKnockback), true)
	if c.fx != nil {
		c.fx.ReceivedDamage(0, c.move.Position(), c.move.Forward().Scale(-1))
	}
}

// mirrorAnim issues montage commands for a changed remote anim state.
func (c *Character) mirrorAnim(state protocol.AnimState, stage int) {
	if c.anim == nil {
		return
	}
	t := c.combatTuning
	switch state {
	case protocol.AnimIdle, protocol.AnimMoving:
		c.anim.StopMontage(stopBlendOut)
	case protocol.AnimComboAttack:
		if !c.anim.IsPlaying(t.ComboMontage) && len(t.ComboSections) > 0 {
			c.anim.PlayMontage(t.ComboMontage, t.ComboSections[0])
		}
		if stage > 0 && stage < len(t.ComboSections) {
			c.anim.JumpToSection(t.ComboMontage, t.ComboSections[stage])
		}
	case protocol.AnimChargedAttackCharging:
		c.playOrJump(t.ChargedMontage, t.ChargeLoopSection)
	case protocol.AnimChargedAttackRelease:
		c.playOrJump(t.ChargedMontage, t.ChargeAttackSection)
	case protocol.AnimTakingDamage:
	case protocol.AnimDead:
		c.dead = true
		c.move.DisableMovement()
	}
}

func (c *Character) playOrJump(m engine.Montage, section string) {
	if c.anim.IsPlaying(m) {
		c.anim.JumpToSection(m, section)
		return
	}
	c.anim.PlayMontage(m, section)
}
