package character

import (
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/protocol"
)

const hitPhysicsBlend = 0.5

func (c *Character) HP() float64 {
	return c.hp
}

func (c *Character) MaxHP() float64 {
	return c.maxHP
}

func (c *Character) IsDead() bool {
	return c.dead
}

// SetHP clamps hp to [0, MaxHP] and refreshes the life bar.
func (c *Character) SetHP(hp float64) {
	c.hp = geom.Clamp(hp, 0, c.maxHP)
	c.updateLifeBar()
}

// SetMaxHP ignores non-positive values and re-clamps the current HP.
func (c *Character) SetMaxHP(maxHP float64) {
	if maxHP <= 0 {
		return
	}
	c.maxHP = maxHP
	c.SetHP(c.hp)
}

func (c *Character) ResetHP() {
	c.SetHP(c.maxHP)
}

func (c *Character) updateLifeBar() {
	if c.bar == nil {
		return
	}
	if c.maxHP <= 0 {
		c.bar.SetLifePercentage(0)
		return
	}
	c.bar.SetLifePercentage(c.hp / c.maxHP)
}

// ApplyDamage is the melee path. A local character loses HP; a remote one only
// plays the hit since its HP comes from the server.
func (c *Character) ApplyDamage(amount float64, source any, at, impulse geom.Vec3) {
	if c.destroyed || c.move == nil {
		return
	}
	if c.role == RoleRemote {
		c.hitReaction = c.remote.HitReactionTime
		c.move.AddImpulse(impulse.Scale(c.remote.HitImpulseScale), true)
		c.move.SetPhysicsBlend(hitPhysicsBlend)
		c.receivedDamage(amount, at, impulse)
		return
	}

	if c.hp <= 0 || c.dead {
		return
	}
	c.hp = geom.Clamp(c.hp-amount, 0, c.maxHP)
	if c.hp <= 0 {
		c.HandleDeath()
	} else {
		c.updateLifeBar()
		c.hitReaction = c.remote.HitReactionTime
		c.move.SetPhysicsBlend(hitPhysicsBlend)
	}
	c.move.AddImpulse(impulse, true)
	c.receivedDamage(amount, at, impulse)
}

// NotifyDanger is the warning sent ahead of a swing. Characters do not dodge.
func (c *Character) NotifyDanger(at geom.Vec3, source any) {
	c.log.Debug("Danger", "id", c.id, "from", at)
}

// ApplyServerDamage applies an authoritative damage report. dir is the
// knockback direction, attacker toward target.
func (c *Character) ApplyServerDamage(amount, hp float64, dead bool, dir geom.Vec3) {
	if c.destroyed {
		return
	}
	c.SetHP(hp)
	if dead || c.hp <= 0 {
		c.HandleDeath()
		return
	}
	if c.move == nil {
		return
	}
	impulse := dir.SafeNormal().Scale(c.remote.ServerKnockback)
	c.hitReaction = c.remote.HitReactionTime
	c.move.AddImpulse(impulse, true)
	c.move.SetPhysicsBlend(hitPhysicsBlend)
	c.receivedDamage(amount, c.move.Position(), dir)
}

func (c *Character) receivedDamage(amount float64, at, dir geom.Vec3) {
	if c.fx != nil {
		c.fx.ReceivedDamage(amount, at, dir.SafeNormal())
	}
}

// HandleDeath runs once per life. A local character ragdolls and, when no
// server is connected, schedules its own respawn.
func (c *Character) HandleDeath() {
	if c.dead || c.destroyed {
		return
	}
	c.dead = true
	c.hp = 0
	c.hitReaction = 0
	if c.move != nil {
		c.move.DisableMovement()
	}

	if c.role == RoleRemote {
		c.lastAnim = protocol.AnimDead
		c.updateLifeBar()
		c.log.Debug("Remote died", "id", c.id)
		return
	}

	c.combat.Kill()
	if c.move != nil {
		c.move.SetRagdoll(true)
	}
	if c.bar != nil {
		c.bar.SetHidden(true)
	}
	if !c.connected() && c.respawnTime > 0 {
		c.respawnIn = c.respawnTime
	}
	c.log.Info("Died", "id", c.id, "offline_respawn", c.respawnIn > 0)
}

// RespawnPending reports whether an offline respawn is counting down.
func (c *Character) RespawnPending() bool {
	return c.respawnIn > 0
}

// Respawn brings the character back at the given position. A non-positive hp
// means full health.
func (c *Character) Respawn(at geom.Vec3, hp, maxHP float64) {
	if c.destroyed {
		return
	}
	c.SetMaxHP(maxHP)
	if hp <= 0 {
		hp = c.maxHP
	}
	c.dead = false
	c.respawnIn = 0
	c.hitReaction = 0
	c.Teleport(at)
	if c.move != nil {
		c.move.SetRagdoll(false)
		c.move.SetPhysicsBlend(0)
		c.move.SetMovementMode(engine.MovementWalking)
	}
	if c.bar != nil {
		c.bar.SetHidden(false)
	}
	c.SetHP(hp)
	if c.combat != nil {
		c.combat.Revive()
	}
	c.lastAnim = protocol.AnimIdle
	c.lastStep = 0
	c.cur.AnimState = protocol.AnimIdle
	c.cur.ComboStage = 0
	c.cur.CurrentHP = c.hp
	c.cur.MaxHP = c.maxHP
}
