// Package character holds the single fighter type shared by the locally
// controlled player and every remote player. The Role chosen at construction
// decides who is authoritative for HP and where motion comes from.
package character

import (
	"fmt"
	"log/slog"

	"github.com/Versifine/arena/internal/combat"
	"github.com/Versifine/arena/internal/config"
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/logger"
	"github.com/Versifine/arena/internal/protocol"
)

type Role int

const (
	// RoleLocal is driven by player input and applies damage it receives.
	RoleLocal Role = iota
	// RoleRemote follows network state; local damage on it is cosmetic.
	RoleRemote
)

func (r Role) String() string {
	switch r {
	case RoleLocal:
		return "local"
	case RoleRemote:
		return "remote"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Link reports whether the server connection is up.
type Link interface {
	Connected() bool
}

var (
	localBarColor  = engine.Color{R: 0.1, G: 0.9, B: 0.2, A: 1}
	remoteBarColor = engine.Color{R: 0.9, G: 0.1, B: 0.1, A: 1}
)

type Options struct {
	Role     Role
	PlayerID string
	Avatar   engine.Avatar
	World    engine.World
	Combat   combat.Tuning
	Remote   config.RemoteConfig
	MaxHP    float64
	// RespawnTime is the offline respawn delay of a local character.
	RespawnTime float64
	// SpawnPoint is where an offline local character comes back.
	SpawnPoint geom.Vec3
}

// OptionsFrom fills the tuning fields from cfg.
func OptionsFrom(cfg *config.Config, role Role) Options {
	return Options{
		Role:        role,
		Combat:      combat.TuningFrom(cfg.Combat),
		Remote:      cfg.Remote,
		MaxHP:       cfg.Combat.MaxHP,
		RespawnTime: cfg.Combat.RespawnTime,
	}
}

type Character struct {
	role   Role
	id     string
	avatar engine.Avatar
	anim   engine.Animator
	move   engine.Movement
	bar    engine.LifeBar
	fx     engine.Effects
	remote config.RemoteConfig
	log    *slog.Logger

	combat       *combat.Machine
	combatTuning combat.Tuning
	link         Link

	hp          float64
	maxHP       float64
	dead        bool
	destroyed   bool
	respawnTime float64
	spawnPoint  geom.Vec3

	// respawnIn counts down an offline respawn; zero means none pending.
	respawnIn float64
	// hitReaction suppresses chasing while a hit plays out.
	hitReaction float64

	// prev and cur are the last two server snapshots; receivedAt is the
	// local time cur arrived.
	prev       protocol.NetworkState
	cur        protocol.NetworkState
	receivedAt float64
	lastAnim   protocol.AnimState
	lastStep   int
}

func New(opts Options) *Character {
	maxHP := opts.MaxHP
	if maxHP <= 0 {
		maxHP = config.Default().Combat.MaxHP
	}
	c := &Character{
		role:         opts.Role,
		id:           opts.PlayerID,
		avatar:       opts.Avatar,
		combatTuning: opts.Combat,
		remote:       opts.Remote,
		hp:           maxHP,
		maxHP:        maxHP,
		respawnTime:  opts.RespawnTime,
		spawnPoint:   opts.SpawnPoint,
		log:          logger.With("character").With("role", opts.Role.String()),
	}
	if opts.Avatar != nil {
		c.anim = opts.Avatar.Animator()
		c.move = opts.Avatar.Movement()
		c.bar = opts.Avatar.LifeBar()
		c.fx = opts.Avatar.Effects()
	}
	if c.move != nil {
		c.cur.Position = c.move.Position()
		c.cur.Rotation = c.move.Rotation()
	}
	c.cur.CurrentHP = c.hp
	c.cur.MaxHP = c.maxHP

	if opts.Role == RoleLocal {
		c.combat = combat.NewMachine(opts.Combat, combat.Deps{
			Owner:    c,
			Animator: c.anim,
			Movement: c.move,
			World:    opts.World,
			Effects:  c.fx,
		})
	}

	if c.bar != nil {
		if opts.Role == RoleLocal {
			c.bar.SetBarColor(localBarColor)
		} else {
			c.bar.SetBarColor(remoteBarColor)
		}
		c.bar.SetHidden(false)
		c.bar.SetLifePercentage(1)
	}
	return c
}

func (c *Character) Role() Role {
	return c.role
}

func (c *Character) IsLocal() bool {
	return c.role == RoleLocal
}

func (c *Character) PlayerID() string {
	return c.id
}

// SetPlayerID records the id the server assigned to the local player.
func (c *Character) SetPlayerID(id string) {
	c.id = id
}

func (c *Character) Avatar() engine.Avatar {
	return c.avatar
}

func (c *Character) Movement() engine.Movement {
	return c.move
}

// Combat returns the attack state machine, nil for remote characters.
func (c *Character) Combat() *combat.Machine {
	return c.combat
}

// SetLink wires the server connection. A local character forwards attack
// intents through it when it also implements combat.AttackSender.
func (c *Character) SetLink(l Link) {
	c.link = l
	if c.combat == nil {
		return
	}
	if s, ok := l.(combat.AttackSender); ok {
		c.combat.SetSender(s)
	} else {
		c.combat.SetSender(nil)
	}
}

func (c *Character) SetResolver(r combat.TargetResolver) {
	if c.combat != nil {
		c.combat.SetResolver(r)
	}
}

func (c *Character) SetSpawnPoint(p geom.Vec3) {
	c.spawnPoint = p
}

func (c *Character) Position() geom.Vec3 {
	if c.move == nil {
		return geom.Zero
	}
	return c.move.Position()
}

// Teleport moves the character without sweeping. A remote character also
// retargets its chase so it does not walk back.
func (c *Character) Teleport(p geom.Vec3) {
	if c.move != nil {
		c.move.SetPosition(p)
	}
	c.cur.Position = p
}

// Alive is false once the character was destroyed. Handles held elsewhere
// must check it before use.
func (c *Character) Alive() bool {
	return !c.destroyed
}

func (c *Character) Destroy() {
	c.destroyed = true
	c.respawnIn = 0
}

func (c *Character) connected() bool {
	return c.link != nil && c.link.Connected()
}

// HandleAnimEvent routes a montage notification to the combat machine.
// Remote characters only mirror animations and ignore them.
func (c *Character) HandleAnimEvent(ev engine.AnimEvent, now float64) {
	if c.combat == nil || c.destroyed {
		return
	}
	switch ev.Kind {
	case engine.AnimSegmentEnded:
		c.combat.SegmentEnded(now)
	case engine.AnimChargeLoopCompleted:
		c.combat.ChargeLoopCompleted()
	case engine.AnimAttackTrace:
		c.combat.AttackTrace(ev.Source)
	case engine.AnimMontageEnded:
		c.combat.MontageEnded(now, ev.Interrupted)
	}
}

// Tick advances timers and, for remote characters, chases the last known
// network position.
func (c *Character) Tick(dt float64) {
	if c.destroyed || c.move == nil {
		return
	}
	if c.hitReaction > 0 {
		c.hitReaction -= dt
		if c.hitReaction <= 0 {
			c.hitReaction = 0
			if !c.move.IsRagdoll() {
				c.move.SetPhysicsBlend(0)
			}
		}
		if c.role == RoleRemote {
			return
		}
	}

	switch c.role {
	case RoleLocal:
		if c.respawnIn > 0 {
			c.respawnIn -= dt
			if c.respawnIn <= 0 {
				c.respawnIn = 0
				c.log.Info("Respawning offline", "at", c.spawnPoint)
				c.Respawn(c.spawnPoint, c.maxHP, c.maxHP)
			}
		}
	case RoleRemote:
		if c.dead {
			return
		}
		c.chase()
	}
}

func (c *Character) chase() {
	toTarget := c.cur.Position.Sub(c.move.Position()).Horizontal()
	dist := toTarget.Len()
	if dist <= c.remote.ChaseMinDistance {
		return
	}
	scale := c.remote.ChaseDistanceScale
	if scale <= 0 {
		scale = 1
	}
	input := geom.Clamp(dist/scale, c.remote.ChaseMinInput, c.remote.ChaseMaxInput)
	c.move.AddMovementInput(toTarget.SafeNormal(), input)
}
