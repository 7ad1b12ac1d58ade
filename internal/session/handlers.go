package session

import (
	"errors"
	"time"

	"github.com/Versifine/arena/internal/event"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/protocol"
)

// HandleMessage decodes and applies one server frame. Bad frames are logged
// and dropped.
func (c *Coordinator) HandleMessage(text []byte) {
	c.mu.Lock()
	defer c.unlock()
	c.handleMessage(text)
}

func (c *Coordinator) handleMessage(text []byte) {
	env, err := protocol.Decode(text)
	if err != nil {
		c.met.Dropped.WithLabelValues("malformed").Inc()
		c.log.Warn("Dropping malformed message", "error", err, "size", len(text))
		return
	}
	msg, missing, err := protocol.Parse(env)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, protocol.ErrUnknownType) {
			reason = "unknown_type"
		}
		c.met.Dropped.WithLabelValues(reason).Inc()
		c.log.Warn("Dropping message", "type", env.Type, "error", err)
		return
	}
	if len(missing) > 0 {
		c.log.Debug("Message fields defaulted", "type", env.Type, "fields", missing)
	}
	c.met.Received.WithLabelValues(env.Type).Inc()

	switch m := msg.(type) {
	case protocol.JoinResponse:
		c.onJoinResponse(m)
	case protocol.PlayerJoined:
		c.onPlayerJoined(m)
	case protocol.PlayerState:
		c.onPlayerState(m)
	case protocol.PlayerLeft:
		c.onPlayerLeft(m)
	case protocol.PositionCorrection:
		c.onPositionCorrection(m)
	case protocol.Damage:
		c.onDamage(m)
	case protocol.Respawn:
		c.onRespawn(m)
	default:
		// Client-bound frames only; anything else is an echo of our own types.
		c.met.Dropped.WithLabelValues("unexpected").Inc()
		c.log.Debug("Ignoring client message type", "type", env.Type)
	}
}

func (c *Coordinator) onJoinResponse(m protocol.JoinResponse) {
	if c.state != StateConnecting {
		c.log.Warn("Unexpected join_response", "state", c.state.String(), "player_id", m.PlayerID)
		return
	}
	if m.PlayerID == "" {
		c.log.Warn("join_response without player id")
		return
	}
	c.localID = m.PlayerID
	c.joinDeadline = time.Time{}
	if c.reg != nil {
		if c.reg.Remove(m.PlayerID) {
			c.met.RemotePlayers.Set(float64(c.reg.Len()))
		}
		c.reg.SetLocalID(m.PlayerID)
	}
	if c.localAlive() {
		c.local.SetPlayerID(m.PlayerID)
		if m.SpawnPosition != nil {
			at := c.snapLocal(m.SpawnPosition[0], m.SpawnPosition[1])
			c.local.Teleport(at)
			c.local.SetSpawnPoint(at)
		}
	}
	c.setState(StateJoined, event.ReasonNone, "")
	c.log.Info("Joined", "player_id", m.PlayerID)
}

func (c *Coordinator) onPlayerJoined(m protocol.PlayerJoined) {
	if m.PlayerID == "" || m.PlayerID == c.localID || c.reg == nil {
		return
	}
	hint := geom.Zero
	if m.Position != nil {
		hint = geom.Vec3{X: m.Position[0], Y: m.Position[1]}
	}
	rc, created, err := c.reg.SpawnOrGet(m.PlayerID, hint)
	if err != nil || rc == nil {
		return
	}
	if created {
		c.remoteJoined(m.PlayerID, rc.Position())
	}
}

func (c *Coordinator) onPlayerState(m protocol.PlayerState) {
	if m.PlayerID == "" || m.PlayerID == c.localID || c.reg == nil {
		return
	}
	rc, created, err := c.reg.ApplyState(m.PlayerID, m.NetworkState(), c.clock())
	if err != nil || rc == nil {
		return
	}
	if created {
		c.remoteJoined(m.PlayerID, rc.Position())
	}
}

func (c *Coordinator) remoteJoined(id string, at geom.Vec3) {
	c.met.RemotePlayers.Set(float64(c.reg.Len()))
	c.emit(event.EventRemoteJoined, &event.RemoteEvent{PlayerID: id, Position: at})
}

func (c *Coordinator) onPlayerLeft(m protocol.PlayerLeft) {
	if c.reg == nil || !c.reg.Remove(m.PlayerID) {
		return
	}
	delete(c.limiters, m.PlayerID)
	c.met.RemotePlayers.Set(float64(c.reg.Len()))
	c.emit(event.EventRemoteLeft, &event.RemoteEvent{PlayerID: m.PlayerID})
}

// onPositionCorrection always wins over local movement.
func (c *Coordinator) onPositionCorrection(m protocol.PositionCorrection) {
	if !c.localAlive() {
		return
	}
	at := protocol.Vec3Of(m.Position)
	if !at.IsFinite() {
		c.log.Warn("Ignoring non-finite position correction")
		return
	}
	c.local.Teleport(at)
	c.log.Debug("Position corrected", "at", at)
}

func (c *Coordinator) onDamage(m protocol.Damage) {
	dir := c.knockbackDir(m.AttackerID, m.TargetID)
	c.emit(event.EventDamage, &event.DamageEvent{
		AttackerID: m.AttackerID,
		TargetID:   m.TargetID,
		Amount:     m.Damage,
		TargetHP:   m.TargetHP,
		Dead:       m.TargetDead,
	})

	if m.TargetID != "" && m.TargetID == c.localID {
		if !c.localAlive() {
			return
		}
		c.met.Damage.WithLabelValues("local").Inc()
		wasDead := c.local.IsDead()
		c.local.ApplyServerDamage(m.Damage, m.TargetHP, m.TargetDead, dir)
		if !wasDead && c.local.IsDead() {
			c.log.Info("Killed", "by", m.AttackerID)
			c.publishLocal(event.EventLocalDied)
		}
		return
	}

	if c.reg == nil {
		return
	}
	rc, ok := c.reg.Get(m.TargetID)
	if !ok {
		c.log.Debug("Damage for unknown player", "target_id", m.TargetID)
		return
	}
	c.met.Damage.WithLabelValues("remote").Inc()
	rc.ApplyServerDamage(m.Damage, m.TargetHP, m.TargetDead, dir)
}

// knockbackDir points from attacker to target on the horizontal plane, or
// along the world forward axis when either cannot be located.
func (c *Coordinator) knockbackDir(attackerID, targetID string) geom.Vec3 {
	from, okFrom := c.positionOf(attackerID)
	to, okTo := c.positionOf(targetID)
	if !okFrom || !okTo {
		return geom.Forward
	}
	dir := to.Sub(from).Horizontal().SafeNormal()
	if dir.IsZero() {
		return geom.Forward
	}
	return dir
}

func (c *Coordinator) positionOf(id string) (geom.Vec3, bool) {
	if id == "" {
		return geom.Zero, false
	}
	if id == c.localID {
		if !c.localAlive() {
			return geom.Zero, false
		}
		return c.local.Position(), true
	}
	if c.reg == nil {
		return geom.Zero, false
	}
	rc, ok := c.reg.Get(id)
	if !ok {
		return geom.Zero, false
	}
	return rc.Position(), true
}

func (c *Coordinator) onRespawn(m protocol.Respawn) {
	if m.PlayerID != "" && m.PlayerID == c.localID {
		if !c.localAlive() {
			return
		}
		at := c.local.Position()
		if m.Position != nil {
			at = c.snapLocal(m.Position[0], m.Position[1])
		}
		c.local.Respawn(at, m.HP, m.MaxHP)
		c.publishLocal(event.EventLocalRespawned)
		c.log.Info("Respawned", "at", at, "hp", c.local.HP())
		return
	}

	if m.PlayerID == "" || c.reg == nil {
		return
	}
	hint := geom.Zero
	if m.Position != nil {
		hint = geom.Vec3{X: m.Position[0], Y: m.Position[1]}
	}
	rc, created, err := c.reg.SpawnOrGet(m.PlayerID, hint)
	if err != nil || rc == nil {
		return
	}
	if created {
		c.remoteJoined(m.PlayerID, rc.Position())
	}
	at := rc.Position()
	if m.Position != nil {
		at = c.reg.SnapToGround(geom.Vec3{X: m.Position[0], Y: m.Position[1], Z: at.Z})
	}
	rc.Respawn(at, m.HP, m.MaxHP)
}
