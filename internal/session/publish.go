package session

import (
	"golang.org/x/time/rate"

	"github.com/Versifine/arena/internal/protocol"
)

const (
	typeJoin        = protocol.TypeJoin
	typeLeave       = protocol.TypeLeave
	typeStateUpdate = protocol.TypeStateUpdate
	typeAttack      = protocol.TypeAttack
)

func joinPayload(name string) protocol.Join {
	if name == "" {
		name = "Player"
	}
	return protocol.Join{Name: name}
}

// Publish sends one state_update for the local character. It does nothing
// unless joined and connected; invalid local state is never sent.
func (c *Coordinator) Publish() {
	c.mu.Lock()
	defer c.unlock()
	c.checkJoinTimeout()
	if c.state != StateJoined {
		return
	}
	if !c.tr.Connected() {
		c.met.PublishSkipped.WithLabelValues("disconnected").Inc()
		return
	}
	if !c.localAlive() {
		c.met.PublishSkipped.WithLabelValues("no_local").Inc()
		return
	}
	st := c.local.NetworkState(c.clock())
	if err := st.Validate(); err != nil {
		c.met.PublishSkipped.WithLabelValues("invalid").Inc()
		c.log.Warn("Local state not published", "error", err)
		return
	}
	if c.send(typeStateUpdate, protocol.StateUpdateFrom(st)) {
		c.met.Published.Inc()
	}
}

// encode returns nil when the payload cannot be put on the wire.
func (c *Coordinator) encode(msgType string, payload any) []byte {
	text, err := protocol.Encode(msgType, payload)
	if err != nil {
		c.met.Dropped.WithLabelValues("encode").Inc()
		c.log.Error("Failed to encode message", "type", msgType, "error", err)
		return nil
	}
	return text
}

func (c *Coordinator) send(msgType string, payload any) bool {
	text := c.encode(msgType, payload)
	if text == nil {
		return false
	}
	if !c.tr.Send(text) {
		c.met.Dropped.WithLabelValues("send").Inc()
		c.log.Debug("Message not sent", "type", msgType)
		return false
	}
	c.met.Sent.WithLabelValues(msgType).Inc()
	return true
}

// sendAttack forwards an attack intent, throttled per target.
func (c *Coordinator) sendAttack(targetID string) {
	if targetID == "" || c.state != StateJoined || !c.tr.Connected() {
		return
	}
	lim, ok := c.limiters[targetID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(c.cfg.Network.AttackRate), c.cfg.Network.AttackBurst)
		c.limiters[targetID] = lim
	}
	if !lim.AllowN(c.now(), 1) {
		c.met.AttackIntents.WithLabelValues("throttled").Inc()
		c.log.Debug("Attack intent throttled", "target_id", targetID)
		return
	}
	if c.send(typeAttack, protocol.Attack{TargetID: targetID}) {
		c.met.AttackIntents.WithLabelValues("sent").Inc()
	}
}

// link is the connection view handed to the local character. Its methods run
// inside coordinator handlers, with c.mu already held.
type link struct {
	c *Coordinator
}

func (l link) Connected() bool {
	return l.c.tr.Connected()
}

func (l link) SendAttack(targetID string) {
	l.c.sendAttack(targetID)
}
