package session

import (
	"fmt"

	"github.com/Versifine/arena/internal/event"
	"github.com/Versifine/arena/internal/geom"
)

type InputKind int

const (
	InputCombo InputKind = iota
	InputChargePress
	InputChargeRelease
	// InputMove pushes the local character along Dir with strength Value.
	InputMove
	InputConnect
	InputDisconnect
	// InputTeleport moves the local character to Dir.
	InputTeleport
	// InputSetHP sets local HP to Value.
	InputSetHP
)

func (k InputKind) String() string {
	switch k {
	case InputCombo:
		return "combo"
	case InputChargePress:
		return "charge_press"
	case InputChargeRelease:
		return "charge_release"
	case InputMove:
		return "move"
	case InputConnect:
		return "connect"
	case InputDisconnect:
		return "disconnect"
	case InputTeleport:
		return "teleport"
	case InputSetHP:
		return "set_hp"
	default:
		return fmt.Sprintf("input(%d)", int(k))
	}
}

type Input struct {
	Kind  InputKind
	Dir   geom.Vec3
	Value float64
}

// Submit queues in for the Run loop. It reports false when the queue is full.
func (c *Coordinator) Submit(in Input) bool {
	select {
	case c.inputs <- in:
		return true
	default:
		c.log.Warn("Input dropped", "kind", in.Kind.String())
		return false
	}
}

// HandleInput applies one player input to the local character.
func (c *Coordinator) HandleInput(in Input) {
	c.mu.Lock()
	defer c.unlock()

	switch in.Kind {
	case InputConnect:
		c.connectLocked("")
		return
	case InputDisconnect:
		c.teardown(event.ReasonUser, "", true)
		return
	}

	if !c.localAlive() {
		return
	}
	now := c.clock()
	switch in.Kind {
	case InputCombo:
		c.local.Combat().ComboPressed(now)
	case InputChargePress:
		c.local.Combat().ChargePressed(now)
	case InputChargeRelease:
		c.local.Combat().ChargeReleased(now)
	case InputMove:
		if c.local.IsDead() {
			return
		}
		if mv := c.local.Movement(); mv != nil {
			mv.AddMovementInput(in.Dir.SafeNormal(), in.Value)
		}
	case InputTeleport:
		if in.Dir.IsFinite() {
			c.local.Teleport(in.Dir)
		}
	case InputSetHP:
		c.local.SetHP(in.Value)
		if c.local.HP() <= 0 && !c.local.IsDead() {
			c.local.HandleDeath()
			c.publishLocal(event.EventLocalDied)
		}
	}
}
