package session

import (
	"github.com/Versifine/arena/internal/character"
	"github.com/Versifine/arena/internal/geom"
)

// Status is a point-in-time view for consoles and logs.
type Status struct {
	State     State
	LocalID   string
	Connected bool

	Position geom.Vec3
	HP       float64
	MaxHP    float64
	Dead     bool
	Phase    string
	Combo    int

	Remotes []RemoteStatus
}

type RemoteStatus struct {
	ID       string
	Position geom.Vec3
	HP       float64
	Dead     bool
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:     c.state,
		LocalID:   c.localID,
		Connected: c.tr.Connected(),
	}
	if c.localAlive() {
		st.Position = c.local.Position()
		st.HP = c.local.HP()
		st.MaxHP = c.local.MaxHP()
		st.Dead = c.local.IsDead()
		if m := c.local.Combat(); m != nil {
			st.Phase = m.Phase().String()
			st.Combo = m.State().ComboCount
		}
	}
	if c.reg != nil {
		c.reg.Each(func(id string, rc *character.Character) {
			st.Remotes = append(st.Remotes, RemoteStatus{
				ID:       id,
				Position: rc.Position(),
				HP:       rc.HP(),
				Dead:     rc.IsDead(),
			})
		})
	}
	return st
}
