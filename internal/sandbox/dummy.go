package sandbox

import (
	"log/slog"

	"github.com/Versifine/arena/internal/geom"
)

// Dummy is a training prop the melee sweep damages locally. It refills
// instead of dying.
type Dummy struct {
	ID    string
	pos   geom.Vec3
	hp    float64
	maxHP float64
	hits  int
	warns int
	log   *slog.Logger
}

func (d *Dummy) Position() geom.Vec3 {
	return d.pos
}

func (d *Dummy) HP() float64 {
	return d.hp
}

func (d *Dummy) Hits() int {
	return d.hits
}

func (d *Dummy) Warnings() int {
	return d.warns
}

func (d *Dummy) ApplyDamage(amount float64, source any, at geom.Vec3, impulse geom.Vec3) {
	d.hits++
	d.hp -= amount
	if d.hp <= 0 {
		d.log.Info("Dummy knocked out", "id", d.ID, "hits", d.hits)
		d.hp = d.maxHP
		return
	}
	d.log.Debug("Dummy hit", "id", d.ID, "hp", d.hp, "impulse", impulse)
}

func (d *Dummy) NotifyDanger(at geom.Vec3, source any) {
	d.warns++
}
