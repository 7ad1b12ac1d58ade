package sandbox

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
)

const lifeBarWidth = 10

// LifeBar renders as a short text gauge for the console.
type LifeBar struct {
	pct    float64
	color  engine.Color
	hidden bool
}

func (l *LifeBar) SetLifePercentage(pct float64) {
	l.pct = geom.Clamp(pct, 0, 1)
}

func (l *LifeBar) SetBarColor(c engine.Color) {
	l.color = c
}

func (l *LifeBar) SetHidden(hidden bool) {
	l.hidden = hidden
}

func (l *LifeBar) Percentage() float64 {
	return l.pct
}

func (l *LifeBar) Hidden() bool {
	return l.hidden
}

func (l *LifeBar) Color() engine.Color {
	return l.color
}

func (l *LifeBar) String() string {
	if l.hidden {
		return ""
	}
	filled := int(l.pct*lifeBarWidth + 0.5)
	return fmt.Sprintf("[%s%s]", strings.Repeat("#", filled), strings.Repeat("-", lifeBarWidth-filled))
}

// Effects logs combat feedback and keeps running totals.
type Effects struct {
	log      *slog.Logger
	owner    string
	Dealt    float64
	Received float64
}

func (e *Effects) DealtDamage(amount float64, at geom.Vec3) {
	e.Dealt += amount
	e.log.Debug("Hit landed", "owner", e.owner, "amount", amount, "at", at)
}

func (e *Effects) ReceivedDamage(amount float64, at geom.Vec3, dir geom.Vec3) {
	e.Received += amount
	e.log.Debug("Hit taken", "owner", e.owner, "amount", amount, "at", at, "dir", dir)
}
