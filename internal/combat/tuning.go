package combat

import (
	"github.com/Versifine/arena/internal/config"
	"github.com/Versifine/arena/internal/engine"
)

// Tuning holds the timing windows, sweep shapes and animation bindings of one
// fighter. Times are seconds.
type Tuning struct {
	// ComboTolerance bounds the age of a cached input when a combo section ends.
	ComboTolerance float64
	// AttackTolerance bounds the age of a cached input when the montage ends.
	AttackTolerance float64

	MeleeTraceDistance float64
	MeleeTraceRadius   float64
	MeleeDamage        float64
	MeleeKnockback     float64
	MeleeLaunch        float64

	DangerTraceDistance float64
	DangerTraceRadius   float64

	ComboMontage        engine.Montage
	ComboSections       []string
	ChargedMontage      engine.Montage
	ChargeLoopSection   string
	ChargeAttackSection string
}

func DefaultTuning() Tuning {
	return TuningFrom(config.Default().Combat)
}

func TuningFrom(c config.CombatConfig) Tuning {
	sections := append([]string(nil), c.ComboSections...)
	if len(sections) == 0 {
		sections = []string{""}
	}
	return Tuning{
		ComboTolerance:      c.ComboTolerance,
		AttackTolerance:     c.AttackTolerance,
		MeleeTraceDistance:  c.MeleeTraceDistance,
		MeleeTraceRadius:    c.MeleeTraceRadius,
		MeleeDamage:         c.MeleeDamage,
		MeleeKnockback:      c.MeleeKnockback,
		MeleeLaunch:         c.MeleeLaunch,
		DangerTraceDistance: c.DangerTraceDistance,
		DangerTraceRadius:   c.DangerTraceRadius,
		ComboMontage:        engine.Montage(c.ComboMontage),
		ComboSections:       sections,
		ChargedMontage:      engine.Montage(c.ChargedMontage),
		ChargeLoopSection:   c.ChargeLoopSection,
		ChargeAttackSection: c.ChargeAttackSection,
	}
}
