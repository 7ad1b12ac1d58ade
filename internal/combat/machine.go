// Package combat implements the attack state machine of one controlled
// fighter: combo chains, charged attacks, the single buffered input and the
// melee and danger sweeps that accompany each swing.
//
// The machine is driven from outside. Inputs arrive through ComboPressed,
// ChargePressed and ChargeReleased; animation progress arrives as explicit
// notifications (SegmentEnded, ChargeLoopCompleted, AttackTrace,
// MontageEnded) that the owner dequeues from the animation layer. Time is
// passed in as game seconds so the machine never reads a clock.
package combat

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/logger"
	"github.com/Versifine/arena/internal/protocol"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseComboAttacking
	PhaseChargedCharging
	PhaseChargedReleasing
	PhaseDead
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseComboAttacking:
		return "combo"
	case PhaseChargedCharging:
		return "charging"
	case PhaseChargedReleasing:
		return "releasing"
	case PhaseDead:
		return "dead"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// noInput marks an empty input buffer.
var noInput = math.Inf(-1)

// State is the attack bookkeeping exposed for publication and debugging.
type State struct {
	IsAttacking            bool
	IsChargingAttack       bool
	HasLoopedChargedAttack bool
	ComboCount             int
	// CachedAttackInputTime is -Inf when no input is buffered.
	CachedAttackInputTime float64
}

// AttackSender forwards attack intents against remote players to the server.
type AttackSender interface {
	Connected() bool
	SendAttack(targetID string)
}

// TargetResolver identifies sweep hits that belong to remote players.
type TargetResolver interface {
	ResolveRemote(entity any) (playerID string, ok bool)
}

// Damageable is anything the melee sweep may damage locally.
type Damageable interface {
	ApplyDamage(amount float64, source any, at geom.Vec3, impulse geom.Vec3)
	NotifyDanger(at geom.Vec3, source any)
}

type Deps struct {
	// Owner is the sweeping entity; it is excluded from its own sweeps.
	Owner    any
	Animator engine.Animator
	Movement engine.Movement
	World    engine.World
	Effects  engine.Effects
	Sender   AttackSender
	Resolver TargetResolver
}

type Machine struct {
	tuning Tuning
	deps   Deps
	log    *slog.Logger

	phase Phase
	state State
}

func NewMachine(tuning Tuning, deps Deps) *Machine {
	if len(tuning.ComboSections) == 0 {
		tuning.ComboSections = []string{""}
	}
	return &Machine{
		tuning: tuning,
		deps:   deps,
		log:    logger.With("combat"),
		state:  State{CachedAttackInputTime: noInput},
	}
}

// SetSender wires the server link after construction; nil means offline.
func (m *Machine) SetSender(s AttackSender) {
	m.deps.Sender = s
}

func (m *Machine) SetResolver(r TargetResolver) {
	m.deps.Resolver = r
}

func (m *Machine) Phase() Phase {
	return m.phase
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Tuning() Tuning {
	return m.tuning
}

// ComboPressed starts a combo, or buffers the press while a swing plays.
func (m *Machine) ComboPressed(now float64) {
	if m.phase == PhaseDead {
		return
	}
	if m.state.IsAttacking {
		m.state.CachedAttackInputTime = now
		return
	}
	m.comboAttack()
}

// ChargePressed starts a charged attack, or buffers it while a swing plays.
func (m *Machine) ChargePressed(now float64) {
	if m.phase == PhaseDead {
		return
	}
	m.state.IsChargingAttack = true
	if m.state.IsAttacking {
		m.state.CachedAttackInputTime = now
		return
	}
	m.chargedAttack()
}

// ChargeReleased releases immediately when the charge loop already completed
// a pass; otherwise the release happens at the end of the current pass.
func (m *Machine) ChargeReleased(now float64) {
	if m.phase == PhaseDead {
		return
	}
	m.state.IsChargingAttack = false
	if m.phase == PhaseChargedCharging && m.state.HasLoopedChargedAttack {
		m.checkChargedAttack()
	}
}

// SegmentEnded is the combo window at the end of a combo section.
func (m *Machine) SegmentEnded(now float64) {
	if m.phase != PhaseComboAttacking || !m.state.IsAttacking || m.state.IsChargingAttack {
		return
	}
	if !m.fresh(now, m.tuning.ComboTolerance) {
		m.state.CachedAttackInputTime = noInput
		return
	}
	m.state.CachedAttackInputTime = noInput
	next := m.state.ComboCount + 1
	if next >= len(m.tuning.ComboSections) {
		return
	}
	m.state.ComboCount = next
	m.notifyDanger()
	m.deps.Animator.JumpToSection(m.tuning.ComboMontage, m.tuning.ComboSections[next])
	m.log.Debug("Combo advanced", "stage", next)
}

// ChargeLoopCompleted fires at the end of every pass of the charge loop.
func (m *Machine) ChargeLoopCompleted() {
	if m.phase != PhaseChargedCharging {
		return
	}
	m.checkChargedAttack()
}

// MontageEnded finishes the current attack and re-enters a new one when a
// buffered input is still within the attack tolerance.
func (m *Machine) MontageEnded(now float64, interrupted bool) {
	if !m.state.IsAttacking || m.phase == PhaseDead {
		return
	}
	m.state.IsAttacking = false
	m.phase = PhaseIdle
	if !m.fresh(now, m.tuning.AttackTolerance) {
		m.state.CachedAttackInputTime = noInput
		return
	}
	m.state.CachedAttackInputTime = noInput
	if m.state.IsChargingAttack {
		m.chargedAttack()
	} else {
		m.comboAttack()
	}
	m.log.Debug("Buffered attack started", "phase", m.phase.String(), "interrupted", interrupted)
}

// Kill clears every attack flag and refuses input until Revive.
func (m *Machine) Kill() {
	if m.phase == PhaseDead {
		return
	}
	m.phase = PhaseDead
	m.state = State{CachedAttackInputTime: noInput}
	if m.deps.Animator != nil {
		m.deps.Animator.StopMontage(0.2)
	}
}

func (m *Machine) Revive() {
	if m.phase != PhaseDead {
		return
	}
	m.phase = PhaseIdle
	m.state = State{CachedAttackInputTime: noInput}
}

func (m *Machine) comboAttack() {
	m.state.IsAttacking = true
	m.state.ComboCount = 0
	m.phase = PhaseComboAttacking
	m.notifyDanger()
	m.play(m.tuning.ComboMontage, m.tuning.ComboSections[0])
}

func (m *Machine) chargedAttack() {
	m.state.IsAttacking = true
	m.state.HasLoopedChargedAttack = false
	m.phase = PhaseChargedCharging
	m.notifyDanger()
	m.play(m.tuning.ChargedMontage, m.tuning.ChargeLoopSection)
}

func (m *Machine) checkChargedAttack() {
	m.state.HasLoopedChargedAttack = true
	if m.state.IsChargingAttack {
		m.deps.Animator.JumpToSection(m.tuning.ChargedMontage, m.tuning.ChargeLoopSection)
		return
	}
	m.phase = PhaseChargedReleasing
	m.deps.Animator.JumpToSection(m.tuning.ChargedMontage, m.tuning.ChargeAttackSection)
}

// play starts an attack montage. Without a playable montage no completion
// will ever arrive, so the swing ends on the spot.
func (m *Machine) play(montage engine.Montage, section string) {
	if m.deps.Animator != nil && montage != "" {
		if m.deps.Animator.PlayMontage(montage, section) > 0 {
			return
		}
	}
	m.log.Debug("Attack montage unavailable", "montage", string(montage), "section", section)
	m.state.IsAttacking = false
	m.phase = PhaseIdle
}

func (m *Machine) fresh(now, tolerance float64) bool {
	return now-m.state.CachedAttackInputTime <= tolerance
}

// AnimState derives the state published to other clients.
func (m *Machine) AnimState(hp float64, velocity geom.Vec3) protocol.AnimState {
	if hp <= 0 || m.phase == PhaseDead {
		return protocol.AnimDead
	}
	switch m.phase {
	case PhaseComboAttacking:
		return protocol.AnimComboAttack
	case PhaseChargedCharging:
		return protocol.AnimChargedAttackCharging
	case PhaseChargedReleasing:
		return protocol.AnimChargedAttackRelease
	}
	if velocity.LenSq() > 100 {
		return protocol.AnimMoving
	}
	return protocol.AnimIdle
}

// ChargeProgress is 1 once the charge loop of the current charged attack has
// completed a pass.
func (m *Machine) ChargeProgress() float64 {
	charged := m.phase == PhaseChargedCharging || m.phase == PhaseChargedReleasing
	if charged && m.state.HasLoopedChargedAttack {
		return 1
	}
	return 0
}
