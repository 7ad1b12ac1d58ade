package character

import (
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
)

type animCall struct {
	op      string
	montage engine.Montage
	section string
}

type fakeAnimator struct {
	playing map[engine.Montage]bool
	calls   []animCall
}

func (a *fakeAnimator) PlayMontage(m engine.Montage, section string) float64 {
	a.calls = append(a.calls, animCall{"play", m, section})
	a.playing = map[engine.Montage]bool{m: true}
	return 1
}

func (a *fakeAnimator) JumpToSection(m engine.Montage, section string) {
	a.calls = append(a.calls, animCall{"jump", m, section})
}

func (a *fakeAnimator) StopMontage(float64) {
	a.calls = append(a.calls, animCall{op: "stop"})
	a.playing = nil
}

func (a *fakeAnimator) IsPlaying(m engine.Montage) bool { return a.playing[m] }

type fakeMovement struct {
	pos      geom.Vec3
	forward  geom.Vec3
	impulses []geom.Vec3
	inputs   []float64
	inputDir geom.Vec3
	mode     engine.MovementMode
	disabled bool
	ragdoll  bool
	blend    float64
}

func (m *fakeMovement) Position() geom.Vec3 { return m.pos }
func (m *fakeMovement) SetPosition(p geom.Vec3) { m.pos = p }
func (m *fakeMovement) Velocity() geom.Vec3 { return geom.Vec3{X: 300} }
func (m *fakeMovement) Rotation() geom.Rotator { return geom.Rotator{Yaw: 90} }
func (m *fakeMovement) Forward() geom.Vec3 { return m.forward }
func (m *fakeMovement) AddImpulse(i geom.Vec3, _ bool) { m.impulses = append(m.impulses, i) }
func (m *fakeMovement) AddMovementInput(dir geom.Vec3, scale float64) {
	m.inputDir = dir
	m.inputs = append(m.inputs, scale)
}
func (m *fakeMovement) SetMovementMode(mode engine.MovementMode) {
	m.mode = mode
	m.disabled = mode == engine.MovementNone
}
func (m *fakeMovement) DisableMovement() { m.disabled = true }
func (m *fakeMovement) SetRagdoll(on bool) { m.ragdoll = on }
func (m *fakeMovement) IsRagdoll() bool { return m.ragdoll }
func (m *fakeMovement) SetPhysicsBlend(w float64) { m.blend = w }
func (m *fakeMovement) IsFalling() bool { return false }
func (m *fakeMovement) CapsuleHalfHeight() float64 { return 90 }

type fakeBar struct {
	pct    float64
	hidden bool
	color  engine.Color
}

func (b *fakeBar) SetLifePercentage(p float64) { b.pct = p }
func (b *fakeBar) SetBarColor(c engine.Color) { b.color = c }
func (b *fakeBar) SetHidden(h bool) { b.hidden = h }

type fakeEffects struct{ received int }

func (e *fakeEffects) DealtDamage(float64, geom.Vec3) {}
func (e *fakeEffects) ReceivedDamage(float64, geom.Vec3, geom.Vec3) { e.received++ }

type fakeAvatar struct {
	anim *fakeAnimator
	move *fakeMovement
	bar  *fakeBar
	fx   *fakeEffects
}

func newFakeAvatar() *fakeAvatar {
	return &fakeAvatar{
		anim: &fakeAnimator{},
		move: &fakeMovement{forward: geom.Forward},
		bar:  &fakeBar{},
		fx:   &fakeEffects{},
	}
}

func (a *fakeAvatar) Animator() engine.Animator { return a.anim }
func (a *fakeAvatar) Movement() engine.Movement { return a.move }
func (a *fakeAvatar) LifeBar() engine.LifeBar { return a.bar }
func (a *fakeAvatar) Effects() engine.Effects { return a.fx }

type fakeLink struct {
	connected bool
	sent      []string
}

func (l *fakeLink) Connected() bool { return l.connected }
func (l *fakeLink) SendAttack(id string) { l.sent = append(l.sent, id) }
