package combat

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
	length float64
	calls  []animCall
}

func (a *fakeAnimator) PlayMontage(m engine.Montage, section string) float64 {
	a.calls = append(a.calls, animCall{"play", m, section})
	return a.length
}

func (a *fakeAnimator) JumpToSection(m engine.Montage, section string) {
	a.calls = append(a.calls, animCall{"jump", m, section})
}

func (a *fakeAnimator) StopMontage(float64) {
	a.calls = append(a.calls, animCall{op: "stop"})
}

func (a *fakeAnimator) IsPlaying(engine.Montage) bool { return false }

func (a *fakeAnimator) last() animCall {
	if len(a.calls) == 0 {
		return animCall{}
	}
	return a.calls[len(a.calls)-1]
}

type fakeMovement struct {
	pos     geom.Vec3
	forward geom.Vec3
	sockets map[string]geom.Vec3
}

func (m *fakeMovement) Position() geom.Vec3 { return m.pos }
func (m *fakeMovement) SetPosition(p geom.Vec3) { m.pos = p }
func (m *fakeMovement) Velocity() geom.Vec3 { return geom.Zero }
func (m *fakeMovement) Rotation() geom.Rotator { return geom.Rotator{} }
func (m *fakeMovement) Forward() geom.Vec3 { return m.forward }
func (m *fakeMovement) AddImpulse(geom.Vec3, bool) {}
func (m *fakeMovement) AddMovementInput(geom.Vec3, float64) {}
func (m *fakeMovement) SetMovementMode(engine.MovementMode) {}
func (m *fakeMovement) DisableMovement() {}
func (m *fakeMovement) SetRagdoll(bool) {}
func (m *fakeMovement) IsRagdoll() bool { return false }
func (m *fakeMovement) SetPhysicsBlend(float64) {}
func (m *fakeMovement) IsFalling() bool { return false }
func (m *fakeMovement) CapsuleHalfHeight() float64 { return 90 }
func (m *fakeMovement) SocketLocation(n string) (geom.Vec3, bool) {
	at, ok := m.sockets[n]
	return at, ok
}

type fakeWorld struct {
	hits    []engine.Hit
	queries []engine.SweepQuery
}

func (w *fakeWorld) Sweep(q engine.SweepQuery) []engine.Hit {
	w.queries = append(w.queries, q)
	var out []engine.Hit
	for _, h := range w.hits {
		if h.Entity == q.Ignore {
			continue
		}
		if _, pawn := h.Entity.(*fakeTarget); pawn || q.Kinds&engine.ObjectDynamic != 0 {
			out = append(out, h)
		}
	}
	return out
}

func (w *fakeWorld) GroundTrace(float64, float64, float64, float64, any) (float64, bool) {
	return 0, false
}

type fakeTarget struct {
	id       string
	damage   float64
	impulse  geom.Vec3
	dangered int
}

func (t *fakeTarget) ApplyDamage(amount float64, _ any, _ geom.Vec3, impulse geom.Vec3) {
	t.damage += amount
	t.impulse = impulse
}

func (t *fakeTarget) NotifyDanger(geom.Vec3, any) { t.dangered++ }

type fakeSender struct {
	connected bool
	sent      []string
}

func (s *fakeSender) Connected() bool { return s.connected }
func (s *fakeSender) SendAttack(id string) { s.sent = append(s.sent, id) }

type fakeResolver map[any]string

func (r fakeResolver) ResolveRemote(entity any) (string, bool) {
	id, ok := r[entity]
	return id, ok
}

type fakeEffects struct{ dealt int }

func (e *fakeEffects) DealtDamage(float64, geom.Vec3) { e.dealt++ }
func (e *fakeEffects) ReceivedDamage(float64, geom.Vec3, geom.Vec3) {}
