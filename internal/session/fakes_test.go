package session

import (
	"encoding/json"
	"testing"

	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/transport"
)

type fakeTransport struct {
	connected bool
	gen       uint64
	urls      []string
	sent      [][]byte
	finals    [][]byte
	closes    int
	events    chan transport.Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan transport.Event, 16)}
}

func (f *fakeTransport) Connect(url string) {
	f.gen++
	f.urls = append(f.urls, url)
}

func (f *fakeTransport) Send(text []byte) bool {
	if !f.connected {
		return false
	}
	f.sent = append(f.sent, text)
	return true
}

func (f *fakeTransport) Close(final []byte) {
	f.closes++
	if f.connected && final != nil {
		f.finals = append(f.finals, final)
	}
	f.connected = false
}

func (f *fakeTransport) Connected() bool { return f.connected }
func (f *fakeTransport) Generation() uint64 { return f.gen }
func (f *fakeTransport) Events() <-chan transport.Event { return f.events }

// sentTypes lists the envelope types of every frame sent so far.
func (f *fakeTransport) sentTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, text := range f.sent {
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(text, &env); err != nil {
			t.Fatalf("sent frame is not json: %v", err)
		}
		types = append(types, env.Type)
	}
	return types
}

type stubAnimator struct{ plays int }

func (a *stubAnimator) PlayMontage(engine.Montage, string) float64 {
	a.plays++
	return 1
}
func (a *stubAnimator) JumpToSection(engine.Montage, string) {}
func (a *stubAnimator) StopMontage(float64) {}
func (a *stubAnimator) IsPlaying(engine.Montage) bool { return false }

type stubMovement struct {
	pos      geom.Vec3
	disabled bool
	ragdoll  bool
	impulses []geom.Vec3
	inputs   int
}

func (m *stubMovement) Position() geom.Vec3 { return m.pos }
func (m *stubMovement) SetPosition(p geom.Vec3) { m.pos = p }
func (m *stubMovement) Velocity() geom.Vec3 { return geom.Zero }
func (m *stubMovement) Rotation() geom.Rotator { return geom.Rotator{} }
func (m *stubMovement) Forward() geom.Vec3 { return geom.Forward }
func (m *stubMovement) AddImpulse(i geom.Vec3, _ bool) { m.impulses = append(m.impulses, i) }
func (m *stubMovement) AddMovementInput(geom.Vec3, float64) { m.inputs++ }
func (m *stubMovement) SetMovementMode(mode engine.MovementMode) {
	m.disabled = mode == engine.MovementNone
}
func (m *stubMovement) DisableMovement() { m.disabled = true }
func (m *stubMovement) SetRagdoll(on bool) { m.ragdoll = on }
func (m *stubMovement) IsRagdoll() bool { return m.ragdoll }
func (m *stubMovement) SetPhysicsBlend(float64) {}
func (m *stubMovement) IsFalling() bool { return false }
func (m *stubMovement) CapsuleHalfHeight() float64 { return 90 }

type stubAvatar struct {
	id   string
	anim *stubAnimator
	move *stubMovement
}

func newStubAvatar(id string, at geom.Vec3) *stubAvatar {
	return &stubAvatar{id: id, anim: &stubAnimator{}, move: &stubMovement{pos: at}}
}

func (a *stubAvatar) Animator() engine.Animator { return a.anim }
func (a *stubAvatar) Movement() engine.Movement { return a.move }
func (a *stubAvatar) LifeBar() engine.LifeBar { return nil }
func (a *stubAvatar) Effects() engine.Effects { return nil }

type stubSpawner struct {
	avatars map[string]*stubAvatar
}

func (s *stubSpawner) Spawn(id string, at geom.Vec3) (engine.Avatar, error) {
	av := newStubAvatar(id, at)
	s.avatars[id] = av
	return av, nil
}

func (s *stubSpawner) Attach(engine.Avatar, any) {}

func (s *stubSpawner) Destroy(a engine.Avatar) {
	delete(s.avatars, a.(*stubAvatar).id)
}

// stubWorld has optional flat ground and returns fixed sweep hits.
type stubWorld struct {
	ground    float64
	hasGround bool
	hits      []engine.Hit
}

func (w *stubWorld) Sweep(q engine.SweepQuery) []engine.Hit {
	if q.Kinds&engine.ObjectDynamic == 0 {
		return nil
	}
	return w.hits
}

func (w *stubWorld) GroundTrace(float64, float64, float64, float64, any) (float64, bool) {
	return w.ground, w.hasGround
}
