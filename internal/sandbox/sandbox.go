// Package sandbox is a headless host for the sync layer: a flat arena,
// walking capsules, timed montages and training dummies. It stands in for a
// game engine when the client runs from a terminal.
package sandbox

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Versifine/arena/internal/config"
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/logger"
)

const (
	dummySpacing = 300.0
	dummyHP      = 10.0
)

var ErrNoAvatarID = errors.New("sandbox: avatar id is empty")

// Avatar bundles the host components of one character.
type Avatar struct {
	id   string
	anim *Animator
	body *Body
	bar  *LifeBar
	fx   *Effects
}

func (a *Avatar) ID() string                { return a.id }
func (a *Avatar) Animator() engine.Animator { return a.anim }
func (a *Avatar) Movement() engine.Movement { return a.body }
func (a *Avatar) LifeBar() engine.LifeBar   { return a.bar }
func (a *Avatar) Effects() engine.Effects   { return a.fx }
func (a *Avatar) Body() *Body               { return a.body }
func (a *Avatar) Anim() *Animator           { return a.anim }
func (a *Avatar) Bar() *LifeBar             { return a.bar }

type Sandbox struct {
	lib     Library
	world   *World
	avatars []*Avatar
	log     *slog.Logger
}

func New(cfg *config.Config) *Sandbox {
	s := &Sandbox{
		lib:   DefaultLibrary(cfg.Combat),
		world: NewWorld(cfg.Sandbox),
		log:   logger.With("sandbox"),
	}
	for i := 0; i < cfg.Sandbox.Dummies; i++ {
		s.world.AddDummy(&Dummy{
			ID:    fmt.Sprintf("dummy-%d", i+1),
			pos:   geom.Vec3{X: dummySpacing * float64(i+1), Z: s.world.SpawnHeight()},
			hp:    dummyHP,
			maxHP: dummyHP,
			log:   s.log,
		})
	}
	return s
}

func (s *Sandbox) World() *World {
	return s.world
}

// NewAvatar places a body at at. Animation events of its montages go to sink,
// which may be nil.
func (s *Sandbox) NewAvatar(id string, at geom.Vec3, sink func(engine.AnimEvent) bool) *Avatar {
	a := &Avatar{
		id:   id,
		anim: NewAnimator(s.lib, sink),
		body: newBody(s.world, at),
		bar:  &LifeBar{pct: 1},
		fx:   &Effects{log: s.log, owner: id},
	}
	s.world.addBody(a.body)
	s.avatars = append(s.avatars, a)
	s.log.Debug("Avatar created", "id", id, "at", at)
	return a
}

// Spawn creates the body of a remote player. Remote montages are mirrored
// only, so they get no event sink.
func (s *Sandbox) Spawn(id string, at geom.Vec3) (engine.Avatar, error) {
	if id == "" {
		return nil, ErrNoAvatarID
	}
	return s.NewAvatar(id, at, nil), nil
}

// Attach makes sweeps report owner for hits on a.
func (s *Sandbox) Attach(a engine.Avatar, owner any) {
	if av, ok := a.(*Avatar); ok {
		av.body.owner = owner
	}
}

func (s *Sandbox) Destroy(a engine.Avatar) {
	av, ok := a.(*Avatar)
	if !ok {
		return
	}
	s.world.removeBody(av.body)
	for i, other := range s.avatars {
		if other == av {
			s.avatars = append(s.avatars[:i], s.avatars[i+1:]...)
			break
		}
	}
	av.body.owner = nil
	s.log.Debug("Avatar destroyed", "id", av.id)
}

func (s *Sandbox) Avatar(id string) (*Avatar, bool) {
	for _, a := range s.avatars {
		if a.id == id {
			return a, true
		}
	}
	return nil, false
}

func (s *Sandbox) Len() int {
	return len(s.avatars)
}

// Step advances every montage, then every body.
func (s *Sandbox) Step(dt float64) {
	for _, a := range s.avatars {
		a.anim.Advance(dt)
	}
	for _, a := range s.avatars {
		a.body.step(dt)
	}
}
