// Package registry owns the characters that mirror remote players, keyed by
// the player id the server assigned them.
package registry

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/Versifine/arena/internal/character"
	"github.com/Versifine/arena/internal/config"
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/logger"
	"github.com/Versifine/arena/internal/protocol"
)

const (
	groundProbeTop    = 50000.0
	groundProbeBottom = -50000.0
)

var ErrEmptyID = errors.New("empty player id")

// Spawner creates and destroys host avatars for remote players.
type Spawner interface {
	Spawn(playerID string, at geom.Vec3) (engine.Avatar, error)
	// Attach tells the host which entity owns the avatar, so sweeps report it.
	Attach(a engine.Avatar, owner any)
	Destroy(a engine.Avatar)
}

type Options struct {
	World   engine.World
	Spawner Spawner
	// Character supplies tuning for spawned characters; Role and Avatar are set here.
	Character character.Options
	Remote    config.RemoteConfig
	// OnTeleport is called when reconciliation snaps a remote player.
	OnTeleport func(id string)
}

type Registry struct {
	world   engine.World
	spawner Spawner
	base    character.Options
	height  float64
	onTP    func(id string)
	log     *slog.Logger

	entities map[string]*character.Character
	localID  string
}

func New(opts Options) *Registry {
	base := opts.Character
	base.Role = character.RoleRemote
	base.Remote = opts.Remote
	base.World = opts.World
	return &Registry{
		world:    opts.World,
		spawner:  opts.Spawner,
		base:     base,
		height:   opts.Remote.SpawnHeight,
		onTP:     opts.OnTeleport,
		log:      logger.With("registry"),
		entities: make(map[string]*character.Character),
	}
}

// SetLocalID marks the id that belongs to this client; it is never spawned.
func (r *Registry) SetLocalID(id string) {
	r.localID = id
}

func (r *Registry) LocalID() string {
	return r.localID
}

// SnapToGround places p on the first surface below it, offset by the spawn
// height. Without ground the hinted height is kept.
func (r *Registry) SnapToGround(p geom.Vec3) geom.Vec3 {
	if r.world == nil {
		return p
	}
	if z, ok := r.world.GroundTrace(p.X, p.Y, groundProbeTop, groundProbeBottom, nil); ok {
		p.Z = z + r.height
	}
	return p
}

// SpawnOrGet returns the character for id, spawning it near hint on first
// sight. created reports whether this call spawned it.
func (r *Registry) SpawnOrGet(id string, hint geom.Vec3) (c *character.Character, created bool, err error) {
	if id == "" {
		return nil, false, ErrEmptyID
	}
	if c, ok := r.entities[id]; ok {
		return c, false, nil
	}
	if id == r.localID {
		return nil, false, nil
	}

	at := r.SnapToGround(hint)
	opts := r.base
	opts.PlayerID = id
	opts.SpawnPoint = at
	if r.spawner != nil {
		av, err := r.spawner.Spawn(id, at)
		if err != nil {
			r.log.Error("Failed to spawn remote player", "id", id, "error", err)
			return nil, false, err
		}
		opts.Avatar = av
	}

	c = character.New(opts)
	if r.spawner != nil && opts.Avatar != nil {
		r.spawner.Attach(opts.Avatar, c)
	}
	r.entities[id] = c
	r.log.Info("Remote player spawned", "id", id, "at", at)
	return c, true, nil
}

// ApplyState reconciles the remote player id with s, spawning it first when
// unknown. States about the local player are ignored.
func (r *Registry) ApplyState(id string, s protocol.NetworkState, now float64) (c *character.Character, created bool, err error) {
	if id == "" || id == r.localID {
		return nil, false, nil
	}
	c, created, err = r.SpawnOrGet(id, s.Position)
	if err != nil || c == nil {
		return nil, false, err
	}
	if c.ApplyNetworkState(s, now) && r.onTP != nil {
		r.onTP(id)
	}
	return c, created, nil
}

// Remove destroys the remote player id; unknown ids are a no-op.
func (r *Registry) Remove(id string) bool {
	c, ok := r.entities[id]
	if !ok {
		return false
	}
	delete(r.entities, id)
	r.destroy(c)
	r.log.Info("Remote player removed", "id", id)
	return true
}

// RemoveAll destroys every remote player and returns how many there were.
func (r *Registry) RemoveAll() int {
	n := len(r.entities)
	for id, c := range r.entities {
		delete(r.entities, id)
		r.destroy(c)
	}
	if n > 0 {
		r.log.Info("Remote players cleared", "count", n)
	}
	return n
}

func (r *Registry) destroy(c *character.Character) {
	c.Destroy()
	if r.spawner != nil && c.Avatar() != nil {
		r.spawner.Destroy(c.Avatar())
	}
}

func (r *Registry) Get(id string) (*character.Character, bool) {
	c, ok := r.entities[id]
	return c, ok
}

func (r *Registry) Len() int {
	return len(r.entities)
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Each visits the characters in id order.
func (r *Registry) Each(fn func(id string, c *character.Character)) {
	for _, id := range r.IDs() {
		fn(id, r.entities[id])
	}
}

func (r *Registry) Tick(dt float64) {
	for _, c := range r.entities {
		c.Tick(dt)
	}
}

// ResolveRemote maps a sweep hit back to a registered remote player.
func (r *Registry) ResolveRemote(entity any) (string, bool) {
	c, ok := entity.(*character.Character)
	if !ok || c == nil || c.IsLocal() || !c.Alive() {
		return "", false
	}
	if reg, ok := r.entities[c.PlayerID()]; ok && reg == c {
		return c.PlayerID(), true
	}
	return "", false
}
