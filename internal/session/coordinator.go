// Package session ties the transport, the local character and the remote
// registry together. One Coordinator is created per game instance and owns the
// connection lifecycle; it borrows the local character and never destroys it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Versifine/arena/internal/character"
	"github.com/Versifine/arena/internal/config"
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/event"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/logger"
	"github.com/Versifine/arena/internal/metrics"
	"github.com/Versifine/arena/internal/registry"
	"github.com/Versifine/arena/internal/transport"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transport is the connection the coordinator drives; *transport.Session
// implements it.
type Transport interface {
	Connect(url string)
	Send(text []byte) bool
	Close(final []byte)
	Connected() bool
	Generation() uint64
	Events() <-chan transport.Event
}

type Options struct {
	Config    *config.Config
	Transport Transport
	Local     *character.Character
	Registry  *registry.Registry
	// World is probed to place the local character on spawn and respawn.
	World   engine.World
	// Bus receives notifications after the coordinator lock is released, so
	// handlers may call back into the coordinator.
	Bus     *event.Bus
	Metrics *metrics.Metrics
	// Step advances the host simulation by dt seconds before characters tick.
	Step func(dt float64)
	// Clock returns game time in seconds. Defaults to time since New.
	Clock func() float64
	// Now returns wall time for timeouts and rate limits.
	Now func() time.Time
}

type Coordinator struct {
	cfg   *config.Config
	tr    Transport
	local *character.Character
	reg   *registry.Registry
	world engine.World
	bus   *event.Bus
	met   *metrics.Metrics
	step  func(dt float64)
	clock func() float64
	now   func() time.Time
	log   *slog.Logger

	inputs chan Input
	anim   chan engine.AnimEvent

	mu           sync.Mutex
	state        State
	gen          uint64
	localID      string
	joinDeadline time.Time
	limiters     map[string]*rate.Limiter
	// pending holds bus events raised under mu, published by unlock.
	pending []busEvent
}

type busEvent struct {
	name string
	data any
}

func New(opts Options) *Coordinator {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Coordinator{
		cfg:      cfg,
		tr:       opts.Transport,
		local:    opts.Local,
		reg:      opts.Registry,
		world:    opts.World,
		bus:      opts.Bus,
		met:      opts.Metrics,
		step:     opts.Step,
		clock:    opts.Clock,
		now:      opts.Now,
		log:      logger.With("session"),
		inputs:   make(chan Input, 64),
		anim:     make(chan engine.AnimEvent, 64),
		limiters: make(map[string]*rate.Limiter),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.clock == nil {
		start := c.now()
		c.clock = func() float64 { return c.now().Sub(start).Seconds() }
	}
	if c.met == nil {
		c.met = metrics.New()
	}
	if c.bus == nil {
		c.bus = event.NewBus()
	}
	if c.local != nil {
		c.local.SetLink(link{c})
		if c.reg != nil {
			c.local.SetResolver(c.reg)
		}
	}
	return c
}

func (c *Coordinator) Bus() *event.Bus {
	return c.bus
}

func (c *Coordinator) Metrics() *metrics.Metrics {
	return c.met
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) LocalID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localID
}

// Connected reports whether the transport is up.
func (c *Coordinator) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr.Connected()
}

// Connect starts the handshake with url and returns immediately. It is a
// no-op unless disconnected.
func (c *Coordinator) Connect(url string) {
	c.mu.Lock()
	defer c.unlock()
	c.connectLocked(url)
}

func (c *Coordinator) connectLocked(url string) {
	if c.state != StateDisconnected {
		c.log.Debug("Connect ignored", "state", c.state.String())
		return
	}
	if url == "" {
		url = c.cfg.Server.URL
	}
	c.tr.Connect(url)
	c.gen = c.tr.Generation()
	c.setState(StateConnecting, event.ReasonNone, url)
}

// Disconnect leaves the session from any state. Remote players are gone when
// it returns.
func (c *Coordinator) Disconnect() {
	c.mu.Lock()
	defer c.unlock()
	c.teardown(event.ReasonUser, "", true)
}

// teardown stops publication, closes the transport and clears every remote.
func (c *Coordinator) teardown(reason event.Reason, detail string, sendLeave bool) {
	var final []byte
	if sendLeave && c.tr.Connected() {
		final = c.encode(typeLeave, nil)
	}
	c.tr.Close(final)
	c.gen = 0
	c.joinDeadline = time.Time{}

	if c.reg != nil {
		c.reg.RemoveAll()
		c.reg.SetLocalID("")
		c.met.RemotePlayers.Set(0)
	}
	c.localID = ""
	if c.localAlive() {
		c.local.SetPlayerID("")
	}
	clear(c.limiters)
	c.setState(StateDisconnected, reason, detail)
}

func (c *Coordinator) setState(s State, reason event.Reason, detail string) {
	if c.state == s {
		return
	}
	prev := c.state
	c.state = s
	c.met.ConnectionState.Set(float64(s))
	c.log.Info("Session state changed", "from", prev.String(), "to", s.String(), "reason", reason.String())
	c.emit(event.EventConnectionChanged, event.NewConnectionEvent(s.String(), c.localID, reason, detail))
}

func (c *Coordinator) emit(name string, data any) {
	c.pending = append(c.pending, busEvent{name: name, data: data})
}

// unlock releases mu, then publishes the events raised while it was held,
// in order.
func (c *Coordinator) unlock() {
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, ev := range pending {
		c.bus.Publish(ev.name, ev.data)
	}
}

// localAlive is the liveness check on the borrowed local character.
func (c *Coordinator) localAlive() bool {
	return c.local != nil && c.local.Alive()
}

// HandleTransportEvent applies one transport event. Events from an earlier
// connection attempt are dropped.
func (c *Coordinator) HandleTransportEvent(ev transport.Event) {
	c.mu.Lock()
	defer c.unlock()
	if c.gen == 0 || ev.Gen != c.gen {
		c.log.Debug("Stale transport event dropped", "kind", ev.Kind.String(), "gen", ev.Gen)
		return
	}
	switch ev.Kind {
	case transport.EventConnected:
		c.onConnected()
	case transport.EventMessage:
		c.handleMessage(ev.Text)
	case transport.EventError:
		c.log.Error("Connection failed", "error", ev.Err)
		c.teardown(event.ReasonError, errText(ev.Err), false)
	case transport.EventClosed:
		c.log.Info("Connection closed", "code", ev.Code, "reason", ev.Reason)
		c.teardown(event.ReasonServerClosed, ev.Reason, false)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (c *Coordinator) onConnected() {
	if c.state != StateConnecting {
		return
	}
	if timeout := c.cfg.Network.JoinTimeout; timeout > 0 {
		c.joinDeadline = c.now().Add(timeout)
	}
	c.send(typeJoin, joinPayload(c.cfg.Server.PlayerName))
}

// checkJoinTimeout gives up on a server that accepted the connection but
// never answered the join.
func (c *Coordinator) checkJoinTimeout() {
	if c.state != StateConnecting || c.joinDeadline.IsZero() {
		return
	}
	if c.now().Before(c.joinDeadline) {
		return
	}
	c.log.Error("Join timed out", "timeout", c.cfg.Network.JoinTimeout)
	c.teardown(event.ReasonJoinTimeout, "no join_response", true)
}

// Frame advances the host, the local character and every remote by dt.
func (c *Coordinator) Frame(dt float64) {
	c.mu.Lock()
	defer c.unlock()
	c.checkJoinTimeout()
	if c.step != nil {
		c.step(dt)
	}
	if c.localAlive() {
		wasDead := c.local.IsDead()
		c.local.Tick(dt)
		if wasDead && !c.local.IsDead() {
			c.publishLocal(event.EventLocalRespawned)
		}
	}
	if c.reg != nil {
		c.reg.Tick(dt)
	}
}

func (c *Coordinator) publishLocal(name string) {
	c.emit(name, &event.LocalEvent{
		PlayerID: c.localID,
		Position: c.local.Position(),
		HP:       c.local.HP(),
	})
}

// Run drives the coordinator until ctx is done: transport events, inputs,
// animation events, publication ticks and frame ticks are handled one at a
// time on the calling goroutine.
func (c *Coordinator) Run(ctx context.Context) error {
	publish := time.NewTicker(c.cfg.Network.TickInterval())
	defer publish.Stop()
	frameRate := c.cfg.Sandbox.FrameRate
	if frameRate <= 0 {
		frameRate = 60
	}
	frame := time.NewTicker(time.Duration(float64(time.Second) / frameRate))
	defer frame.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			c.Disconnect()
			return nil
		case ev := <-c.tr.Events():
			c.HandleTransportEvent(ev)
		case in := <-c.inputs:
			c.HandleInput(in)
		case ev := <-c.anim:
			c.HandleAnimEvent(ev)
		case <-publish.C:
			c.Publish()
		case t := <-frame.C:
			dt := t.Sub(last).Seconds()
			last = t
			c.Frame(dt)
		}
	}
}

// PostAnimEvent queues a montage notification for the Run loop. It reports
// false when the queue is full.
func (c *Coordinator) PostAnimEvent(ev engine.AnimEvent) bool {
	select {
	case c.anim <- ev:
		return true
	default:
		c.log.Warn("Animation event dropped", "kind", ev.Kind.String())
		return false
	}
}

func (c *Coordinator) HandleAnimEvent(ev engine.AnimEvent) {
	c.mu.Lock()
	defer c.unlock()
	if !c.localAlive() {
		return
	}
	c.local.HandleAnimEvent(ev, c.clock())
}

// snapLocal places the local character at (x, y) on the ground below it.
// Without ground the current height is kept.
func (c *Coordinator) snapLocal(x, y float64) geom.Vec3 {
	cur := c.local.Position()
	p := geom.Vec3{X: x, Y: y, Z: cur.Z}
	if c.world == nil {
		return p
	}
	if z, ok := c.world.GroundTrace(x, y, groundProbeTop, groundProbeBottom, c.local); ok {
		half := 0.0
		if mv := c.local.Movement(); mv != nil {
			half = mv.CapsuleHalfHeight()
		}
		p.Z = z + half + localSpawnClearance
	}
	return p
}

const (
	groundProbeTop      = 50000.0
	groundProbeBottom   = -50000.0
	localSpawnClearance = 10.0
)
