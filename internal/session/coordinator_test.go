package session

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Versifine/arena/internal/character"
	"github.com/Versifine/arena/internal/config"
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/event"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/registry"
	"github.com/Versifine/arena/internal/transport"
)

type harness struct {
	c       *Coordinator
	tr      *fakeTransport
	local   *character.Character
	localAv *stubAvatar
	reg     *registry.Registry
	sp      *stubSpawner
	world   *stubWorld
	now     time.Time
	game    float64
	events  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	h := &harness{
		tr:      newFakeTransport(),
		world:   &stubWorld{},
		sp:      &stubSpawner{avatars: make(map[string]*stubAvatar)},
		localAv: newStubAvatar("local", geom.Vec3{Z: 250}),
		now:     time.Unix(1000, 0),
	}

	opts := character.OptionsFrom(cfg, character.RoleLocal)
	opts.Avatar = h.localAv
	opts.World = h.world
	h.local = character.New(opts)
	h.reg = registry.New(registry.Options{
		World:     h.world,
		Spawner:   h.sp,
		Character: character.OptionsFrom(cfg, character.RoleRemote),
		Remote:    cfg.Remote,
	})

	bus := event.NewBus()
	for _, name := range []string{
		event.EventConnectionChanged,
		event.EventRemoteJoined,
		event.EventRemoteLeft,
		event.EventLocalDied,
		event.EventLocalRespawned,
	} {
		bus.Subscribe(name, func(any) { h.events = append(h.events, name) })
	}

	h.c = New(Options{
		Config:    cfg,
		Transport: h.tr,
		Local:     h.local,
		Registry:  h.reg,
		World:     h.world,
		Bus:       bus,
		Clock:     func() float64 { return h.game },
		Now:       func() time.Time { return h.now },
	})
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	h.c.Connect("")
	h.tr.connected = true
	h.c.HandleTransportEvent(transport.Event{Kind: transport.EventConnected, Gen: h.tr.gen})
}

func (h *harness) deliver(text string) {
	h.c.HandleTransportEvent(transport.Event{Kind: transport.EventMessage, Gen: h.tr.gen, Text: []byte(text)})
}

func (h *harness) join(t *testing.T, id string) {
	t.Helper()
	h.connect(t)
	h.deliver(`{"type":"join_response","data":{"player_id":"` + id + `"}}`)
	require.Equal(t, StateJoined, h.c.State())
}

func (h *harness) count(name string) int {
	n := 0
	for _, e := range h.events {
		if e == name {
			n++
		}
	}
	return n
}

func countType(types []string, want string) int {
	n := 0
	for _, t := range types {
		if t == want {
			n++
		}
	}
	return n
}

func TestConnectSendsJoinAndWaits(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	assert.Equal(t, StateConnecting, h.c.State())
	require.Len(t, h.tr.sent, 1)
	assert.JSONEq(t, `{"type":"join","data":{"name":"Player"}}`, string(h.tr.sent[0]))
	assert.Equal(t, []string{"ws://127.0.0.1:8080/ws"}, h.tr.urls)
}

func TestConnectIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.c.Connect("ws://a")
	h.c.Connect("ws://b")
	assert.Len(t, h.tr.urls, 1)
	assert.Equal(t, 1, h.count(event.EventConnectionChanged))
}

// TestJoinResponseWithoutGround 没有地面时保留当前高度, 水平位置取出生提示, 开始发布状态
func TestJoinResponseWithoutGround(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.deliver(`{"type":"join_response","data":{"player_id":"p1","spawn_position":[100,200]}}`)

	assert.Equal(t, StateJoined, h.c.State())
	assert.Equal(t, "p1", h.c.LocalID())
	assert.Equal(t, "p1", h.local.PlayerID())
	assert.Equal(t, geom.Vec3{X: 100, Y: 200, Z: 250}, h.local.Position())

	h.c.Publish()
	assert.Equal(t, []string{"join", "state_update"}, h.tr.sentTypes(t))
}

func TestJoinResponseSnapsToGround(t *testing.T) {
	h := newHarness(t)
	h.world.ground, h.world.hasGround = 20, true
	h.connect(t)
	h.deliver(`{"type":"join_response","data":{"player_id":"p1","spawn_position":[5,6]}}`)

	assert.Equal(t, geom.Vec3{X: 5, Y: 6, Z: 120}, h.local.Position())
}

func TestPublishRequiresJoin(t *testing.T) {
	h := newHarness(t)
	h.c.Publish()
	assert.Empty(t, h.tr.sent)

	h.connect(t)
	h.c.Publish()
	assert.Equal(t, []string{"join"}, h.tr.sentTypes(t))

	h.deliver(`{"type":"join_response","data":{"player_id":"p1"}}`)
	h.c.Publish()
	h.c.Publish()
	assert.Equal(t, 2, countType(h.tr.sentTypes(t), "state_update"))

	h.tr.connected = false
	h.c.Publish()
	assert.Equal(t, 2, countType(h.tr.sentTypes(t), "state_update"))
}

func TestPublishNeverSendsInvalidState(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")
	h.local.Teleport(geom.Vec3{X: math.NaN()})

	h.c.Publish()
	assert.Zero(t, countType(h.tr.sentTypes(t), "state_update"))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.c.Metrics().PublishSkipped.WithLabelValues("invalid")))
}

// TestPlayerJoinLeaveThenStateSpawnsFresh 离开后的 player_state 会重新生成实体而不是复活旧实体
func TestPlayerJoinLeaveThenStateSpawnsFresh(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")

	h.deliver(`{"type":"player_joined","data":{"player_id":"p2","position":[0,0]}}`)
	old, ok := h.reg.Get("p2")
	require.True(t, ok)

	h.deliver(`{"type":"player_left","data":{"player_id":"p2"}}`)
	assert.Zero(t, h.reg.Len())
	assert.False(t, old.Alive())

	h.deliver(`{"type":"player_state","data":{"player_id":"p2","position":[10,0,0],"rotation":[0,0,0],"velocity":[0,0,0],"anim_state":0,"combo_stage":0,"charge_progress":0,"hp":5,"max_hp":5,"timestamp":1}}`)
	fresh, ok := h.reg.Get("p2")
	require.True(t, ok)
	assert.NotSame(t, old, fresh)
	assert.True(t, fresh.Alive())
	assert.Equal(t, 2, h.count(event.EventRemoteJoined))
	assert.Equal(t, 1, h.count(event.EventRemoteLeft))
}

func TestLocalIDNeverSpawnsRemote(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")

	h.deliver(`{"type":"player_joined","data":{"player_id":"p1","position":[0,0]}}`)
	h.deliver(`{"type":"player_state","data":{"player_id":"p1","position":[900,0,0],"hp":5,"max_hp":5}}`)

	assert.Zero(t, h.reg.Len())
	assert.Equal(t, geom.Vec3{Z: 250}, h.local.Position())
}

func TestPositionCorrectionTeleports(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")

	h.deliver(`{"type":"position_correction","data":{"position":[1,2,3]}}`)
	assert.Equal(t, geom.Vec3{X: 1, Y: 2, Z: 3}, h.local.Position())
}

// TestRemoteDeathHasNoRagdoll 远程实体死亡: HP 归零, 禁用移动, 不开启布娃娃
func TestRemoteDeathHasNoRagdoll(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")
	h.deliver(`{"type":"player_joined","data":{"player_id":"p2","position":[300,0]}}`)

	h.deliver(`{"type":"damage","data":{"attacker_id":"p1","target_id":"p2","damage":5,"target_hp":0,"target_dead":true}}`)

	rc, ok := h.reg.Get("p2")
	require.True(t, ok)
	assert.Zero(t, rc.HP())
	assert.True(t, rc.IsDead())
	mv := h.sp.avatars["p2"].move
	assert.True(t, mv.disabled)
	assert.False(t, mv.ragdoll)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.c.Metrics().Damage.WithLabelValues("remote")))
}

func TestRemoteDamageKnockbackDirection(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")
	h.deliver(`{"type":"player_joined","data":{"player_id":"p2","position":[0,300]}}`)

	h.deliver(`{"type":"damage","data":{"attacker_id":"p1","target_id":"p2","damage":1,"target_hp":4,"target_dead":false}}`)

	mv := h.sp.avatars["p2"].move
	require.Len(t, mv.impulses, 1)
	assert.InDelta(t, 0, mv.impulses[0].X, 1e-9)
	assert.InDelta(t, 250, mv.impulses[0].Y, 1e-9)

	h.deliver(`{"type":"damage","data":{"attacker_id":"ghost","target_id":"p2","damage":1,"target_hp":3,"target_dead":false}}`)
	require.Len(t, mv.impulses, 2)
	assert.InDelta(t, 250, mv.impulses[1].X, 1e-9, "unknown attacker falls back to forward")
}

func TestLocalDamageDeathAndRespawn(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")
	h.deliver(`{"type":"player_joined","data":{"player_id":"p2","position":[300,0]}}`)

	h.deliver(`{"type":"damage","data":{"attacker_id":"p2","target_id":"p1","damage":1,"target_hp":4,"target_dead":false}}`)
	assert.Equal(t, 4.0, h.local.HP())
	require.Len(t, h.localAv.move.impulses, 1)
	assert.InDelta(t, -250, h.localAv.move.impulses[0].X, 1e-9)

	h.deliver(`{"type":"damage","data":{"attacker_id":"p2","target_id":"p1","damage":4,"target_hp":0,"target_dead":true}}`)
	assert.True(t, h.local.IsDead())
	assert.True(t, h.localAv.move.ragdoll)
	assert.False(t, h.local.RespawnPending(), "the server decides when we respawn")
	assert.Equal(t, 1, h.count(event.EventLocalDied))

	h.deliver(`{"type":"respawn","data":{"player_id":"p1","position":[10,20],"hp":5,"max_hp":5}}`)
	assert.False(t, h.local.IsDead())
	assert.Equal(t, 5.0, h.local.HP())
	assert.Equal(t, geom.Vec3{X: 10, Y: 20, Z: 250}, h.local.Position())
	assert.False(t, h.localAv.move.ragdoll)
	assert.Equal(t, 1, h.count(event.EventLocalRespawned))
}

func TestServerHPIsClamped(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")

	h.deliver(`{"type":"damage","data":{"attacker_id":"p2","target_id":"p1","damage":1,"target_hp":99,"target_dead":false}}`)
	assert.Equal(t, 5.0, h.local.HP())

	h.deliver(`{"type":"respawn","data":{"player_id":"p1","hp":12,"max_hp":10}}`)
	assert.Equal(t, 10.0, h.local.HP())
	assert.Equal(t, 10.0, h.local.MaxHP())
}

func TestRemoteRespawn(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")
	h.deliver(`{"type":"player_joined","data":{"player_id":"p2","position":[300,0]}}`)
	h.deliver(`{"type":"damage","data":{"attacker_id":"p1","target_id":"p2","damage":5,"target_hp":0,"target_dead":true}}`)

	h.deliver(`{"type":"respawn","data":{"player_id":"p2","position":[50,60],"hp":5,"max_hp":5}}`)

	rc, ok := h.reg.Get("p2")
	require.True(t, ok)
	assert.False(t, rc.IsDead())
	assert.Equal(t, 5.0, rc.HP())
	assert.Equal(t, geom.Vec3{X: 50, Y: 60}, rc.Position())
	assert.False(t, h.sp.avatars["p2"].move.disabled)
}

func TestDisconnectTearsDown(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")
	h.deliver(`{"type":"player_joined","data":{"player_id":"p2","position":[0,0]}}`)
	h.deliver(`{"type":"player_joined","data":{"player_id":"p3","position":[0,0]}}`)
	require.Equal(t, 2, h.reg.Len())

	h.c.Disconnect()

	assert.Equal(t, StateDisconnected, h.c.State())
	assert.Zero(t, h.reg.Len())
	assert.Empty(t, h.sp.avatars)
	assert.Empty(t, h.c.LocalID())
	assert.Empty(t, h.local.PlayerID())
	require.Len(t, h.tr.finals, 1)
	assert.JSONEq(t, `{"type":"leave"}`, string(h.tr.finals[0]))

	changes := h.count(event.EventConnectionChanged)
	h.c.Disconnect()
	assert.Equal(t, changes, h.count(event.EventConnectionChanged), "second disconnect is silent")

	h.c.Publish()
	assert.Zero(t, countType(h.tr.sentTypes(t), "state_update"))
}

func TestDisconnectBeforeConnect(t *testing.T) {
	h := newHarness(t)
	h.c.Disconnect()
	assert.Equal(t, StateDisconnected, h.c.State())
	assert.Empty(t, h.events)
}

func TestTransportClosedTearsDown(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")
	h.deliver(`{"type":"player_joined","data":{"player_id":"p2","position":[0,0]}}`)

	h.tr.connected = false
	h.c.HandleTransportEvent(transport.Event{Kind: transport.EventClosed, Gen: h.tr.gen, Code: 1001, Reason: "going away"})

	assert.Equal(t, StateDisconnected, h.c.State())
	assert.Zero(t, h.reg.Len())
	assert.Empty(t, h.c.LocalID())
	assert.Empty(t, h.tr.finals)
}

func TestDialErrorReturnsToDisconnected(t *testing.T) {
	h := newHarness(t)
	h.c.Connect("")
	h.c.HandleTransportEvent(transport.Event{Kind: transport.EventError, Gen: h.tr.gen})

	assert.Equal(t, StateDisconnected, h.c.State())
	h.c.Connect("")
	assert.Len(t, h.tr.urls, 2, "reconnect allowed after failure")
}

func TestStaleGenerationIgnored(t *testing.T) {
	h := newHarness(t)
	h.c.Connect("")
	oldGen := h.tr.gen
	h.c.Disconnect()
	h.c.Connect("")

	h.c.HandleTransportEvent(transport.Event{Kind: transport.EventClosed, Gen: oldGen})
	assert.Equal(t, StateConnecting, h.c.State())
}

func TestBadMessagesAreDropped(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")

	h.deliver(`not json`)
	h.deliver(`{"data":{}}`)
	h.deliver(`{"type":"teleport_everyone","data":{}}`)
	h.deliver(`{"type":"player_left","data":{"player_id":"nobody"}}`)

	assert.Equal(t, StateJoined, h.c.State())
	m := h.c.Metrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dropped.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dropped.WithLabelValues("unknown_type")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Received.WithLabelValues("player_left")))
}

func TestJoinTimeout(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	h.now = h.now.Add(9 * time.Second)
	h.c.Frame(0.016)
	assert.Equal(t, StateConnecting, h.c.State())

	h.now = h.now.Add(2 * time.Second)
	h.c.Frame(0.016)
	assert.Equal(t, StateDisconnected, h.c.State())
	assert.Len(t, h.tr.finals, 1, "leave is still attempted")
}

func TestAttackIntentsAreThrottledPerTarget(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")
	h.deliver(`{"type":"player_joined","data":{"player_id":"p2","position":[50,0]}}`)
	rc, ok := h.reg.Get("p2")
	require.True(t, ok)
	h.world.hits = []engine.Hit{{Entity: rc, ImpactPoint: geom.Vec3{X: 50}}}

	trace := engine.AnimEvent{Kind: engine.AnimAttackTrace, Source: "hand_r"}
	for i := 0; i < 3; i++ {
		h.c.HandleAnimEvent(trace)
	}
	assert.Equal(t, 2, countType(h.tr.sentTypes(t), "attack"))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.c.Metrics().AttackIntents.WithLabelValues("throttled")))
	assert.Equal(t, 5.0, rc.HP(), "remote HP is left to the server")

	h.now = h.now.Add(200 * time.Millisecond)
	h.c.HandleAnimEvent(trace)
	assert.Equal(t, 3, countType(h.tr.sentTypes(t), "attack"))
}

func TestAttackOfflineSendsNothing(t *testing.T) {
	h := newHarness(t)
	dummy := &damageable{}
	h.world.hits = []engine.Hit{{Entity: dummy}}

	h.c.HandleAnimEvent(engine.AnimEvent{Kind: engine.AnimAttackTrace})
	assert.Empty(t, h.tr.sent)
	assert.Equal(t, 1.0, dummy.taken, "offline melee still works")
}

func TestInputsDriveLocalCharacter(t *testing.T) {
	h := newHarness(t)

	h.c.HandleInput(Input{Kind: InputCombo})
	assert.Equal(t, "combo", h.c.Status().Phase)

	h.c.HandleInput(Input{Kind: InputMove, Dir: geom.Vec3{X: 2}, Value: 1})
	assert.Equal(t, 1, h.localAv.move.inputs)

	h.c.HandleInput(Input{Kind: InputTeleport, Dir: geom.Vec3{X: 7}})
	assert.Equal(t, geom.Vec3{X: 7}, h.local.Position())

	h.c.HandleInput(Input{Kind: InputSetHP, Value: 0})
	assert.True(t, h.local.IsDead())
	assert.Equal(t, 1, h.count(event.EventLocalDied))

	h.c.HandleInput(Input{Kind: InputConnect})
	assert.Equal(t, StateConnecting, h.c.State())
	h.c.HandleInput(Input{Kind: InputDisconnect})
	assert.Equal(t, StateDisconnected, h.c.State())
}

func TestOfflineRespawnPublishesEvent(t *testing.T) {
	h := newHarness(t)
	h.c.HandleInput(Input{Kind: InputSetHP, Value: 0})
	require.True(t, h.local.RespawnPending())

	h.c.Frame(3.5)
	assert.False(t, h.local.IsDead())
	assert.Equal(t, 1, h.count(event.EventLocalRespawned))
}

func TestStatusListsRemotes(t *testing.T) {
	h := newHarness(t)
	h.join(t, "p1")
	h.deliver(`{"type":"player_joined","data":{"player_id":"p3","position":[1,1]}}`)
	h.deliver(`{"type":"player_joined","data":{"player_id":"p2","position":[2,2]}}`)

	st := h.c.Status()
	assert.Equal(t, StateJoined, st.State)
	assert.Equal(t, "p1", st.LocalID)
	assert.True(t, st.Connected)
	require.Len(t, st.Remotes, 2)
	assert.Equal(t, "p2", st.Remotes[0].ID)
	assert.Equal(t, "p3", st.Remotes[1].ID)
}

func TestRunProcessesQueuedWork(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.c.Run(ctx) }()

	require.True(t, h.c.Submit(Input{Kind: InputCombo}))
	assert.Eventually(t, func() bool {
		return h.c.Status().Phase == "combo"
	}, time.Second, 5*time.Millisecond)

	require.True(t, h.c.PostAnimEvent(engine.AnimEvent{Kind: engine.AnimMontageEnded}))
	assert.Eventually(t, func() bool {
		return h.c.Status().Phase == "idle"
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type damageable struct{ taken float64 }

func (d *damageable) ApplyDamage(amount float64, _ any, _, _ geom.Vec3) { d.taken += amount }
func (d *damageable) NotifyDanger(geom.Vec3, any) {}

// TestBusHandlersMayCallCoordinator 事件在释放锁之后投递, 处理函数可以回调协调器
func TestBusHandlersMayCallCoordinator(t *testing.T) {
	h := newHarness(t)
	var seen []State
	h.c.Bus().Subscribe(event.EventConnectionChanged, func(any) {
		seen = append(seen, h.c.Status().State)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.connect(t)
		h.deliver(`{"type":"join_response","data":{"player_id":"p1"}}`)
		h.c.Disconnect()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bus handler blocked on the coordinator")
	}
	assert.Equal(t, []State{StateConnecting, StateJoined, StateDisconnected}, seen)
}
