package combat

import (
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
)

// SocketLocator is implemented by movement components that can place named
// attachment points such as a fist or a blade tip.
type SocketLocator interface {
	SocketLocation(name string) (geom.Vec3, bool)
}

// TraceResult summarises one melee sweep.
type TraceResult struct {
	// Remote lists player ids an attack intent was sent for.
	Remote []string
	// Local counts targets damaged on this client.
	Local int
}

// AttackTrace runs the melee sweep from the named source. Remote players are
// only reported to the server; everything else damageable is hit directly.
func (m *Machine) AttackTrace(source string) TraceResult {
	var res TraceResult
	if m.phase == PhaseDead || m.deps.World == nil || m.deps.Movement == nil {
		return res
	}

	start := m.sourceLocation(source)
	end := start.Add(m.deps.Movement.Forward().Scale(m.tuning.MeleeTraceDistance))
	hits := m.deps.World.Sweep(engine.SweepQuery{
		Start:  start,
		End:    end,
		Radius: m.tuning.MeleeTraceRadius,
		Kinds:  engine.ObjectPawn | engine.ObjectDynamic,
		Ignore: m.deps.Owner,
	})

	for _, hit := range hits {
		if m.deps.Resolver != nil {
			if id, ok := m.deps.Resolver.ResolveRemote(hit.Entity); ok {
				// The server owns player HP; offline there is nobody to ask.
				if m.deps.Sender != nil && m.deps.Sender.Connected() {
					m.deps.Sender.SendAttack(id)
					m.dealtDamage(hit.ImpactPoint)
					res.Remote = append(res.Remote, id)
				}
				continue
			}
		}
		target, ok := hit.Entity.(Damageable)
		if !ok {
			continue
		}
		impulse := hit.ImpactNormal.Scale(-m.tuning.MeleeKnockback).Add(geom.Up.Scale(m.tuning.MeleeLaunch))
		target.ApplyDamage(m.tuning.MeleeDamage, m.deps.Owner, hit.ImpactPoint, impulse)
		m.dealtDamage(hit.ImpactPoint)
		res.Local++
	}
	if len(res.Remote) > 0 || res.Local > 0 {
		m.log.Debug("Attack landed", "source", source, "remote", len(res.Remote), "local", res.Local)
	}
	return res
}

// notifyDanger warns pawns in front of the owner that a swing is coming.
func (m *Machine) notifyDanger() {
	if m.deps.World == nil || m.deps.Movement == nil {
		return
	}
	origin := m.deps.Movement.Position()
	end := origin.Add(m.deps.Movement.Forward().Scale(m.tuning.DangerTraceDistance))
	hits := m.deps.World.Sweep(engine.SweepQuery{
		Start:  origin,
		End:    end,
		Radius: m.tuning.DangerTraceRadius,
		Kinds:  engine.ObjectPawn,
		Ignore: m.deps.Owner,
	})
	for _, hit := range hits {
		if target, ok := hit.Entity.(Damageable); ok {
			target.NotifyDanger(origin, m.deps.Owner)
		}
	}
}

func (m *Machine) sourceLocation(source string) geom.Vec3 {
	if sl, ok := m.deps.Movement.(SocketLocator); ok && source != "" {
		if at, ok := sl.SocketLocation(source); ok {
			return at
		}
	}
	return m.deps.Movement.Position()
}

func (m *Machine) dealtDamage(at geom.Vec3) {
	if m.deps.Effects != nil {
		m.deps.Effects.DealtDamage(m.tuning.MeleeDamage, at)
	}
}
