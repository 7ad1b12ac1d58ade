package sandbox

import (
	"math"
	"sort"

	"github.com/Versifine/arena/internal/config"
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/geom"
)

// World is a square flat floor with invisible walls at its edge. Bodies are
// pawns; dummies are dynamic props.
type World struct {
	halfExtent float64
	floor      float64
	bodies     []*Body
	dummies    []*Dummy
}

func NewWorld(cfg config.SandboxConfig) *World {
	return &World{halfExtent: cfg.HalfExtent, floor: cfg.FloorHeight}
}

func (w *World) Floor() float64 {
	return w.floor
}

// SpawnHeight is the capsule centre height of a body standing on the floor.
func (w *World) SpawnHeight() float64 {
	return w.floor + CapsuleHalfHeight
}

func (w *World) inside(x, y float64) bool {
	return math.Abs(x) <= w.halfExtent && math.Abs(y) <= w.halfExtent
}

// GroundTrace probes the floor only; bodies and props are never ground.
func (w *World) GroundTrace(x, y, fromZ, toZ float64, ignore any) (float64, bool) {
	if !w.inside(x, y) {
		return 0, false
	}
	if w.floor > fromZ || w.floor < toZ {
		return 0, false
	}
	return w.floor, true
}

func (w *World) floorAt(x, y float64) (float64, bool) {
	if !w.inside(x, y) {
		return 0, false
	}
	return w.floor, true
}

// clampToArena keeps p inside the walls and zeroes velocity into them.
func (w *World) clampToArena(p, v geom.Vec3) (geom.Vec3, geom.Vec3) {
	if w.halfExtent <= 0 {
		return p, v
	}
	if p.X > w.halfExtent {
		p.X, v.X = w.halfExtent, math.Min(v.X, 0)
	} else if p.X < -w.halfExtent {
		p.X, v.X = -w.halfExtent, math.Max(v.X, 0)
	}
	if p.Y > w.halfExtent {
		p.Y, v.Y = w.halfExtent, math.Min(v.Y, 0)
	} else if p.Y < -w.halfExtent {
		p.Y, v.Y = -w.halfExtent, math.Max(v.Y, 0)
	}
	return p, v
}

func (w *World) addBody(b *Body) {
	w.bodies = append(w.bodies, b)
}

func (w *World) removeBody(b *Body) {
	for i, other := range w.bodies {
		if other == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			return
		}
	}
}

func (w *World) AddDummy(d *Dummy) {
	w.dummies = append(w.dummies, d)
}

func (w *World) Dummies() []*Dummy {
	return w.dummies
}

type sweepHit struct {
	hit engine.Hit
	s   float64
}

// Sweep tests a sphere moving from Start to End against every capsule of the
// requested kinds. Hits are ordered along the sweep.
func (w *World) Sweep(q engine.SweepQuery) []engine.Hit {
	var found []sweepHit
	test := func(entity any, center geom.Vec3) {
		if q.Ignore != nil && entity == q.Ignore {
			return
		}
		if h, s, ok := sweepCapsule(q, center); ok {
			h.Entity = entity
			found = append(found, sweepHit{hit: h, s: s})
		}
	}

	if q.Kinds&engine.ObjectPawn != 0 {
		for _, b := range w.bodies {
			test(b.entity(), b.pos)
		}
	}
	if q.Kinds&engine.ObjectDynamic != 0 {
		for _, d := range w.dummies {
			test(d, d.pos)
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].s < found[j].s })
	hits := make([]engine.Hit, 0, len(found))
	for _, f := range found {
		hits = append(hits, f.hit)
	}
	return hits
}

func sweepCapsule(q engine.SweepQuery, center geom.Vec3) (engine.Hit, float64, bool) {
	axis := geom.Up.Scale(CapsuleHalfHeight - CapsuleRadius)
	s, _, onSweep, onAxis := closestSegmentPoints(q.Start, q.End, center.Sub(axis), center.Add(axis))
	gap := onSweep.Sub(onAxis)
	if gap.LenSq() > (q.Radius+CapsuleRadius)*(q.Radius+CapsuleRadius) {
		return engine.Hit{}, 0, false
	}
	normal := gap.SafeNormal()
	if normal.IsZero() {
		normal = q.Start.Sub(q.End).SafeNormal()
	}
	return engine.Hit{
		ImpactPoint:  onAxis.Add(normal.Scale(CapsuleRadius)),
		ImpactNormal: normal,
	}, s, true
}

// closestSegmentPoints returns the parameters and points of closest approach
// between segments p1q1 and p2q2.
func closestSegmentPoints(p1, q1, p2, q2 geom.Vec3) (s, t float64, c1, c2 geom.Vec3) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	switch {
	case a <= CollisionAxisTolerance && e <= CollisionAxisTolerance:
	case a <= CollisionAxisTolerance:
		t = geom.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= CollisionAxisTolerance {
			s = geom.Clamp(-c/a, 0, 1)
			break
		}
		b := d1.Dot(d2)
		if denom := a*e - b*b; denom != 0 {
			s = geom.Clamp((b*f-c*e)/denom, 0, 1)
		}
		t = (b*s + f) / e
		if t < 0 {
			t = 0
			s = geom.Clamp(-c/a, 0, 1)
		} else if t > 1 {
			t = 1
			s = geom.Clamp((b-c)/a, 0, 1)
		}
	}
	return s, t, p1.Add(d1.Scale(s)), p2.Add(d2.Scale(t))
}
