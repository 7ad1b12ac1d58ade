package event

import "github.com/Versifine/arena/internal/geom"

const (
	EventConnectionChanged = "connection.changed"
	EventRemoteJoined      = "remote.joined"
	EventRemoteLeft        = "remote.left"
	EventLocalDied         = "local.died"
	EventLocalRespawned    = "local.respawned"
	EventDamage            = "damage"
)

type RemoteEvent struct {
	PlayerID string
	Position geom.Vec3
}

type LocalEvent struct {
	PlayerID string
	Position geom.Vec3
	HP       float64
}

type DamageEvent struct {
	AttackerID string
	TargetID   string
	Amount     float64
	TargetHP   float64
	Dead       bool
}
