package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/Versifine/arena/internal/geom"
)

// Join announces the client under a display name.
type Join struct {
	Name string `json:"name"`
}

// Leave carries no fields; it encodes as an empty object.
type Leave struct{}

type StateUpdate struct {
	Position       [3]float64 `json:"position"`
	Rotation       [3]float64 `json:"rotation"`
	Velocity       [3]float64 `json:"velocity"`
	AnimState      AnimState  `json:"anim_state"`
	ComboStage     int        `json:"combo_stage"`
	ChargeProgress float64    `json:"charge_progress"`
	HP             float64    `json:"hp"`
	MaxHP          float64    `json:"max_hp"`
}

// Validate keeps partial or non-finite local state off the wire.
func (s StateUpdate) Validate() error {
	return s.networkState().Validate()
}

func (s StateUpdate) networkState() NetworkState {
	return NetworkState{
		Position:       Vec3Of(s.Position),
		Rotation:       RotatorOf(s.Rotation),
		Velocity:       Vec3Of(s.Velocity),
		AnimState:      s.AnimState,
		ComboStage:     s.ComboStage,
		ChargeProgress: s.ChargeProgress,
		CurrentHP:      s.HP,
		MaxHP:          s.MaxHP,
	}
}

type Attack struct {
	TargetID string `json:"target_id"`
}

// JoinResponse assigns the local player id. SpawnPosition is nil when the
// server sent no usable hint.
type JoinResponse struct {
	PlayerID      string      `json:"player_id"`
	SpawnPosition *[2]float64 `json:"spawn_position,omitempty"`
}

type PlayerJoined struct {
	PlayerID string      `json:"player_id"`
	Position *[2]float64 `json:"position,omitempty"`
}

type PlayerState struct {
	PlayerID       string     `json:"player_id"`
	Position       [3]float64 `json:"position"`
	Rotation       [3]float64 `json:"rotation"`
	Velocity       [3]float64 `json:"velocity"`
	AnimState      AnimState  `json:"anim_state"`
	ComboStage     int        `json:"combo_stage"`
	ChargeProgress float64    `json:"charge_progress"`
	HP             float64    `json:"hp"`
	MaxHP          float64    `json:"max_hp"`
	Timestamp      float64    `json:"timestamp"`
}

// NetworkState converts the payload into the shared state value.
func (p PlayerState) NetworkState() NetworkState {
	return NetworkState{
		Position:       Vec3Of(p.Position),
		Rotation:       RotatorOf(p.Rotation),
		Velocity:       Vec3Of(p.Velocity),
		AnimState:      p.AnimState,
		ComboStage:     p.ComboStage,
		ChargeProgress: p.ChargeProgress,
		CurrentHP:      p.HP,
		MaxHP:          p.MaxHP,
		Timestamp:      p.Timestamp,
	}
}

type PlayerLeft struct {
	PlayerID string `json:"player_id"`
}

type PositionCorrection struct {
	Position [3]float64 `json:"position"`
}

type Damage struct {
	AttackerID string  `json:"attacker_id"`
	TargetID   string  `json:"target_id"`
	Damage     float64 `json:"damage"`
	TargetHP   float64 `json:"target_hp"`
	TargetDead bool    `json:"target_dead"`
}

type Respawn struct {
	PlayerID string      `json:"player_id"`
	Position *[2]float64 `json:"position,omitempty"`
	HP       float64     `json:"hp"`
	MaxHP    float64     `json:"max_hp"`
}

func ParseJoin(data json.RawMessage) (Join, []string, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return Join{}, nil, err
	}
	return Join{Name: r.str("name")}, r.missing, nil
}

func ParseAttack(data json.RawMessage) (Attack, []string, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return Attack{}, nil, err
	}
	return Attack{TargetID: r.str("target_id")}, r.missing, nil
}

func ParseStateUpdate(data json.RawMessage) (StateUpdate, []string, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return StateUpdate{}, nil, err
	}
	s := StateUpdate{
		Position:       r.vec3("position"),
		Rotation:       r.vec3("rotation"),
		Velocity:       r.vec3("velocity"),
		AnimState:      AnimStateFromInt(r.integer("anim_state")),
		ComboStage:     r.integer("combo_stage"),
		ChargeProgress: r.num("charge_progress"),
		HP:             r.num("hp"),
		MaxHP:          r.num("max_hp"),
	}
	return s, r.missing, nil
}

func ParseJoinResponse(data json.RawMessage) (JoinResponse, []string, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return JoinResponse{}, nil, err
	}
	return JoinResponse{
		PlayerID:      r.str("player_id"),
		SpawnPosition: r.hint("spawn_position"),
	}, r.missing, nil
}

func ParsePlayerJoined(data json.RawMessage) (PlayerJoined, []string, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return PlayerJoined{}, nil, err
	}
	return PlayerJoined{
		PlayerID: r.str("player_id"),
		Position: r.hint("position"),
	}, r.missing, nil
}

func ParsePlayerState(data json.RawMessage) (PlayerState, []string, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return PlayerState{}, nil, err
	}
	p := PlayerState{
		PlayerID:       r.str("player_id"),
		Position:       r.vec3("position"),
		Rotation:       r.vec3("rotation"),
		Velocity:       r.vec3("velocity"),
		AnimState:      AnimStateFromInt(r.integer("anim_state")),
		ComboStage:     r.integer("combo_stage"),
		ChargeProgress: r.num("charge_progress"),
		HP:             r.num("hp"),
		MaxHP:          r.num("max_hp"),
		Timestamp:      r.num("timestamp"),
	}
	return p, r.missing, nil
}

func ParsePlayerLeft(data json.RawMessage) (PlayerLeft, []string, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return PlayerLeft{}, nil, err
	}
	return PlayerLeft{PlayerID: r.str("player_id")}, r.missing, nil
}

func ParsePositionCorrection(data json.RawMessage) (PositionCorrection, []string, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return PositionCorrection{}, nil, err
	}
	return PositionCorrection{Position: r.vec3("position")}, r.missing, nil
}

func ParseDamage(data json.RawMessage) (Damage, []string, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return Damage{}, nil, err
	}
	d := Damage{
		AttackerID: r.str("attacker_id"),
		TargetID:   r.str("target_id"),
		Damage:     r.num("damage"),
		TargetHP:   r.num("target_hp"),
		TargetDead: r.boolean("target_dead"),
	}
	return d, r.missing, nil
}

func ParseRespawn(data json.RawMessage) (Respawn, []string, error) {
	r, err := newFieldReader(data)
	if err != nil {
		return Respawn{}, nil, err
	}
	p := Respawn{
		PlayerID: r.str("player_id"),
		Position: r.hint("position"),
		HP:       r.num("hp"),
		MaxHP:    r.num("max_hp"),
	}
	return p, r.missing, nil
}

// Parse decodes the payload of env into its typed message. The returned slice
// names fields that were absent or malformed and fell back to zero values.
func Parse(env Envelope) (any, []string, error) {
	var (
		msg     any
		missing []string
		err     error
	)
	switch env.Type {
	case TypeJoin:
		msg, missing, err = ParseJoin(env.Data)
	case TypeLeave:
		return Leave{}, nil, nil
	case TypeStateUpdate:
		msg, missing, err = ParseStateUpdate(env.Data)
	case TypeAttack:
		msg, missing, err = ParseAttack(env.Data)
	case TypeJoinResponse:
		msg, missing, err = ParseJoinResponse(env.Data)
	case TypePlayerJoined:
		msg, missing, err = ParsePlayerJoined(env.Data)
	case TypePlayerState:
		msg, missing, err = ParsePlayerState(env.Data)
	case TypePlayerLeft:
		msg, missing, err = ParsePlayerLeft(env.Data)
	case TypePositionCorrection:
		msg, missing, err = ParsePositionCorrection(env.Data)
	case TypeDamage:
		msg, missing, err = ParseDamage(env.Data)
	case TypeRespawn:
		msg, missing, err = ParseRespawn(env.Data)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", env.Type, err)
	}
	return msg, missing, nil
}

// Vec3Of reads an [x,y,z] wire array.
func Vec3Of(a [3]float64) geom.Vec3 {
	return geom.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// RotatorOf reads a [pitch,yaw,roll] wire array.
func RotatorOf(a [3]float64) geom.Rotator {
	return geom.Rotator{Pitch: a[0], Yaw: a[1], Roll: a[2]}
}

func ArrayOf(v geom.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func RotatorArray(r geom.Rotator) [3]float64 {
	return [3]float64{r.Pitch, r.Yaw, r.Roll}
}

// HintOf builds a 2D spawn hint.
func HintOf(x, y float64) *[2]float64 {
	return &[2]float64{x, y}
}
