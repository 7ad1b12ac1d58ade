package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Network NetworkConfig `yaml:"network"`
	Combat  CombatConfig  `yaml:"combat"`
	Remote  RemoteConfig  `yaml:"remote"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Sandbox SandboxConfig `yaml:"sandbox"`
}

type ServerConfig struct {
	URL          string        `yaml:"url"`
	PlayerName   string        `yaml:"player_name"`
	AutoConnect  bool          `yaml:"auto_connect"`
	ConnectDelay time.Duration `yaml:"connect_delay"`
}

type NetworkConfig struct {
	// TickRate is the state publication rate in Hz.
	TickRate         float64       `yaml:"tick_rate"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	JoinTimeout      time.Duration `yaml:"join_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PongTimeout      time.Duration `yaml:"pong_timeout"`
	QueueSize        int           `yaml:"queue_size"`
	// AttackRate limits attack intents per target, per second.
	AttackRate  float64 `yaml:"attack_rate"`
	AttackBurst int     `yaml:"attack_burst"`
}

// CombatConfig times are in seconds of game time.
type CombatConfig struct {
	ComboTolerance      float64  `yaml:"combo_tolerance"`
	AttackTolerance     float64  `yaml:"attack_tolerance"`
	MeleeTraceDistance  float64  `yaml:"melee_trace_distance"`
	MeleeTraceRadius    float64  `yaml:"melee_trace_radius"`
	MeleeDamage         float64  `yaml:"melee_damage"`
	MeleeKnockback      float64  `yaml:"melee_knockback"`
	MeleeLaunch         float64  `yaml:"melee_launch"`
	DangerTraceDistance float64  `yaml:"danger_trace_distance"`
	DangerTraceRadius   float64  `yaml:"danger_trace_radius"`
	MaxHP               float64  `yaml:"max_hp"`
	RespawnTime         float64  `yaml:"respawn_time"`
	ComboMontage        string   `yaml:"combo_montage"`
	ComboSections       []string `yaml:"combo_sections"`
	ChargedMontage      string   `yaml:"charged_montage"`
	ChargeLoopSection   string   `yaml:"charge_loop_section"`
	ChargeAttackSection string   `yaml:"charge_attack_section"`
}

type RemoteConfig struct {
	// TeleportThreshold is a squared horizontal distance.
	TeleportThreshold  float64 `yaml:"teleport_threshold"`
	ChaseMinDistance   float64 `yaml:"chase_min_distance"`
	ChaseDistanceScale float64 `yaml:"chase_distance_scale"`
	ChaseMinInput      float64 `yaml:"chase_min_input"`
	ChaseMaxInput      float64 `yaml:"chase_max_input"`
	HitReactionTime    float64 `yaml:"hit_reaction_time"`
	HitImpulseScale    float64 `yaml:"hit_impulse_scale"`
	HPDropKnockback    float64 `yaml:"hp_drop_knockback"`
	ServerKnockback    float64 `yaml:"server_knockback"`
	SpawnHeight        float64 `yaml:"spawn_height"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type SandboxConfig struct {
	HalfExtent  float64 `yaml:"half_extent"`
	FloorHeight float64 `yaml:"floor_height"`
	Dummies     int     `yaml:"dummies"`
	FrameRate   float64 `yaml:"frame_rate"`
}

// Default returns a complete configuration tuned like the reference arena.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:          "ws://127.0.0.1:8080/ws",
			PlayerName:   "Player",
			AutoConnect:  true,
			ConnectDelay: 500 * time.Millisecond,
		},
		Network: NetworkConfig{
			TickRate:         20,
			HandshakeTimeout: 10 * time.Second,
			JoinTimeout:      10 * time.Second,
			WriteTimeout:     10 * time.Second,
			PongTimeout:      60 * time.Second,
			QueueSize:        256,
			AttackRate:       10,
			AttackBurst:      2,
		},
		Combat: CombatConfig{
			ComboTolerance:      0.45,
			AttackTolerance:     1.0,
			MeleeTraceDistance:  75,
			MeleeTraceRadius:    75,
			MeleeDamage:         1,
			MeleeKnockback:      250,
			MeleeLaunch:         300,
			DangerTraceDistance: 300,
			DangerTraceRadius:   150,
			MaxHP:               5,
			RespawnTime:         3,
			ComboMontage:        "combo_attack",
			ComboSections:       []string{"1", "2", "3"},
			ChargedMontage:      "charged_attack",
			ChargeLoopSection:   "charge_loop",
			ChargeAttackSection: "attack",
		},
		Remote: RemoteConfig{
			TeleportThreshold:  40000,
			ChaseMinDistance:   5,
			ChaseDistanceScale: 100,
			ChaseMinInput:      0.5,
			ChaseMaxInput:      1,
			HitReactionTime:    0.5,
			HitImpulseScale:    0.1,
			HPDropKnockback:    500,
			ServerKnockback:    250,
			SpawnHeight:        100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Sandbox: SandboxConfig{
			HalfExtent:  5000,
			FloorHeight: 0,
			Dummies:     1,
			FrameRate:   60,
		},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Server.URL == "":
		return fmt.Errorf("%w: server.url is empty", ErrInvalidConfig)
	case c.Network.TickRate <= 0:
		return fmt.Errorf("%w: network.tick_rate must be positive", ErrInvalidConfig)
	case c.Network.AttackRate <= 0 || c.Network.AttackBurst <= 0:
		return fmt.Errorf("%w: network.attack_rate and attack_burst must be positive", ErrInvalidConfig)
	case len(c.Combat.ComboSections) == 0:
		return fmt.Errorf("%w: combat.combo_sections is empty", ErrInvalidConfig)
	case c.Combat.MaxHP <= 0:
		return fmt.Errorf("%w: combat.max_hp must be positive", ErrInvalidConfig)
	case c.Combat.ComboTolerance < 0 || c.Combat.AttackTolerance < 0:
		return fmt.Errorf("%w: combat tolerances must not be negative", ErrInvalidConfig)
	case c.Remote.ChaseMinInput > c.Remote.ChaseMaxInput:
		return fmt.Errorf("%w: remote.chase_min_input exceeds chase_max_input", ErrInvalidConfig)
	case c.Remote.ChaseDistanceScale <= 0:
		return fmt.Errorf("%w: remote.chase_distance_scale must be positive", ErrInvalidConfig)
	}
	return nil
}

// TickInterval is the period between state publications.
func (n NetworkConfig) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / n.TickRate)
}
