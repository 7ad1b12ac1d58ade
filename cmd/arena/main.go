package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Versifine/arena/internal/character"
	"github.com/Versifine/arena/internal/config"
	"github.com/Versifine/arena/internal/debug"
	"github.com/Versifine/arena/internal/engine"
	"github.com/Versifine/arena/internal/event"
	"github.com/Versifine/arena/internal/geom"
	"github.com/Versifine/arena/internal/logger"
	"github.com/Versifine/arena/internal/metrics"
	"github.com/Versifine/arena/internal/registry"
	"github.com/Versifine/arena/internal/sandbox"
	"github.com/Versifine/arena/internal/session"
	"github.com/Versifine/arena/internal/transport"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	serverURL := flag.String("url", "", "server url, overrides server.url")
	noConsole := flag.Bool("no-console", false, "do not start the keyboard console")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}); err != nil {
		slog.Warn("Logging to stdout", "error", err)
	}
	log := logger.With("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	met := metrics.New()
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := met.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	sb := sandbox.New(cfg)
	world := sb.World()

	var coord *session.Coordinator
	localAv := sb.NewAvatar("local", geom.Vec3{Z: world.SpawnHeight()}, func(ev engine.AnimEvent) bool {
		return coord.PostAnimEvent(ev)
	})
	localOpts := character.OptionsFrom(cfg, character.RoleLocal)
	localOpts.Avatar = localAv
	localOpts.World = world
	localOpts.SpawnPoint = localAv.Body().Position()
	local := character.New(localOpts)
	sb.Attach(localAv, local)

	remoteOpts := character.OptionsFrom(cfg, character.RoleRemote)
	remoteOpts.World = world
	reg := registry.New(registry.Options{
		World:     world,
		Spawner:   sb,
		Character: remoteOpts,
		Remote:    cfg.Remote,
		OnTeleport: func(string) {
			met.Teleports.Inc()
		},
	})

	bus := event.NewBus()
	bus.Subscribe(event.EventConnectionChanged, event.ConnectionEventHandler)
	bus.Subscribe(event.EventDamage, func(raw any) {
		if ev, ok := raw.(*event.DamageEvent); ok {
			log.Debug("Damage", "attacker", ev.AttackerID, "target", ev.TargetID, "amount", ev.Amount, "hp", ev.TargetHP, "dead", ev.Dead)
		}
	})

	tr := transport.New(transport.Options{
		HandshakeTimeout: cfg.Network.HandshakeTimeout,
		WriteTimeout:     cfg.Network.WriteTimeout,
		PongTimeout:      cfg.Network.PongTimeout,
		QueueSize:        cfg.Network.QueueSize,
	})
	coord = session.New(session.Options{
		Config:    cfg,
		Transport: tr,
		Local:     local,
		Registry:  reg,
		World:     world,
		Bus:       bus,
		Metrics:   met,
		Step:      sb.Step,
	})

	if cfg.Server.AutoConnect {
		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(cfg.Server.ConnectDelay):
				coord.Connect("")
			}
		}()
	}

	if !*noConsole && term.IsTerminal(int(os.Stdin.Fd())) {
		console := debug.NewConsole(coord)
		go func() {
			if err := console.Start(ctx); err != nil {
				log.Error("Console stopped", "error", err)
			}
			stop()
		}()
	}

	log.Info("Arena client started", "server", cfg.Server.URL, "auto_connect", cfg.Server.AutoConnect)
	if err := coord.Run(ctx); err != nil {
		log.Error("Session stopped", "error", err)
		os.Exit(1)
	}
	log.Info("Arena client stopped")
}

// loadConfig falls back to the defaults when path does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}
