package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DesertImage/ecs-burst-sub000/internal/component"
	"github.com/DesertImage/ecs-burst-sub000/internal/config"
	"github.com/DesertImage/ecs-burst-sub000/internal/core/ecs"
	coresys "github.com/DesertImage/ecs-burst-sub000/internal/core/system"
	"github.com/DesertImage/ecs-burst-sub000/internal/data"
	"github.com/DesertImage/ecs-burst-sub000/internal/scripting"
	"github.com/DesertImage/ecs-burst-sub000/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

const lineWidth = 46

func printBanner(worldID string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              ecsworld  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mworld:\033[0m \033[90m%s\033[0m\n\n", worldID)
}

func printSection(title string) {
	lineLen := max(lineWidth-runewidth.StringWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(lineWidth-4-runewidth.StringWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	cfgPath := "config/world.toml"
	if p := os.Getenv("ECSWORLD_CONFIG"); p != "" {
		cfgPath = p
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "path to the TOML config file")
	profMode := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	flag.Parse()

	switch *profMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown -profile mode %q (want cpu or mem)", *profMode)
	}

	// 1. Load config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. World and component types
	w := ecs.NewWorld(cfg.WorldOptions(), log)
	defer func() {
		if err := w.Dispose(); err != nil {
			log.Error("dispose world", zap.Error(err))
		}
	}()
	if err := component.Register(w); err != nil {
		return fmt.Errorf("register components: %w", err)
	}
	printBanner(w.ID().String())

	// 4. Prefabs and initial population
	printSection("data")
	prefabs, err := loadPrefabs(cfg.Data)
	if err != nil {
		return err
	}
	printStat("prefabs", prefabs.Count())
	spawned, err := prefabs.SpawnAll(w)
	if err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	printStat("entities spawned", spawned)
	fmt.Println()

	// 5. Systems
	printSection("systems")
	if err := addSystems(w, cfg, prefabs, log); err != nil {
		return err
	}
	printStat("registered", w.Stats().Systems)
	fmt.Println()

	// 6. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Runner.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Runner.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			if err := w.Tick(cfg.Runner.TickRate); err != nil {
				return fmt.Errorf("tick %d: %w", w.Ticks(), err)
			}
			if cfg.Runner.MaxTicks > 0 && w.Ticks() >= cfg.Runner.MaxTicks {
				log.Info("tick limit reached", zap.Uint64("ticks", w.Ticks()))
				return verify(w, log)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return verify(w, log)
		}
	}
}

// loadPrefabs reads the prefab file and, when it is a different file, the
// spawn file.
func loadPrefabs(cfg config.DataConfig) (*data.PrefabTable, error) {
	prefabs, err := data.ParsePrefabTable(nil)
	if err != nil {
		return nil, err
	}
	if cfg.PrefabFile != "" {
		if prefabs, err = data.LoadPrefabTable(cfg.PrefabFile); err != nil {
			return nil, err
		}
		printOK("loaded " + cfg.PrefabFile)
	}
	if cfg.SpawnFile != "" && cfg.SpawnFile != cfg.PrefabFile {
		spawns, err := data.LoadPrefabTable(cfg.SpawnFile)
		if err != nil {
			return nil, err
		}
		if err := prefabs.Merge(spawns); err != nil {
			return nil, err
		}
		printOK("loaded " + cfg.SpawnFile)
	}
	return prefabs, nil
}

func addSystems(w *ecs.World, cfg *config.Config, prefabs *data.PrefabTable, log *zap.Logger) error {
	movement, err := system.NewMovementSystem(w)
	if err != nil {
		return fmt.Errorf("movement system: %w", err)
	}
	lifetime, err := system.NewLifetimeSystem(w)
	if err != nil {
		return fmt.Errorf("lifetime system: %w", err)
	}
	var bounds system.Bounds
	if b := cfg.World.Bounds; len(b) == 4 {
		bounds = system.Bounds{MinX: b[0], MinY: b[1], MaxX: b[2], MaxY: b[3]}
	}
	cleanup, err := system.NewCleanupSystem(w, bounds)
	if err != nil {
		return fmt.Errorf("cleanup system: %w", err)
	}
	w.AddSystem(movement)
	w.AddSystem(lifetime)
	w.AddSystem(cleanup)
	w.AddSystem(system.NewStatsSystem(w, int(cfg.Runner.StatsEvery), cfg.Runner.DumpWorld, log))
	printOK("movement, lifetime, cleanup, stats")

	if !cfg.Scripting.Enabled {
		return nil
	}
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, w, prefabs, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	phase, _ := coresys.ParsePhase(cfg.Scripting.Phase)
	scripts := engine.Systems(phase)
	for _, s := range scripts {
		w.AddSystem(s)
	}
	printOK(fmt.Sprintf("%d script systems from %s", len(scripts), cfg.Scripting.Dir))
	return nil
}

// verify checks the world's internal consistency before shutdown.
func verify(w *ecs.World, log *zap.Logger) error {
	if err := w.Verify(); err != nil {
		return fmt.Errorf("world inconsistent after %d ticks: %w", w.Ticks(), err)
	}
	st := w.Stats()
	log.Info("world stopped",
		zap.Uint64("ticks", st.Ticks),
		zap.Int("entities", st.Entities),
		zap.Int("groups", st.Groups),
	)
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
