// rewind runs a rollback soak: a predicted world that learns its inputs late is rolled back
// and re-simulated every tick, and each corrected tick is checked against a reference run.
//
// Profiling:
// rewind --config soak.toml --profile cpu
// go tool pprof -http=":8000" ./rewind cpu.pprof
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/profile"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TheBitDrifter/rewind"
	"github.com/TheBitDrifter/rewind/snapshot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		ticks   int
		seed    uint64
		mode    string
	)
	cmd := &cobra.Command{
		Use:          "rewind",
		Short:        "Soak-test rollback and re-simulation of a deterministic world",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Load(cfgPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("ticks") {
				cfg.World.Ticks = ticks
			}
			if flags.Changed("seed") {
				cfg.World.Seed = seed
			}
			if flags.Changed("profile") {
				cfg.Profile.Mode = mode
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "override world.ticks")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "override world.seed")
	cmd.Flags().StringVar(&mode, "profile", "", "override profile.mode (cpu, mem or allocs)")
	return cmd
}

func run(ctx context.Context, cfg *Config) error {
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	rewind.Config.SetLogger(log.With().Str("module", "rewind").Logger())

	if p := startProfile(cfg.Profile); p != nil {
		defer p.Stop()
	}

	var store snapshot.Store
	if cfg.Snapshot.Enabled {
		s, closeStore, err := openStore(cfg.Snapshot, log)
		if err != nil {
			return err
		}
		defer closeStore()
		store = s
	}

	log.Info().
		Int("entities", cfg.World.Entities).
		Int("ticks", cfg.World.Ticks).
		Int("input_delay", cfg.World.InputDelay).
		Int("window", cfg.World.Window).
		Uint64("seed", cfg.World.Seed).
		Bool("snapshots", store != nil).
		Msg("soak started")

	rep, err := newSoaker(cfg.World, cfg.Snapshot, store, log).run(ctx)
	if err != nil {
		log.Error().EmbedObject(rep).Err(err).Msg("soak failed")
		return err
	}
	log.Info().EmbedObject(rep).Msg("soak finished")
	return nil
}

func newLogger(cfg LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), eris.Wrapf(err, "logging.level %q", cfg.Level)
	}
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func startProfile(cfg ProfileConfig) interface{ Stop() } {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	case "allocs":
		mode = profile.MemProfileAllocs
	default:
		return nil
	}
	return profile.Start(mode, profile.ProfilePath(cfg.Path), profile.NoShutdownHook)
}

// openStore connects to the configured redis, or starts an embedded one when no address is
// set.
func openStore(cfg SnapshotConfig, log zerolog.Logger) (snapshot.Store, func(), error) {
	addr := cfg.Addr
	var embedded *miniredis.Miniredis
	if addr == "" {
		m, err := miniredis.Run()
		if err != nil {
			return nil, nil, eris.Wrap(err, "failed to start embedded redis")
		}
		embedded = m
		addr = m.Addr()
		log.Info().Str("addr", addr).Msg("embedded redis started")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	closeStore := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
		if embedded != nil {
			embedded.Close()
		}
	}
	store := snapshot.NewRedisStore(client,
		snapshot.WithKeyPrefix(cfg.Prefix),
		snapshot.WithTTL(cfg.TTL),
		snapshot.WithLogger(log),
	)
	return store, closeStore, nil
}

func hashString(h uint64) string {
	return fmt.Sprintf("%016x", h)
}
