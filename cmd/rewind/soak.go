package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/TheBitDrifter/rewind"
	"github.com/TheBitDrifter/rewind/snapshot"
)

var ErrDesync = eris.New("re-simulated state diverged from the reference")

type report struct {
	World       uuid.UUID
	Ticks       int
	Rollbacks   int
	Resimulated int
	Verified    int
	Saved       int
	Pruned      int
	Hash        uint64
	Entities    int
	Elapsed     time.Duration
}

func (r report) MarshalZerologObject(e *zerolog.Event) {
	e.Str("world", r.World.String()).
		Int("ticks", r.Ticks).
		Int("rollbacks", r.Rollbacks).
		Int("resimulated", r.Resimulated).
		Int("verified", r.Verified).
		Int("saved", r.Saved).
		Int("pruned", r.Pruned).
		Int("entities", r.Entities).
		Str("hash", hashString(r.Hash)).
		Dur("elapsed", r.Elapsed)
}

// soaker runs a reference simulation alongside a predicted one. The predicted state only
// learns a tick's input input_delay ticks late, so it keeps guessing, rolling back and
// re-simulating. Every re-simulated tick whose input is confirmed must hash like the
// reference.
type soaker struct {
	cfg      WorldConfig
	snap     SnapshotConfig
	world    *world
	store    snapshot.Store
	log      zerolog.Logger
	inputs   func(tick uint64) input
	expected []uint64
}

func newSoaker(cfg WorldConfig, snap SnapshotConfig, store snapshot.Store, log zerolog.Logger) *soaker {
	return &soaker{
		cfg:      cfg,
		snap:     snap,
		world:    newWorld(cfg.SpawnEvery),
		store:    store,
		log:      log,
		inputs:   inputs(cfg.Seed),
		expected: make([]uint64, cfg.Ticks+1),
	}
}

// guess returns the input the predicted state uses for tick: the real one once confirmed,
// else the newest confirmed one repeated.
func (k *soaker) guess(tick uint64, confirmed int64) input {
	if int64(tick) <= confirmed {
		return k.inputs(tick)
	}
	if confirmed < 0 {
		return input{}
	}
	return k.inputs(uint64(confirmed))
}

func (k *soaker) run(ctx context.Context) (report, error) {
	start := time.Now()
	pool := rewind.Factory.NewStatePool(k.world.schema)
	history := rewind.Factory.NewHistory(pool, k.cfg.Window)
	defer history.Discard()

	reference := pool.Spawn()
	defer reference.Recycle()
	predicted := pool.Spawn()
	defer predicted.Recycle()

	if err := k.world.populate(reference, k.cfg.Entities, k.cfg.Seed); err != nil {
		return report{}, err
	}
	if err := predicted.CopyFrom(reference); err != nil {
		return report{}, eris.Wrap(err, "failed to copy the initial state")
	}
	k.expected[0] = reference.GetHash()

	rep := report{World: reference.WorldID()}
	confirmed := int64(-1)
	delay := uint64(k.cfg.InputDelay)
	for t := uint64(0); t < uint64(k.cfg.Ticks); t++ {
		if err := ctx.Err(); err != nil {
			return rep, eris.Wrapf(err, "interrupted at tick %d", t)
		}

		if err := k.world.step(reference, k.inputs(t)); err != nil {
			return rep, err
		}
		k.expected[t+1] = reference.GetHash()

		if err := history.Store(predicted); err != nil {
			return rep, err
		}
		if err := k.world.step(predicted, k.guess(t, confirmed)); err != nil {
			return rep, err
		}
		rep.Ticks++

		if t+1 < delay {
			continue
		}
		confirmed = int64(t + 1 - delay)
		n, err := k.correct(history, predicted, uint64(confirmed), confirmed)
		if err != nil {
			return rep, err
		}
		rep.Rollbacks++
		rep.Resimulated += n
		rep.Verified++

		if k.store != nil && (t+1)%uint64(k.snap.Every) == 0 {
			pruned, err := k.persist(ctx, reference)
			if err != nil {
				return rep, err
			}
			rep.Saved++
			rep.Pruned += pruned
		}
	}

	rep.Hash = reference.GetHash()
	rep.Entities = reference.EntityCount()
	rep.Elapsed = time.Since(start)
	return rep, nil
}

// correct rolls predicted back to the newly confirmed tick and re-simulates up to where it
// was. The first re-simulated tick ran on confirmed inputs only and is checked against the
// reference.
func (k *soaker) correct(history *rewind.History, predicted *rewind.State, from uint64, confirmed int64) (int, error) {
	until := predicted.Tick()
	if err := history.Rollback(predicted, from); err != nil {
		return 0, eris.Wrapf(err, "failed to correct tick %d", from)
	}
	n := 0
	for predicted.Tick() < until {
		tick := predicted.Tick()
		if tick != from {
			if err := history.Store(predicted); err != nil {
				return n, err
			}
		}
		if err := k.world.step(predicted, k.guess(tick, confirmed)); err != nil {
			return n, err
		}
		n++
		if tick == from {
			if got, want := predicted.GetHash(), k.expected[tick+1]; got != want {
				return n, eris.Wrapf(ErrDesync, "tick %d: predicted %s, reference %s", tick+1, hashString(got), hashString(want))
			}
		}
	}
	return n, nil
}

func (k *soaker) persist(ctx context.Context, s *rewind.State) (int, error) {
	meta, err := k.store.Save(ctx, s)
	if err != nil {
		return 0, err
	}
	pruned, err := k.store.Prune(ctx, meta.World, k.snap.Keep)
	if err != nil {
		return 0, err
	}
	k.log.Info().
		Uint64("tick", meta.Tick).
		Int("bytes", meta.Bytes).
		Int("entities", meta.Entities).
		Int("pruned", pruned).
		Msg("snapshot stored")
	return pruned, nil
}
