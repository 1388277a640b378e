package rewind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advance(t *testing.T, w testWorld, s *State, e Entity) {
	t.Helper()
	p, _ := w.position.Read(s, e)
	require.NoError(t, w.position.Set(s, e, position{X: p.X + 1}))
	s.SetTick(s.Tick() + 1)
}

func TestHistoryStoreAndRollback(t *testing.T) {
	w := newTestWorld()
	pool := Factory.NewStatePool(w.schema)
	history := Factory.NewHistory(pool, 4)
	state := pool.Spawn()
	entities, err := state.NewEntities(1, w.position)
	require.NoError(t, err)
	e := entities[0]

	hashes := map[uint64]uint64{}
	for i := 0; i < 6; i++ {
		require.NoError(t, history.Store(state))
		hashes[state.Tick()] = state.GetHash()
		advance(t, w, state, e)
	}

	assert.Equal(t, 4, history.Len())
	oldest, _ := history.Oldest()
	latest, _ := history.Latest()
	assert.Equal(t, uint64(2), oldest, "the oldest entries are evicted")
	assert.Equal(t, uint64(5), latest)
	assert.False(t, history.Has(1))

	require.NoError(t, history.Rollback(state, 3))
	assert.Equal(t, uint64(3), state.Tick())
	assert.Equal(t, hashes[3], state.GetHash())
	p, _ := w.position.Read(state, e)
	assert.Equal(t, 3.0, p.X)

	assert.True(t, history.Has(3))
	assert.False(t, history.Has(4), "newer entries are dropped by a rollback")
	assert.ErrorIs(t, history.Rollback(state, 5), ErrTickNotInHistory)
}

func TestHistoryStoreReplacesResimulatedTicks(t *testing.T) {
	w := newTestWorld()
	pool := Factory.NewStatePool(w.schema)
	history := Factory.NewHistory(pool, 8)
	state := pool.Spawn()
	entities, err := state.NewEntities(1, w.position)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, history.Store(state))
		advance(t, w, state, entities[0])
	}
	state.SetTick(1)
	require.NoError(t, w.velocity.Set(state, entities[0], velocity{X: 1}))
	require.NoError(t, history.Store(state))

	assert.Equal(t, 2, history.Len())
	require.NoError(t, history.Rollback(state, 1))
	assert.True(t, w.velocity.Has(state, entities[0]), "the re-stored tick replaced the old one")
}

func TestHistoryRecyclesIntoPool(t *testing.T) {
	w := newTestWorld()
	pool := Factory.NewStatePool(w.schema)
	history := Factory.NewHistory(pool, 2)
	state := pool.Spawn()
	state.Initialize()

	for i := 0; i < 10; i++ {
		require.NoError(t, history.Store(state))
		state.SetTick(state.Tick() + 1)
	}
	assert.LessOrEqual(t, pool.Spawned(), 4, "evicted snapshots are reused")

	history.Discard()
	assert.Equal(t, 0, history.Len())
	_, ok := history.Latest()
	assert.False(t, ok)
	assert.Equal(t, pool.Spawned()-1, pool.Len())
}

func TestHistoryRejectsForeignStates(t *testing.T) {
	pool := Factory.NewStatePool(newTestWorld().schema)
	history := Factory.NewHistory(pool, 2)
	foreign := Factory.NewState(newTestWorld().schema)
	foreign.Initialize()

	assert.ErrorIs(t, history.Store(foreign), ErrForeignState)
	assert.Equal(t, 0, history.Len())
}

func TestGetHash(t *testing.T) {
	w := newTestWorld()
	a := Factory.NewState(w.schema)
	b := Factory.NewState(w.schema)
	populate(t, w, a)
	populate(t, w, b)
	require.Equal(t, a.GetHash(), b.GetHash(), "identical histories hash equal")

	tests := []struct {
		name   string
		mutate func(s *State)
	}{
		{"tick", func(s *State) { s.SetTick(s.Tick() + 1) }},
		{"random", func(s *State) { s.Random().Uint64() }},
		{"value", func(s *State) {
			require.NoError(t, w.position.Set(s, s.EntityByID(1), position{X: 0.5}))
		}},
		{"tag", func(s *State) {
			require.NoError(t, w.frozen.Set(s, s.EntityByID(2), frozen{}))
		}},
		{"new entity", func(s *State) {
			_, err := s.CreateEntity()
			require.NoError(t, err)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Factory.NewState(w.schema)
			require.NoError(t, c.CopyFrom(a))
			require.Equal(t, a.GetHash(), c.GetHash())
			tt.mutate(c)
			assert.NotEqual(t, a.GetHash(), c.GetHash())
		})
	}
}
