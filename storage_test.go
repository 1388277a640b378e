package rewind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchetypeMasks(t *testing.T) {
	w := newTestWorld()

	tests := []struct {
		name             string
		firstComponents  []Component
		secondComponents []Component
		expectSame       bool
	}{
		{"Identical components", []Component{w.position, w.velocity}, []Component{w.position, w.velocity}, true},
		{"Different order", []Component{w.position, w.velocity}, []Component{w.velocity, w.position}, true},
		{"Different components", []Component{w.position}, []Component{w.velocity}, false},
		{"Subset components", []Component{w.position, w.velocity}, []Component{w.position}, false},
		{"Superset components", []Component{w.position}, []Component{w.position, w.velocity, w.health}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Factory.NewState(w.schema)
			state.Watch(w.position, w.velocity, w.health)

			first, err := state.NewEntities(1, tt.firstComponents...)
			require.NoError(t, err)
			second, err := state.NewEntities(1, tt.secondComponents...)
			require.NoError(t, err)

			same := assert.ObjectsAreEqual(state.Archetype(first[0]), state.Archetype(second[0]))
			if same != tt.expectSame {
				t.Errorf("Archetypes same: %v, expected: %v", same, tt.expectSame)
			}
		})
	}
}

func TestWatchBackfillsAndUnwatchClears(t *testing.T) {
	w := newTestWorld()
	state := Factory.NewState(w.schema)
	entities, err := state.NewEntities(2, w.velocity)
	require.NoError(t, err)

	assert.False(t, state.Watched(w.velocity))
	assert.True(t, state.Archetype(entities[0]).ContainsNone(bitMask(w.velocity.AllTypeID())))

	state.Watch(w.velocity)
	state.Watch(w.velocity)
	assert.True(t, state.Archetype(entities[0]).ContainsAll(bitMask(w.velocity.AllTypeID())), "existing entities are backfilled")

	state.Unwatch(w.velocity)
	assert.True(t, state.Watched(w.velocity), "watches are reference counted")
	state.Unwatch(w.velocity)
	assert.False(t, state.Watched(w.velocity))
	assert.True(t, state.Archetype(entities[1]).ContainsNone(bitMask(w.velocity.AllTypeID())))
}

func TestStateLocking(t *testing.T) {
	w := newTestWorld()

	tests := []struct {
		name      string
		operation func(s *State, e Entity) error
	}{
		{"Create entity", func(s *State, _ Entity) error { _, err := s.CreateEntity(); return err }},
		{"Destroy entity", func(s *State, e Entity) error { return s.DestroyEntity(e) }},
		{"Set component", func(s *State, e Entity) error { return w.velocity.Set(s, e, velocity{X: 1}) }},
		{"Remove component", func(s *State, e Entity) error { return w.position.Remove(s, e) }},
		{"Remove all", func(s *State, e Entity) error { return s.RemoveAllData(e) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Factory.NewState(w.schema)
			entities, err := state.NewEntities(1, w.position)
			require.NoError(t, err)

			state.Lock()
			var locked OutOfStateError
			if err := tt.operation(state, entities[0]); !assert.ErrorAs(t, err, &locked) {
				return
			}
			assert.True(t, state.IsAlive(entities[0]))
			assert.True(t, w.position.Has(state, entities[0]))

			state.Unlock()
			assert.NoError(t, tt.operation(state, entities[0]))
		})
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	w := newTestWorld()
	state := Factory.NewState(w.schema)
	assert.False(t, state.Initialized())
	assert.ErrorIs(t, state.RemoveAllData(Entity{ID: 1, Generation: 1}), ErrNotInitialized)

	state.Initialize()
	shared := state.Shared()
	size := state.ArenaSize()
	state.Initialize()

	assert.True(t, state.Initialized())
	assert.Equal(t, shared, state.Shared())
	assert.Equal(t, size, state.ArenaSize())
}

// populate builds a state touching every storage kind: dense, sparse, tag, shared, deferred
// tasks, lifetimes and the random generator.
func populate(t *testing.T, w testWorld, state *State) []Entity {
	t.Helper()
	entities, err := state.NewEntities(5, w.position)
	require.NoError(t, err)
	for i, e := range entities {
		require.NoError(t, w.position.Set(state, e, position{X: float64(i), Y: 2 * float64(i)}))
	}
	require.NoError(t, w.velocity.Set(state, entities[1], velocity{X: 1, Y: -1}))
	require.NoError(t, w.health.Set(state, entities[2], health{Current: 7, Max: 10}))
	require.NoError(t, w.frozen.Set(state, entities[3], frozen{}))
	require.NoError(t, w.health.SetShared(state, health{Max: 99}))
	require.NoError(t, w.velocity.SetWithLifetime(state, entities[4], velocity{X: 5}, NotifyAllSystems))
	require.NoError(t, w.frozen.SetWithLifetime(state, entities[0], frozen{}, NotifyAllModulesBelow))
	require.NoError(t, state.DestroyEntity(entities[3]))
	state.SetTick(42)
	state.Seed(7)
	state.Random().Uint64()
	return entities
}

func TestCopyFromClonesState(t *testing.T) {
	w := newTestWorld()
	src := Factory.NewState(w.schema)
	entities := populate(t, w, src)

	dst := Factory.NewState(w.schema)
	require.NoError(t, dst.CopyFrom(src))

	assert.Equal(t, src.GetHash(), dst.GetHash())
	assert.Equal(t, src.Tick(), dst.Tick())
	assert.Equal(t, src.EntityCount(), dst.EntityCount())
	assert.Equal(t, src.ComponentCount(), dst.ComponentCount())
	assert.Equal(t, src.WorldID(), dst.WorldID())
	assert.Equal(t, src.Random().Uint64(), dst.Random().Uint64(), "generators continue in step")
	for _, e := range entities {
		assert.Equal(t, src.IsAlive(e), dst.IsAlive(e))
		assert.Equal(t, src.Version(e), dst.Version(e))
		srcPos, srcOK := w.position.Read(src, e)
		dstPos, dstOK := w.position.Read(dst, e)
		assert.Equal(t, srcOK, dstOK)
		assert.Equal(t, srcPos, dstPos)
	}
	tick, frame := dst.PendingTasks()
	assert.Equal(t, 1, tick)
	assert.Equal(t, 0, frame)

	// no aliasing in either direction
	require.NoError(t, w.position.Set(dst, entities[0], position{X: 100}))
	got, _ := w.position.Read(src, entities[0])
	assert.Equal(t, 0.0, got.X)
	require.NoError(t, w.health.Set(src, entities[2], health{Current: 1}))
	hp, _ := w.health.Read(dst, entities[2])
	assert.Equal(t, int32(7), hp.Current)

	assert.Equal(t, 1, dst.PlayTasksForTick())
	assert.False(t, w.velocity.Has(src, entities[4]), "tasks run on the copy only")
	assert.True(t, w.velocity.Has(dst, entities[4]))
}

func TestCopyFromOverwritesPopulatedState(t *testing.T) {
	w := newTestWorld()
	src := Factory.NewState(w.schema)
	populate(t, w, src)

	dst := Factory.NewState(w.schema)
	_, err := dst.NewEntities(100, w.position, w.velocity, w.health, w.frozen)
	require.NoError(t, err)
	lone, err := dst.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, w.velocity.SetWithLifetime(dst, lone, velocity{}, NotifyAllModules))
	_, frame := dst.PendingTasks()
	require.Equal(t, 1, frame)

	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, src.GetHash(), dst.GetHash())
	assert.Equal(t, src.ComponentCount(), dst.ComponentCount())
	_, frame = dst.PendingTasks()
	assert.Equal(t, 0, frame)

	e, err := dst.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, w.health.Set(dst, e, health{Current: 1}), "copied registries accept new entities")
}

func TestCopyFromKeepsWatches(t *testing.T) {
	w := newTestWorld()
	src := Factory.NewState(w.schema)
	entities := populate(t, w, src)

	dst := Factory.NewState(w.schema)
	cursor := Factory.NewCursor(Factory.NewQuery().And(w.velocity), dst)
	defer cursor.Close()

	require.NoError(t, dst.CopyFrom(src))
	assert.False(t, src.Watched(w.velocity))
	require.True(t, cursor.Next())
	assert.Equal(t, entities[1], cursor.CurrentEntity())
	assert.False(t, cursor.Next())
}

func TestCopyFromUninitializedResets(t *testing.T) {
	w := newTestWorld()
	dst := Factory.NewState(w.schema)
	populate(t, w, dst)

	require.NoError(t, dst.CopyFrom(Factory.NewState(w.schema)))
	assert.False(t, dst.Initialized())
	assert.Equal(t, int64(0), dst.ComponentCount())
	assert.Equal(t, uint64(0), dst.Tick())
}

func TestCopyFromForeignSchema(t *testing.T) {
	src := Factory.NewState(newTestWorld().schema)
	dst := Factory.NewState(newTestWorld().schema)
	src.Initialize()
	assert.ErrorIs(t, dst.CopyFrom(src), ErrForeignState)
}

func TestStatePoolRecycle(t *testing.T) {
	w := newTestWorld()
	pool := Factory.NewStatePool(w.schema)

	first := pool.Spawn()
	populate(t, w, first)
	assert.Equal(t, pool.WorldID(), first.WorldID())

	first.Recycle()
	assert.Equal(t, 1, pool.Len())
	assert.False(t, first.Initialized())

	again := pool.Spawn()
	assert.Same(t, first, again)
	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, 1, pool.Spawned())
	assert.Equal(t, 0, again.EntityCount())
	assert.Equal(t, Factory.NewState(w.schema).GetHash(), again.GetHash(), "recycled states hash like new ones")
}

func TestHooksFireOnPresenceChanges(t *testing.T) {
	w := newTestWorld()
	state := Factory.NewState(w.schema)

	var added, removed []string
	state.SetHooks(Hooks{
		OnAdd:    func(_ Entity, c Component) { added = append(added, c.TypeName()) },
		OnRemove: func(_ Entity, c Component) { removed = append(removed, c.TypeName()) },
	})

	e, err := state.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, w.position.Set(state, e, position{X: 1}))
	require.NoError(t, w.position.Set(state, e, position{X: 2}))
	require.NoError(t, w.frozen.Set(state, e, frozen{}))
	require.NoError(t, state.DestroyEntity(e))

	assert.Equal(t, []string{w.position.TypeName(), w.frozen.TypeName()}, added)
	assert.ElementsMatch(t, []string{w.position.TypeName(), w.frozen.TypeName()}, removed)
}

type recordingViews struct {
	spawned []ViewInfo
}

func (r *recordingViews) InstantiateView(info ViewInfo) {
	r.spawned = append(r.spawned, info)
}

func TestCopyEntityInstantiatesOwnView(t *testing.T) {
	w := newTestWorld()
	state := Factory.NewState(w.schema)
	views := &recordingViews{}
	state.SetViewInstantiator(views)
	state.SetTick(3)

	entities, err := state.NewEntities(3, w.position)
	require.NoError(t, err)
	template, clone, follower := entities[0], entities[1], entities[2]
	require.NoError(t, w.position.Set(state, template, position{X: 4}))
	require.NoError(t, state.InstantiateView(template, 11))

	// a view pointing at another owner is plain data
	require.NoError(t, w.schema.View().Set(state, follower, ViewComponent{PrefabID: 2, Owner: template}))
	require.Len(t, views.spawned, 1)

	require.NoError(t, state.CopyEntity(template, clone))
	require.Len(t, views.spawned, 2)
	assert.Equal(t, clone, views.spawned[1].Entity)
	assert.Equal(t, uint32(11), views.spawned[1].PrefabID)
	assert.Equal(t, state.WorldID(), views.spawned[1].WorldID)

	info, ok := state.ViewInfo(clone)
	require.True(t, ok)
	assert.Equal(t, clone, info.Entity, "the copy owns its view")
	got, _ := w.position.Read(state, clone)
	assert.Equal(t, 4.0, got.X)

	require.NoError(t, state.CopyEntity(follower, clone))
	info, _ = state.ViewInfo(clone)
	assert.Equal(t, template, info.Entity, "views of other owners are copied as data")
	assert.Len(t, views.spawned, 2)
}

func TestObjectAccess(t *testing.T) {
	w := newTestWorld()
	state := Factory.NewState(w.schema)
	e, err := state.CreateEntity()
	require.NoError(t, err)
	id := w.velocity.AllTypeID()

	require.NoError(t, state.SetObject(e, id, velocity{X: 2}))
	require.NoError(t, state.SetObject(e, id, &velocity{X: 3}))
	got, err := state.GetObject(e, id)
	require.NoError(t, err)
	assert.Equal(t, velocity{X: 3}, got)

	var typeErr ComponentTypeError
	require.ErrorAs(t, state.SetObject(e, id, position{}), &typeErr)

	require.NoError(t, state.RemoveObject(e, id))
	var notFound ComponentNotFoundError
	_, err = state.GetObject(e, id)
	require.ErrorAs(t, err, &notFound)

	var notRegistered ComponentNotRegisteredError
	_, err = state.GetObject(e, AllTypeID(w.schema.Len()+5))
	require.ErrorAs(t, err, &notRegistered)
}
