/*
Package rewind provides the storage core of a deterministic, rollback-capable Entity-Component-System.

All component data of a simulation state lives in one relocatable arena (see package arena). A state
can therefore be copied into another state, recycled into a pool, hashed and serialized as a whole,
which is what lockstep networking needs for prediction, rollback and replay.

Core Concepts:

  - Entity: an id plus a generation. Recycled ids get a new generation so stale handles stay dead.
  - Component: a pointer-free value type registered with a Schema. Zero-size types are tags.
  - State: entities, one registry per component type, deferred tasks, tick and random generator.
  - Lifetime: when a component set through SetWithLifetime appears and when it expires.
  - Query: And/Or/Not over the archetype bits of entities, walked with a Cursor.

Basic Usage:

	schema := rewind.Factory.NewSchema()
	position := rewind.FactoryNewComponent[Position](schema)
	velocity := rewind.FactoryNewComponent[Velocity](schema)

	pool := rewind.Factory.NewStatePool(schema)
	state := pool.Spawn()
	history := rewind.Factory.NewHistory(pool, 8)

	state.NewEntities(100, position, velocity)
	_ = history.Store(state)

	query := rewind.Factory.NewQuery()
	cursor := rewind.Factory.NewCursor(query.And(position, velocity), state)
	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel, _ := velocity.Read(state, cursor.CurrentEntity())
		pos.X += vel.X
	}

	// a late input arrived: restore the stored tick and simulate again
	_ = history.Rollback(state, 0)

Pointers returned by component accessors point into the arena and are invalidated by the next write
to the state. Read copies values out and is always safe.

Serialized states can be kept in Redis by tick with package snapshot. The rewind command runs a
predict, roll back and verify soak against a reference simulation.
*/
package rewind
