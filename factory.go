package rewind

type factory struct{}

var Factory factory

// NewSchema returns a schema with the built-in view component registered.
func (f factory) NewSchema() *Schema {
	return newSchema()
}

// NewState returns an uninitialized state of schema. It initializes on first write.
func (f factory) NewState(schema *Schema) *State {
	return newState(schema)
}

func (f factory) NewStatePool(schema *Schema) *StatePool {
	return newStatePool(schema)
}

// NewHistory keeps up to size states spawned from pool.
func (f factory) NewHistory(pool *StatePool, size int) *History {
	return newHistory(pool, size)
}

func (f factory) NewQuery() Query {
	return newQuery()
}

// NewCursor watches the query's components on state until the cursor is closed.
func (f factory) NewCursor(query QueryNode, state *State) *Cursor {
	return newCursor(query, state)
}

// FactoryNewComponent registers T with schema and panics on failure.
func FactoryNewComponent[T any](schema *Schema, opts ...ComponentOption) ComponentType[T] {
	c, err := RegisterComponent[T](schema, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// FactoryNewCopyableComponent registers a Copyable T with schema and panics on failure.
func FactoryNewCopyableComponent[T any, PT Copyable[T]](schema *Schema, opts ...ComponentOption) ComponentType[T] {
	c, err := RegisterCopyableComponent[T, PT](schema, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}
