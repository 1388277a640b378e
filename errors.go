package rewind

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	ErrSchemaMismatch   = eris.New("serialized state was produced by a different schema")
	ErrCorruptBuffer    = eris.New("serialized state is corrupt")
	ErrNotInitialized   = eris.New("state is not initialized")
	ErrTickNotInHistory = eris.New("tick is not stored in history")
	ErrForeignState     = eris.New("states belong to different schemas")

	ErrUnstorableType    = eris.New("type contains pointers and cannot be stored in a state")
	ErrTooManyComponents = eris.New("component id space exhausted")
)

// EmptyEntityError is returned when an operation addresses a dead or empty entity.
type EmptyEntityError struct {
	Entity Entity
}

func (e EmptyEntityError) Error() string {
	return fmt.Sprintf("entity %v is empty or no longer alive", e.Entity)
}

// OutOfStateError is returned for writes while the state is locked.
type OutOfStateError struct {
	Op string
}

func (e OutOfStateError) Error() string {
	return fmt.Sprintf("%s: state is locked outside of the simulation window", e.Op)
}

type ComponentNotFoundError struct {
	Component Component
	Entity    Entity
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component %s does not exist on entity %v", e.Component.TypeName(), e.Entity)
}

// ComponentNotRegisteredError is returned when a component type from another schema is used.
type ComponentNotRegisteredError struct {
	Component string
}

func (e ComponentNotRegisteredError) Error() string {
	return fmt.Sprintf("component %s is not registered in this schema", e.Component)
}

type ComponentTypeError struct {
	Component Component
	Value     any
}

func (e ComponentTypeError) Error() string {
	return fmt.Sprintf("value of type %T cannot be stored as component %s", e.Value, e.Component.TypeName())
}
