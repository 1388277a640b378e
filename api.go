package rewind

import (
	"iter"

	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/TheBitDrifter/rewind/arena"
)

// AllTypeID numbers every registered component type, tags included. It indexes the registry
// table and the archetype mask.
type AllTypeID uint32

// OwnTypeID numbers component types that carry values. Tags have OwnTypeID 0.
type OwnTypeID uint32

// Component is the type-erased handle of a registered component type.
type Component interface {
	table.ElementType
	AllTypeID() AllTypeID
	OwnTypeID() OwnTypeID
	IsTag() bool
	TypeName() string
	info() *componentInfo
}

// Copyable components own arena sub-allocations or external handles and need an explicit copy
// and release instead of a bitwise overwrite.
//
// CopyFrom is called on a zero receiver living in dst and deep-copies other, which lives in src.
// OnRecycle releases what the value owns in a before it is overwritten or removed.
type Copyable[T any] interface {
	*T
	CopyFrom(dst, src *arena.Arena, other *T)
	OnRecycle(a *arena.Arena)
}

// Hasher lets a component type replace its raw bytes in the state hash, e.g. to quantize floats.
type Hasher interface {
	Hash() uint64
}

// Hooks observe component presence changes on a state.
type Hooks struct {
	OnAdd    func(e Entity, c Component)
	OnRemove func(e Entity, c Component)
}

// ViewInstantiator is the presentation collaborator notified when an entity gains a view.
type ViewInstantiator interface {
	InstantiateView(info ViewInfo)
}

type Query interface {
	QueryNode
	And(items ...interface{}) QueryNode
	Or(items ...interface{}) QueryNode
	Not(items ...interface{}) QueryNode
}

type QueryNode interface {
	Evaluate(archetype mask.Mask) bool
	Components() []Component
}

type iCursor interface {
	Entities() iter.Seq2[int, Entity]
	Next() bool
}

type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	GetItem32(uint32) *T
	Register(string, T) (int, error)
	Len() int
}

// Cursor walks the live entities of a state that match a query, in ascending id order.
type Cursor struct {
	query QueryNode
	state *State

	matched     []Entity
	index       int
	watched     []Component
	initialized bool
}

type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}

var errCacheFull = eris.New("cache at maximum capacity")

func logger() *zerolog.Logger {
	return Config.Logger()
}
