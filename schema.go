package rewind

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/TheBitDrifter/table"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/TheBitDrifter/rewind/arena"
)

// Schema assigns type ids to component types. States built from one schema can be copied into
// each other; a serialized state only loads into a schema with the same fingerprint.
//
// Registration must happen before any state uses the type and is not safe for concurrent use.
type Schema struct {
	table   table.Schema
	names   Cache[AllTypeID]
	byAll   []*componentInfo
	nextOwn OwnTypeID
	view    ComponentType[ViewComponent]
}

func newSchema() *Schema {
	s := &Schema{
		table: table.Factory.NewSchema(),
		names: FactoryNewCache[AllTypeID](Config.maxComponents),
	}
	view, err := RegisterComponent[ViewComponent](s)
	if err != nil {
		panic(err)
	}
	s.view = view
	return s
}

// Len returns the size of the all-type id space.
func (s *Schema) Len() int {
	return len(s.byAll)
}

// Components returns every registered component in all-type id order.
func (s *Schema) Components() []Component {
	out := make([]Component, 0, len(s.byAll))
	for _, info := range s.byAll {
		if info != nil {
			out = append(out, info)
		}
	}
	return out
}

// Lookup finds a registered component by type name.
func (s *Schema) Lookup(name string) (Component, bool) {
	idx, ok := s.names.GetIndex(name)
	if !ok {
		return nil, false
	}
	return s.byAll[*s.names.GetItem(idx)], true
}

// View returns the built-in view component type.
func (s *Schema) View() ComponentType[ViewComponent] {
	return s.view
}

func (s *Schema) info(id AllTypeID) (*componentInfo, error) {
	if int(id) >= len(s.byAll) || s.byAll[id] == nil {
		return nil, ComponentNotRegisteredError{Component: fmt.Sprintf("all-type id %d", id)}
	}
	return s.byAll[id], nil
}

type schemaEntry struct {
	Name      string `json:"name"`
	AllTypeID uint32 `json:"all"`
	OwnTypeID uint32 `json:"own"`
	Size      int    `json:"size"`
	Tag       bool   `json:"tag,omitempty"`
	Sparse    bool   `json:"sparse,omitempty"`
	Copyable  bool   `json:"copyable,omitempty"`
}

// Fingerprint describes the registered layout. Serialized states carry it.
func (s *Schema) Fingerprint() ([]byte, error) {
	entries := make([]schemaEntry, 0, len(s.byAll))
	for _, info := range s.byAll {
		if info == nil {
			continue
		}
		entries = append(entries, schemaEntry{
			Name:      info.name,
			AllTypeID: uint32(info.allID),
			OwnTypeID: uint32(info.ownID),
			Size:      info.size,
			Tag:       info.tag,
			Sparse:    info.sparse,
			Copyable:  info.copyable,
		})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode schema fingerprint")
	}
	return data, nil
}

type componentInfo struct {
	table.ElementType
	schema   *Schema
	name     string
	allID    AllTypeID
	ownID    OwnTypeID
	size     int
	tag      bool
	sparse   bool
	copyable bool
	layout   []span
	ops      registryOps
}

func (c *componentInfo) AllTypeID() AllTypeID { return c.allID }
func (c *componentInfo) OwnTypeID() OwnTypeID { return c.ownID }
func (c *componentInfo) IsTag() bool          { return c.tag }
func (c *componentInfo) TypeName() string     { return c.name }
func (c *componentInfo) info() *componentInfo { return c }

// ComponentOption customizes a component type at registration.
type ComponentOption func(*componentInfo)

// WithSparseStorage keeps the values of the type in a sparse set instead of an array covering
// every entity. It suits types few entities carry.
func WithSparseStorage() ComponentOption {
	return func(c *componentInfo) {
		c.sparse = true
	}
}

// RegisterComponent registers T with schema. Registering a type twice returns the first
// registration.
func RegisterComponent[T any](schema *Schema, opts ...ComponentOption) (ComponentType[T], error) {
	return registerComponent(schema, &componentOps[T]{}, opts)
}

// RegisterCopyableComponent registers a type whose values are copied and released through its
// Copyable methods.
func RegisterCopyableComponent[T any, PT Copyable[T]](schema *Schema, opts ...ComponentOption) (ComponentType[T], error) {
	return registerComponent(schema, &componentOps[T]{copier: copyableAdapter[T, PT]{}}, opts)
}

func registerComponent[T any](schema *Schema, ops *componentOps[T], opts []ComponentOption) (ComponentType[T], error) {
	typ := reflect.TypeFor[T]()
	name := typeName(typ)
	if idx, ok := schema.names.GetIndex(name); ok {
		info := schema.byAll[*schema.names.GetItem(idx)]
		existing, ok := info.ops.(*componentOps[T])
		if !ok {
			return ComponentType[T]{}, ComponentNotRegisteredError{Component: name}
		}
		return ComponentType[T]{componentInfo: info, typed: existing}, nil
	}
	if !arena.Storable[T]() {
		return ComponentType[T]{}, eris.Wrapf(ErrUnstorableType, "component %s", name)
	}

	id := AllTypeID(len(schema.byAll))
	if int(id) >= Config.maxComponents {
		return ComponentType[T]{}, eris.Wrapf(ErrTooManyComponents, "component %s got id %d", name, id)
	}
	elem := elementTypeFor[T](typ)
	schema.table.Register(elem)

	var zero T
	info := &componentInfo{
		ElementType: elem,
		schema:      schema,
		name:        name,
		allID:       id,
		size:        int(unsafe.Sizeof(zero)),
		layout:      layoutOf(typ),
		copyable:    ops.copier != nil,
		ops:         ops,
	}
	info.tag = info.size == 0
	for _, opt := range opts {
		opt(info)
	}
	if info.tag {
		info.sparse = false
	} else {
		schema.nextOwn++
		info.ownID = schema.nextOwn
	}
	ops.info = info

	if _, err := schema.names.Register(name, id); err != nil {
		return ComponentType[T]{}, eris.Wrapf(err, "component %s", name)
	}
	schema.byAll = append(schema.byAll, info)

	logger().Debug().
		Str("component", name).
		Uint32("all", uint32(id)).
		Uint32("own", uint32(info.ownID)).
		Bool("tag", info.tag).
		Msg("component registered")
	return ComponentType[T]{componentInfo: info, typed: ops}, nil
}

// elementTypes holds one table element type per Go type. All-type ids are assigned by each
// schema in registration order, so identically registered schemas agree on them.
var elementTypes sync.Map

func elementTypeFor[T any](typ reflect.Type) table.ElementType {
	if elem, ok := elementTypes.Load(typ); ok {
		return elem.(table.ElementType)
	}
	elem, _ := elementTypes.LoadOrStore(typ, table.FactoryNewElementType[T]())
	return elem.(table.ElementType)
}

func typeName(typ reflect.Type) string {
	if typ.Name() == "" || typ.PkgPath() == "" {
		return typ.String()
	}
	return typ.PkgPath() + "." + typ.Name()
}
