package ecs

import (
	"reflect"

	"github.com/argus-labs/lumen/pkg/assert"
	"github.com/rotisserie/eris"
)

// Component is the interface that all components must implement. Components are plain data
// records attached to at most one entity. Instances are pointers so systems update them in place.
type Component interface { //nolint:iface // We may add more methods in the future.
	// Name returns a unique string identifier for the component type.
	// This should be consistent across program executions.
	Name() string
}

// TypeID is the stable integer a component type is resolved to when it is first registered.
type TypeID = uint32

// Factory constructs a fresh component instance.
type Factory func() Component

// Type describes a component type: its name, Go type, and how to construct it.
type Type struct {
	name    string
	rtype   reflect.Type
	factory Factory
}

// TypeOf returns the descriptor of component type T. Instances are created as new(T).
//
//	var Transform = ecs.TypeOf[Transform3D]()
func TypeOf[T any, P interface {
	*T
	Component
}]() Type {
	return Type{
		name:    P(new(T)).Name(),
		rtype:   reflect.TypeFor[T](),
		factory: func() Component { return P(new(T)) },
	}
}

// TypeWith returns the descriptor of component type T built by fn, for components that need
// non-zero defaults or injected collaborators.
func TypeWith[T any, P interface {
	*T
	Component
}](fn func() P) Type {
	t := TypeOf[T, P]()
	t.factory = func() Component { return fn() }
	return t
}

// Name returns the component type name.
func (t Type) Name() string { return t.name }

// WithFactory returns a copy of t that constructs instances with fn. The copy resolves to the
// same TypeID as t.
func (t Type) WithFactory(fn Factory) Type {
	t.factory = fn
	return t
}

func (t Type) valid() bool {
	return t.name != "" && t.rtype != nil && t.factory != nil
}

// instantiate builds a component and checks it is of the declared Go type.
func (t Type) instantiate() (Component, error) {
	c := t.factory()
	if c == nil {
		return nil, eris.Errorf("factory for component %s returned nil", t.name)
	}
	if got := reflect.TypeOf(c); got.Kind() != reflect.Pointer || got.Elem() != t.rtype {
		return nil, eris.Errorf("factory for component %s returned %s, want *%s", t.name, got, t.rtype)
	}
	return c, nil
}

// typeRegistry resolves component type names to TypeIDs. It is append-only, so a TypeID indexes
// every per-type table in the world.
type typeRegistry struct {
	catalog map[string]TypeID // Component name -> type ID
	types   []Type            // Type ID -> descriptor
}

func newTypeRegistry() typeRegistry {
	return typeRegistry{
		catalog: make(map[string]TypeID),
		types:   make([]Type, 0),
	}
}

// register returns the TypeID of t, registering it on first use. Registering the same name for
// two different Go types is a configuration error.
func (r *typeRegistry) register(t Type) (TypeID, error) {
	if !t.valid() {
		return 0, eris.Wrap(ErrConfiguration, "component type must be built with TypeOf or TypeWith")
	}

	if id, exists := r.catalog[t.name]; exists {
		if existing := r.types[id].rtype; existing != t.rtype {
			return 0, eris.Wrapf(ErrConfiguration,
				"component name %s is used by both %s and %s", t.name, existing, t.rtype)
		}
		return id, nil
	}

	id := TypeID(len(r.types)) //nolint:gosec // won't overflow
	r.catalog[t.name] = id
	r.types = append(r.types, t)
	assert.That(len(r.catalog) == len(r.types), "type catalog doesn't match number of types")

	return id, nil
}

// lookup returns the TypeID registered for t, if any.
func (r *typeRegistry) lookup(t Type) (TypeID, bool) {
	id, exists := r.catalog[t.name]
	if !exists || r.types[id].rtype != t.rtype {
		return 0, false
	}
	return id, true
}

func (r *typeRegistry) get(id TypeID) Type {
	return r.types[id]
}

func (r *typeRegistry) len() int {
	return len(r.types)
}

// typeOfInstance derives a descriptor from a caller-constructed component.
func typeOfInstance(c Component) (Type, error) {
	if c == nil {
		return Type{}, eris.New("component must not be nil")
	}
	rt := reflect.TypeOf(c)
	if rt.Kind() != reflect.Pointer || reflect.ValueOf(c).IsNil() {
		return Type{}, eris.Errorf("component must be a non-nil pointer, got %s", rt)
	}
	elem := rt.Elem()
	return Type{
		name:  c.Name(),
		rtype: elem,
		factory: func() Component {
			return reflect.New(elem).Interface().(Component) //nolint:forcetypeassert // elem is a component type
		},
	}, nil
}
