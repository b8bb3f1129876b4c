package ecs

import (
	"iter"
	"reflect"

	"github.com/rotisserie/eris"
)

// typeIDOf resolves T to its registered id without registering it.
func typeIDOf[T any, P interface {
	*T
	Component
}](w *World) (TypeID, bool) {
	return w.types.lookup(Type{name: P(new(T)).Name(), rtype: reflect.TypeFor[T]()})
}

// Get returns the T attached to id.
func Get[T any, P interface {
	*T
	Component
}](w *World, id EntityID) (*T, error) {
	if !w.entities.isValid(id) {
		return nil, eris.Wrapf(ErrUnknownEntity, "get component of entity %s", id)
	}

	tid, ok := typeIDOf[T, P](w)
	if !ok {
		return nil, eris.Errorf("component %s is not registered", P(new(T)).Name())
	}

	rec := w.store.get(id)
	pos, ok := rec.find(tid)
	if !ok {
		return nil, eris.Errorf("entity %s has no component %s", id, P(new(T)).Name())
	}
	return (*T)(rec.components[pos].(P)), nil //nolint:forcetypeassert // the registry pins the Go type of a name
}

// Has reports whether id has a T attached.
func Has[T any, P interface {
	*T
	Component
}](w *World, id EntityID) bool {
	_, err := Get[T, P](w, id)
	return err == nil
}

// All iterates every live T in attach order.
func All[T any, P interface {
	*T
	Component
}](w *World) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		tid, ok := typeIDOf[T, P](w)
		if !ok {
			return
		}
		for _, c := range w.store.ofType(tid) {
			if !yield((*T)(c.(P))) { //nolint:forcetypeassert // the registry pins the Go type of a name
				return
			}
		}
	}
}

// SystemOf returns the named system as S.
func SystemOf[S System](w *World, name string) (S, error) {
	var zero S
	sys, err := w.System(name)
	if err != nil {
		return zero, err
	}
	s, ok := sys.(S)
	if !ok {
		return zero, eris.Errorf("system %s is %T", name, sys)
	}
	return s, nil
}
