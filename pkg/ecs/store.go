package ecs

import (
	"slices"

	"github.com/argus-labs/lumen/pkg/assert"
	"github.com/kelindar/bitmap"
)

// entityRecord holds the components of one live entity. components and types are parallel and
// kept in insertion order; set mirrors types for superset checks.
type entityRecord struct {
	id         EntityID
	components []Component
	types      []TypeID
	set        bitmap.Bitmap
}

// find returns the position of the component of type tid.
func (r *entityRecord) find(tid TypeID) (int, bool) {
	if !r.set.Contains(tid) {
		return 0, false
	}
	i := slices.Index(r.types, tid)
	assert.That(i >= 0, "type set of entity %s is out of sync with its components", r.id)
	return i, true
}

// componentStore owns entity records and the global per-type index. The per-type lists keep
// attach order: removal shifts later instances down instead of swapping in the last one.
type componentStore struct {
	records []*entityRecord        // Slot index -> record, nil when the slot is free
	byType  [][]Component          // Type ID -> live instances in attach order
	owners  map[Component]EntityID // Attached instance -> owning entity
}

func newComponentStore() componentStore {
	return componentStore{
		records: make([]*entityRecord, 0, 64),
		byType:  make([][]Component, 0),
		owners:  make(map[Component]EntityID),
	}
}

// create installs an empty record for a freshly allocated id.
func (s *componentStore) create(id EntityID) *entityRecord {
	index := int(id.Index())
	if index >= len(s.records) {
		s.records = append(s.records, make([]*entityRecord, index+1-len(s.records))...)
	}
	assert.That(s.records[index] == nil, "slot %d already holds an entity", index)

	rec := &entityRecord{id: id}
	s.records[index] = rec
	return rec
}

// get returns the record of id. The caller has already validated id against the allocator.
func (s *componentStore) get(id EntityID) *entityRecord {
	index := int(id.Index())
	if index >= len(s.records) {
		return nil
	}
	rec := s.records[index]
	if rec == nil || rec.id != id {
		return nil
	}
	return rec
}

// drop forgets the record of id once its components are detached.
func (s *componentStore) drop(rec *entityRecord) {
	assert.That(len(rec.components) == 0, "entity %s dropped with components attached", rec.id)
	s.records[rec.id.Index()] = nil
}

// attach appends c to the entity and to the global index of tid.
func (s *componentStore) attach(rec *entityRecord, tid TypeID, c Component) {
	rec.components = append(rec.components, c)
	rec.types = append(rec.types, tid)
	rec.set.Set(tid)

	for int(tid) >= len(s.byType) {
		s.byType = append(s.byType, nil)
	}
	s.byType[tid] = append(s.byType[tid], c)
	s.owners[c] = rec.id
}

// owner returns the entity c is attached to.
func (s *componentStore) owner(c Component) (EntityID, bool) {
	id, ok := s.owners[c]
	return id, ok
}

// detach removes the component of type tid from the entity and the global index.
func (s *componentStore) detach(rec *entityRecord, tid TypeID) (Component, bool) {
	i, ok := rec.find(tid)
	if !ok {
		return nil, false
	}

	c := rec.components[i]
	rec.components = slices.Delete(rec.components, i, i+1)
	rec.types = slices.Delete(rec.types, i, i+1)
	rec.set.Remove(tid)
	s.unindex(tid, c)
	return c, true
}

// detachAll removes every component of the entity, newest first.
func (s *componentStore) detachAll(rec *entityRecord) {
	for i := len(rec.components) - 1; i >= 0; i-- {
		s.unindex(rec.types[i], rec.components[i])
	}
	rec.components = rec.components[:0]
	rec.types = rec.types[:0]
	rec.set.Clear()
}

func (s *componentStore) unindex(tid TypeID, c Component) {
	delete(s.owners, c)
	list := s.byType[tid]
	i := slices.Index(list, c)
	assert.That(i >= 0, "component %s missing from the global index", c.Name())
	if i < 0 {
		return
	}
	s.byType[tid] = slices.Delete(list, i, i+1)
}

// ofType returns the live instances of tid. The slice is owned by the store.
func (s *componentStore) ofType(tid TypeID) []Component {
	if int(tid) >= len(s.byType) {
		return nil
	}
	return s.byType[tid]
}
