package ecs

import (
	"iter"

	"github.com/argus-labs/lumen/pkg/assert"
	"github.com/kelindar/bitmap"
)

// Rows is the interest set of one system: every entity whose components cover the system's use
// list, mapped to its components in use order. Rows are dense. A new member is appended and a
// removed member is replaced by the last row, so iteration order only changes on removal.
//
// Rows never change while a frame is running. Outside a frame, structural changes made while
// ranging over All are undefined.
type Rows struct {
	use    []TypeID      // Component types in declaration order
	mask   bitmap.Bitmap // Set of use
	ids    []EntityID    // Row -> entity
	tuples [][]Component // Row -> components in use order
	index  sparseSet     // Entity slot index -> row
}

func newRows(use []TypeID) *Rows {
	r := &Rows{
		use:    use,
		ids:    make([]EntityID, 0),
		tuples: make([][]Component, 0),
		index:  newSparseSet(),
	}
	for _, tid := range use {
		r.mask.Set(tid)
	}
	return r
}

// matches returns true if the given type set is a superset of the use list.
func (r *Rows) matches(set bitmap.Bitmap) bool {
	intersect := set.Clone(nil)
	intersect.And(r.mask)
	return intersect.Count() == r.mask.Count()
}

// upsert stores the tuple for id, replacing any existing row. Reports whether the row is new.
func (r *Rows) upsert(id EntityID, tuple []Component) bool {
	if row, exists := r.index.get(id.Index()); exists {
		assert.That(r.ids[row] == id, "row of slot %d belongs to %s, not %s", id.Index(), r.ids[row], id)
		r.tuples[row] = tuple
		return false
	}

	r.ids = append(r.ids, id)
	r.tuples = append(r.tuples, tuple)
	r.index.set(id.Index(), len(r.ids)-1)
	return true
}

// remove drops the row of id by moving the last row into its place. Reports whether a row existed.
func (r *Rows) remove(id EntityID) bool {
	row, exists := r.index.get(id.Index())
	if !exists {
		return false
	}

	lastIndex := len(r.ids) - 1
	r.ids[row] = r.ids[lastIndex]
	r.tuples[row] = r.tuples[lastIndex]
	r.tuples[lastIndex] = nil
	r.ids = r.ids[:lastIndex]
	r.tuples = r.tuples[:lastIndex]

	ok := r.index.remove(id.Index())
	assert.That(ok, "entity isn't removed from sparse set")

	if row == lastIndex {
		return true
	}

	r.index.set(r.ids[row].Index(), row)
	return true
}

// Len returns the number of entities in the set.
func (r *Rows) Len() int {
	return len(r.ids)
}

// Has reports whether id is in the set.
func (r *Rows) Has(id EntityID) bool {
	row, exists := r.index.get(id.Index())
	return exists && r.ids[row] == id
}

// Get returns the components of id in use order. The slice must not be modified.
func (r *Rows) Get(id EntityID) ([]Component, bool) {
	row, exists := r.index.get(id.Index())
	if !exists || r.ids[row] != id {
		return nil, false
	}
	return r.tuples[row], true
}

// All iterates the set in row order. Tuples must not be modified.
func (r *Rows) All() iter.Seq2[EntityID, []Component] {
	return func(yield func(EntityID, []Component) bool) {
		for row, id := range r.ids {
			if !yield(id, r.tuples[row]) {
				return
			}
		}
	}
}

// IDs returns a copy of the member ids in row order.
func (r *Rows) IDs() []EntityID {
	ids := make([]EntityID, len(r.ids))
	copy(ids, r.ids)
	return ids
}
