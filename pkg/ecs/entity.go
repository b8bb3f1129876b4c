package ecs

import (
	"fmt"

	"github.com/argus-labs/lumen/pkg/assert"
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
)

// EntityID identifies an entity. The slot index lives in the high bits and the slot generation in
// the low GenerationBits bits. An id is only accepted while its generation matches the slot.
type EntityID uint32

const (
	// GenerationBits is the width of the generation counter. Generations wrap to 0 after 255.
	GenerationBits = 8

	generationMask = 1<<GenerationBits - 1

	// MaxEntities is the size of the index space.
	MaxEntities = 1 << (32 - GenerationBits)
)

func newEntityID(index uint32, generation uint8) EntityID {
	return EntityID(index<<GenerationBits | uint32(generation))
}

// Index returns the slot index of the id.
func (id EntityID) Index() uint32 {
	return uint32(id) >> GenerationBits
}

// Generation returns the generation tag of the id.
func (id EntityID) Generation() uint8 {
	return uint8(id & generationMask) //nolint:gosec // masked to 8 bits
}

func (id EntityID) String() string {
	return fmt.Sprintf("%d:%d", id.Index(), id.Generation())
}

// entityAllocator issues and recycles entity ids. The generation table holds the generation of
// the current (or next) occupant of every slot ever issued, and free tracks released slots so the
// lowest one is reused first.
type entityAllocator struct {
	generations []uint8
	free        bitmap.Bitmap
	limit       uint32
	live        int
}

func newEntityAllocator(limit uint32) entityAllocator {
	return entityAllocator{
		generations: make([]uint8, 0, 64),
		limit:       min(limit, MaxEntities),
	}
}

// allocate returns a new id. A recycled slot was already advanced to its next generation when it
// was released.
func (a *entityAllocator) allocate() (EntityID, error) {
	if index, ok := a.free.Min(); ok {
		a.free.Remove(index)
		a.live++
		return newEntityID(index, a.generations[index]), nil
	}

	index := uint32(len(a.generations)) //nolint:gosec // bounded by limit
	if index >= a.limit {
		return 0, eris.Wrapf(ErrEntityLimit, "limit is %d", a.limit)
	}
	a.generations = append(a.generations, 0)
	a.live++
	return newEntityID(index, 0), nil
}

// release returns the id's slot to the free list and advances its generation. Releasing an id
// that is not live is an invariant violation.
func (a *entityAllocator) release(id EntityID) error {
	if !a.isValid(id) {
		assert.That(false, "release of entity %s that is not live", id)
		return eris.Wrapf(ErrUnknownEntity, "release of entity %s", id)
	}

	index := id.Index()
	a.generations[index] = (a.generations[index] + 1) & generationMask
	a.free.Set(index)
	a.live--
	return nil
}

// isValid reports whether id refers to the current occupant of a live slot.
func (a *entityAllocator) isValid(id EntityID) bool {
	index := id.Index()
	if index >= uint32(len(a.generations)) { //nolint:gosec // slot count fits in uint32
		return false
	}
	if a.free.Contains(index) {
		return false
	}
	return a.generations[index] == id.Generation()
}

// slots returns the number of slots ever issued, live or free.
func (a *entityAllocator) slots() int {
	return len(a.generations)
}
