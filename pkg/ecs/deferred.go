package ecs

import (
	"github.com/argus-labs/lumen/pkg/assert"
	"github.com/rotisserie/eris"
)

type opKind uint8

const (
	opAttach opKind = iota
	opDetach
	opDestroy
)

// structuralOp is a structural change requested while a frame is running. Ops are validated when
// they are queued and applied in order once every hook of the frame has returned.
type structuralOp struct {
	kind      opKind
	id        EntityID
	tid       TypeID
	component Component // Set for opAttach
}

// willHave reports whether id will hold a component of type tid once queued ops are applied.
func (w *World) willHave(id EntityID, tid TypeID) bool {
	have := false
	if rec := w.store.get(id); rec != nil {
		_, have = rec.find(tid)
	}
	if !w.inFrame {
		return have
	}

	for _, op := range w.pending {
		if op.id != id {
			continue
		}
		switch op.kind {
		case opAttach:
			if op.tid == tid {
				have = true
			}
		case opDetach:
			if op.tid == tid {
				have = false
			}
		case opDestroy:
			have = false
		}
	}
	return have
}

// flush applies the queued ops. Each touched entity is recomputed once, in the order it was first
// touched.
func (w *World) flush() error {
	ops := w.pending
	w.inFrame = false
	w.pending = w.pending[:0]
	w.created = w.created[:0]
	w.doomed.Clear()

	if len(ops) == 0 {
		return nil
	}

	touched := make([]*entityRecord, 0, len(ops))
	seen := make(map[EntityID]struct{}, len(ops))
	for _, op := range ops {
		rec := w.store.get(op.id)
		assert.That(rec != nil, "queued op for entity %s that no longer exists", op.id)
		if rec == nil {
			continue
		}

		switch op.kind {
		case opAttach:
			_, dup := rec.find(op.tid)
			assert.That(!dup, "queued attach of a component entity %s already has", op.id)
			if dup {
				continue
			}
			w.store.attach(rec, op.tid, op.component)
		case opDetach:
			w.store.detach(rec, op.tid)
		case opDestroy:
			if err := w.destroy(rec); err != nil {
				return eris.Wrapf(err, "failed to apply queued destroy of entity %s", op.id)
			}
			continue
		}

		if _, ok := seen[op.id]; !ok {
			seen[op.id] = struct{}{}
			touched = append(touched, rec)
		}
	}

	for _, rec := range touched {
		if w.store.get(rec.id) != rec { // Destroyed later in the queue
			continue
		}
		w.recompute(rec)
	}

	w.logger.Trace().Int("ops", len(ops)).Msg("applied queued structural changes")
	return nil
}

// discard drops the queued ops of a failed frame and releases the entities it created.
func (w *World) discard() {
	dropped := len(w.pending)
	w.inFrame = false
	w.pending = w.pending[:0]
	w.doomed.Clear()

	for _, id := range w.created {
		if rec := w.store.get(id); rec != nil {
			w.store.drop(rec)
			_ = w.entities.release(id)
		}
	}
	w.created = w.created[:0]

	if dropped > 0 {
		w.logger.Warn().Int("ops", dropped).Msg("discarded structural changes of failed frame")
	}
}
