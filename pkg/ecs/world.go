package ecs

import (
	"reflect"

	"github.com/argus-labs/lumen/pkg/assert"
	"github.com/argus-labs/lumen/pkg/ecs/internal/frametrace"
	"github.com/google/uuid"
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// World owns entities, their components, and the systems that run over them. A World is not safe
// for concurrent use; Update and every structural change must be called from the same goroutine.
type World struct {
	id     uuid.UUID
	logger zerolog.Logger
	tracer trace.Tracer
	stage  Stage
	clock  Clock

	entities entityAllocator
	types    typeRegistry
	store    componentStore

	systems []*systemEntry          // Registration order is execution order
	byName  map[string]*systemEntry // System name -> entry

	// Structural changes made while a frame is running.
	inFrame bool
	pending []structuralOp
	created []EntityID    // Entities allocated during the running frame
	doomed  bitmap.Bitmap // Slot indices with a queued destroy

	history *frametrace.Ring[FrameSample] // nil unless frame history is enabled
}

// NewWorld validates and registers the declared systems in order and instantiates each one. Any
// invalid declaration or failing constructor aborts construction.
func NewWorld(decls []SystemDecl, opts ...WorldOption) (*World, error) {
	cfg, err := loadWorldConfig()
	if err != nil {
		return nil, err
	}

	options := newDefaultOptions()
	cfg.applyToOptions(&options)
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	w := &World{
		id:       options.id,
		stage:    StageCreated,
		clock:    newClock(options.now),
		entities: newEntityAllocator(options.maxEntities),
		types:    newTypeRegistry(),
		store:    newComponentStore(),
		systems:  make([]*systemEntry, 0, len(decls)),
		byName:   make(map[string]*systemEntry, len(decls)),
		pending:  make([]structuralOp, 0),
		tracer:   options.tracer,
	}
	w.logger = options.logger.With().Str("world_id", w.id.String()).Logger()

	if options.frameHistory > 0 {
		w.history, err = frametrace.NewRing[FrameSample](options.frameHistory)
		if err != nil {
			return nil, eris.Wrap(err, "failed to create frame history")
		}
	}

	for _, t := range options.components {
		if _, err := w.types.register(t); err != nil {
			return nil, eris.Wrapf(err, "failed to register component %s", t.name)
		}
	}

	seen := make(map[string]struct{}, len(decls))
	for _, decl := range decls {
		if err := validateDecl(decl, seen); err != nil {
			return nil, err
		}
		seen[decl.Name] = struct{}{}

		use := make([]TypeID, len(decl.Use))
		for i, t := range decl.Use {
			tid, err := w.types.register(t)
			if err != nil {
				return nil, eris.Wrapf(err, "system %s", decl.Name)
			}
			use[i] = tid
		}

		entry := &systemEntry{
			name:   decl.Name,
			use:    decl.Use,
			rows:   newRows(use),
			logger: w.logger.With().Str("system", decl.Name).Logger(),
		}
		// Register before construction so constructors can look up their own rows.
		w.systems = append(w.systems, entry)
		w.byName[decl.Name] = entry
	}

	for i, entry := range w.systems {
		system, err := decls[i].New(w)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to construct system %s", entry.name)
		}
		if system == nil {
			return nil, eris.Wrapf(ErrMissingSystemMetadata, "constructor of system %s returned nil", entry.name)
		}
		entry.system = system
		entry.post, _ = system.(PostUpdater)

		entry.logger.Debug().
			Strs("use", typeNames(entry.use)).
			Bool("post_update", entry.post != nil).
			Msg("registered system")
	}

	return w, nil
}

func typeNames(types []Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.name
	}
	return names
}

// ID returns the unique identifier of this world instance, used to tell worlds apart in logs.
func (w *World) ID() uuid.UUID { return w.id }

// Stage returns the current stage of the world.
func (w *World) Stage() Stage { return w.stage }

// Clock returns the frame clock. Systems read Delta from it during Update.
func (w *World) Clock() *Clock { return &w.clock }

// Logger returns the world logger.
func (w *World) Logger() *zerolog.Logger { return &w.logger }

// -------------------------------------------------------------------------------------------------
// Structural changes
// -------------------------------------------------------------------------------------------------

// CreateEntity allocates an entity and attaches new instances of types in order. Interest sets are
// recomputed once, after every component is attached. During a frame the id is valid immediately
// and the components are attached once the frame completes.
func (w *World) CreateEntity(types ...Type) (EntityID, error) {
	tids := make([]TypeID, len(types))
	components := make([]Component, len(types))
	for i, t := range types {
		if err := checkUnique(types[:i], t); err != nil {
			return 0, err
		}
		tid, err := w.types.register(t)
		if err != nil {
			return 0, err
		}
		c, err := t.instantiate()
		if err != nil {
			return 0, err
		}
		if err := w.checkUnowned(c); err != nil {
			return 0, err
		}
		tids[i] = tid
		components[i] = c
	}

	id, err := w.entities.allocate()
	if err != nil {
		return 0, err
	}
	rec := w.store.create(id)

	if w.inFrame {
		for i, c := range components {
			w.pending = append(w.pending, structuralOp{kind: opAttach, id: id, tid: tids[i], component: c})
		}
		w.created = append(w.created, id)
	} else {
		for i, c := range components {
			w.store.attach(rec, tids[i], c)
		}
		w.recompute(rec)
	}

	w.logger.Trace().Stringer("entity", id).Int("components", len(types)).Msg("created entity")
	return id, nil
}

func checkUnique(before []Type, t Type) error {
	for _, prev := range before {
		if prev.name == t.name {
			return eris.Wrapf(ErrDuplicateComponent, "component %s listed twice", t.name)
		}
	}
	return nil
}

// AddComponent constructs a component of type t, attaches it to id, and returns it. It fails with
// ErrUnknownEntity for a stale id and ErrDuplicateComponent if the entity already has a t.
func (w *World) AddComponent(id EntityID, t Type) (Component, error) {
	if !t.valid() {
		return nil, eris.Wrap(ErrConfiguration, "component type must be built with TypeOf or TypeWith")
	}
	if err := w.checkAttach(id, t); err != nil {
		return nil, err
	}
	c, err := t.instantiate()
	if err != nil {
		return nil, err
	}
	if err := w.checkUnowned(c); err != nil {
		return nil, err
	}
	if err := w.attach(id, t, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Attach attaches a caller-constructed component to id. c must be a non-nil pointer that no
// entity holds.
func (w *World) Attach(id EntityID, c Component) error {
	t, err := typeOfInstance(c)
	if err != nil {
		return err
	}
	if err := w.checkAttach(id, t); err != nil {
		return err
	}
	if err := w.checkUnowned(c); err != nil {
		return err
	}
	return w.attach(id, t, c)
}

// checkAttach validates an attach against the state the entity will have once queued changes
// are applied.
func (w *World) checkAttach(id EntityID, t Type) error {
	if !w.alive(id) {
		return eris.Wrapf(ErrUnknownEntity, "add component %s to entity %s", t.name, id)
	}
	tid, known := w.types.lookup(t)
	if known && w.willHave(id, tid) {
		return eris.Wrapf(ErrDuplicateComponent, "entity %s already has component %s", id, t.name)
	}
	return nil
}

// checkUnowned rejects an instance that is attached, or queued to be attached, to any entity. An
// instance detached by a running frame stays owned until the frame completes.
func (w *World) checkUnowned(c Component) error {
	if reflect.TypeOf(c).Elem().Size() == 0 {
		return nil // Zero-size instances may share one address
	}
	if owner, ok := w.store.owner(c); ok {
		return eris.Wrapf(ErrDuplicateComponent, "component %s instance already belongs to entity %s",
			c.Name(), owner)
	}
	if !w.inFrame {
		return nil
	}
	for _, op := range w.pending {
		if op.kind == opAttach && op.component == c {
			return eris.Wrapf(ErrDuplicateComponent, "component %s instance is queued for entity %s",
				c.Name(), op.id)
		}
	}
	return nil
}

func (w *World) attach(id EntityID, t Type, c Component) error {
	tid, err := w.types.register(t)
	if err != nil {
		return err
	}

	if w.inFrame {
		w.pending = append(w.pending, structuralOp{kind: opAttach, id: id, tid: tid, component: c})
		return nil
	}

	rec := w.store.get(id)
	w.store.attach(rec, tid, c)
	w.recompute(rec)
	return nil
}

// RemoveComponent detaches the component of type t from id. A stale id or a missing component is
// logged and ignored.
func (w *World) RemoveComponent(id EntityID, t Type) error {
	if !w.alive(id) {
		w.logger.Warn().Stringer("entity", id).Str("component", t.name).
			Msg("remove component from unknown entity ignored")
		return nil
	}

	tid, known := w.types.lookup(t)
	if !known || !w.willHave(id, tid) {
		w.logger.Warn().Stringer("entity", id).Str("component", t.name).
			Msg("remove of component the entity doesn't have ignored")
		return nil
	}

	if w.inFrame {
		w.pending = append(w.pending, structuralOp{kind: opDetach, id: id, tid: tid})
		return nil
	}

	rec := w.store.get(id)
	w.store.detach(rec, tid)
	w.recompute(rec)
	return nil
}

// DestroyEntity detaches every component of id, removes it from every interest set, and releases
// the id. A stale id is logged and ignored.
func (w *World) DestroyEntity(id EntityID) error {
	if !w.alive(id) {
		w.logger.Warn().Stringer("entity", id).Msg("destroy of unknown entity ignored")
		return nil
	}

	if w.inFrame {
		w.pending = append(w.pending, structuralOp{kind: opDestroy, id: id})
		w.doomed.Set(id.Index())
		return nil
	}

	return w.destroy(w.store.get(id))
}

func (w *World) destroy(rec *entityRecord) error {
	w.store.detachAll(rec)
	w.recompute(rec)
	w.store.drop(rec)
	if err := w.entities.release(rec.id); err != nil {
		return err
	}
	w.logger.Trace().Stringer("entity", rec.id).Msg("destroyed entity")
	return nil
}

// alive reports whether id is live and not queued for destruction.
func (w *World) alive(id EntityID) bool {
	if !w.entities.isValid(id) {
		return false
	}
	return !w.inFrame || !w.doomed.Contains(id.Index())
}

// recompute refreshes the membership of one entity in every system's interest set.
func (w *World) recompute(rec *entityRecord) {
	for _, s := range w.systems {
		if !s.rows.matches(rec.set) {
			if s.rows.remove(rec.id) {
				s.logger.Trace().Stringer("entity", rec.id).Msg("entity left interest set")
			}
			continue
		}

		tuple := make([]Component, len(s.rows.use))
		for i, tid := range s.rows.use {
			pos, ok := rec.find(tid)
			assert.That(ok, "entity %s matched system %s without component %d", rec.id, s.name, tid)
			if ok {
				tuple[i] = rec.components[pos]
			}
		}
		if s.rows.upsert(rec.id, tuple) {
			s.logger.Trace().Stringer("entity", rec.id).Msg("entity joined interest set")
		}
	}
}

// -------------------------------------------------------------------------------------------------
// Queries
// -------------------------------------------------------------------------------------------------

// IsAlive reports whether id refers to a live entity.
func (w *World) IsAlive(id EntityID) bool {
	return w.entities.isValid(id)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.entities.live
}

// Components returns the components of id in attach order. The slice must not be modified.
func (w *World) Components(id EntityID) ([]Component, error) {
	if !w.entities.isValid(id) {
		return nil, eris.Wrapf(ErrUnknownEntity, "components of entity %s", id)
	}
	return w.store.get(id).components, nil
}

// Component returns the component of type t attached to id.
func (w *World) Component(id EntityID, t Type) (Component, bool) {
	if !w.entities.isValid(id) {
		return nil, false
	}
	tid, known := w.types.lookup(t)
	if !known {
		return nil, false
	}
	rec := w.store.get(id)
	pos, ok := rec.find(tid)
	if !ok {
		return nil, false
	}
	return rec.components[pos], true
}

// ComponentsOfType returns every live instance of t in attach order. Detaching an instance keeps
// the relative order of the rest. The slice must not be modified.
func (w *World) ComponentsOfType(t Type) []Component {
	tid, known := w.types.lookup(t)
	if !known {
		return nil
	}
	return w.store.ofType(tid)
}

// EntitiesForSystem returns the interest set of the named system.
func (w *World) EntitiesForSystem(name string) (*Rows, error) {
	entry, ok := w.byName[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownSystem, "system %s", name)
	}
	return entry.rows, nil
}

// System returns the instance of the named system.
func (w *World) System(name string) (System, error) {
	entry, ok := w.byName[name]
	if !ok || entry.system == nil {
		return nil, eris.Wrapf(ErrUnknownSystem, "system %s", name)
	}
	return entry.system, nil
}
