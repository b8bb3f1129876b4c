package ecs

import (
	"context"
	"testing"
	"time"

	"github.com/argus-labs/lumen/pkg/assert"
	. "github.com/argus-labs/lumen/pkg/ecs/internal/testutils"
	"github.com/argus-labs/lumen/pkg/testutils"
	"github.com/rotisserie/eris"
	testifyassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	healthType   = TypeOf[Health]()
	positionType = TypeOf[Position]()
	velocityType = TypeOf[Velocity]()
	tagType      = TypeOf[PlayerTag]()
)

// funcSystem is a system assembled from closures.
type funcSystem struct {
	update func(ctx context.Context) error
}

func (s *funcSystem) Update(ctx context.Context) error {
	if s.update == nil {
		return nil
	}
	return s.update(ctx)
}

// postFuncSystem additionally has a post-update hook.
type postFuncSystem struct {
	funcSystem
	post func(ctx context.Context) error
}

func (s *postFuncSystem) PostUpdate(ctx context.Context) error {
	if s.post == nil {
		return nil
	}
	return s.post(ctx)
}

func declare(name string, use ...Type) SystemDecl {
	return SystemDecl{
		Name: name,
		Use:  use,
		New:  func(*World) (System, error) { return &funcSystem{}, nil },
	}
}

func newTestWorld(t *testing.T, decls ...SystemDecl) *World {
	t.Helper()
	w, err := NewWorld(decls)
	require.NoError(t, err)
	return w
}

func rowsOf(t *testing.T, w *World, name string) *Rows {
	t.Helper()
	rows, err := w.EntitiesForSystem(name)
	require.NoError(t, err)
	return rows
}

func TestNewWorld_Validation(t *testing.T) {
	t.Parallel()

	newSys := func(*World) (System, error) { return &funcSystem{}, nil }

	tests := []struct {
		name    string
		decls   []SystemDecl
		opts    []WorldOption
		wantErr error
	}{
		{
			name:  "valid",
			decls: []SystemDecl{declare("movement", positionType, velocityType)},
		},
		{
			name:    "empty name",
			decls:   []SystemDecl{{Use: []Type{healthType}, New: newSys}},
			wantErr: ErrMissingSystemMetadata,
		},
		{
			name:    "missing constructor",
			decls:   []SystemDecl{{Name: "regen", Use: []Type{healthType}}},
			wantErr: ErrMissingSystemMetadata,
		},
		{
			name:    "zero value component type",
			decls:   []SystemDecl{{Name: "regen", Use: []Type{{}}, New: newSys}},
			wantErr: ErrMissingSystemMetadata,
		},
		{
			name:    "empty use list",
			decls:   []SystemDecl{{Name: "everything", New: newSys}},
			wantErr: ErrConfiguration,
		},
		{
			name:    "duplicate type in use list",
			decls:   []SystemDecl{declare("regen", healthType, healthType)},
			wantErr: ErrConfiguration,
		},
		{
			name:    "duplicate system name",
			decls:   []SystemDecl{declare("regen", healthType), declare("regen", positionType)},
			wantErr: ErrConfiguration,
		},
		{
			name:    "component name collision",
			decls:   []SystemDecl{declare("a", healthType), declare("b", TypeOf[FakeHealth]())},
			wantErr: ErrConfiguration,
		},
		{
			name: "constructor returns nil",
			decls: []SystemDecl{{
				Name: "regen", Use: []Type{healthType},
				New: func(*World) (System, error) { return nil, nil },
			}},
			wantErr: ErrMissingSystemMetadata,
		},
		{
			name:    "invalid max entities",
			decls:   []SystemDecl{declare("regen", healthType)},
			opts:    []WorldOption{WithMaxEntities(0)},
			wantErr: ErrConfiguration,
		},
		{
			name:    "negative frame history",
			decls:   []SystemDecl{declare("regen", healthType)},
			opts:    []WorldOption{WithFrameHistory(-1)},
			wantErr: ErrConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, err := NewWorld(tt.decls, tt.opts...)
			if tt.wantErr != nil {
				require.Error(t, err)
				testifyassert.True(t, eris.Is(err, tt.wantErr), "got %v", err)
				testifyassert.Nil(t, w)
				return
			}
			require.NoError(t, err)
			testifyassert.Equal(t, StageCreated, w.Stage())
		})
	}
}

func TestNewWorld_ConstructorError(t *testing.T) {
	t.Parallel()

	boom := eris.New("no renderer")
	_, err := NewWorld([]SystemDecl{{
		Name: "render",
		Use:  []Type{positionType},
		New:  func(*World) (System, error) { return nil, boom },
	}})
	require.Error(t, err)
	testifyassert.ErrorIs(t, err, boom)
	testifyassert.Contains(t, err.Error(), "render")
}

func TestWorld_CreateEntity(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t, declare("movement", positionType, velocityType))

	id, err := w.CreateEntity(velocityType, positionType, healthType)
	require.NoError(t, err)
	testifyassert.True(t, w.IsAlive(id))
	testifyassert.Equal(t, 1, w.Len())

	comps, err := w.Components(id)
	require.NoError(t, err)
	require.Len(t, comps, 3)
	testifyassert.IsType(t, &Velocity{}, comps[0], "components keep attach order")
	testifyassert.IsType(t, &Position{}, comps[1])
	testifyassert.IsType(t, &Health{}, comps[2])

	testifyassert.True(t, rowsOf(t, w, "movement").Has(id))

	_, err = w.CreateEntity(healthType, healthType)
	require.ErrorIs(t, err, ErrDuplicateComponent)
	testifyassert.Equal(t, 1, w.Len(), "a rejected create allocates nothing")
}

func TestWorld_AddComponent(t *testing.T) {
	t.Parallel()

	t.Run("returns the attached instance", func(t *testing.T) {
		t.Parallel()
		w := newTestWorld(t, declare("regen", healthType))
		id, err := w.CreateEntity()
		require.NoError(t, err)

		c, err := w.AddComponent(id, TypeWith(func() *Health { return &Health{Value: 50} }))
		require.NoError(t, err)

		h, err := Get[Health](w, id)
		require.NoError(t, err)
		testifyassert.Same(t, c, h)
		testifyassert.Equal(t, 50, h.Value)
		testifyassert.Equal(t, []Component{c}, w.ComponentsOfType(healthType))
	})

	t.Run("duplicate is rejected and leaves the original", func(t *testing.T) {
		t.Parallel()
		w := newTestWorld(t, declare("regen", healthType))
		id, err := w.CreateEntity(healthType)
		require.NoError(t, err)

		original, err := Get[Health](w, id)
		require.NoError(t, err)
		original.Value = 7

		_, err = w.AddComponent(id, healthType)
		require.ErrorIs(t, err, ErrDuplicateComponent)
		err = w.Attach(id, &Health{Value: 99})
		require.ErrorIs(t, err, ErrDuplicateComponent)

		got, err := Get[Health](w, id)
		require.NoError(t, err)
		testifyassert.Same(t, original, got)
		testifyassert.Equal(t, 7, got.Value)
		testifyassert.Len(t, w.ComponentsOfType(healthType), 1)

		row, ok := rowsOf(t, w, "regen").Get(id)
		require.True(t, ok)
		testifyassert.Same(t, original, row[0])
	})

	t.Run("unknown entity is a hard failure", func(t *testing.T) {
		t.Parallel()
		w := newTestWorld(t, declare("regen", healthType))
		id, err := w.CreateEntity()
		require.NoError(t, err)
		require.NoError(t, w.DestroyEntity(id))

		_, err = w.AddComponent(id, healthType)
		require.ErrorIs(t, err, ErrUnknownEntity)
		testifyassert.Empty(t, w.ComponentsOfType(healthType))
	})

	t.Run("attach caller-constructed instance", func(t *testing.T) {
		t.Parallel()
		w := newTestWorld(t, declare("tags", tagType))
		id, err := w.CreateEntity()
		require.NoError(t, err)

		tag := &PlayerTag{Tag: "alice"}
		require.NoError(t, w.Attach(id, tag))
		row, ok := rowsOf(t, w, "tags").Get(id)
		require.True(t, ok)
		testifyassert.Same(t, tag, row[0])

		require.Error(t, w.Attach(id, PlayerTag{}), "values can't be attached")
	})

	t.Run("an instance belongs to one entity", func(t *testing.T) {
		t.Parallel()
		w := newTestWorld(t, declare("tags", tagType))
		a, err := w.CreateEntity()
		require.NoError(t, err)
		b, err := w.CreateEntity()
		require.NoError(t, err)

		shared := &PlayerTag{Tag: "shared"}
		require.NoError(t, w.Attach(a, shared))
		require.ErrorIs(t, w.Attach(b, shared), ErrDuplicateComponent)
		testifyassert.Equal(t, []Component{shared}, w.ComponentsOfType(tagType))
		testifyassert.Equal(t, []EntityID{a}, rowsOf(t, w, "tags").IDs())

		// Once detached the instance can move to another entity.
		require.NoError(t, w.RemoveComponent(a, tagType))
		require.NoError(t, w.Attach(b, shared))
		testifyassert.Equal(t, []EntityID{b}, rowsOf(t, w, "tags").IDs())
	})

	t.Run("a factory sharing one instance is rejected", func(t *testing.T) {
		t.Parallel()
		shared := &Health{Value: 1}
		sharedHealth := TypeWith(func() *Health { return shared })
		w := newTestWorld(t, declare("regen", healthType))

		a, err := w.CreateEntity(sharedHealth)
		require.NoError(t, err)
		_, err = w.CreateEntity(sharedHealth)
		require.ErrorIs(t, err, ErrDuplicateComponent)
		testifyassert.Equal(t, 1, w.Len(), "a rejected create allocates nothing")

		b, err := w.CreateEntity()
		require.NoError(t, err)
		_, err = w.AddComponent(b, sharedHealth)
		require.ErrorIs(t, err, ErrDuplicateComponent)

		testifyassert.Equal(t, []Component{shared}, w.ComponentsOfType(healthType))
		testifyassert.Equal(t, []EntityID{a}, rowsOf(t, w, "regen").IDs())
	})

	t.Run("a queued instance belongs to one entity", func(t *testing.T) {
		t.Parallel()
		shared := &PlayerTag{Tag: "queued"}
		var a, b EntityID
		var first, second error
		w := newTestWorld(t, SystemDecl{
			Name: "tagger",
			Use:  []Type{healthType},
			New: func(w *World) (System, error) {
				return &funcSystem{update: func(context.Context) error {
					first = w.Attach(a, shared)
					second = w.Attach(b, shared)
					return nil
				}}, nil
			},
		})
		var err error
		a, err = w.CreateEntity(healthType)
		require.NoError(t, err)
		b, err = w.CreateEntity(healthType)
		require.NoError(t, err)

		require.NoError(t, w.Update(context.Background()))
		require.NoError(t, first)
		require.ErrorIs(t, second, ErrDuplicateComponent)
		testifyassert.Equal(t, []Component{shared}, w.ComponentsOfType(tagType))
		testifyassert.True(t, Has[PlayerTag](w, a))
		testifyassert.False(t, Has[PlayerTag](w, b))
	})
}

func TestWorld_RemoveComponent(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t, declare("movement", positionType, velocityType), declare("regen", healthType))

	a, err := w.CreateEntity(positionType, velocityType, healthType)
	require.NoError(t, err)
	b, err := w.CreateEntity(positionType, velocityType)
	require.NoError(t, err)

	require.NoError(t, w.RemoveComponent(a, velocityType))
	testifyassert.False(t, rowsOf(t, w, "movement").Has(a))
	testifyassert.True(t, rowsOf(t, w, "movement").Has(b), "other entities keep their rows")
	testifyassert.True(t, rowsOf(t, w, "regen").Has(a), "unrelated systems keep the entity")
	testifyassert.False(t, Has[Velocity](w, a))
	testifyassert.Len(t, w.ComponentsOfType(velocityType), 1)

	// Removing a missing component or from a stale id is a logged no-op.
	require.NoError(t, w.RemoveComponent(a, velocityType))
	require.NoError(t, w.RemoveComponent(a, tagType))
	require.NoError(t, w.DestroyEntity(b))
	require.NoError(t, w.RemoveComponent(b, positionType))
	require.NoError(t, w.DestroyEntity(b))
	testifyassert.Equal(t, 1, w.Len())

	// Re-adding refreshes the row with the new instance.
	c, err := w.AddComponent(a, velocityType)
	require.NoError(t, err)
	row, ok := rowsOf(t, w, "movement").Get(a)
	require.True(t, ok)
	testifyassert.Same(t, c, row[1])
}

func TestWorld_TupleOrdering(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t, declare("movement", positionType, velocityType))

	first, err := w.CreateEntity(velocityType, positionType)
	require.NoError(t, err)
	second, err := w.CreateEntity()
	require.NoError(t, err)
	_, err = w.AddComponent(second, velocityType)
	require.NoError(t, err)
	_, err = w.AddComponent(second, positionType)
	require.NoError(t, err)
	third, err := w.CreateEntity(positionType, healthType, velocityType)
	require.NoError(t, err)

	rows := rowsOf(t, w, "movement")
	require.Equal(t, 3, rows.Len())
	for id, tuple := range rows.All() {
		require.Len(t, tuple, 2)
		p, err := Get[Position](w, id)
		require.NoError(t, err)
		v, err := Get[Velocity](w, id)
		require.NoError(t, err)
		testifyassert.Same(t, p, tuple[0], "entity %s", id)
		testifyassert.Same(t, v, tuple[1], "entity %s", id)
	}
	testifyassert.Equal(t, []EntityID{first, second, third}, rows.IDs())
}

func TestWorld_DestroyMidSet(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t, declare("movement", positionType, velocityType))

	first, err := w.CreateEntity(positionType, velocityType)
	require.NoError(t, err)
	second, err := w.CreateEntity(positionType, velocityType)
	require.NoError(t, err)

	before, ok := rowsOf(t, w, "movement").Get(second)
	require.True(t, ok)
	wantPos, wantVel := before[0], before[1]

	require.NoError(t, w.DestroyEntity(first))

	rows := rowsOf(t, w, "movement")
	require.Equal(t, 1, rows.Len())
	testifyassert.Equal(t, []EntityID{second}, rows.IDs())
	after, ok := rows.Get(second)
	require.True(t, ok)
	testifyassert.Same(t, wantPos, after[0])
	testifyassert.Same(t, wantVel, after[1])

	testifyassert.False(t, w.IsAlive(first))
	_, err = w.Components(first)
	require.ErrorIs(t, err, ErrUnknownEntity)
	testifyassert.Len(t, w.ComponentsOfType(positionType), 1)

	// The slot is reused with a new generation and the old id stays rejected.
	reused, err := w.CreateEntity(positionType, velocityType)
	require.NoError(t, err)
	testifyassert.Equal(t, first.Index(), reused.Index())
	testifyassert.NotEqual(t, first, reused)
	testifyassert.False(t, rows.Has(first))
	testifyassert.True(t, rows.Has(reused))
	require.NoError(t, w.RemoveComponent(first, positionType))
	testifyassert.True(t, rows.Has(reused), "stale id must not touch the new occupant")
}

func TestWorld_ComponentsOfTypeOrder(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t, declare("regen", healthType))

	ids := make([]EntityID, 4)
	for i := range ids {
		id, err := w.CreateEntity()
		require.NoError(t, err)
		_, err = w.AddComponent(id, TypeWith(func() *Health { return &Health{Value: i} }))
		require.NoError(t, err)
		ids[i] = id
	}
	require.NoError(t, w.RemoveComponent(ids[1], healthType))

	var values []int
	for h := range All[Health](w) {
		values = append(values, h.Value)
	}
	testifyassert.Equal(t, []int{0, 2, 3}, values, "removal keeps attach order of the rest")
}

// -------------------------------------------------------------------------------------------------
// Model-Based Fuzzing
//
// Random create/destroy/add/remove sequences are applied to a world and to a model of each
// entity's type set. After every operation every system's interest set must hold exactly the live
// entities whose type set covers its use list.
// -------------------------------------------------------------------------------------------------

func TestWorld_InterestSetModelBasedFuzz(t *testing.T) {
	t.Parallel()
	prng := testutils.NewRand(t)

	decls := []SystemDecl{
		declare("movement", positionType, velocityType),
		declare("regen", healthType),
		declare("players", tagType, healthType, positionType),
	}
	w := newTestWorld(t, decls...)
	types := []Type{healthType, positionType, velocityType, tagType}

	model := make(map[EntityID]map[string]bool)
	var dead []EntityID

	const opsMax = 1 << 11
	for range opsMax {
		switch testutils.RandWeightedOp(prng, worldOps) {
		case worldCreate:
			id, err := w.CreateEntity()
			require.NoError(t, err)
			model[id] = make(map[string]bool)

		case worldDestroy:
			if len(model) == 0 {
				continue
			}
			id := testutils.RandMapKey(prng, model)
			require.NoError(t, w.DestroyEntity(id))
			delete(model, id)
			dead = append(dead, id)

		case worldAdd:
			if len(model) == 0 {
				continue
			}
			id := testutils.RandMapKey(prng, model)
			typ := types[prng.IntN(len(types))]
			_, err := w.AddComponent(id, typ)
			if model[id][typ.Name()] {
				require.ErrorIs(t, err, ErrDuplicateComponent)
			} else {
				require.NoError(t, err)
				model[id][typ.Name()] = true
			}

		case worldRemove:
			if len(model) == 0 {
				continue
			}
			id := testutils.RandMapKey(prng, model)
			typ := types[prng.IntN(len(types))]
			require.NoError(t, w.RemoveComponent(id, typ))
			delete(model[id], typ.Name())
		}

		for _, decl := range decls {
			rows := rowsOf(t, w, decl.Name)
			want := 0
			for id, set := range model {
				covered := true
				for _, u := range decl.Use {
					covered = covered && set[u.Name()]
				}
				if covered {
					want++
				}
				require.Equal(t, covered, rows.Has(id), "system %s entity %s", decl.Name, id)
				if !covered {
					continue
				}

				// The tuple holds the current instances in use order, never a stale one.
				tuple, ok := rows.Get(id)
				require.True(t, ok)
				require.Len(t, tuple, len(decl.Use))
				for i, u := range decl.Use {
					c, ok := w.Component(id, u)
					require.True(t, ok)
					require.Same(t, c, tuple[i], "system %s entity %s column %s", decl.Name, id, u.Name())
				}
			}
			require.Equal(t, want, rows.Len(), "system %s has rows for dead entities", decl.Name)
		}
	}

	for _, id := range dead {
		if _, reissued := model[id]; !reissued {
			testifyassert.False(t, w.IsAlive(id))
		}
	}
}

type worldOp uint8

const (
	worldCreate  worldOp = 20
	worldDestroy worldOp = 10
	worldAdd     worldOp = 45
	worldRemove  worldOp = 25
)

var worldOps = []worldOp{worldCreate, worldDestroy, worldAdd, worldRemove}

// -------------------------------------------------------------------------------------------------
// Frames
// -------------------------------------------------------------------------------------------------

func TestWorld_UpdateOrdering(t *testing.T) {
	t.Parallel()

	var calls []string
	record := func(name string) SystemDecl {
		return SystemDecl{
			Name: name,
			Use:  []Type{healthType},
			New: func(*World) (System, error) {
				return &postFuncSystem{
					funcSystem: funcSystem{update: func(context.Context) error {
						calls = append(calls, name+".update")
						return nil
					}},
					post: func(context.Context) error {
						calls = append(calls, name+".post")
						return nil
					},
				}, nil
			},
		}
	}
	updateOnly := SystemDecl{
		Name: "Z",
		Use:  []Type{positionType},
		New: func(*World) (System, error) {
			return &funcSystem{update: func(context.Context) error {
				calls = append(calls, "Z.update")
				return nil
			}}, nil
		},
	}

	w := newTestWorld(t, record("X"), record("Y"), updateOnly)
	require.NoError(t, w.Update(context.Background()))
	testifyassert.Equal(t, []string{"X.update", "Y.update", "Z.update", "X.post", "Y.post"}, calls)
	testifyassert.Equal(t, StageRunning, w.Stage())

	calls = nil
	require.NoError(t, w.Update(context.Background()))
	testifyassert.Equal(t, []string{"X.update", "Y.update", "Z.update", "X.post", "Y.post"}, calls)
	testifyassert.Equal(t, uint64(2), w.Clock().Frame())
}

func TestWorld_UpdateFailFast(t *testing.T) {
	t.Parallel()

	var calls []string
	boom := eris.New("boom")
	w := newTestWorld(t,
		SystemDecl{
			Name: "failing",
			Use:  []Type{healthType},
			New: func(w *World) (System, error) {
				return &funcSystem{update: func(context.Context) error {
					calls = append(calls, "failing")
					_, err := w.CreateEntity(healthType)
					require.NoError(t, err)
					return boom
				}}, nil
			},
		},
		SystemDecl{
			Name: "after",
			Use:  []Type{healthType},
			New: func(*World) (System, error) {
				return &funcSystem{update: func(context.Context) error {
					calls = append(calls, "after")
					return nil
				}}, nil
			},
		},
	)

	err := w.Update(context.Background())
	require.ErrorIs(t, err, boom)
	testifyassert.Contains(t, err.Error(), "failing")
	testifyassert.Equal(t, []string{"failing"}, calls, "later systems don't run")
	testifyassert.Equal(t, 0, w.Len(), "entities created by a failed frame are released")
	testifyassert.Empty(t, w.ComponentsOfType(healthType))
}

func TestWorld_Clock(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	w, err := NewWorld(
		[]SystemDecl{declare("regen", healthType)},
		WithTimeSource(func() time.Time { return now }),
	)
	require.NoError(t, err)

	require.NoError(t, w.Update(context.Background()))
	testifyassert.Equal(t, time.Duration(0), w.Clock().Delta(), "first frame has no delta")

	now = now.Add(16 * time.Millisecond)
	require.NoError(t, w.Update(context.Background()))
	testifyassert.Equal(t, 16*time.Millisecond, w.Clock().Delta())
	testifyassert.InDelta(t, 0.016, w.Clock().DeltaSeconds(), 1e-9)

	now = now.Add(34 * time.Millisecond)
	require.NoError(t, w.Update(context.Background()))
	testifyassert.Equal(t, 50*time.Millisecond, w.Clock().Elapsed())
}

func TestWorld_FrameHistory(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	step := func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
	fail := false
	w, err := NewWorld([]SystemDecl{
		declare("a", healthType),
		{
			Name: "b",
			Use:  []Type{healthType},
			New: func(*World) (System, error) {
				return &postFuncSystem{post: func(context.Context) error {
					if fail {
						return eris.New("post failed")
					}
					return nil
				}}, nil
			},
		},
	}, WithTimeSource(step), WithFrameHistory(2))
	require.NoError(t, err)

	for range 3 {
		require.NoError(t, w.Update(context.Background()))
	}
	fail = true
	require.Error(t, w.Update(context.Background()))

	history := w.FrameHistory()
	require.Len(t, history, 2, "only the newest frames are retained")
	testifyassert.Equal(t, uint64(3), history[0].Frame)
	testifyassert.Equal(t, uint64(4), history[1].Frame)
	testifyassert.Empty(t, history[0].Err)
	testifyassert.Contains(t, history[1].Err, "post failed")

	spans := history[0].Spans
	require.Len(t, spans, 3)
	testifyassert.Equal(t, SystemSpan{System: "a", Hook: Update, Duration: time.Millisecond}, spans[0])
	testifyassert.Equal(t, "b", spans[1].System)
	testifyassert.Equal(t, PostUpdate, spans[2].Hook)

	plain := newTestWorld(t, declare("a", healthType))
	require.NoError(t, plain.Update(context.Background()))
	testifyassert.Nil(t, plain.FrameHistory())
}

func TestWorld_UpdateNotReentrant(t *testing.T) {
	t.Parallel()

	var inner error
	w := newTestWorld(t, SystemDecl{
		Name: "nested",
		Use:  []Type{healthType},
		New: func(w *World) (System, error) {
			return &funcSystem{update: func(ctx context.Context) error {
				inner = w.Update(ctx)
				return nil
			}}, nil
		},
	})
	require.NoError(t, w.Update(context.Background()))
	require.ErrorIs(t, inner, ErrStage)
	testifyassert.Equal(t, uint64(1), w.Clock().Frame(), "the nested call does not advance the clock")
}

func TestWorld_ReleaseInvariant(t *testing.T) {
	t.Parallel()
	w := newTestWorld(t, declare("regen", healthType))
	id, err := w.CreateEntity(healthType)
	require.NoError(t, err)
	require.NoError(t, w.DestroyEntity(id))

	// The world checks liveness before releasing, so only the allocator itself can trip it.
	if assert.Fatal {
		testifyassert.Panics(t, func() { _ = w.entities.release(id) })
	}
}
