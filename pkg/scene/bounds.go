package scene

import (
	"context"

	"github.com/argus-labs/lumen/pkg/ecs"
)

// Bounds3D is a bounding sphere in local space and its world-space counterpart.
type Bounds3D struct {
	Local Sphere
	World Sphere
	Dirty bool
}

func (Bounds3D) Name() string { return "Bounds3D" }

// NewBounds3D returns empty bounds marked dirty.
func NewBounds3D() *Bounds3D {
	return &Bounds3D{Dirty: true}
}

// BoundsType is the component type of Bounds3D.
var BoundsType = ecs.TypeWith(NewBounds3D) //nolint:gochecknoglobals // component descriptor

// BoundsSystem moves local bounds into world space when the bounds or the transform changed. It
// must be registered after TransformSystem so it sees the world matrix of the current frame.
type BoundsSystem struct {
	rows *ecs.Rows
}

// BoundsSystemDecl declares BoundsSystem.
func BoundsSystemDecl() ecs.SystemDecl {
	return ecs.SystemDecl{
		Name: "Bounds",
		Use:  []ecs.Type{TransformType, BoundsType},
		New: func(w *ecs.World) (ecs.System, error) {
			rows, err := w.EntitiesForSystem("Bounds")
			if err != nil {
				return nil, err
			}
			return &BoundsSystem{rows: rows}, nil
		},
	}
}

func (s *BoundsSystem) Update(context.Context) error {
	for _, comps := range s.rows.All() {
		t := comps[0].(*Transform3D) //nolint:forcetypeassert // use order
		b := comps[1].(*Bounds3D)    //nolint:forcetypeassert // use order

		if b.Dirty || t.Dirty {
			b.World = b.Local.Transform(t.World)
			b.Dirty = false
		}
	}
	return nil
}
