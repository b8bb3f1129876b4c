package scene

import (
	"context"

	"github.com/argus-labs/lumen/pkg/ecs"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform3D places an entity in the world. Set Dirty after changing Translation, Orientation or
// Scale; TransformSystem recomposes World during the next update and clears Dirty once every
// system has seen it.
type Transform3D struct {
	Translation mgl32.Vec3
	Orientation mgl32.Quat
	Scale       mgl32.Vec3
	World       mgl32.Mat4
	Dirty       bool
}

func (Transform3D) Name() string { return "Transform3D" }

// NewTransform3D returns an identity transform marked dirty.
func NewTransform3D() *Transform3D {
	return &Transform3D{
		Orientation: mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
		World:       mgl32.Ident4(),
		Dirty:       true,
	}
}

// Compose returns translation * rotation * scale.
func (t *Transform3D) Compose() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2]).
		Mul4(t.Orientation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// TransformType is the component type of Transform3D.
var TransformType = ecs.TypeWith(NewTransform3D) //nolint:gochecknoglobals // component descriptor

// TransformSystem composes the world matrix of every dirty Transform3D.
type TransformSystem struct {
	world *ecs.World
}

// TransformSystemDecl declares TransformSystem.
func TransformSystemDecl() ecs.SystemDecl {
	return ecs.SystemDecl{
		Name: "Transform",
		Use:  []ecs.Type{TransformType},
		New: func(w *ecs.World) (ecs.System, error) {
			return &TransformSystem{world: w}, nil
		},
	}
}

func (s *TransformSystem) Update(context.Context) error {
	for t := range ecs.All[Transform3D](s.world) {
		if t.Dirty {
			t.World = t.Compose()
		}
	}
	return nil
}

// PostUpdate clears the dirty flags once every system has updated.
func (s *TransformSystem) PostUpdate(context.Context) error {
	for t := range ecs.All[Transform3D](s.world) {
		t.Dirty = false
	}
	return nil
}
