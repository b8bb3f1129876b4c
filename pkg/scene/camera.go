package scene

import (
	"context"
	"math"

	"github.com/argus-labs/lumen/pkg/ecs"
	"github.com/go-gl/mathgl/mgl32"
)

type dirtyMatrix uint8

const (
	dirtyWorld dirtyMatrix = 1 << iota
	dirtyView
	dirtyProjection
	dirtyViewProjection

	dirtyAll = dirtyWorld | dirtyView | dirtyProjection | dirtyViewProjection
)

// PerspectiveCamera is a camera component. Its matrices are recomputed lazily: setters mark the
// affected matrices dirty and the getters rebuild them on first access.
type PerspectiveCamera struct {
	translation mgl32.Vec3
	orientation mgl32.Quat
	up          mgl32.Vec3

	fov    float32 // Vertical field of view in degrees
	aspect float32
	near   float32
	far    float32
	zoom   float32

	world    mgl32.Mat4
	view     mgl32.Mat4
	proj     mgl32.Mat4
	viewProj mgl32.Mat4
	dirty    dirtyMatrix
}

func (PerspectiveCamera) Name() string { return "PerspectiveCamera" }

// NewPerspectiveCamera returns a camera at the origin looking down -Z with a 50 degree field of
// view, square aspect, and a depth range of [1e-6, 1e27].
func NewPerspectiveCamera() *PerspectiveCamera {
	return &PerspectiveCamera{
		orientation: mgl32.QuatIdent(),
		up:          mgl32.Vec3{0, 1, 0},
		fov:         50,
		aspect:      1,
		near:        1e-6,
		far:         1e27,
		zoom:        1,
		dirty:       dirtyAll,
	}
}

// CameraType is the component type of PerspectiveCamera.
var CameraType = ecs.TypeWith(NewPerspectiveCamera) //nolint:gochecknoglobals // component descriptor

func (c *PerspectiveCamera) Translation() mgl32.Vec3 { return c.translation }

func (c *PerspectiveCamera) SetTranslation(v mgl32.Vec3) {
	c.translation = v
	c.mark(dirtyWorld | dirtyView)
}

func (c *PerspectiveCamera) Orientation() mgl32.Quat { return c.orientation }

func (c *PerspectiveCamera) SetOrientation(q mgl32.Quat) {
	c.orientation = q
	c.mark(dirtyWorld | dirtyView)
}

// Translate moves the camera distance units along axis, expressed in camera space.
func (c *PerspectiveCamera) Translate(axis mgl32.Vec3, distance float32) {
	c.translation = c.translation.Add(c.orientation.Rotate(axis).Mul(distance))
	c.mark(dirtyWorld | dirtyView)
}

// Rotate turns the camera by angle radians around axis, expressed in camera space.
func (c *PerspectiveCamera) Rotate(axis mgl32.Vec3, angle float32) {
	c.orientation = c.orientation.Mul(mgl32.QuatRotate(angle, axis)).Normalize()
	c.mark(dirtyWorld | dirtyView)
}

// LookAt orients the camera towards point. Looking at its own position is ignored.
func (c *PerspectiveCamera) LookAt(point mgl32.Vec3) {
	if point.Sub(c.translation).LenSqr() == 0 {
		return
	}
	view := mgl32.LookAtV(c.translation, point, c.up)
	c.orientation = mgl32.Mat4ToQuat(view).Conjugate().Normalize()
	c.mark(dirtyWorld | dirtyView)
}

func (c *PerspectiveCamera) FOV() float32 { return c.fov }

func (c *PerspectiveCamera) SetFOV(degrees float32) {
	c.fov = degrees
	c.mark(dirtyProjection)
}

func (c *PerspectiveCamera) Aspect() float32 { return c.aspect }

func (c *PerspectiveCamera) SetAspect(aspect float32) {
	c.aspect = aspect
	c.mark(dirtyProjection)
}

func (c *PerspectiveCamera) Zoom() float32 { return c.zoom }

func (c *PerspectiveCamera) SetZoom(zoom float32) {
	c.zoom = zoom
	c.mark(dirtyProjection)
}

// SetDepthRange sets the near and far clip planes.
func (c *PerspectiveCamera) SetDepthRange(near, far float32) {
	c.near, c.far = near, far
	c.mark(dirtyProjection)
}

func (c *PerspectiveCamera) mark(flags dirtyMatrix) {
	c.dirty |= flags | dirtyViewProjection
}

// World returns the camera-to-world matrix.
func (c *PerspectiveCamera) World() mgl32.Mat4 {
	if c.dirty&dirtyWorld != 0 {
		c.world = mgl32.Translate3D(c.translation[0], c.translation[1], c.translation[2]).
			Mul4(c.orientation.Normalize().Mat4())
		c.dirty &^= dirtyWorld
	}
	return c.world
}

// View returns the world-to-camera matrix.
func (c *PerspectiveCamera) View() mgl32.Mat4 {
	if c.dirty&(dirtyWorld|dirtyView) != 0 {
		c.view = c.World().Inv()
		c.dirty &^= dirtyView
	}
	return c.view
}

// Projection returns the perspective projection. Zoom narrows the field of view.
func (c *PerspectiveCamera) Projection() mgl32.Mat4 {
	if c.dirty&dirtyProjection != 0 {
		half := math.Tan(float64(mgl32.DegToRad(c.fov))*0.5) / float64(c.zoom)
		fovy := float32(2 * math.Atan(half))
		c.proj = mgl32.Perspective(fovy, c.aspect, c.near, c.far)
		c.dirty &^= dirtyProjection
	}
	return c.proj
}

// ViewProjection returns Projection * View.
func (c *PerspectiveCamera) ViewProjection() mgl32.Mat4 {
	if c.dirty&dirtyViewProjection != 0 {
		c.viewProj = c.Projection().Mul4(c.View())
		c.dirty &^= dirtyViewProjection
	}
	return c.viewProj
}

// CameraSystem keeps cameras attached to a transformed entity in sync with that transform.
type CameraSystem struct {
	rows *ecs.Rows
}

// CameraSystemDecl declares CameraSystem.
func CameraSystemDecl() ecs.SystemDecl {
	return ecs.SystemDecl{
		Name: "Camera",
		Use:  []ecs.Type{TransformType, CameraType},
		New: func(w *ecs.World) (ecs.System, error) {
			rows, err := w.EntitiesForSystem("Camera")
			if err != nil {
				return nil, err
			}
			return &CameraSystem{rows: rows}, nil
		},
	}
}

func (s *CameraSystem) Update(context.Context) error {
	for _, comps := range s.rows.All() {
		t := comps[0].(*Transform3D)       //nolint:forcetypeassert // use order
		c := comps[1].(*PerspectiveCamera) //nolint:forcetypeassert // use order
		if t.Dirty {
			c.SetTranslation(t.Translation)
			c.SetOrientation(t.Orientation)
		}
	}
	return nil
}
