package scene

import (
	"context"

	"github.com/argus-labs/lumen/pkg/ecs"
	"github.com/argus-labs/lumen/pkg/render"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
)

// Renderable draws an entity with Draw, positioned by its Transform3D.
type Renderable struct {
	Draw render.Command[render.Device]
}

func (Renderable) Name() string { return "Renderable" }

// RenderableType is the component type of Renderable.
var RenderableType = ecs.TypeOf[Renderable]() //nolint:gochecknoglobals // component descriptor

// RenderConfig sets up the frame a RenderSystem records.
type RenderConfig struct {
	ClearColor mgl32.Vec4
	Width      int32
	Height     int32
}

// RenderSystem keeps a command buffer in step with the renderable entities and submits it once
// per frame, after every system has updated. Each entity contributes a uniforms command carrying
// its model and view-projection matrices followed by its draw command.
type RenderSystem struct {
	world   *ecs.World
	rows    *ecs.Rows
	buffer  *render.Buffer[render.Device]
	bound   map[ecs.EntityID]entityCommands
	camera  *PerspectiveCamera
	submits int
}

type entityCommands struct {
	transform *Transform3D
	uniforms  *render.UniformsCommand
	draw      render.Command[render.Device]
}

// RenderSystemDecl declares a RenderSystem that draws to dev.
func RenderSystemDecl(dev render.Device, cfg RenderConfig) ecs.SystemDecl {
	return ecs.SystemDecl{
		Name: "Render",
		Use:  []ecs.Type{TransformType, RenderableType},
		New: func(w *ecs.World) (ecs.System, error) {
			if dev == nil {
				return nil, eris.New("render device must not be nil")
			}
			rows, err := w.EntitiesForSystem("Render")
			if err != nil {
				return nil, err
			}

			s := &RenderSystem{
				world:  w,
				rows:   rows,
				buffer: render.NewBuffer(dev),
				bound:  make(map[ecs.EntityID]entityCommands),
			}
			if err := s.buffer.Add(render.NewClearCommand(cfg.ClearColor)); err != nil {
				return nil, err
			}
			if err := s.buffer.Add(&render.ViewportCommand{Width: cfg.Width, Height: cfg.Height}); err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// Update picks the first camera in the world. Without one, entities are drawn with identity
// view and projection.
func (s *RenderSystem) Update(context.Context) error {
	s.camera = nil
	for c := range ecs.All[PerspectiveCamera](s.world) {
		s.camera = c
		break
	}
	return nil
}

func (s *RenderSystem) PostUpdate(context.Context) error {
	if err := s.sync(); err != nil {
		return err
	}
	if err := s.buffer.Submit(); err != nil {
		return eris.Wrap(err, "failed to submit frame")
	}
	s.submits++
	return nil
}

// sync removes the commands of entities that left the set and adds commands for new members.
func (s *RenderSystem) sync() error {
	for id, cmds := range s.bound {
		if comps, ok := s.rows.Get(id); ok && cmds.current(comps) {
			continue
		}
		if err := s.unbind(id, cmds); err != nil {
			return err
		}
	}

	for id, comps := range s.rows.All() {
		if _, ok := s.bound[id]; ok {
			continue
		}
		t := comps[0].(*Transform3D) //nolint:forcetypeassert // use order
		r := comps[1].(*Renderable)  //nolint:forcetypeassert // use order
		if r.Draw == nil {
			continue
		}

		cmds := entityCommands{
			transform: t,
			uniforms: &render.UniformsCommand{Source: func() map[string]any {
				return map[string]any{
					"u_model":          t.World,
					"u_viewProjection": s.viewProjection(),
				}
			}},
			draw: r.Draw,
		}
		if err := s.buffer.Add(cmds.uniforms); err != nil {
			return err
		}
		if err := s.buffer.Add(cmds.draw); err != nil {
			_ = s.buffer.Remove(cmds.uniforms)
			return eris.Wrapf(err, "failed to add draw of entity %s", id)
		}
		s.bound[id] = cmds
	}
	return nil
}

// current reports whether cmds were built from the components the entity holds now.
func (cmds entityCommands) current(comps []ecs.Component) bool {
	t := comps[0].(*Transform3D) //nolint:forcetypeassert // use order
	r := comps[1].(*Renderable)  //nolint:forcetypeassert // use order
	return t == cmds.transform && r.Draw == cmds.draw
}

func (s *RenderSystem) unbind(id ecs.EntityID, cmds entityCommands) error {
	delete(s.bound, id)
	if err := s.buffer.Remove(cmds.uniforms); err != nil {
		return err
	}
	if err := s.buffer.Remove(cmds.draw); err != nil {
		return eris.Wrapf(err, "failed to remove draw of entity %s", id)
	}
	return nil
}

func (s *RenderSystem) viewProjection() mgl32.Mat4 {
	if s.camera == nil {
		return mgl32.Ident4()
	}
	return s.camera.ViewProjection()
}

// Bound returns the number of entities with commands in the buffer.
func (s *RenderSystem) Bound() int {
	return len(s.bound)
}

// Submits returns the number of frames submitted.
func (s *RenderSystem) Submits() int {
	return s.submits
}

// Close destroys every command in the buffer.
func (s *RenderSystem) Close() error {
	clear(s.bound)
	return s.buffer.Destroy()
}
