package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
)

// ClearCommand clears the selected attachments to Color.
type ClearCommand struct {
	Color mgl32.Vec4
	Mask  ClearMask
}

// NewClearCommand clears every attachment to color.
func NewClearCommand(color mgl32.Vec4) *ClearCommand {
	return &ClearCommand{Color: color, Mask: ClearAll}
}

func (c *ClearCommand) Call(d Device) error {
	d.Clear(c.Color, c.Mask)
	return nil
}

// ViewportCommand sets the viewport rectangle.
type ViewportCommand struct {
	X, Y, Width, Height int32
}

func (c *ViewportCommand) Call(d Device) error {
	if c.Width < 0 || c.Height < 0 {
		return eris.Errorf("invalid viewport size %dx%d", c.Width, c.Height)
	}
	d.Viewport(c.X, c.Y, c.Width, c.Height)
	return nil
}

// UniformsCommand uploads the values returned by Source when it is called. Source is read at
// submit time so values such as camera matrices are current.
type UniformsCommand struct {
	Source func() map[string]any
}

func (c *UniformsCommand) Call(d Device) error {
	if c.Source == nil {
		return nil
	}
	return d.SetUniforms(c.Source())
}

// DrawArraysCommand draws every vertex of a buffer.
type DrawArraysCommand struct {
	Vertices VertexBuffer
	Topology Topology
}

func (c *DrawArraysCommand) Call(d Device) error {
	return d.DrawArrays(c.Vertices, c.Topology, 0, c.Vertices.Count)
}

// DrawElementsCommand draws indexed geometry through a vertex array recorded once at compile
// time and deleted on destroy.
type DrawElementsCommand struct {
	Vertices VertexBuffer
	Indices  IndexBuffer
	Topology Topology

	vao      VertexArray
	compiled bool
}

func (c *DrawElementsCommand) Compile(d Device) error {
	if c.compiled {
		return nil
	}
	vao, err := d.CreateVertexArray(c.Vertices, c.Indices)
	if err != nil {
		return eris.Wrap(err, "failed to create vertex array")
	}
	c.vao = vao
	c.compiled = true
	return nil
}

func (c *DrawElementsCommand) Destroy(d Device) error {
	if !c.compiled {
		return nil
	}
	c.compiled = false
	return d.DeleteVertexArray(c.vao)
}

func (c *DrawElementsCommand) Call(d Device) error {
	if !c.compiled {
		return eris.New("draw elements submitted before it was compiled")
	}
	return d.DrawElements(c.vao, c.Topology, c.Indices.Count)
}
