package render

import "github.com/go-gl/mathgl/mgl32"

// ClearMask selects the attachments a clear applies to.
type ClearMask uint8

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
	ClearStencil

	ClearAll = ClearColor | ClearDepth | ClearStencil
)

// Topology is the primitive type vertices are assembled into.
type Topology uint8

const (
	Triangles Topology = iota
	TriangleStrip
	Lines
	Points
)

func (t Topology) String() string {
	switch t {
	case Triangles:
		return "triangles"
	case TriangleStrip:
		return "triangle_strip"
	case Lines:
		return "lines"
	case Points:
		return "points"
	default:
		return "unknown"
	}
}

// VertexElement describes one attribute in an interleaved vertex buffer.
type VertexElement struct {
	Location int32 // Shader attribute location
	Count    int32 // Number of float components
	Offset   int32 // Byte offset within a vertex
}

// VertexLayout describes how attributes are packed in a vertex buffer.
type VertexLayout struct {
	Stride   int32
	Elements []VertexElement
}

// VertexBuffer is a GPU vertex buffer owned by the device.
type VertexBuffer struct {
	Handle uint32
	Count  int32
	Layout VertexLayout
}

// IndexBuffer is a GPU index buffer of 16-bit indices owned by the device.
type IndexBuffer struct {
	Handle uint32
	Count  int32
}

// VertexArray is a device handle recording vertex and index bindings.
type VertexArray uint32

// Device is the GPU surface commands are executed against.
type Device interface {
	Clear(color mgl32.Vec4, mask ClearMask)
	Viewport(x, y, width, height int32)
	SetUniforms(uniforms map[string]any) error
	DrawArrays(vertices VertexBuffer, topology Topology, first, count int32) error
	CreateVertexArray(vertices VertexBuffer, indices IndexBuffer) (VertexArray, error)
	DeleteVertexArray(vao VertexArray) error
	DrawElements(vao VertexArray, topology Topology, count int32) error
}
