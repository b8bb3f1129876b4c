package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
)

// LogDevice is a headless Device that logs every call at debug level and counts draw calls.
type LogDevice struct {
	logger  zerolog.Logger
	nextVAO VertexArray
	live    map[VertexArray]struct{}

	// Draws is the number of draw calls issued since the last Reset.
	Draws int
}

func NewLogDevice(logger zerolog.Logger) *LogDevice {
	return &LogDevice{
		logger: logger,
		live:   make(map[VertexArray]struct{}),
	}
}

func (d *LogDevice) Clear(color mgl32.Vec4, mask ClearMask) {
	d.logger.Debug().Floats32("color", color[:]).Uint8("mask", uint8(mask)).Msg("clear")
}

func (d *LogDevice) Viewport(x, y, width, height int32) {
	d.logger.Debug().Int32("x", x).Int32("y", y).Int32("width", width).Int32("height", height).Msg("viewport")
}

func (d *LogDevice) SetUniforms(uniforms map[string]any) error {
	d.logger.Debug().Int("count", len(uniforms)).Msg("set uniforms")
	return nil
}

func (d *LogDevice) DrawArrays(vertices VertexBuffer, topology Topology, first, count int32) error {
	d.Draws++
	d.logger.Debug().Uint32("buffer", vertices.Handle).Stringer("topology", topology).
		Int32("first", first).Int32("count", count).Msg("draw arrays")
	return nil
}

func (d *LogDevice) CreateVertexArray(vertices VertexBuffer, indices IndexBuffer) (VertexArray, error) {
	d.nextVAO++
	d.live[d.nextVAO] = struct{}{}
	d.logger.Debug().Uint32("vao", uint32(d.nextVAO)).Uint32("vertices", vertices.Handle).
		Uint32("indices", indices.Handle).Msg("create vertex array")
	return d.nextVAO, nil
}

func (d *LogDevice) DeleteVertexArray(vao VertexArray) error {
	delete(d.live, vao)
	d.logger.Debug().Uint32("vao", uint32(vao)).Msg("delete vertex array")
	return nil
}

func (d *LogDevice) DrawElements(vao VertexArray, topology Topology, count int32) error {
	d.Draws++
	d.logger.Debug().Uint32("vao", uint32(vao)).Stringer("topology", topology).Int32("count", count).
		Msg("draw elements")
	return nil
}

// LiveVertexArrays returns the number of vertex arrays created and not yet deleted.
func (d *LogDevice) LiveVertexArrays() int {
	return len(d.live)
}

// Reset zeroes the draw counter.
func (d *LogDevice) Reset() {
	d.Draws = 0
}
