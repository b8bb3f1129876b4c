package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Sphere is a bounding sphere.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// Transform returns the sphere moved by m. The radius grows by the largest axis scale of m so the
// result still encloses the transformed volume.
func (s Sphere) Transform(m mgl32.Mat4) Sphere {
	return Sphere{
		Center: m.Mul4x1(s.Center.Vec4(1)).Vec3(),
		Radius: s.Radius * maxAxisScale(m),
	}
}

func maxAxisScale(m mgl32.Mat4) float32 {
	sx := m.Col(0).Vec3().LenSqr()
	sy := m.Col(1).Vec3().LenSqr()
	sz := m.Col(2).Vec3().LenSqr()
	return float32(math.Sqrt(float64(max(sx, sy, sz))))
}
