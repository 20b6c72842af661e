package fracture

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture/internal/fracgeom"
)

// replicate seeds the clip frontier: one rotated copy of the input mesh
// per pattern cell, concatenated into a single triangle buffer with copy k
// tagged cell k. Translation is not applied here; the impact point enters
// the kernels as the plane-relative center instead.
//
// The returned byte slices use the device record layout (48 B triangles,
// 4 B tags) so they can be written to buffers without re-encoding.
func replicate(mesh Mesh, rotation mgl32.Mat3, cells int32) (tris, tags []byte) {
	src := make([]fracgeom.Triangle, len(mesh.Triangles))
	for i, t := range mesh.Triangles {
		src[i] = fracgeom.Triangle{
			rotation.Mul3x1(t[0]),
			rotation.Mul3x1(t[1]),
			rotation.Mul3x1(t[2]),
		}
	}

	n := len(src) * int(cells)
	tris = make([]byte, n*fracgeom.TriangleBytes)
	tags = make([]byte, n*fracgeom.TagBytes)
	for cell := int32(0); cell < cells; cell++ {
		base := int(cell) * len(src)
		for i, t := range src {
			fracgeom.PutTriangle(tris, (base+i)*fracgeom.TriangleBytes, t)
			fracgeom.PutTag(tags, (base+i)*fracgeom.TagBytes, cell)
		}
	}
	return tris, tags
}
