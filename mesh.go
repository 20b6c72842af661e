package fracture

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Triangle is one input triangle. Vertex order is significant: it defines
// the winding, and clipping preserves it.
type Triangle [3]mgl32.Vec3

// Mesh is the input to a fracture operation: a closed triangle soup in
// local space. The pipeline never validates mesh quality; degenerate
// triangles produce degenerate fragments, not errors.
type Mesh struct {
	Triangles []Triangle
}

// MeshFromPositions builds a Mesh from a flat position array laid out as
// consecutive x,y,z triples, three vertices per triangle. The length must
// be a multiple of 9.
func MeshFromPositions(pos []float32) (Mesh, error) {
	if len(pos)%9 != 0 {
		return Mesh{}, fmt.Errorf("%w: %d positions is not a whole number of triangles", ErrInvalidMesh, len(pos))
	}
	tris := make([]Triangle, len(pos)/9)
	for i := range tris {
		off := i * 9
		for v := 0; v < 3; v++ {
			tris[i][v] = mgl32.Vec3{pos[off+v*3], pos[off+v*3+1], pos[off+v*3+2]}
		}
	}
	return Mesh{Triangles: tris}, nil
}

// Positions flattens the mesh back into consecutive x,y,z triples.
func (m Mesh) Positions() []float32 {
	pos := make([]float32, 0, len(m.Triangles)*9)
	for _, t := range m.Triangles {
		for _, v := range t {
			pos = append(pos, v.X(), v.Y(), v.Z())
		}
	}
	return pos
}
