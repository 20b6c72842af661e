package fracture

import "github.com/go-gl/mathgl/mgl32"

// Fragment is one output piece of a fractured mesh: a dense point list
// with triangle faces indexing into it. Points are stored relative to the
// fragment's own Center (the midpoint of its axis-aligned bounds), so a
// caller positions the piece at originalTransform ∘ translate(Center).
type Fragment struct {
	// Tag is the final cell tag of the fragment's triangles. TagVoid
	// identifies the background piece; otherwise it is a canonical
	// pattern cell id.
	Tag Tag

	// Points are the fragment's vertices, recentered around Center.
	// Every three consecutive points came from one triangle; vertices
	// are not deduplicated.
	Points []mgl32.Vec3

	// Faces are index triples into Points, winding preserved from the
	// source triangles.
	Faces [][3]uint32

	// Center is the midpoint of the fragment's world-space bounds.
	Center mgl32.Vec3

	// Size is the extent of the fragment's world-space bounds.
	Size mgl32.Vec3
}

// TriangleCount returns the number of faces in the fragment.
func (f *Fragment) TriangleCount() int { return len(f.Faces) }
