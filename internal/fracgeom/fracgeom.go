// Package fracgeom provides the triangle/plane primitives shared by the
// fracture pipeline and the CPU mirror of its compute kernels.
//
// All device buffers use the layouts defined here: triangles are flat
// 12-float records (3 x vec4, w unused), cut edges are 8-float records
// (2 x vec4), planes are single vec4 records (unit normal xyz, signed
// offset w). Byte encoding is little-endian, matching WGSL storage
// buffer layout.
package fracgeom

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Buffer element strides, in bytes.
const (
	// TriangleBytes is the stride of one triangle record (3 x vec4 float32).
	TriangleBytes = 48

	// EdgeBytes is the stride of one cut-edge record (2 x vec4 float32).
	EdgeBytes = 32

	// PlaneBytes is the stride of one plane record (1 x vec4 float32).
	PlaneBytes = 16

	// TagBytes is the stride of one cell-tag record (1 x int32).
	TagBytes = 4
)

// Triangle is a host-side triangle, vertex order significant (winding).
type Triangle [3]mgl32.Vec3

// Plane is a half-space boundary in fracture-center-relative space.
// A point p (already center-relative) is inside when dot(N, p) + W <= 0.
type Plane struct {
	N mgl32.Vec3
	W float32
}

// SignedDistance returns the signed distance of a center-relative point
// to the plane. Negative or zero means inside the half-space.
func (p Plane) SignedDistance(v mgl32.Vec3) float32 {
	return p.N.Dot(v) + p.W
}

// Side classifies a triangle against a single plane.
type Side int

const (
	// SideInside means all three vertices are inside the half-space.
	SideInside Side = iota

	// SideOutside means all three vertices are outside the half-space.
	SideOutside

	// SideStraddle means the plane separates the vertices.
	SideStraddle
)

// Classify returns the triangle's side of the plane. Vertices exactly on
// the plane count as inside, so coincident geometry is never dropped.
func Classify(t Triangle, p Plane) Side {
	inside := 0
	for _, v := range t {
		if p.SignedDistance(v) <= 0 {
			inside++
		}
	}
	switch inside {
	case 3:
		return SideInside
	case 0:
		return SideOutside
	default:
		return SideStraddle
	}
}

// crossing returns the point where edge a->b crosses the plane, given the
// vertices' signed distances. The caller guarantees da and db have
// opposite signs, so the denominator is nonzero.
func crossing(a, b mgl32.Vec3, da, db float32) mgl32.Vec3 {
	t := da / (da - db)
	return a.Add(b.Sub(a).Mul(t))
}

// Clip cuts a straddling triangle at the plane, keeping the inside part.
// It returns the 1 or 2 kept triangles (winding preserved) and the two
// endpoints of the intersection segment. Calling Clip on a non-straddling
// triangle returns nKept == 0 and cut == false.
func Clip(t Triangle, p Plane) (kept [2]Triangle, nKept int, edge [2]mgl32.Vec3, cut bool) {
	var d [3]float32
	inside := 0
	for i, v := range t {
		d[i] = p.SignedDistance(v)
		if d[i] <= 0 {
			inside++
		}
	}
	if inside == 0 || inside == 3 {
		return kept, 0, edge, false
	}

	if inside == 1 {
		// Rotate so the inside vertex comes first; the kept piece is a
		// single triangle (a, ab, ac) in original winding order.
		i := 0
		for d[i] > 0 {
			i++
		}
		a, b, c := t[i], t[(i+1)%3], t[(i+2)%3]
		da, db, dc := d[i], d[(i+1)%3], d[(i+2)%3]
		ab := crossing(a, b, da, db)
		ac := crossing(a, c, da, dc)
		kept[0] = Triangle{a, ab, ac}
		edge = [2]mgl32.Vec3{ab, ac}
		return kept, 1, edge, true
	}

	// Two vertices inside: rotate so the outside vertex comes first and
	// triangulate the kept quad (ab, b, c, ca) as two triangles.
	i := 0
	for d[i] <= 0 {
		i++
	}
	a, b, c := t[i], t[(i+1)%3], t[(i+2)%3]
	da, db, dc := d[i], d[(i+1)%3], d[(i+2)%3]
	ab := crossing(a, b, da, db)
	ca := crossing(c, a, dc, da)
	kept[0] = Triangle{ab, b, c}
	kept[1] = Triangle{ab, c, ca}
	edge = [2]mgl32.Vec3{ab, ca}
	return kept, 2, edge, true
}

// =============================================================================
// Byte codecs (little-endian, WGSL storage layout)
// =============================================================================

func putFloat32(dst []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
}

func getFloat32(src []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
}

// PutTag writes one int32 cell tag at dst[off:].
func PutTag(dst []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(dst[off:], uint32(v))
}

// GetTag reads one int32 cell tag from src[off:].
func GetTag(src []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(src[off:]))
}

func putVec4(dst []byte, off int, v mgl32.Vec3) {
	putFloat32(dst, off+0, v.X())
	putFloat32(dst, off+4, v.Y())
	putFloat32(dst, off+8, v.Z())
	putFloat32(dst, off+12, 0)
}

func getVec3(src []byte, off int) mgl32.Vec3 {
	return mgl32.Vec3{
		getFloat32(src, off+0),
		getFloat32(src, off+4),
		getFloat32(src, off+8),
	}
}

// PutTriangle writes one 48-byte triangle record at dst[off:].
func PutTriangle(dst []byte, off int, t Triangle) {
	putVec4(dst, off+0, t[0])
	putVec4(dst, off+16, t[1])
	putVec4(dst, off+32, t[2])
}

// GetTriangle reads one 48-byte triangle record from src[off:].
func GetTriangle(src []byte, off int) Triangle {
	return Triangle{
		getVec3(src, off+0),
		getVec3(src, off+16),
		getVec3(src, off+32),
	}
}

// PutEdge writes one 32-byte cut-edge record at dst[off:].
func PutEdge(dst []byte, off int, a, b mgl32.Vec3) {
	putVec4(dst, off+0, a)
	putVec4(dst, off+16, b)
}

// GetEdge reads one 32-byte cut-edge record from src[off:].
func GetEdge(src []byte, off int) (a, b mgl32.Vec3) {
	return getVec3(src, off+0), getVec3(src, off+16)
}

// PutPlane writes one 16-byte plane record at dst[off:].
func PutPlane(dst []byte, off int, p Plane) {
	putFloat32(dst, off+0, p.N.X())
	putFloat32(dst, off+4, p.N.Y())
	putFloat32(dst, off+8, p.N.Z())
	putFloat32(dst, off+12, p.W)
}

// DecodePlanes decodes a packed plane buffer. The byte length must be a
// multiple of PlaneBytes; trailing bytes are ignored.
func DecodePlanes(src []byte) []Plane {
	n := len(src) / PlaneBytes
	planes := make([]Plane, n)
	for i := 0; i < n; i++ {
		off := i * PlaneBytes
		planes[i] = Plane{
			N: getVec3(src, off),
			W: getFloat32(src, off+12),
		}
	}
	return planes
}
