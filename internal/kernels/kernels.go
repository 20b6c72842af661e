// Package kernels holds the CPU implementations of the fracture compute
// kernels. The native backend runs them across a worker pool; the wgpu
// backend runs the equivalent WGSL, so both backends produce identical
// buffers.
//
// Each invocation mirrors one WGSL workgroup invocation: it reads and
// writes raw little-endian buffer bytes using the fracgeom layouts, and
// an invocation index at or beyond the element count is a no-op, exactly
// like the guard at the top of the shader entry points.
package kernels

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture/internal/fracgeom"
)

// Tag values with reserved meaning. Non-negative tags are cell ids.
const (
	// TagDropped marks an empty output slot or a discarded triangle.
	TagDropped int32 = -1

	// TagVoid marks a triangle whose cell is open space rather than a
	// solid fragment.
	TagVoid int32 = -2
)

// ClipArgs parameterizes one clip dispatch: a single fracture-pattern
// entry applied to every triangle currently tagged with its cell.
type ClipArgs struct {
	// TriCount is the number of live triangle slots in the input.
	TriCount uint32

	// Cell is the pattern cell this entry refines. Triangles carrying a
	// different tag pass through untouched.
	Cell int32

	// FaceIDBase identifies the entry's first plane; plane j of this
	// entry seals under face id FaceIDBase+j.
	FaceIDBase int32

	// Center is the fracture center. Planes are center-relative, so
	// vertices are translated by -Center before the half-space test.
	Center mgl32.Vec3

	// Planes are the entry's half-space boundaries, tested in order.
	Planes []fracgeom.Plane
}

// ClipInvocation processes input triangle slot i.
//
// Output slots 2i and 2i+1 receive the kept triangles, slot i of the
// edge buffers receives the cut segment when the triangle was split. The
// caller initializes every output tag and edge id to TagDropped, so the
// invocation only writes slots it fills:
//
//   - tag != Cell: the triangle passes through to slot 2i unchanged.
//   - fully outside some plane: the triangle is discarded.
//   - inside all planes: the triangle passes through to slot 2i.
//   - straddling: it is clipped at the first straddled plane; the 1 or 2
//     kept pieces land in slots 2i/2i+1 and the cut edge in slot i.
//
// Clipping stops at the first straddled plane. Pattern entries sharing a
// cell repeat until no triangle straddles, which bounds every dispatch's
// output at twice its input.
func ClipInvocation(i uint32, args *ClipArgs, tris, tags, outTris, outTags, outEdges, outEdgeIDs []byte) {
	if i >= args.TriCount {
		return
	}
	tag := fracgeom.GetTag(tags, int(i)*fracgeom.TagBytes)
	if tag < 0 {
		return
	}

	tri := fracgeom.GetTriangle(tris, int(i)*fracgeom.TriangleBytes)
	outSlot := int(2*i) * fracgeom.TriangleBytes
	outTag := int(2*i) * fracgeom.TagBytes

	if tag != args.Cell {
		fracgeom.PutTriangle(outTris, outSlot, tri)
		fracgeom.PutTag(outTags, outTag, tag)
		return
	}

	rel := fracgeom.Triangle{
		tri[0].Sub(args.Center),
		tri[1].Sub(args.Center),
		tri[2].Sub(args.Center),
	}

	for j, p := range args.Planes {
		switch fracgeom.Classify(rel, p) {
		case fracgeom.SideOutside:
			return
		case fracgeom.SideInside:
			continue
		}

		kept, n, edge, _ := fracgeom.Clip(rel, p)
		for k := 0; k < n; k++ {
			world := fracgeom.Triangle{
				kept[k][0].Add(args.Center),
				kept[k][1].Add(args.Center),
				kept[k][2].Add(args.Center),
			}
			fracgeom.PutTriangle(outTris, outSlot+k*fracgeom.TriangleBytes, world)
			fracgeom.PutTag(outTags, outTag+k*fracgeom.TagBytes, args.Cell)
		}
		fracgeom.PutEdge(outEdges, int(i)*fracgeom.EdgeBytes,
			edge[0].Add(args.Center), edge[1].Add(args.Center))
		fracgeom.PutTag(outEdgeIDs, int(i)*fracgeom.TagBytes, args.FaceIDBase+int32(j))
		return
	}

	// Inside every plane of the entry.
	fracgeom.PutTriangle(outTris, outSlot, tri)
	fracgeom.PutTag(outTags, outTag, tag)
}

// MergeArgs parameterizes the proximity-merge dispatch.
type MergeArgs struct {
	// Count is the number of tag slots to rewrite.
	Count uint32

	// Map sends each cell id to its canonical merged id, or TagVoid for
	// background cells.
	Map []int32
}

// MergeInvocation rewrites tag slot i through the merge map. Dropped
// slots and tags outside the map stay as they are.
func MergeInvocation(i uint32, args *MergeArgs, tags []byte) {
	if i >= args.Count {
		return
	}
	off := int(i) * fracgeom.TagBytes
	tag := fracgeom.GetTag(tags, off)
	if tag < 0 || int(tag) >= len(args.Map) {
		return
	}
	fracgeom.PutTag(tags, off, args.Map[tag])
}
