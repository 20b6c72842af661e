package fracture

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture/internal/fracgeom"
	"github.com/gogpu/fracture/internal/kernels"
)

// cutEdge is one accumulated seal segment: the two endpoints of a
// triangle/plane intersection, grouped for sealing by the face id of the
// plane that cut it.
type cutEdge struct {
	face int32
	a, b mgl32.Vec3
}

// checkStride verifies that a readback buffer divides evenly into records.
// A remainder means a broken invariant upstream, fatal for this operation.
func checkStride(what string, n, stride int) (int, error) {
	if n%stride != 0 {
		return 0, fmt.Errorf("%w: %s is %d bytes, stride %d", ErrBufferMisaligned, what, n, stride)
	}
	return n / stride, nil
}

// compactTriangles densifies the sparse clip output: every slot whose tag
// is not the drop sentinel is copied, in order, into fresh triangle and
// tag buffers. The result feeds the next dispatch.
func compactTriangles(tris, tags []byte) (outTris, outTags []byte, err error) {
	nt, err := checkStride("triangle buffer", len(tris), fracgeom.TriangleBytes)
	if err != nil {
		return nil, nil, err
	}
	ng, err := checkStride("tag buffer", len(tags), fracgeom.TagBytes)
	if err != nil {
		return nil, nil, err
	}
	if nt != ng {
		return nil, nil, fmt.Errorf("%w: %d triangles vs %d tags", ErrBufferMisaligned, nt, ng)
	}

	outTris = make([]byte, 0, len(tris))
	outTags = make([]byte, 0, len(tags))
	for i := 0; i < ng; i++ {
		if fracgeom.GetTag(tags, i*fracgeom.TagBytes) == kernels.TagDropped {
			continue
		}
		outTris = append(outTris, tris[i*fracgeom.TriangleBytes:(i+1)*fracgeom.TriangleBytes]...)
		outTags = append(outTags, tags[i*fracgeom.TagBytes:(i+1)*fracgeom.TagBytes]...)
	}
	return outTris, outTags, nil
}

// compactEdges appends every valid cut-edge record (face id != drop
// sentinel) to dst, preserving order. Edges accumulate across all passes;
// they are consumed once, by sealing.
func compactEdges(edges, ids []byte, dst []cutEdge) ([]cutEdge, error) {
	ne, err := checkStride("edge buffer", len(edges), fracgeom.EdgeBytes)
	if err != nil {
		return dst, err
	}
	ni, err := checkStride("edge id buffer", len(ids), fracgeom.TagBytes)
	if err != nil {
		return dst, err
	}
	if ne != ni {
		return dst, fmt.Errorf("%w: %d edges vs %d ids", ErrBufferMisaligned, ne, ni)
	}

	for i := 0; i < ne; i++ {
		face := fracgeom.GetTag(ids, i*fracgeom.TagBytes)
		if face == kernels.TagDropped {
			continue
		}
		a, b := fracgeom.GetEdge(edges, i*fracgeom.EdgeBytes)
		dst = append(dst, cutEdge{face: face, a: a, b: b})
	}
	return dst, nil
}
