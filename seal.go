package fracture

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture/internal/fracgeom"
)

// sealFaces reconstructs cap triangles from the cut edges accumulated
// across all clip passes. Edges are grouped by face id; each group emits
// one triangle per edge, fanned around the centroid of all the group's
// endpoints. The fan is a visual seal of a possibly non-convex,
// non-planar boundary, not a guaranteed manifold cap.
//
// Face ids absent from cuts simply produce nothing; a sparse face-id
// space is the normal case. Output is ordered by ascending face id so
// sealing is deterministic regardless of accumulation order.
func sealFaces(cuts []cutEdge) (tris []fracgeom.Triangle, faces []int32) {
	if len(cuts) == 0 {
		return nil, nil
	}

	groups := make(map[int32][]cutEdge)
	for _, c := range cuts {
		groups[c.face] = append(groups[c.face], c)
	}
	ids := make([]int32, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tris = make([]fracgeom.Triangle, 0, len(cuts))
	faces = make([]int32, 0, len(cuts))
	for _, id := range ids {
		group := groups[id]
		var centroid mgl32.Vec3
		for _, c := range group {
			centroid = centroid.Add(c.a).Add(c.b)
		}
		centroid = centroid.Mul(0.5 / float32(len(group)))
		for _, c := range group {
			tris = append(tris, fracgeom.Triangle{centroid, c.a, c.b})
			faces = append(faces, id)
		}
	}
	return tris, faces
}
