package fracture

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture/internal/fracgeom"
)

// bucket accumulates one fragment's geometry during assembly.
type bucket struct {
	points   []mgl32.Vec3
	min, max mgl32.Vec3
}

func (b *bucket) add(t fracgeom.Triangle) {
	for _, v := range t {
		if len(b.points) == 0 {
			b.min, b.max = v, v
		} else {
			b.min = mgl32.Vec3{
				min(b.min.X(), v.X()),
				min(b.min.Y(), v.Y()),
				min(b.min.Z(), v.Z()),
			}
			b.max = mgl32.Vec3{
				max(b.max.X(), v.X()),
				max(b.max.Y(), v.Y()),
				max(b.max.Z(), v.Z()),
			}
		}
		b.points = append(b.points, v)
	}
}

// assemble groups the final triangle set by cell tag and materializes one
// Fragment per non-empty group. Tags index dense buckets via tag+2, so
// the void tag lands in bucket 0 and is emitted like any other non-empty
// group; buckets that never receive a triangle are omitted. Each
// fragment's points are rebased around the midpoint of its bounds.
//
// cells bounds the bucket space; tags are post-merge, so every valid tag
// is either TagVoid or a cell id below cells.
func assemble(tris []fracgeom.Triangle, tags []int32, cells int32) []Fragment {
	buckets := make([]*bucket, cells+2)
	for i, t := range tris {
		idx := Tag(tags[i]).Bucket()
		if idx < 0 || idx >= len(buckets) {
			continue
		}
		if buckets[idx] == nil {
			buckets[idx] = &bucket{}
		}
		buckets[idx].add(t)
	}

	frags := make([]Fragment, 0, len(buckets))
	for idx, b := range buckets {
		if b == nil || len(b.points) == 0 {
			continue
		}
		center := b.min.Add(b.max).Mul(0.5)
		size := b.max.Sub(b.min)
		points := make([]mgl32.Vec3, len(b.points))
		for i, pt := range b.points {
			points[i] = pt.Sub(center)
		}
		faces := make([][3]uint32, len(points)/3)
		for i := range faces {
			faces[i] = [3]uint32{uint32(i * 3), uint32(i*3 + 1), uint32(i*3 + 2)}
		}
		frags = append(frags, Fragment{
			Tag:    Tag(idx - 2),
			Points: points,
			Faces:  faces,
			Center: center,
			Size:   size,
		})
	}
	return frags
}
