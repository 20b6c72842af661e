package kernels

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture/internal/fracgeom"
)

// clipBuffers allocates input/output buffers for n input triangles with
// every output slot initialized to TagDropped.
func clipBuffers(n int) (tris, tags, outTris, outTags, outEdges, outEdgeIDs []byte) {
	tris = make([]byte, n*fracgeom.TriangleBytes)
	tags = make([]byte, n*fracgeom.TagBytes)
	outTris = make([]byte, 2*n*fracgeom.TriangleBytes)
	outTags = make([]byte, 2*n*fracgeom.TagBytes)
	outEdges = make([]byte, n*fracgeom.EdgeBytes)
	outEdgeIDs = make([]byte, n*fracgeom.TagBytes)
	for i := 0; i < 2*n; i++ {
		fracgeom.PutTag(outTags, i*fracgeom.TagBytes, TagDropped)
	}
	for i := 0; i < n; i++ {
		fracgeom.PutTag(outEdgeIDs, i*fracgeom.TagBytes, TagDropped)
	}
	return
}

func runClip(args *ClipArgs, tris, tags, outTris, outTags, outEdges, outEdgeIDs []byte) {
	for i := uint32(0); i < args.TriCount; i++ {
		ClipInvocation(i, args, tris, tags, outTris, outTags, outEdges, outEdgeIDs)
	}
}

func TestClipInvocationPassthroughOtherCell(t *testing.T) {
	tris, tags, outTris, outTags, outEdges, outEdgeIDs := clipBuffers(1)
	tri := fracgeom.Triangle{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	fracgeom.PutTriangle(tris, 0, tri)
	fracgeom.PutTag(tags, 0, 3)

	args := &ClipArgs{
		TriCount: 1,
		Cell:     0,
		Planes:   []fracgeom.Plane{{N: mgl32.Vec3{1, 0, 0}, W: 10}},
	}
	runClip(args, tris, tags, outTris, outTags, outEdges, outEdgeIDs)

	if got := fracgeom.GetTag(outTags, 0); got != 3 {
		t.Errorf("slot 0 tag = %d, want 3", got)
	}
	if got := fracgeom.GetTag(outTags, fracgeom.TagBytes); got != TagDropped {
		t.Errorf("slot 1 tag = %d, want dropped", got)
	}
	if got := fracgeom.GetTriangle(outTris, 0); got != tri {
		t.Errorf("slot 0 triangle = %v, want unchanged", got)
	}
	if got := fracgeom.GetTag(outEdgeIDs, 0); got != TagDropped {
		t.Errorf("edge id = %d, want dropped", got)
	}
}

func TestClipInvocationInsideAll(t *testing.T) {
	tris, tags, outTris, outTags, outEdges, outEdgeIDs := clipBuffers(1)
	tri := fracgeom.Triangle{{-1, 0, 0}, {-2, 0, 0}, {-1, 1, 0}}
	fracgeom.PutTriangle(tris, 0, tri)
	fracgeom.PutTag(tags, 0, 0)

	args := &ClipArgs{
		TriCount: 1,
		Cell:     0,
		Planes: []fracgeom.Plane{
			{N: mgl32.Vec3{1, 0, 0}, W: 0},
			{N: mgl32.Vec3{0, 0, 1}, W: -5},
		},
	}
	runClip(args, tris, tags, outTris, outTags, outEdges, outEdgeIDs)

	if got := fracgeom.GetTag(outTags, 0); got != 0 {
		t.Errorf("slot 0 tag = %d, want 0", got)
	}
	if got := fracgeom.GetTriangle(outTris, 0); got != tri {
		t.Errorf("slot 0 triangle = %v, want unchanged", got)
	}
}

func TestClipInvocationOutsideDrops(t *testing.T) {
	tris, tags, outTris, outTags, outEdges, outEdgeIDs := clipBuffers(1)
	fracgeom.PutTriangle(tris, 0, fracgeom.Triangle{{5, 0, 0}, {6, 0, 0}, {5, 1, 0}})
	fracgeom.PutTag(tags, 0, 0)

	args := &ClipArgs{
		TriCount: 1,
		Cell:     0,
		Planes:   []fracgeom.Plane{{N: mgl32.Vec3{1, 0, 0}, W: 0}},
	}
	runClip(args, tris, tags, outTris, outTags, outEdges, outEdgeIDs)

	if got := fracgeom.GetTag(outTags, 0); got != TagDropped {
		t.Errorf("slot 0 tag = %d, want dropped", got)
	}
	if got := fracgeom.GetTag(outTags, fracgeom.TagBytes); got != TagDropped {
		t.Errorf("slot 1 tag = %d, want dropped", got)
	}
}

func TestClipInvocationStraddleSplits(t *testing.T) {
	tris, tags, outTris, outTags, outEdges, outEdgeIDs := clipBuffers(1)
	// Apex inside (x<0), base outside: keep one tip triangle and emit
	// a cut edge on the plane.
	fracgeom.PutTriangle(tris, 0, fracgeom.Triangle{{-1, 0, 0}, {1, -1, 0}, {1, 1, 0}})
	fracgeom.PutTag(tags, 0, 7)

	args := &ClipArgs{
		TriCount:   1,
		Cell:       7,
		FaceIDBase: 70,
		Planes:     []fracgeom.Plane{{N: mgl32.Vec3{1, 0, 0}, W: 0}},
	}
	runClip(args, tris, tags, outTris, outTags, outEdges, outEdgeIDs)

	if got := fracgeom.GetTag(outTags, 0); got != 7 {
		t.Errorf("slot 0 tag = %d, want 7", got)
	}
	if got := fracgeom.GetTag(outTags, fracgeom.TagBytes); got != TagDropped {
		t.Errorf("slot 1 tag = %d, want dropped (single kept piece)", got)
	}
	if got := fracgeom.GetTag(outEdgeIDs, 0); got != 70 {
		t.Errorf("edge id = %d, want 70", got)
	}
	a, b := fracgeom.GetEdge(outEdges, 0)
	if a.X() != 0 || b.X() != 0 {
		t.Errorf("cut edge not on plane: %v %v", a, b)
	}
	kept := fracgeom.GetTriangle(outTris, 0)
	for _, v := range kept {
		if v.X() > 1e-5 {
			t.Errorf("kept vertex %v outside half-space", v)
		}
	}
}

func TestClipInvocationStraddleQuad(t *testing.T) {
	tris, tags, outTris, outTags, outEdges, outEdgeIDs := clipBuffers(1)
	// Two vertices inside: both output slots are filled.
	fracgeom.PutTriangle(tris, 0, fracgeom.Triangle{{1, 0, 0}, {-1, -1, 0}, {-1, 1, 0}})
	fracgeom.PutTag(tags, 0, 0)

	args := &ClipArgs{
		TriCount:   1,
		Cell:       0,
		FaceIDBase: 4,
		Planes:     []fracgeom.Plane{{N: mgl32.Vec3{1, 0, 0}, W: 0}},
	}
	runClip(args, tris, tags, outTris, outTags, outEdges, outEdgeIDs)

	if got := fracgeom.GetTag(outTags, 0); got != 0 {
		t.Errorf("slot 0 tag = %d, want 0", got)
	}
	if got := fracgeom.GetTag(outTags, fracgeom.TagBytes); got != 0 {
		t.Errorf("slot 1 tag = %d, want 0", got)
	}
	if got := fracgeom.GetTag(outEdgeIDs, 0); got != 4 {
		t.Errorf("edge id = %d, want 4", got)
	}
}

func TestClipInvocationFaceIDPerPlane(t *testing.T) {
	tris, tags, outTris, outTags, outEdges, outEdgeIDs := clipBuffers(1)
	// Inside plane 0, straddling plane 1: face id is base+1.
	fracgeom.PutTriangle(tris, 0, fracgeom.Triangle{{-1, -1, 0}, {-2, 1, 0}, {-1, 1, 0}})
	fracgeom.PutTag(tags, 0, 0)

	args := &ClipArgs{
		TriCount:   1,
		Cell:       0,
		FaceIDBase: 10,
		Planes: []fracgeom.Plane{
			{N: mgl32.Vec3{1, 0, 0}, W: 0},
			{N: mgl32.Vec3{0, 1, 0}, W: 0},
		},
	}
	runClip(args, tris, tags, outTris, outTags, outEdges, outEdgeIDs)

	if got := fracgeom.GetTag(outEdgeIDs, 0); got != 11 {
		t.Errorf("edge id = %d, want 11", got)
	}
}

func TestClipInvocationCenterRelative(t *testing.T) {
	tris, tags, outTris, outTags, outEdges, outEdgeIDs := clipBuffers(1)
	// Plane x<=0 relative to center (10,0,0) keeps vertices with x<=10.
	fracgeom.PutTriangle(tris, 0, fracgeom.Triangle{{9, 0, 0}, {9.5, 1, 0}, {9, 1, 0}})
	fracgeom.PutTag(tags, 0, 0)

	args := &ClipArgs{
		TriCount: 1,
		Cell:     0,
		Center:   mgl32.Vec3{10, 0, 0},
		Planes:   []fracgeom.Plane{{N: mgl32.Vec3{1, 0, 0}, W: 0}},
	}
	runClip(args, tris, tags, outTris, outTags, outEdges, outEdgeIDs)

	if got := fracgeom.GetTag(outTags, 0); got != 0 {
		t.Errorf("slot 0 tag = %d, want kept", got)
	}
	if got := fracgeom.GetTriangle(outTris, 0); got[0].X() != 9 {
		t.Errorf("kept triangle moved: %v", got)
	}
}

func TestClipInvocationGuards(t *testing.T) {
	tris, tags, outTris, outTags, outEdges, outEdgeIDs := clipBuffers(2)
	fracgeom.PutTriangle(tris, 0, fracgeom.Triangle{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	fracgeom.PutTag(tags, 0, TagDropped)
	fracgeom.PutTriangle(tris, fracgeom.TriangleBytes, fracgeom.Triangle{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	fracgeom.PutTag(tags, fracgeom.TagBytes, 0)

	args := &ClipArgs{
		TriCount: 1, // slot 1 is beyond the live count
		Cell:     0,
		Planes:   []fracgeom.Plane{{N: mgl32.Vec3{1, 0, 0}, W: 10}},
	}
	for i := uint32(0); i < 2; i++ {
		ClipInvocation(i, args, tris, tags, outTris, outTags, outEdges, outEdgeIDs)
	}

	for slot := 0; slot < 4; slot++ {
		if got := fracgeom.GetTag(outTags, slot*fracgeom.TagBytes); got != TagDropped {
			t.Errorf("slot %d tag = %d, want dropped", slot, got)
		}
	}
}

func TestMergeInvocation(t *testing.T) {
	tags := make([]byte, 5*fracgeom.TagBytes)
	for i, v := range []int32{0, 1, 2, TagDropped, 1} {
		fracgeom.PutTag(tags, i*fracgeom.TagBytes, v)
	}
	args := &MergeArgs{
		Count: 5,
		Map:   []int32{0, 0, TagVoid},
	}
	for i := uint32(0); i < args.Count; i++ {
		MergeInvocation(i, args, tags)
	}

	want := []int32{0, 0, TagVoid, TagDropped, 0}
	for i, w := range want {
		if got := fracgeom.GetTag(tags, i*fracgeom.TagBytes); got != w {
			t.Errorf("tag %d = %d, want %d", i, got, w)
		}
	}
}

func TestMergeInvocationGuards(t *testing.T) {
	tags := make([]byte, 2*fracgeom.TagBytes)
	fracgeom.PutTag(tags, 0, 9) // beyond the map
	fracgeom.PutTag(tags, fracgeom.TagBytes, 0)

	args := &MergeArgs{Count: 1, Map: []int32{5}}
	for i := uint32(0); i < 2; i++ {
		MergeInvocation(i, args, tags)
	}

	if got := fracgeom.GetTag(tags, 0); got != 9 {
		t.Errorf("out-of-map tag rewritten to %d", got)
	}
	if got := fracgeom.GetTag(tags, fracgeom.TagBytes); got != 0 {
		t.Errorf("slot beyond count rewritten to %d", got)
	}
}

func BenchmarkClipInvocation(b *testing.B) {
	const n = 1024
	tris, tags, outTris, outTags, outEdges, outEdgeIDs := clipBuffers(n)
	for i := 0; i < n; i++ {
		// Alternate straddling and inside triangles around the plane.
		x := float32(i%2) - 0.5
		fracgeom.PutTriangle(tris, i*fracgeom.TriangleBytes, fracgeom.Triangle{
			{x, -1, 0}, {x + 1, -1, 0}, {x, 1, 0},
		})
		fracgeom.PutTag(tags, i*fracgeom.TagBytes, 0)
	}
	args := &ClipArgs{
		TriCount: n,
		Cell:     0,
		Planes:   []fracgeom.Plane{{N: mgl32.Vec3{0, 1, 0}, W: 0}},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runClip(args, tris, tags, outTris, outTags, outEdges, outEdgeIDs)
	}
}
