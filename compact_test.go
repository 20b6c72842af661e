package fracture

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture/internal/fracgeom"
)

func triAt(x float32) fracgeom.Triangle {
	return fracgeom.Triangle{{x, 0, 0}, {x + 1, 0, 0}, {x, 1, 0}}
}

func TestCompactTriangles(t *testing.T) {
	// Slots: kept, dropped, kept (void), dropped, kept.
	tagvals := []int32{0, -1, -2, -1, 5}
	tris := make([]byte, len(tagvals)*fracgeom.TriangleBytes)
	tags := make([]byte, len(tagvals)*fracgeom.TagBytes)
	for i, tag := range tagvals {
		fracgeom.PutTriangle(tris, i*fracgeom.TriangleBytes, triAt(float32(i)))
		fracgeom.PutTag(tags, i*fracgeom.TagBytes, tag)
	}

	outTris, outTags, err := compactTriangles(tris, tags)
	if err != nil {
		t.Fatalf("compactTriangles() error: %v", err)
	}
	wantTags := []int32{0, -2, 5}
	wantX := []float32{0, 2, 4}
	if len(outTags) != len(wantTags)*fracgeom.TagBytes {
		t.Fatalf("got %d tag bytes, want %d", len(outTags), len(wantTags)*fracgeom.TagBytes)
	}
	for i := range wantTags {
		if got := fracgeom.GetTag(outTags, i*fracgeom.TagBytes); got != wantTags[i] {
			t.Errorf("tag %d = %d, want %d", i, got, wantTags[i])
		}
		tri := fracgeom.GetTriangle(outTris, i*fracgeom.TriangleBytes)
		if tri[0].X() != wantX[i] {
			t.Errorf("triangle %d origin x = %v, want %v", i, tri[0].X(), wantX[i])
		}
	}
}

func TestCompactTrianglesEmpty(t *testing.T) {
	outTris, outTags, err := compactTriangles(nil, nil)
	if err != nil {
		t.Fatalf("compactTriangles(nil) error: %v", err)
	}
	if len(outTris) != 0 || len(outTags) != 0 {
		t.Errorf("got %d/%d bytes, want empty", len(outTris), len(outTags))
	}
}

func TestCompactTrianglesMisaligned(t *testing.T) {
	tests := []struct {
		name       string
		tris, tags int
	}{
		{"triangle stride", fracgeom.TriangleBytes + 1, fracgeom.TagBytes},
		{"tag stride", fracgeom.TriangleBytes, fracgeom.TagBytes + 1},
		{"count mismatch", 2 * fracgeom.TriangleBytes, fracgeom.TagBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compactTriangles(make([]byte, tt.tris), make([]byte, tt.tags))
			if !errors.Is(err, ErrBufferMisaligned) {
				t.Errorf("compactTriangles() = %v, want ErrBufferMisaligned", err)
			}
		})
	}
}

func TestCompactEdges(t *testing.T) {
	ids := []int32{-1, 7, -1, 3}
	edges := make([]byte, len(ids)*fracgeom.EdgeBytes)
	rawIDs := make([]byte, len(ids)*fracgeom.TagBytes)
	for i, id := range ids {
		a := mgl32.Vec3{float32(i), 0, 0}
		b := mgl32.Vec3{float32(i), 1, 0}
		fracgeom.PutEdge(edges, i*fracgeom.EdgeBytes, a, b)
		fracgeom.PutTag(rawIDs, i*fracgeom.TagBytes, id)
	}

	seed := []cutEdge{{face: 9, a: mgl32.Vec3{9, 9, 9}, b: mgl32.Vec3{9, 9, 9}}}
	cuts, err := compactEdges(edges, rawIDs, seed)
	if err != nil {
		t.Fatalf("compactEdges() error: %v", err)
	}
	if len(cuts) != 3 {
		t.Fatalf("got %d cuts, want 3 (1 seeded + 2 valid)", len(cuts))
	}
	if cuts[0].face != 9 {
		t.Error("seeded cut not preserved")
	}
	if cuts[1].face != 7 || cuts[1].a.X() != 1 {
		t.Errorf("cut 1 = %+v, want face 7 at x=1", cuts[1])
	}
	if cuts[2].face != 3 || cuts[2].b != (mgl32.Vec3{3, 1, 0}) {
		t.Errorf("cut 2 = %+v, want face 3 at x=3", cuts[2])
	}
}

func TestCompactEdgesMisaligned(t *testing.T) {
	if _, err := compactEdges(make([]byte, 3), nil, nil); !errors.Is(err, ErrBufferMisaligned) {
		t.Errorf("edge stride: got %v, want ErrBufferMisaligned", err)
	}
	if _, err := compactEdges(make([]byte, fracgeom.EdgeBytes), make([]byte, 2*fracgeom.TagBytes), nil); !errors.Is(err, ErrBufferMisaligned) {
		t.Errorf("count mismatch: got %v, want ErrBufferMisaligned", err)
	}
}

func BenchmarkCompactTriangles(b *testing.B) {
	const n = 4096
	tris := make([]byte, n*fracgeom.TriangleBytes)
	tags := make([]byte, n*fracgeom.TagBytes)
	for i := 0; i < n; i++ {
		fracgeom.PutTriangle(tris, i*fracgeom.TriangleBytes, triAt(float32(i)))
		tag := int32(i % 3)
		if i%2 == 1 {
			tag = -1 // half the slots are dropped
		}
		fracgeom.PutTag(tags, i*fracgeom.TagBytes, tag)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := compactTriangles(tris, tags); err != nil {
			b.Fatal(err)
		}
	}
}
