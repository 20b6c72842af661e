package fracture

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture/internal/fracgeom"
)

func TestAssembleEmpty(t *testing.T) {
	if frags := assemble(nil, nil, 4); len(frags) != 0 {
		t.Errorf("assemble(nil) = %d fragments, want 0", len(frags))
	}
}

func TestAssembleBuckets(t *testing.T) {
	tris := []fracgeom.Triangle{
		triAt(0),  // cell 1
		triAt(10), // void
		triAt(20), // cell 1
		triAt(30), // cell 3
	}
	tags := []int32{1, -2, 1, 3}

	frags := assemble(tris, tags, 4)
	if len(frags) != 3 {
		t.Fatalf("got %d fragments, want 3", len(frags))
	}

	// Bucket order: void first, then ascending cell id.
	if frags[0].Tag != TagVoid {
		t.Errorf("fragment 0 tag = %v, want void", frags[0].Tag)
	}
	if frags[1].Tag != 1 || frags[2].Tag != 3 {
		t.Errorf("fragment tags = %v, %v, want 1, 3", frags[1].Tag, frags[2].Tag)
	}
	if frags[1].TriangleCount() != 2 {
		t.Errorf("cell 1 fragment has %d faces, want 2", frags[1].TriangleCount())
	}
	if len(frags[1].Points) != 6 {
		t.Errorf("cell 1 fragment has %d points, want 6", len(frags[1].Points))
	}
	for i, face := range frags[1].Faces {
		want := [3]uint32{uint32(i * 3), uint32(i*3 + 1), uint32(i*3 + 2)}
		if face != want {
			t.Errorf("face %d = %v, want %v", i, face, want)
		}
	}
}

func TestAssembleRecentering(t *testing.T) {
	// One triangle spanning x in [2,4], y in [0,2], z = 5.
	tris := []fracgeom.Triangle{
		{{2, 0, 5}, {4, 0, 5}, {3, 2, 5}},
	}
	frags := assemble(tris, []int32{0}, 1)
	if len(frags) != 1 {
		t.Fatalf("got %d fragments, want 1", len(frags))
	}
	f := frags[0]

	wantCenter := mgl32.Vec3{3, 1, 5}
	wantSize := mgl32.Vec3{2, 2, 0}
	if f.Center.Sub(wantCenter).Len() > 1e-6 {
		t.Errorf("Center = %v, want %v", f.Center, wantCenter)
	}
	if f.Size.Sub(wantSize).Len() > 1e-6 {
		t.Errorf("Size = %v, want %v", f.Size, wantSize)
	}

	// Every recentered point plus the center must land back inside the
	// fragment's bounds.
	for i, p := range f.Points {
		world := p.Add(f.Center)
		for axis := 0; axis < 3; axis++ {
			lo := f.Center[axis] - f.Size[axis]/2 - 1e-6
			hi := f.Center[axis] + f.Size[axis]/2 + 1e-6
			if world[axis] < lo || world[axis] > hi {
				t.Errorf("point %d axis %d = %v outside [%v, %v]", i, axis, world[axis], lo, hi)
			}
		}
	}
}

func TestAssembleSkipsUnknownTags(t *testing.T) {
	tris := []fracgeom.Triangle{triAt(0), triAt(1)}
	// Tag 9 has no bucket for a 2-cell pattern and is ignored.
	frags := assemble(tris, []int32{9, 0}, 2)
	if len(frags) != 1 {
		t.Fatalf("got %d fragments, want 1", len(frags))
	}
	if frags[0].Tag != 0 {
		t.Fatalf("fragment tag = %v, want 0", frags[0].Tag)
	}
}
