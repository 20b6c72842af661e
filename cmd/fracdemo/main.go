// Command fracdemo fractures a procedurally generated solid and prints
// per-fragment statistics. The input mesh comes from an SDF polygonized
// with marching cubes; the fracture pattern is a stack of slab cells
// along the X axis.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture"
	"github.com/gogpu/fracture/backend"
	_ "github.com/gogpu/fracture/backend/native"
	_ "github.com/gogpu/fracture/backend/wgpu"
)

func main() {
	var (
		shape   = flag.String("shape", "box", "solid to fracture: box or sphere")
		cells   = flag.Int("cells", 32, "marching cubes resolution")
		pieces  = flag.Int("pieces", 4, "number of slab cells along x")
		device  = flag.String("device", "", "compute device (native, wgpu); empty picks the best")
		impactX = flag.Float64("impact", 0, "impact point x offset")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		fracture.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	mesh, err := buildMesh(*shape, *cells)
	if err != nil {
		log.Fatalf("build mesh: %v", err)
	}
	log.Printf("input: %s with %d triangles", *shape, len(mesh.Triangles))

	pattern := slabPattern(*pieces, 1.5)

	opts := []fracture.Option{}
	if *device != "" {
		dev := backend.Get(*device)
		if dev == nil {
			log.Fatalf("unknown device %q (available: %v)", *device, backend.Available())
		}
		opts = append(opts, fracture.WithDevice(dev))
	}

	f, err := fracture.New(pattern, opts...)
	if err != nil {
		log.Fatalf("create fracturer: %v", err)
	}
	defer f.Close()

	impact := mgl32.Vec3{float32(*impactX), 0, 0}
	frags, err := f.Fracture(mesh, mgl32.Ident3(), impact)
	if err != nil {
		log.Fatalf("fracture: %v", err)
	}

	log.Printf("fractured into %d fragments", len(frags))
	for i, frag := range frags {
		fmt.Printf("fragment %d (%s): %d faces, center (%.3f %.3f %.3f), size (%.3f %.3f %.3f)\n",
			i, frag.Tag, frag.TriangleCount(),
			frag.Center.X(), frag.Center.Y(), frag.Center.Z(),
			frag.Size.X(), frag.Size.Y(), frag.Size.Z())
	}
}

// buildMesh polygonizes the chosen SDF into a fracture mesh.
func buildMesh(shape string, cells int) (fracture.Mesh, error) {
	var solid sdf.SDF3
	var err error
	switch shape {
	case "box":
		solid, err = sdf.Box3D(v3.Vec{X: 1, Y: 1, Z: 1}, 0)
	case "sphere":
		solid, err = sdf.Sphere3D(0.5)
	default:
		return fracture.Mesh{}, fmt.Errorf("unknown shape %q", shape)
	}
	if err != nil {
		return fracture.Mesh{}, err
	}

	triangles := render.ToTriangles(solid, render.NewMarchingCubesUniform(cells))
	pos := make([]float32, 0, len(triangles)*9)
	for _, tri := range triangles {
		for j := 0; j < 3; j++ {
			pos = append(pos, float32(tri[j].X), float32(tri[j].Y), float32(tri[j].Z))
		}
	}
	return fracture.MeshFromPositions(pos)
}

// slabPattern splits the extent [-half, half] into n slab cells along x,
// each bounded by two planes. Neighboring slabs are left unmerged so each
// becomes its own fragment.
func slabPattern(n int, half float32) *fracture.Pattern {
	if n < 1 {
		n = 1
	}
	p := fracture.NewPattern(n)
	width := 2 * half / float32(n)
	for k := 0; k < n; k++ {
		lo := -half + float32(k)*width
		hi := lo + width
		p.AddEntry(int32(k),
			fracture.Plane{Normal: mgl32.Vec3{-1, 0, 0}, Offset: lo}, // x >= lo
			fracture.Plane{Normal: mgl32.Vec3{1, 0, 0}, Offset: -hi}, // x <= hi
		)
	}
	return p
}
