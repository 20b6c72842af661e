// Package fracture breaks a closed triangle mesh into multiple smaller
// fragment meshes, driven by a precomputed fracture pattern of cutting
// cells and executed as a sequence of compute dispatches interleaved
// with host-side compaction.
//
// # Quick Start
//
//	import "github.com/gogpu/fracture"
//
//	// Two half-space cells splitting along X, meeting at the impact point.
//	p := fracture.NewPattern(2)
//	p.AddEntry(0, fracture.Plane{Normal: mgl32.Vec3{1, 0, 0}})
//	p.AddEntry(1, fracture.Plane{Normal: mgl32.Vec3{-1, 0, 0}})
//
//	f, err := fracture.New(p)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	frags, err := f.Fracture(mesh, mgl32.Ident3(), mgl32.Vec3{0, 0, 0})
//
// Each returned Fragment carries a recentered point list, a face list and
// the world-space center the points were rebased around, so the caller can
// position each piece independently.
//
// # Pipeline
//
// Fracture replicates the input mesh once per pattern cell, then clips the
// replicated triangle soup against each pattern entry's planes, one compute
// dispatch per plane. After every dispatch the sparse device output is read
// back and compacted on the host before it feeds the next dispatch. Cut
// edges recorded during clipping accumulate across all passes and are
// sealed into triangle-fan caps at the end; a final merge dispatch
// collapses proximate cells into one fragment before assembly.
//
// # Devices
//
// Dispatches run on a backend.Device. Two implementations register
// themselves on import:
//   - backend/native: pure-Go kernels on a work-stealing worker pool.
//   - backend/wgpu: WGSL compute shaders via gogpu/wgpu (Vulkan).
//
// By default New picks the best registered device; pass WithDevice to
// inject a specific one.
//
// # Logging
//
// The package is silent by default. Call SetLogger to route diagnostics
// through a *slog.Logger.
package fracture
