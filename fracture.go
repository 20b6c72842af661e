package fracture

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture/backend"
	"github.com/gogpu/fracture/internal/fracgeom"
	"github.com/gogpu/fracture/internal/logging"
)

// Fracturer runs the fracture pipeline for one Pattern on one compute
// device. It is safe for concurrent use; fracture operations on the same
// device are serialized.
type Fracturer struct {
	mu       sync.Mutex
	pattern  *Pattern
	dev      backend.Device
	ownDev   bool
	mergeMap []int32
	stride   int32
	closed   bool
}

// New validates the pattern and binds a compute device. Without
// WithDevice it initializes the best registered backend in priority
// order (wgpu, then native), falling back to the next device when
// initialization fails — e.g. no Vulkan adapter present.
func New(pattern *Pattern, opts ...Option) (*Fracturer, error) {
	if pattern == nil {
		return nil, fmt.Errorf("%w: nil pattern", ErrInvalidPattern)
	}
	if err := pattern.Validate(); err != nil {
		return nil, err
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	dev := cfg.device
	ownDev := false
	if dev != nil {
		if err := dev.Init(); err != nil {
			return nil, fmt.Errorf("fracture: device %q: %w", dev.Name(), err)
		}
	} else {
		dev = openDefaultDevice()
		if dev == nil {
			return nil, ErrNoDevice
		}
		ownDev = true
	}

	logging.Logger().Info("fracturer ready",
		"device", dev.Name(),
		"cells", pattern.CellCount(),
		"entries", pattern.EntryCount())

	return &Fracturer{
		pattern:  pattern,
		dev:      dev,
		ownDev:   ownDev,
		mergeMap: pattern.mergeMap(),
		stride:   pattern.faceStride(),
	}, nil
}

// openDefaultDevice tries registered devices in priority order and
// returns the first one whose Init succeeds, or nil.
func openDefaultDevice() backend.Device {
	tried := map[string]bool{}
	names := append([]string{backend.DeviceWGPU, backend.DeviceNative}, backend.Available()...)
	for _, name := range names {
		if tried[name] {
			continue
		}
		tried[name] = true
		d := backend.Get(name)
		if d == nil {
			continue
		}
		if err := d.Init(); err != nil {
			logging.Logger().Warn("device init failed, trying next", "device", name, "error", err)
			continue
		}
		return d
	}
	return nil
}

// Close releases the Fracturer. A device created by New is closed;
// an injected device stays open and remains the caller's to close.
func (f *Fracturer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.ownDev {
		f.dev.Close()
	}
	return nil
}

// Fracture breaks the mesh along the pattern and returns one Fragment
// per non-empty output cell. The rotation orients the mesh relative to
// the pattern; the impact point centers the pattern's planes. An empty
// mesh, or one entirely outside every cell, yields zero Fragments and
// no error.
//
// The operation is a strict sequence: each clip dispatch consumes the
// previous pass's compacted output, so every pass blocks on a full
// device round-trip. Failure at any stage aborts the whole operation;
// no partial fragments are returned.
func (f *Fracturer) Fracture(mesh Mesh, rotation mgl32.Mat3, impact mgl32.Vec3) ([]Fragment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	if len(mesh.Triangles) == 0 {
		return nil, nil
	}

	log := logging.Logger()
	tris, tags := replicate(mesh, rotation, f.pattern.cells)
	log.Debug("fracture start",
		"inputTriangles", len(mesh.Triangles),
		"cells", f.pattern.cells,
		"frontier", len(tags)/fracgeom.TagBytes)

	var cuts []cutEdge
passes:
	for ei, e := range f.pattern.entries {
		for j := range e.Planes {
			if len(tags) == 0 {
				break passes
			}
			var err error
			tris, tags, cuts, err = f.clipPass(tris, tags, cuts, e, ei, j, impact)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(tags) > 0 && !identityMerge(f.mergeMap) {
		var err error
		tags, err = f.mergePass(tags)
		if err != nil {
			return nil, err
		}
	}

	n := len(tags) / fracgeom.TagBytes
	finalTris := make([]fracgeom.Triangle, n)
	finalTags := make([]int32, n)
	for i := 0; i < n; i++ {
		finalTris[i] = fracgeom.GetTriangle(tris, i*fracgeom.TriangleBytes)
		finalTags[i] = fracgeom.GetTag(tags, i*fracgeom.TagBytes)
	}

	// Caps inherit the (merged) tag of the cell whose plane cut them.
	capTris, capFaces := sealFaces(cuts)
	for i, t := range capTris {
		cell := f.pattern.cellOfFace(capFaces[i], f.stride)
		finalTris = append(finalTris, t)
		finalTags = append(finalTags, f.mergeMap[cell])
	}

	frags := assemble(finalTris, finalTags, f.pattern.cells)
	log.Debug("fracture done",
		"fragments", len(frags),
		"triangles", len(finalTris),
		"caps", len(capTris))
	return frags, nil
}

// clipPass runs one clip dispatch: the frontier against a single plane of
// one pattern entry. It allocates a fresh generation of device buffers,
// dispatches, reads back, compacts, and retires the buffers; no buffer
// outlives its pass.
func (f *Fracturer) clipPass(tris, tags []byte, cuts []cutEdge, e Entry, entryIdx, planeIdx int, impact mgl32.Vec3) ([]byte, []byte, []cutEdge, error) {
	n := len(tags) / fracgeom.TagBytes
	wrap := func(err error) error {
		return fmt.Errorf("fracture: clip pass (entry %d, plane %d): %w", entryIdx, planeIdx, err)
	}

	var bufs []backend.Buffer
	defer func() {
		for _, b := range bufs {
			f.dev.DestroyBuffer(b)
		}
	}()
	create := func(label string, size int, data []byte) (backend.Buffer, error) {
		b, err := f.dev.CreateBuffer(label, size)
		if err != nil {
			return nil, err
		}
		bufs = append(bufs, b)
		if data != nil {
			if err := f.dev.WriteBuffer(b, 0, data); err != nil {
				return nil, err
			}
		}
		return b, nil
	}

	planeData := make([]byte, fracgeom.PlaneBytes)
	fracgeom.PutPlane(planeData, 0, e.Planes[planeIdx].geom())

	inTris, err := create("fracture:clip:tris", len(tris), tris)
	if err != nil {
		return nil, nil, cuts, wrap(err)
	}
	inTags, err := create("fracture:clip:tags", len(tags), tags)
	if err != nil {
		return nil, nil, cuts, wrap(err)
	}
	planes, err := create("fracture:clip:planes", fracgeom.PlaneBytes, planeData)
	if err != nil {
		return nil, nil, cuts, wrap(err)
	}
	outTris, err := create("fracture:clip:out-tris", 2*n*fracgeom.TriangleBytes, nil)
	if err != nil {
		return nil, nil, cuts, wrap(err)
	}
	outTags, err := create("fracture:clip:out-tags", 2*n*fracgeom.TagBytes, sentinelBytes(2*n*fracgeom.TagBytes))
	if err != nil {
		return nil, nil, cuts, wrap(err)
	}
	edges, err := create("fracture:clip:edges", n*fracgeom.EdgeBytes, nil)
	if err != nil {
		return nil, nil, cuts, wrap(err)
	}
	edgeIDs, err := create("fracture:clip:edge-ids", n*fracgeom.TagBytes, sentinelBytes(n*fracgeom.TagBytes))
	if err != nil {
		return nil, nil, cuts, wrap(err)
	}

	params := backend.ClipParams{
		TriCount:   uint32(n),
		PlaneCount: 1,
		Cell:       e.Cell,
		FaceIDBase: int32(entryIdx)*f.stride + int32(planeIdx),
		Center:     impact,
	}
	bind := backend.ClipBindings{
		Tris:    inTris,
		Tags:    inTags,
		Planes:  planes,
		OutTris: outTris,
		OutTags: outTags,
		Edges:   edges,
		EdgeIDs: edgeIDs,
	}
	if err := f.dev.DispatchClip(params, bind); err != nil {
		return nil, nil, cuts, wrap(err)
	}

	rawTris := make([]byte, 2*n*fracgeom.TriangleBytes)
	if err := f.dev.ReadBuffer(outTris, 0, rawTris); err != nil {
		return nil, nil, cuts, wrap(err)
	}
	rawTags := make([]byte, 2*n*fracgeom.TagBytes)
	if err := f.dev.ReadBuffer(outTags, 0, rawTags); err != nil {
		return nil, nil, cuts, wrap(err)
	}
	rawEdges := make([]byte, n*fracgeom.EdgeBytes)
	if err := f.dev.ReadBuffer(edges, 0, rawEdges); err != nil {
		return nil, nil, cuts, wrap(err)
	}
	rawIDs := make([]byte, n*fracgeom.TagBytes)
	if err := f.dev.ReadBuffer(edgeIDs, 0, rawIDs); err != nil {
		return nil, nil, cuts, wrap(err)
	}

	newTris, newTags, err := compactTriangles(rawTris, rawTags)
	if err != nil {
		return nil, nil, cuts, wrap(err)
	}
	before := len(cuts)
	cuts, err = compactEdges(rawEdges, rawIDs, cuts)
	if err != nil {
		return nil, nil, cuts, wrap(err)
	}

	logging.Logger().Debug("clip pass",
		"entry", entryIdx,
		"plane", planeIdx,
		"cell", e.Cell,
		"in", n,
		"out", len(newTags)/fracgeom.TagBytes,
		"cuts", len(cuts)-before)
	return newTris, newTags, cuts, nil
}

// mergePass rewrites the frontier's tags through the pattern's merge map
// in one dispatch and returns the rewritten tag buffer.
func (f *Fracturer) mergePass(tags []byte) ([]byte, error) {
	n := len(tags) / fracgeom.TagBytes
	wrap := func(err error) error {
		return fmt.Errorf("fracture: merge pass: %w", err)
	}

	mapData := make([]byte, len(f.mergeMap)*fracgeom.TagBytes)
	for i, v := range f.mergeMap {
		fracgeom.PutTag(mapData, i*fracgeom.TagBytes, v)
	}

	tagBuf, err := f.dev.CreateBuffer("fracture:merge:tags", len(tags))
	if err != nil {
		return nil, wrap(err)
	}
	defer f.dev.DestroyBuffer(tagBuf)
	mapBuf, err := f.dev.CreateBuffer("fracture:merge:map", len(mapData))
	if err != nil {
		return nil, wrap(err)
	}
	defer f.dev.DestroyBuffer(mapBuf)

	if err := f.dev.WriteBuffer(tagBuf, 0, tags); err != nil {
		return nil, wrap(err)
	}
	if err := f.dev.WriteBuffer(mapBuf, 0, mapData); err != nil {
		return nil, wrap(err)
	}

	params := backend.MergeParams{Count: uint32(n), CellCount: uint32(len(f.mergeMap))}
	if err := f.dev.DispatchMerge(params, backend.MergeBindings{Tags: tagBuf, Map: mapBuf}); err != nil {
		return nil, wrap(err)
	}

	out := make([]byte, len(tags))
	if err := f.dev.ReadBuffer(tagBuf, 0, out); err != nil {
		return nil, wrap(err)
	}
	logging.Logger().Debug("merge pass", "tags", n, "cells", len(f.mergeMap))
	return out, nil
}

// sentinelBytes returns a buffer image filled with the int32 drop
// sentinel (-1), used to pre-initialize sparse output slots.
func sentinelBytes(size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	return buf
}
