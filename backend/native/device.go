// Package native implements the fracture compute device in pure Go.
//
// Buffers are plain host byte slices and dispatches run the shared
// kernel code across a work-stealing worker pool, chunked at the same
// workgroup width the GPU shaders use. The device has no external
// requirements, so it is always available and serves as the reference
// for the wgpu device's results.
package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/fracture/backend"
	"github.com/gogpu/fracture/internal/fracgeom"
	"github.com/gogpu/fracture/internal/kernels"
	"github.com/gogpu/fracture/internal/logging"
	"github.com/gogpu/fracture/internal/parallel"
)

// init registers the native device on package import.
func init() {
	backend.Register(backend.DeviceNative, func() backend.Device {
		return New()
	})
}

// Buffer is a host byte slice with a debug label.
type Buffer struct {
	label string
	data  []byte
	dead  bool
}

// Label returns the debug label the buffer was created with.
func (b *Buffer) Label() string { return b.label }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return len(b.data) }

// Device runs the fracture kernels on CPU workers.
//
// Thread safety: buffer bookkeeping is mutex-guarded; dispatches are
// synchronous and must not overlap on the same buffers.
type Device struct {
	mu          sync.Mutex
	pool        *parallel.Pool
	initialized bool
	workers     int
}

// New creates an uninitialized native device. Workers default to
// GOMAXPROCS; use NewWithWorkers to override.
func New() *Device {
	return &Device{}
}

// NewWithWorkers creates a native device with a fixed worker count.
func NewWithWorkers(workers int) *Device {
	return &Device{workers: workers}
}

// Name returns the device identifier.
func (d *Device) Name() string {
	return backend.DeviceNative
}

// Init starts the worker pool. Calling Init on an initialized device is
// a no-op.
func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}
	d.pool = parallel.NewPool(d.workers)
	d.initialized = true
	logging.Logger().Debug("native device initialized", "workers", d.pool.Workers())
	return nil
}

// Close stops the worker pool. The device can be re-initialized.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return
	}
	d.pool.Close()
	d.pool = nil
	d.initialized = false
}

// CreateBuffer allocates a zeroed host buffer.
func (d *Device) CreateBuffer(label string, size int) (backend.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil, backend.ErrNotInitialized
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", backend.ErrOutOfRange, size)
	}
	return &Buffer{label: label, data: make([]byte, size)}, nil
}

// own converts a backend.Buffer to this device's buffer type.
func (d *Device) own(buf backend.Buffer) (*Buffer, error) {
	b, ok := buf.(*Buffer)
	if !ok || b == nil {
		return nil, ErrForeignBuffer
	}
	if b.dead {
		return nil, backend.ErrBufferDestroyed
	}
	return b, nil
}

// WriteBuffer copies data into the buffer at the byte offset.
func (d *Device) WriteBuffer(buf backend.Buffer, offset int, data []byte) error {
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > len(b.data) {
		return fmt.Errorf("%w: write [%d,%d) into %q of size %d",
			backend.ErrOutOfRange, offset, offset+len(data), b.label, len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

// ReadBuffer copies len(dst) bytes out of the buffer at the byte offset.
func (d *Device) ReadBuffer(buf backend.Buffer, offset int, dst []byte) error {
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(dst) > len(b.data) {
		return fmt.Errorf("%w: read [%d,%d) from %q of size %d",
			backend.ErrOutOfRange, offset, offset+len(dst), b.label, len(b.data))
	}
	copy(dst, b.data[offset:])
	return nil
}

// DestroyBuffer marks the buffer dead and drops its storage.
func (d *Device) DestroyBuffer(buf backend.Buffer) {
	if b, err := d.own(buf); err == nil {
		b.dead = true
		b.data = nil
	}
}

// clipBuffers resolves and size-checks the bindings of a clip dispatch.
func (d *Device) clipBuffers(params backend.ClipParams, bind backend.ClipBindings) (tris, tags, planes, outTris, outTags, edges, edgeIDs *Buffer, err error) {
	need := func(buf backend.Buffer, name string, min int) (*Buffer, error) {
		b, err := d.own(buf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(b.data) < min {
			return nil, fmt.Errorf("%w: %s holds %d bytes, dispatch needs %d",
				ErrBindingTooSmall, name, len(b.data), min)
		}
		return b, nil
	}

	n := int(params.TriCount)
	if tris, err = need(bind.Tris, "tris", n*fracgeom.TriangleBytes); err != nil {
		return
	}
	if tags, err = need(bind.Tags, "tags", n*fracgeom.TagBytes); err != nil {
		return
	}
	if planes, err = need(bind.Planes, "planes", int(params.PlaneCount)*fracgeom.PlaneBytes); err != nil {
		return
	}
	if outTris, err = need(bind.OutTris, "out tris", 2*n*fracgeom.TriangleBytes); err != nil {
		return
	}
	if outTags, err = need(bind.OutTags, "out tags", 2*n*fracgeom.TagBytes); err != nil {
		return
	}
	if edges, err = need(bind.Edges, "edges", n*fracgeom.EdgeBytes); err != nil {
		return
	}
	edgeIDs, err = need(bind.EdgeIDs, "edge ids", n*fracgeom.TagBytes)
	return
}

// DispatchClip runs the clip kernel across the worker pool. Each
// invocation writes a disjoint slot range, so the grid is race-free.
func (d *Device) DispatchClip(params backend.ClipParams, bind backend.ClipBindings) error {
	d.mu.Lock()
	pool := d.pool
	d.mu.Unlock()
	if pool == nil {
		return backend.ErrNotInitialized
	}

	tris, tags, planes, outTris, outTags, edges, edgeIDs, err := d.clipBuffers(params, bind)
	if err != nil {
		return err
	}

	args := &kernels.ClipArgs{
		TriCount:   params.TriCount,
		Cell:       params.Cell,
		FaceIDBase: params.FaceIDBase,
		Center:     params.Center,
		Planes:     fracgeom.DecodePlanes(planes.data[:params.PlaneCount*fracgeom.PlaneBytes]),
	}

	logging.Logger().Debug("native clip dispatch",
		"tris", params.TriCount, "cell", params.Cell, "planes", params.PlaneCount)

	pool.Dispatch(params.TriCount, func(i uint32) {
		kernels.ClipInvocation(i, args, tris.data, tags.data,
			outTris.data, outTags.data, edges.data, edgeIDs.data)
	})
	return nil
}

// DispatchMerge rewrites tags through the merge map in place.
func (d *Device) DispatchMerge(params backend.MergeParams, bind backend.MergeBindings) error {
	d.mu.Lock()
	pool := d.pool
	d.mu.Unlock()
	if pool == nil {
		return backend.ErrNotInitialized
	}

	tags, err := d.own(bind.Tags)
	if err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	if len(tags.data) < int(params.Count)*fracgeom.TagBytes {
		return fmt.Errorf("%w: tags holds %d bytes, dispatch needs %d",
			ErrBindingTooSmall, len(tags.data), int(params.Count)*fracgeom.TagBytes)
	}
	mapBuf, err := d.own(bind.Map)
	if err != nil {
		return fmt.Errorf("map: %w", err)
	}
	if len(mapBuf.data) < int(params.CellCount)*fracgeom.TagBytes {
		return fmt.Errorf("%w: map holds %d bytes, dispatch needs %d",
			ErrBindingTooSmall, len(mapBuf.data), int(params.CellCount)*fracgeom.TagBytes)
	}

	mergeMap := make([]int32, params.CellCount)
	for i := range mergeMap {
		mergeMap[i] = fracgeom.GetTag(mapBuf.data, i*fracgeom.TagBytes)
	}
	args := &kernels.MergeArgs{Count: params.Count, Map: mergeMap}

	logging.Logger().Debug("native merge dispatch",
		"tags", params.Count, "cells", params.CellCount)

	pool.Dispatch(params.Count, func(i uint32) {
		kernels.MergeInvocation(i, args, tags.data)
	})
	return nil
}
