// Package wgpu implements the fracture compute device on the GPU via
// gogpu/wgpu. The WGSL kernels are compiled to SPIR-V with gogpu/naga
// at init time and dispatched through the wgpu HAL; buffer readback
// goes through a staging buffer and a fence wait.
package wgpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/fracture/backend"
	"github.com/gogpu/fracture/internal/logging"
	"github.com/gogpu/fracture/internal/parallel"
)

// fenceTimeout bounds every dispatch and readback wait.
const fenceTimeout = 5 * time.Second

// init registers the wgpu device on package import.
func init() {
	backend.Register(backend.DeviceWGPU, func() backend.Device {
		return New()
	})
}

// Buffer is a GPU storage buffer handle.
type Buffer struct {
	label string
	buf   hal.Buffer
	size  int
	dead  bool
}

// Label returns the debug label the buffer was created with.
func (b *Buffer) Label() string { return b.label }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return b.size }

// Device runs the fracture kernels as WGSL compute shaders.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	pipes    *pipelines

	initialized bool
}

// New creates an uninitialized wgpu device.
func New() *Device {
	return &Device{}
}

// Name returns the device identifier.
func (d *Device) Name() string {
	return backend.DeviceWGPU
}

// Init opens a GPU adapter and builds the compute pipelines. It fails
// when no Vulkan adapter is available.
func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}

	halBackend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpu: %w: vulkan backend not registered", backend.ErrBackendNotAvailable)
	}
	instance, err := halBackend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("wgpu: %w: no GPU adapters found", backend.ErrBackendNotAvailable)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("wgpu: open device: %w", err)
	}

	pipes, err := createPipelines(openDev.Device)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return err
	}

	d.instance = instance
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.pipes = pipes
	d.initialized = true
	logging.Logger().Info("wgpu device initialized", "adapter", selected.Info.Name)
	return nil
}

// Close releases the pipelines, device and instance.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return
	}
	d.pipes.destroy(d.device)
	d.pipes = nil
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
	d.initialized = false
}

// CreateBuffer allocates a zeroed storage buffer usable as dispatch
// input, output and copy source.
func (d *Device) CreateBuffer(label string, size int) (backend.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil, backend.ErrNotInitialized
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", backend.ErrOutOfRange, size)
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", label, err)
	}
	// Storage buffers start undefined on some drivers: zero explicitly.
	if size > 0 {
		d.queue.WriteBuffer(buf, 0, make([]byte, size))
	}
	return &Buffer{label: label, buf: buf, size: size}, nil
}

// own converts a backend.Buffer to this device's buffer type.
func (d *Device) own(buf backend.Buffer) (*Buffer, error) {
	b, ok := buf.(*Buffer)
	if !ok || b == nil {
		return nil, fmt.Errorf("wgpu: buffer not owned by this device")
	}
	if b.dead {
		return nil, backend.ErrBufferDestroyed
	}
	return b, nil
}

// WriteBuffer uploads data through the queue.
func (d *Device) WriteBuffer(buf backend.Buffer, offset int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(data) > b.size {
		return fmt.Errorf("%w: write [%d,%d) into %q of size %d",
			backend.ErrOutOfRange, offset, offset+len(data), b.label, b.size)
	}
	if len(data) > 0 {
		d.queue.WriteBuffer(b.buf, uint64(offset), data)
	}
	return nil
}

// ReadBuffer copies the range into a staging buffer, waits on a fence
// and reads it back.
func (d *Device) ReadBuffer(buf backend.Buffer, offset int, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return backend.ErrNotInitialized
	}
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(dst) > b.size {
		return fmt.Errorf("%w: read [%d,%d) from %q of size %d",
			backend.ErrOutOfRange, offset, offset+len(dst), b.label, b.size)
	}
	if len(dst) == 0 {
		return nil
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fracture_staging",
		Size:  uint64(len(dst)),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "fracture_read"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("fracture_read"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{
		{SrcOffset: uint64(offset), DstOffset: 0, Size: uint64(len(dst))},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	if err := d.submitAndWait(cmdBuf); err != nil {
		return err
	}
	if err := d.queue.ReadBuffer(staging, 0, dst); err != nil {
		return fmt.Errorf("wgpu: readback: %w", err)
	}
	return nil
}

// DestroyBuffer releases the GPU buffer.
func (d *Device) DestroyBuffer(buf backend.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.own(buf)
	if err != nil {
		return
	}
	b.dead = true
	if d.device != nil {
		d.device.DestroyBuffer(b.buf)
	}
	b.buf = nil
}

// submitAndWait submits one command buffer and blocks on its fence.
func (d *Device) submitAndWait(cmdBuf hal.CommandBuffer) error {
	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wgpu: wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

// groups returns the 1-D workgroup count for a grid of n invocations.
func groups(n uint32) uint32 {
	return (n + parallel.GroupSize - 1) / parallel.GroupSize
}

// DispatchClip encodes and submits one clip pass.
func (d *Device) DispatchClip(params backend.ClipParams, bind backend.ClipBindings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return backend.ErrNotInitialized
	}

	var bufs [7]*Buffer
	for i, in := range []backend.Buffer{
		bind.Tris, bind.Tags, bind.Planes,
		bind.OutTris, bind.OutTags, bind.Edges, bind.EdgeIDs,
	} {
		b, err := d.own(in)
		if err != nil {
			return err
		}
		bufs[i] = b
	}
	tris, tags, planes := bufs[0], bufs[1], bufs[2]
	outTris, outTags, edges, edgeIDs := bufs[3], bufs[4], bufs[5], bufs[6]

	paramsBytes := clipParamsBytes(params.TriCount, params.PlaneCount,
		params.Cell, params.FaceIDBase,
		[3]float32{params.Center.X(), params.Center.Y(), params.Center.Z()})

	uniform, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "clip_params",
		Size:  clipParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create clip uniform: %w", err)
	}
	defer d.device.DestroyBuffer(uniform)
	d.queue.WriteBuffer(uniform, 0, paramsBytes)

	binding := func(b *Buffer) gputypes.BufferBinding {
		return gputypes.BufferBinding{Buffer: b.buf.NativeHandle(), Offset: 0, Size: uint64(b.size)}
	}

	inputGroup, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "clip_input",
		Layout: d.pipes.clipInputLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniform.NativeHandle(), Offset: 0, Size: clipParamsSize}},
			{Binding: 1, Resource: binding(tris)},
			{Binding: 2, Resource: binding(tags)},
			{Binding: 3, Resource: binding(planes)},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create clip input bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(inputGroup)

	outputGroup, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "clip_output",
		Layout: d.pipes.clipOutputLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: binding(outTris)},
			{Binding: 1, Resource: binding(outTags)},
			{Binding: 2, Resource: binding(edges)},
			{Binding: 3, Resource: binding(edgeIDs)},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create clip output bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(outputGroup)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "clip_encoder"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("clip"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "clip_pass"})
	pass.SetPipeline(d.pipes.clipPipeline)
	pass.SetBindGroup(0, inputGroup, nil)
	pass.SetBindGroup(1, outputGroup, nil)
	pass.Dispatch(groups(params.TriCount), 1, 1)
	pass.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	logging.Logger().Debug("wgpu clip dispatch",
		"tris", params.TriCount, "cell", params.Cell, "planes", params.PlaneCount)

	return d.submitAndWait(cmdBuf)
}

// DispatchMerge encodes and submits one proximity-merge pass.
func (d *Device) DispatchMerge(params backend.MergeParams, bind backend.MergeBindings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return backend.ErrNotInitialized
	}

	tags, err := d.own(bind.Tags)
	if err != nil {
		return err
	}
	mergeMap, err := d.own(bind.Map)
	if err != nil {
		return err
	}

	uniform, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "merge_params",
		Size:  mergeParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create merge uniform: %w", err)
	}
	defer d.device.DestroyBuffer(uniform)
	d.queue.WriteBuffer(uniform, 0, mergeParamsBytes(params.Count, params.CellCount))

	inputGroup, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "merge_input",
		Layout: d.pipes.mergeInputLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniform.NativeHandle(), Offset: 0, Size: mergeParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: mergeMap.buf.NativeHandle(), Offset: 0, Size: uint64(mergeMap.size)}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create merge input bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(inputGroup)

	tagsGroup, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "merge_tags",
		Layout: d.pipes.mergeTagsLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: tags.buf.NativeHandle(), Offset: 0, Size: uint64(tags.size)}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create merge tags bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(tagsGroup)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "merge_encoder"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("merge"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "merge_pass"})
	pass.SetPipeline(d.pipes.mergePipeline)
	pass.SetBindGroup(0, inputGroup, nil)
	pass.SetBindGroup(1, tagsGroup, nil)
	pass.Dispatch(groups(params.Count), 1, 1)
	pass.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	logging.Logger().Debug("wgpu merge dispatch",
		"tags", params.Count, "cells", params.CellCount)

	return d.submitAndWait(cmdBuf)
}
