package wgpu

import (
	_ "embed"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/clip.wgsl
var clipShaderWGSL string

//go:embed shaders/merge.wgsl
var mergeShaderWGSL string

// Uniform buffer sizes. Must match the Params structs in the shaders.
const (
	clipParamsSize  = 32
	mergeParamsSize = 16
)

// compileWGSL compiles WGSL to SPIR-V words for hal.ShaderSource.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// pipelines holds the compiled compute pipelines and their layouts.
type pipelines struct {
	clipShader  hal.ShaderModule
	mergeShader hal.ShaderModule

	clipInputLayout  hal.BindGroupLayout
	clipOutputLayout hal.BindGroupLayout
	clipPipeLayout   hal.PipelineLayout
	clipPipeline     hal.ComputePipeline

	mergeInputLayout hal.BindGroupLayout
	mergeTagsLayout  hal.BindGroupLayout
	mergePipeLayout  hal.PipelineLayout
	mergePipeline    hal.ComputePipeline
}

// createPipelines compiles both shaders and builds the pipelines.
func createPipelines(device hal.Device) (*pipelines, error) {
	p := &pipelines{}

	clipSPIRV, err := compileWGSL(clipShaderWGSL)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile clip shader: %w", err)
	}
	mergeSPIRV, err := compileWGSL(mergeShaderWGSL)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile merge shader: %w", err)
	}

	p.clipShader, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "fracture_clip",
		Source: hal.ShaderSource{SPIRV: clipSPIRV},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create clip shader module: %w", err)
	}
	p.mergeShader, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "fracture_merge",
		Source: hal.ShaderSource{SPIRV: mergeSPIRV},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("wgpu: create merge shader module: %w", err)
	}

	// Clip group 0: uniform params + read-only inputs.
	p.clipInputLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "clip_input_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: clipParamsSize,
			}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeReadOnlyStorage,
			}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeReadOnlyStorage,
			}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeReadOnlyStorage,
			}},
		},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("wgpu: create clip input layout: %w", err)
	}

	// Clip group 1: writable outputs.
	p.clipOutputLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "clip_output_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeStorage,
			}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeStorage,
			}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeStorage,
			}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeStorage,
			}},
		},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("wgpu: create clip output layout: %w", err)
	}

	p.clipPipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "clip_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.clipInputLayout, p.clipOutputLayout},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("wgpu: create clip pipeline layout: %w", err)
	}

	p.clipPipeline, err = device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "clip_pipeline",
		Layout:  p.clipPipeLayout,
		Compute: hal.ComputeState{Module: p.clipShader, EntryPoint: "cs_clip"},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("wgpu: create clip pipeline: %w", err)
	}

	// Merge group 0: uniform params + read-only map.
	p.mergeInputLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "merge_input_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: mergeParamsSize,
			}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeReadOnlyStorage,
			}},
		},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("wgpu: create merge input layout: %w", err)
	}

	// Merge group 1: tags rewritten in place.
	p.mergeTagsLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "merge_tags_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{
				Type: gputypes.BufferBindingTypeStorage,
			}},
		},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("wgpu: create merge tags layout: %w", err)
	}

	p.mergePipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "merge_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.mergeInputLayout, p.mergeTagsLayout},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("wgpu: create merge pipeline layout: %w", err)
	}

	p.mergePipeline, err = device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "merge_pipeline",
		Layout:  p.mergePipeLayout,
		Compute: hal.ComputeState{Module: p.mergeShader, EntryPoint: "cs_merge"},
	})
	if err != nil {
		p.destroy(device)
		return nil, fmt.Errorf("wgpu: create merge pipeline: %w", err)
	}

	return p, nil
}

// destroy releases whatever pipeline resources were created.
func (p *pipelines) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if p.mergePipeline != nil {
		device.DestroyComputePipeline(p.mergePipeline)
		p.mergePipeline = nil
	}
	if p.clipPipeline != nil {
		device.DestroyComputePipeline(p.clipPipeline)
		p.clipPipeline = nil
	}
	if p.mergePipeLayout != nil {
		device.DestroyPipelineLayout(p.mergePipeLayout)
		p.mergePipeLayout = nil
	}
	if p.clipPipeLayout != nil {
		device.DestroyPipelineLayout(p.clipPipeLayout)
		p.clipPipeLayout = nil
	}
	if p.mergeTagsLayout != nil {
		device.DestroyBindGroupLayout(p.mergeTagsLayout)
		p.mergeTagsLayout = nil
	}
	if p.mergeInputLayout != nil {
		device.DestroyBindGroupLayout(p.mergeInputLayout)
		p.mergeInputLayout = nil
	}
	if p.clipOutputLayout != nil {
		device.DestroyBindGroupLayout(p.clipOutputLayout)
		p.clipOutputLayout = nil
	}
	if p.clipInputLayout != nil {
		device.DestroyBindGroupLayout(p.clipInputLayout)
		p.clipInputLayout = nil
	}
	if p.mergeShader != nil {
		device.DestroyShaderModule(p.mergeShader)
		p.mergeShader = nil
	}
	if p.clipShader != nil {
		device.DestroyShaderModule(p.clipShader)
		p.clipShader = nil
	}
}

// Byte serialization helpers for uniform upload.

func writeUint32(buf []byte, offset int, val uint32) {
	buf[offset] = byte(val)
	buf[offset+1] = byte(val >> 8)
	buf[offset+2] = byte(val >> 16)
	buf[offset+3] = byte(val >> 24)
}

func writeInt32(buf []byte, offset int, val int32) {
	writeUint32(buf, offset, uint32(val))
}

func writeFloat32(buf []byte, offset int, val float32) {
	writeUint32(buf, offset, math.Float32bits(val))
}

// clipParamsBytes serializes the clip Params uniform.
// Layout: center vec4 (16 B), tri_count u32, plane_count u32,
// cell i32, face_id_base i32.
func clipParamsBytes(triCount, planeCount uint32, cell, faceIDBase int32, center [3]float32) []byte {
	buf := make([]byte, clipParamsSize)
	writeFloat32(buf, 0, center[0])
	writeFloat32(buf, 4, center[1])
	writeFloat32(buf, 8, center[2])
	writeFloat32(buf, 12, 0)
	writeUint32(buf, 16, triCount)
	writeUint32(buf, 20, planeCount)
	writeInt32(buf, 24, cell)
	writeInt32(buf, 28, faceIDBase)
	return buf
}

// mergeParamsBytes serializes the merge Params uniform.
// Layout: count u32, cell_count u32, two pad words.
func mergeParamsBytes(count, cellCount uint32) []byte {
	buf := make([]byte, mergeParamsSize)
	writeUint32(buf, 0, count)
	writeUint32(buf, 4, cellCount)
	return buf
}
