package backend

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrBufferDestroyed is returned when a destroyed buffer is used.
	ErrBufferDestroyed = errors.New("backend: buffer destroyed")

	// ErrOutOfRange is returned when a buffer access exceeds its size.
	ErrOutOfRange = errors.New("backend: buffer access out of range")
)

// Device name constants.
const (
	// DeviceNative is the name of the CPU device (worker-pool kernels).
	DeviceNative = "native"
	// DeviceWGPU is the name of the GPU device (gogpu/wgpu compute).
	DeviceWGPU = "wgpu"
)

// Buffer is a device-owned byte buffer holding triangle, tag, edge or
// plane records. Buffers are created, written and read through the
// Device that owns them.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the buffer size in bytes.
	Size() int
}

// ClipParams parameterizes one clip dispatch: a single fracture-pattern
// entry applied across all live triangle slots.
type ClipParams struct {
	// TriCount is the number of live input slots.
	TriCount uint32

	// PlaneCount is the number of planes bound in ClipBindings.Planes.
	PlaneCount uint32

	// Cell is the pattern cell the entry refines.
	Cell int32

	// FaceIDBase is the face id of the entry's first plane.
	FaceIDBase int32

	// Center is the fracture center; bound planes are relative to it.
	Center mgl32.Vec3
}

// ClipBindings names the buffers of one clip dispatch. Input buffers
// must hold TriCount records, output buffers twice that (the kernel
// writes up to two triangles per input slot) except Edges and EdgeIDs,
// which hold one record per input slot.
type ClipBindings struct {
	Tris    Buffer // input triangles, 48 B/record
	Tags    Buffer // input cell tags, 4 B/record
	Planes  Buffer // entry planes, 16 B/record
	OutTris Buffer // output triangles, 2x input slots
	OutTags Buffer // output tags, 2x input slots
	Edges   Buffer // output cut edges, 32 B/record
	EdgeIDs Buffer // output face ids, 4 B/record
}

// MergeParams parameterizes the proximity-merge dispatch.
type MergeParams struct {
	// Count is the number of tag slots to rewrite.
	Count uint32

	// CellCount is the number of entries in the bound merge map.
	CellCount uint32
}

// MergeBindings names the buffers of one merge dispatch.
type MergeBindings struct {
	Tags Buffer // tags rewritten in place, 4 B/record
	Map  Buffer // cell id -> canonical id, 4 B/record
}

// Device executes the fracture compute kernels and owns the buffers
// they operate on. Implementations are registered via Register and
// selected via Get or Default.
//
// Dispatches are synchronous: when DispatchClip or DispatchMerge
// returns, the output buffers are readable via ReadBuffer. A Device is
// safe for use from a single pipeline; concurrent dispatches on one
// device require external synchronization.
type Device interface {
	// Name returns the device identifier (e.g. "native", "wgpu").
	Name() string

	// Init initializes the device. It must be called before any buffer
	// or dispatch operation.
	Init() error

	// Close releases all device resources, including live buffers.
	Close()

	// CreateBuffer allocates a zeroed buffer of the given byte size.
	// The label shows up in logs and GPU captures.
	CreateBuffer(label string, size int) (Buffer, error)

	// WriteBuffer copies data into the buffer at the byte offset.
	WriteBuffer(buf Buffer, offset int, data []byte) error

	// ReadBuffer copies len(dst) bytes out of the buffer at the byte
	// offset.
	ReadBuffer(buf Buffer, offset int, dst []byte) error

	// DestroyBuffer releases one buffer. Using it afterwards returns
	// ErrBufferDestroyed.
	DestroyBuffer(buf Buffer)

	// DispatchClip runs the clip kernel over params.TriCount slots.
	DispatchClip(params ClipParams, bind ClipBindings) error

	// DispatchMerge runs the proximity-merge kernel over params.Count
	// tag slots.
	DispatchMerge(params MergeParams, bind MergeBindings) error
}
