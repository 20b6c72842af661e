package fracture

import "errors"

// Errors returned by the fracture pipeline. Pipeline failures wrap one of
// these sentinels, so callers can test with errors.Is.
var (
	// ErrInvalidMesh is returned when input mesh data is malformed
	// (e.g. a flat position array whose length is not a multiple of 9).
	ErrInvalidMesh = errors.New("fracture: invalid mesh")

	// ErrInvalidPattern is returned when a fracture pattern fails
	// validation: no cells, an entry referencing a cell out of range,
	// or an entry with no planes.
	ErrInvalidPattern = errors.New("fracture: invalid pattern")

	// ErrNoDevice is returned by New when no compute device is
	// registered. Import a backend package (backend/native or
	// backend/wgpu) for its registration side effect, or inject a
	// device with WithDevice.
	ErrNoDevice = errors.New("fracture: no compute device available")

	// ErrBufferMisaligned is returned when a readback buffer's byte
	// length is not divisible by its element stride. It indicates a
	// broken invariant upstream and aborts the fracture operation.
	ErrBufferMisaligned = errors.New("fracture: buffer size not divisible by element stride")

	// ErrClosed is returned when a Fracturer is used after Close.
	ErrClosed = errors.New("fracture: fracturer closed")
)
