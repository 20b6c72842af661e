// Package backend provides a pluggable compute device abstraction.
//
// The backend package lets the fracture pipeline run its clip and
// proximity-merge kernels on multiple device implementations: a pure-Go
// CPU device that executes the kernels on a worker pool, and a GPU
// device that dispatches them as WGSL compute shaders via gogpu/wgpu.
//
// # Device Registration
//
// Devices are registered via init() functions and selected at runtime.
// Importing a device package registers it:
//
//	import _ "github.com/gogpu/fracture/backend/native"
//	import _ "github.com/gogpu/fracture/backend/wgpu"
//
// # Device Selection
//
// Use Default() to get the best available device, or Get() to request
// a specific device by name:
//
//	// Get the default (best available) device
//	dev := backend.Default()
//
//	// Or request a specific device
//	dev := backend.Get("native")
//
// # Usage
//
// A device owns raw byte buffers and runs synchronous dispatches over
// them:
//
//	dev := backend.MustDefault()
//	if err := dev.Init(); err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	tris, _ := dev.CreateBuffer("tris", n*48)
//	_ = dev.WriteBuffer(tris, 0, data)
//
// # Available Devices
//
// - "native": CPU kernels on a work-stealing pool (always available)
// - "wgpu": GPU compute via gogpu/wgpu and naga-compiled WGSL
package backend
