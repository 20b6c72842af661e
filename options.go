package fracture

import "github.com/gogpu/fracture/backend"

// Option configures a Fracturer during creation.
//
// Example:
//
//	// Default device selection (best registered backend):
//	f, err := fracture.New(pattern)
//
//	// Dependency injection of a specific device:
//	dev := native.NewWithWorkers(4)
//	f, err := fracture.New(pattern, fracture.WithDevice(dev))
type Option func(*config)

// config holds optional configuration for Fracturer creation.
type config struct {
	device backend.Device
}

// WithDevice injects the compute device the pipeline dispatches on. The
// caller keeps ownership: Close on the Fracturer does not close an
// injected device. Without this option New initializes the best
// registered backend device and owns it.
func WithDevice(d backend.Device) Option {
	return func(c *config) {
		c.device = d
	}
}
