package backend

import (
	"testing"
)

// fakeDevice is a minimal Device for registry tests.
type fakeDevice struct {
	name string
}

func (d *fakeDevice) Name() string  { return d.name }
func (d *fakeDevice) Init() error   { return nil }
func (d *fakeDevice) Close()        {}
func (d *fakeDevice) CreateBuffer(label string, size int) (Buffer, error) {
	return nil, ErrNotInitialized
}
func (d *fakeDevice) WriteBuffer(Buffer, int, []byte) error      { return ErrNotInitialized }
func (d *fakeDevice) ReadBuffer(Buffer, int, []byte) error       { return ErrNotInitialized }
func (d *fakeDevice) DestroyBuffer(Buffer)                       {}
func (d *fakeDevice) DispatchClip(ClipParams, ClipBindings) error { return ErrNotInitialized }
func (d *fakeDevice) DispatchMerge(MergeParams, MergeBindings) error {
	return ErrNotInitialized
}

func TestRegistryRegisterAndGet(t *testing.T) {
	Register("test-device", func() Device {
		return &fakeDevice{name: "test-device"}
	})
	defer Unregister("test-device")

	if !IsRegistered("test-device") {
		t.Error("test-device should be registered")
	}

	d := Get("test-device")
	if d == nil {
		t.Fatal("Get(test-device) returned nil")
	}
	if d.Name() != "test-device" {
		t.Errorf("Get(test-device).Name() = %q, want %q", d.Name(), "test-device")
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	if d := Get("nonexistent"); d != nil {
		t.Error("Get(nonexistent) should return nil")
	}
}

func TestRegistryAvailable(t *testing.T) {
	Register("test-available", func() Device {
		return &fakeDevice{name: "test-available"}
	})
	defer Unregister("test-available")

	found := false
	for _, name := range Available() {
		if name == "test-available" {
			found = true
			break
		}
	}
	if !found {
		t.Error("Available() should include 'test-available'")
	}
}

func TestRegistryUnregister(t *testing.T) {
	Register("test-gone", func() Device {
		return &fakeDevice{name: "test-gone"}
	})
	if !IsRegistered("test-gone") {
		t.Error("test-gone should be registered")
	}

	Unregister("test-gone")

	if IsRegistered("test-gone") {
		t.Error("test-gone should be unregistered")
	}
	if d := Get("test-gone"); d != nil {
		t.Error("Get(test-gone) should return nil after Unregister")
	}
}

func TestRegistryDefaultPriority(t *testing.T) {
	// With both priority names registered, the GPU device wins.
	Register(DeviceWGPU, func() Device {
		return &fakeDevice{name: DeviceWGPU}
	})
	Register(DeviceNative, func() Device {
		return &fakeDevice{name: DeviceNative}
	})
	defer Unregister(DeviceWGPU)
	defer Unregister(DeviceNative)

	d := Default()
	if d == nil {
		t.Fatal("Default() returned nil")
	}
	if d.Name() != DeviceWGPU {
		t.Errorf("Default().Name() = %q, want %q", d.Name(), DeviceWGPU)
	}

	// Without the GPU device, the native one is chosen.
	Unregister(DeviceWGPU)
	d = Default()
	if d == nil {
		t.Fatal("Default() returned nil after unregistering wgpu")
	}
	if d.Name() != DeviceNative {
		t.Errorf("Default().Name() = %q, want %q", d.Name(), DeviceNative)
	}
}

func TestRegistryDefaultFallback(t *testing.T) {
	// A device outside the priority list is still found.
	Register("exotic", func() Device {
		return &fakeDevice{name: "exotic"}
	})
	defer Unregister("exotic")

	if !IsRegistered(DeviceWGPU) && !IsRegistered(DeviceNative) {
		d := Default()
		if d == nil {
			t.Fatal("Default() returned nil with a registered device")
		}
		if d.Name() != "exotic" {
			t.Errorf("Default().Name() = %q, want %q", d.Name(), "exotic")
		}
	}
}

func TestRegistryMustDefault(t *testing.T) {
	Register("test-must", func() Device {
		return &fakeDevice{name: "test-must"}
	})
	defer Unregister("test-must")

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustDefault() panicked: %v", r)
		}
	}()
	if d := MustDefault(); d == nil {
		t.Error("MustDefault() returned nil")
	}
}

func TestRegistryInitDefault(t *testing.T) {
	Register("test-init", func() Device {
		return &fakeDevice{name: "test-init"}
	})
	defer Unregister("test-init")

	d, err := InitDefault()
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	if d == nil {
		t.Fatal("InitDefault() returned nil device")
	}
	d.Close()
}
