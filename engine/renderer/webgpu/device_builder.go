package webgpu

import "github.com/cogentcore/webgpu/wgpu"

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*device)

// WithLabel sets the device label, also reported by Name.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label option to a device
func WithLabel(label string) DeviceBuilderOption {
	return func(d *device) {
		d.label = label
	}
}

// WithSurfaceDescriptor creates a window surface along with the device and requests an adapter that
// can present to it. Without one the device is headless and NewSurface fails.
//
// Parameters:
//   - desc: the platform surface descriptor, usually from window.Window.SurfaceDescriptor
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface option to a device
func WithSurfaceDescriptor(desc *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(d *device) {
		d.surfaceDescriptor = desc
	}
}

// WithForceFallbackAdapter requests the software fallback adapter of the platform.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fallback option to a device
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *device) {
		d.forceFallbackAdapter = force
	}
}
