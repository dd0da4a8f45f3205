package software

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*device)

// WithName sets the device name reported by Name.
//
// Parameters:
//   - name: the device name
//
// Returns:
//   - DeviceBuilderOption: a function that applies the name option to a device
func WithName(name string) DeviceBuilderOption {
	return func(d *device) {
		d.name = name
	}
}

// WithWorkers sets the number of worker goroutines running compute thread groups.
// Values below one are ignored.
//
// Parameters:
//   - n: the worker count, GOMAXPROCS by default
//
// Returns:
//   - DeviceBuilderOption: a function that applies the workers option to a device
func WithWorkers(n int) DeviceBuilderOption {
	return func(d *device) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithMaxThreadsPerGroup sets the device-wide limit on threads per thread group.
//
// Parameters:
//   - n: the limit, 1024 by default
//
// Returns:
//   - DeviceBuilderOption: a function that applies the limit option to a device
func WithMaxThreadsPerGroup(n uint32) DeviceBuilderOption {
	return func(d *device) {
		if n > 0 {
			d.limits.MaxThreadsPerThreadgroup = n
		}
	}
}

// WithKernel registers the Go implementation of a compute entry point.
//
// Parameters:
//   - name: the entry point name
//   - k: the kernel, called once per thread
//
// Returns:
//   - DeviceBuilderOption: a function that applies the kernel option to a device
func WithKernel(name string, k Kernel) DeviceBuilderOption {
	return func(d *device) {
		d.kernels[name] = k
	}
}

// WithVertexFunction registers the Go implementation of a vertex entry point.
//
// Parameters:
//   - name: the entry point name
//   - fn: the vertex function, called once per vertex
//
// Returns:
//   - DeviceBuilderOption: a function that applies the vertex function option to a device
func WithVertexFunction(name string, fn VertexFunction) DeviceBuilderOption {
	return func(d *device) {
		d.vertices[name] = fn
	}
}

// WithFragmentFunction registers the Go implementation of a fragment entry point.
//
// Parameters:
//   - name: the entry point name
//   - fn: the fragment function, called once per covered pixel
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fragment function option to a device
func WithFragmentFunction(name string, fn FragmentFunction) DeviceBuilderOption {
	return func(d *device) {
		d.fragments[name] = fn
	}
}

// WithFunctions registers every entry point of a Functions set.
//
// Parameters:
//   - fns: kernels, vertex and fragment functions keyed by entry point name
//
// Returns:
//   - DeviceBuilderOption: a function that applies every registration to a device
func WithFunctions(fns Functions) DeviceBuilderOption {
	return func(d *device) {
		for name, k := range fns.Kernels {
			d.kernels[name] = k
		}
		for name, fn := range fns.Vertex {
			d.vertices[name] = fn
		}
		for name, fn := range fns.Fragment {
			d.fragments[name] = fn
		}
	}
}
