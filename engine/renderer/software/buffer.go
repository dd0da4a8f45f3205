package software

import "github.com/Carmen-Shannon/oxy-frames/engine/renderer"

// buffer is a software buffer. Its backing array is the memory kernels read and write.
type buffer struct {
	dev   *device
	label string
	mode  renderer.StorageMode
	data  []byte
}

var _ renderer.Buffer = &buffer{}

func (b *buffer) Label() string {
	return b.label
}

func (b *buffer) Device() renderer.Device {
	return b.dev
}

func (b *buffer) Length() int {
	return len(b.data)
}

func (b *buffer) StorageMode() renderer.StorageMode {
	return b.mode
}

func (b *buffer) Contents() []byte {
	if b.mode != renderer.StorageModeShared {
		return nil
	}
	return b.data
}

func (b *buffer) Release() {
	b.data = nil
}
