package shader

import (
	"fmt"
	"slices"
)

// ShaderType identifies the pipeline stage an entry point runs in.
type ShaderType int

const (
	// ShaderTypeCompute indicates a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex stage of a render pipeline.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment stage, used in pair with a vertex function.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// BindingKind classifies a reflected @group/@binding resource.
type BindingKind int

const (
	// BindingUniform is a var<uniform> buffer.
	BindingUniform BindingKind = iota
	// BindingStorage is a var<storage, read_write> buffer.
	BindingStorage
	// BindingReadOnlyStorage is a var<storage, read> buffer.
	BindingReadOnlyStorage
	// BindingSampledTexture is a texture_2d or similar sampled texture.
	BindingSampledTexture
	// BindingStorageTexture is a texture_storage_* texture.
	BindingStorageTexture
	// BindingSampler is a sampler or sampler_comparison.
	BindingSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingStorage:
		return "storage"
	case BindingReadOnlyStorage:
		return "read-only-storage"
	case BindingSampledTexture:
		return "sampled-texture"
	case BindingStorageTexture:
		return "storage-texture"
	case BindingSampler:
		return "sampler"
	default:
		return fmt.Sprintf("BindingKind(%d)", int(k))
	}
}

// IsBuffer reports whether the binding is backed by a buffer.
func (k BindingKind) IsBuffer() bool {
	return k == BindingUniform || k == BindingStorage || k == BindingReadOnlyStorage
}

// IsTexture reports whether the binding is backed by a texture.
func (k BindingKind) IsTexture() bool {
	return k == BindingSampledTexture || k == BindingStorageTexture
}

// TextureAccess is the access mode of a storage texture.
type TextureAccess int

const (
	TextureAccessRead TextureAccess = iota
	TextureAccessWrite
	TextureAccessReadWrite
)

// Binding conventions shared by every backend.
const (
	// ResourceGroup holds compute and vertex resources; @binding equals the API slot index.
	ResourceGroup uint32 = 0

	// FragmentGroup holds fragment resources; @binding equals the API slot index.
	FragmentGroup uint32 = 1

	// SamplerBindingOffset is added to a fragment texture slot to find its paired sampler binding.
	SamplerBindingOffset uint32 = 16
)

// Binding describes one resource global referenced by an entry point.
type Binding struct {
	// Name is the WGSL variable name.
	Name string

	// Group is the @group index.
	Group uint32

	// Binding is the @binding index.
	Binding uint32

	// Kind classifies the resource.
	Kind BindingKind

	// Size is the byte size of the bound type for buffers. Runtime-sized arrays report 0.
	Size uint32

	// StorageFormat is the WGSL texel format of a storage texture, e.g. "rgba8unorm".
	StorageFormat string

	// Access is the storage texture access mode.
	Access TextureAccess

	// Multisampled is set for texture_multisampled_2d bindings.
	Multisampled bool
}

// Slot returns the API slot index the binding answers to under the group convention.
func (b Binding) Slot() int {
	if b.Kind == BindingSampler && b.Binding >= SamplerBindingOffset {
		return int(b.Binding - SamplerBindingOffset)
	}
	return int(b.Binding)
}

// Function is a reflected shader entry point.
type Function struct {
	// Name is the entry point name.
	Name string

	// Stage is the pipeline stage of the entry point.
	Stage ShaderType

	// Module is the name of the source module the entry point was declared in.
	Module string

	// Source is the pre-processed WGSL of the whole module.
	Source string

	// WorkgroupSize is the @workgroup_size of a compute entry point. Zero for render stages.
	WorkgroupSize [3]uint32

	// Bindings lists the resources the entry point references, sorted by group then binding.
	Bindings []Binding

	// SPIRV is the validated SPIR-V of the module. Nil when validation is disabled.
	SPIRV []byte
}

// Binding looks up a reflected binding by group and binding index.
//
// Parameters:
//   - group: the @group index
//   - binding: the @binding index
//
// Returns:
//   - Binding: the binding, if found
//   - bool: true if the entry point references that binding
func (f *Function) Binding(group, binding uint32) (Binding, bool) {
	i, ok := slices.BinarySearchFunc(f.Bindings, [2]uint32{group, binding}, func(b Binding, key [2]uint32) int {
		if b.Group != key[0] {
			return cmpUint32(b.Group, key[0])
		}
		return cmpUint32(b.Binding, key[1])
	})
	if !ok {
		return Binding{}, false
	}
	return f.Bindings[i], true
}

// Group returns the bindings that belong to the given @group.
func (f *Function) Group(group uint32) []Binding {
	var out []Binding
	for _, b := range f.Bindings {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

// SlotGroup returns the @group holding API slots for this function's stage.
func (f *Function) SlotGroup() uint32 {
	if f.Stage == ShaderTypeFragment {
		return FragmentGroup
	}
	return ResourceGroup
}

// Slot returns the binding behind an API slot index in the function's slot group.
// Samplers are never returned.
func (f *Function) Slot(index int) (Binding, bool) {
	if index < 0 {
		return Binding{}, false
	}
	b, ok := f.Binding(f.SlotGroup(), uint32(index))
	if !ok || b.Kind == BindingSampler {
		return Binding{}, false
	}
	return b, true
}

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
