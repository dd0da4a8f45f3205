package common

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// BytesToSlice copies raw bytes into a newly allocated slice of T.
// Trailing bytes that do not fill a whole element are ignored. The copy avoids
// alignment assumptions about the source memory, which may be a mapped GPU range.
//
// Parameters:
//   - data: the raw bytes to decode
//
// Returns:
//   - []T: the decoded elements
func BytesToSlice[T any](data []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 || len(data) < size {
		return nil
	}
	out := make([]T, len(data)/size)
	copy(SliceToBytes(out), data[:len(out)*size])
	return out
}

// Float32At reads the little-endian float32 at element index i of data.
func Float32At(data []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
}

// PutFloat32 writes v as a little-endian float32 at element index i of data.
func PutFloat32(data []byte, i int, v float32) {
	binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
}

// Uint32At reads the little-endian uint32 at element index i of data.
func Uint32At(data []byte, i int) uint32 {
	return binary.LittleEndian.Uint32(data[i*4:])
}

// CeilDiv returns ceil(n / d) for unsigned integers. A zero divisor returns 0.
func CeilDiv(n, d uint32) uint32 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}

// Clamp01 clamps v to the [0, 1] range.
func Clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
