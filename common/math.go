package common

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// BufferAlignment is the byte multiple WebGPU requires for buffer sizes and queue writes.
const BufferAlignment = 4

// AlignSize rounds n up to the next multiple of BufferAlignment.
//
// Parameters:
//   - n: the unaligned byte length
//
// Returns:
//   - uint64: n rounded up to a multiple of 4
func AlignSize(n uint64) uint64 {
	return ((n + BufferAlignment - 1) / BufferAlignment) * BufferAlignment
}

// PadBytes returns data extended with zero bytes to the given length.
// If data is already at least size bytes long it is returned unchanged.
//
// Parameters:
//   - data: the source bytes
//   - size: the required length
//
// Returns:
//   - []byte: a slice of at least size bytes
func PadBytes(data []byte, size uint64) []byte {
	if uint64(len(data)) >= size {
		return data
	}
	padded := make([]byte, size)
	copy(padded, data)
	return padded
}

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

// PutMat4 writes a column-major 4x4 float32 matrix into dst as 64 little-endian bytes.
//
// Parameters:
//   - dst: destination slice (must be at least 64 bytes)
//   - m: the matrix to write
func PutMat4(dst []byte, m [16]float32) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}
