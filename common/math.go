package common

import (
	"math"
	"unsafe"

	"github.com/chewxy/math32"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the input data.
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

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (OpenGL/WebGPU convention).
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// RotationZ writes a rotation of angle radians around the Z axis into out.
// Positive angles rotate counter-clockwise when looking down -Z.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - angle: rotation in radians
func RotationZ(out []float32, angle float32) {
	Identity(out)
	c := math32.Cos(angle)
	s := math32.Sin(angle)
	out[0], out[1] = c, s
	out[4], out[5] = -s, c
}

// Scale writes a non-uniform scale matrix into out.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - x, y, z: scale factors along each axis
func Scale(out []float32, x, y, z float32) {
	Identity(out)
	out[0], out[5], out[10] = x, y, z
}

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * math32.Pi / 180
}

// EaseInOutCubic maps x in [0, 1] onto a cubic ease-in-out curve.
//
// Parameters:
//   - x: progress in [0, 1]
//
// Returns:
//   - float32: eased progress in [0, 1]
func EaseInOutCubic(x float32) float32 {
	if x < 0.5 {
		return 4 * x * x * x
	}
	inter := -2*x + 2
	return 1 - inter*inter*inter/2
}

// ColorCos returns a colour channel oscillating in [0, 1] over time t (seconds)
// with the given frequency factor.
func ColorCos(t, factor float64) float64 {
	return 0.5 + math.Cos(t*factor*math.Pi)*0.5
}
