package nmp

import (
	"unsafe"

	"github.com/x448/float16"
)

// Number is the set of fixed-width types the generic add supports.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Element describes a fixed-width element type: its name, how two blocks
// of it are added, and how an integer seed value is converted into it.
type Element[T any] struct {
	Name string

	// Add computes dst[i] += src[i] for i < len(dst). src is at least as
	// long as dst.
	Add func(dst, src []T)

	// FromInt converts a generated input value into T
	FromInt func(v int64) T
}

// Size returns the element width in bytes
func (e Element[T]) Size() int {
	return int(unsafe.Sizeof(*new(T)))
}

// AddNumeric adds src into dst element by element with the native
// wrap-around (integers) or IEEE (floats) semantics of T.
func AddNumeric[T Number](dst, src []T) {
	src = src[:len(dst)]
	for i := range dst {
		dst[i] += src[i]
	}
}

// AddFloat16 adds half-precision blocks. Each sum is computed in float32 and
// rounded once to the nearest half-precision value.
func AddFloat16(dst, src []float16.Float16) {
	src = src[:len(dst)]
	for i := range dst {
		dst[i] = float16.Fromfloat32(dst[i].Float32() + src[i].Float32())
	}
}

func numericElement[T Number](name string) Element[T] {
	return Element[T]{
		Name:    name,
		Add:     AddNumeric[T],
		FromInt: func(v int64) T { return T(v) },
	}
}

// Supported element types
var (
	Int32   = numericElement[int32]("int32")
	Uint32  = numericElement[uint32]("uint32")
	Int64   = numericElement[int64]("int64")
	Uint64  = numericElement[uint64]("uint64")
	Float32 = numericElement[float32]("float32")
	Float64 = numericElement[float64]("float64")
	Float16 = Element[float16.Float16]{
		Name: "float16",
		Add:  AddFloat16,
		// Seeds are folded into the exactly representable integer range
		FromInt: func(v int64) float16.Float16 {
			return float16.Fromfloat32(float32(v % 2048))
		},
	}
)

// ElementNames lists the names accepted by command-line tools
var ElementNames = []string{"int32", "uint32", "int64", "uint64", "float32", "float64", "float16"}
