package mxarray

// Class is the engine class of an Array.
type Class uint8

const (
	ClassUnknown Class = iota
	ClassCell
	ClassStruct
	ClassLogical
	ClassChar
	ClassDouble
	ClassSingle
	ClassInt8
	ClassUint8
	ClassInt16
	ClassUint16
	ClassInt32
	ClassUint32
	ClassInt64
	ClassUint64
	ClassFunction
	ClassSparse
	ClassObject
)

var classNames = [...]string{
	ClassUnknown:  "unknown",
	ClassCell:     "cell",
	ClassStruct:   "struct",
	ClassLogical:  "logical",
	ClassChar:     "char",
	ClassDouble:   "double",
	ClassSingle:   "single",
	ClassInt8:     "int8",
	ClassUint8:    "uint8",
	ClassInt16:    "int16",
	ClassUint16:   "uint16",
	ClassInt32:    "int32",
	ClassUint32:   "uint32",
	ClassInt64:    "int64",
	ClassUint64:   "uint64",
	ClassFunction: "function_handle",
	ClassSparse:   "sparse",
	ClassObject:   "object",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// ParseClass maps an engine class name to its Class.
func ParseClass(name string) (Class, bool) {
	for c, n := range classNames {
		if n == name && Class(c) != ClassUnknown {
			return Class(c), true
		}
	}
	return ClassUnknown, false
}

// IsNumeric reports whether c is one of the numeric classes.
func (c Class) IsNumeric() bool {
	return c >= ClassDouble && c <= ClassUint64
}

// IsSupported reports whether values of class c can be converted at all.
func (c Class) IsSupported() bool {
	switch c {
	case ClassCell, ClassStruct, ClassLogical, ClassChar:
		return true
	}
	return c.IsNumeric()
}

// ElementSize returns the storage size of one element in bytes, or 0 for
// classes without flat storage.
func (c Class) ElementSize() int {
	switch c {
	case ClassLogical, ClassInt8, ClassUint8:
		return 1
	case ClassChar, ClassInt16, ClassUint16:
		return 2
	case ClassSingle, ClassInt32, ClassUint32:
		return 4
	case ClassDouble, ClassInt64, ClassUint64:
		return 8
	}
	return 0
}

// Element is the set of Go element types backing numeric classes.
type Element interface {
	float64 | float32 | int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64
}

// ClassOf returns the numeric class stored as []T.
func ClassOf[T Element]() Class {
	var zero T
	switch any(zero).(type) {
	case float64:
		return ClassDouble
	case float32:
		return ClassSingle
	case int8:
		return ClassInt8
	case uint8:
		return ClassUint8
	case int16:
		return ClassInt16
	case uint16:
		return ClassUint16
	case int32:
		return ClassInt32
	case uint32:
		return ClassUint32
	case int64:
		return ClassInt64
	default:
		return ClassUint64
	}
}

// ClassOfSlice returns the numeric class of a typed slice, if it is one.
func ClassOfSlice(data any) (Class, bool) {
	switch data.(type) {
	case []float64:
		return ClassDouble, true
	case []float32:
		return ClassSingle, true
	case []int8:
		return ClassInt8, true
	case []uint8:
		return ClassUint8, true
	case []int16:
		return ClassInt16, true
	case []uint16:
		return ClassUint16, true
	case []int32:
		return ClassInt32, true
	case []uint32:
		return ClassUint32, true
	case []int64:
		return ClassInt64, true
	case []uint64:
		return ClassUint64, true
	}
	return ClassUnknown, false
}

// makeData allocates zeroed storage for n elements of class c.
func makeData(c Class, n int) any {
	switch c {
	case ClassDouble:
		return make([]float64, n)
	case ClassSingle:
		return make([]float32, n)
	case ClassInt8:
		return make([]int8, n)
	case ClassUint8:
		return make([]uint8, n)
	case ClassInt16:
		return make([]int16, n)
	case ClassUint16:
		return make([]uint16, n)
	case ClassInt32:
		return make([]int32, n)
	case ClassUint32:
		return make([]uint32, n)
	case ClassInt64:
		return make([]int64, n)
	case ClassUint64:
		return make([]uint64, n)
	case ClassLogical:
		return make([]bool, n)
	case ClassChar:
		return make([]uint16, n)
	}
	return nil
}

// dataLen returns the element count of storage allocated by makeData.
func dataLen(data any) int {
	switch d := data.(type) {
	case []float64:
		return len(d)
	case []float32:
		return len(d)
	case []int8:
		return len(d)
	case []uint8:
		return len(d)
	case []int16:
		return len(d)
	case []uint16:
		return len(d)
	case []int32:
		return len(d)
	case []uint32:
		return len(d)
	case []int64:
		return len(d)
	case []uint64:
		return len(d)
	case []bool:
		return len(d)
	}
	return 0
}

// cloneData returns a copy of storage allocated by makeData.
func cloneData(data any) any {
	switch d := data.(type) {
	case []float64:
		return append(make([]float64, 0, len(d)), d...)
	case []float32:
		return append(make([]float32, 0, len(d)), d...)
	case []int8:
		return append(make([]int8, 0, len(d)), d...)
	case []uint8:
		return append(make([]uint8, 0, len(d)), d...)
	case []int16:
		return append(make([]int16, 0, len(d)), d...)
	case []uint16:
		return append(make([]uint16, 0, len(d)), d...)
	case []int32:
		return append(make([]int32, 0, len(d)), d...)
	case []uint32:
		return append(make([]uint32, 0, len(d)), d...)
	case []int64:
		return append(make([]int64, 0, len(d)), d...)
	case []uint64:
		return append(make([]uint64, 0, len(d)), d...)
	case []bool:
		return append(make([]bool, 0, len(d)), d...)
	}
	return nil
}

// elementFloat converts element i of storage to float64.
func elementFloat(data any, i int) float64 {
	switch d := data.(type) {
	case []float64:
		return d[i]
	case []float32:
		return float64(d[i])
	case []int8:
		return float64(d[i])
	case []uint8:
		return float64(d[i])
	case []int16:
		return float64(d[i])
	case []uint16:
		return float64(d[i])
	case []int32:
		return float64(d[i])
	case []uint32:
		return float64(d[i])
	case []int64:
		return float64(d[i])
	case []uint64:
		return float64(d[i])
	case []bool:
		if d[i] {
			return 1
		}
	}
	return 0
}
