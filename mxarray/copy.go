package mxarray

import "reflect"

// Duplicate returns a deep copy of a owned by the caller.
func (a *Array) Duplicate() (*Array, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.duplicate(), nil
}

func (a *Array) duplicate() *Array {
	d := newArray(a.class, append([]int(nil), a.dims...))
	d.className = a.className
	d.real = cloneData(a.real)
	d.imag = cloneData(a.imag)
	if a.fields != nil {
		d.fields = append([]string(nil), a.fields...)
	}
	if a.values != nil {
		d.values = make([]*Array, len(a.values))
		for i, v := range a.values {
			if v != nil && !v.destroyed {
				d.values[i] = v.duplicate()
			}
		}
	}
	return d
}

// Equal reports whether a and b are structurally equal: same class, dims,
// data, complex parts, field names in the same order, and equal children.
// Unset children compare equal only to unset children.
func Equal(a, b *Array) bool {
	if isUnset(a) || isUnset(b) {
		return isUnset(a) && isUnset(b)
	}
	if a.class != b.class || a.className != b.className || !reflect.DeepEqual(a.dims, b.dims) {
		return false
	}
	if !reflect.DeepEqual(a.real, b.real) || !reflect.DeepEqual(a.imag, b.imag) {
		return false
	}
	if !reflect.DeepEqual(a.fields, b.fields) || len(a.values) != len(b.values) {
		return false
	}
	for i := range a.values {
		if !Equal(a.values[i], b.values[i]) {
			return false
		}
	}
	return true
}

func isUnset(a *Array) bool {
	return a == nil || a.destroyed
}
