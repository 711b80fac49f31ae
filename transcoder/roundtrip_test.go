package transcoder

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/mxarray"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"null", nil},
		{"bool", false},
		{"number", -1.25},
		{"string", "grüße 😀"},
		{"bytes", []uint8{0, 255}},
		{"int64 buffer", []int64{-1, 1 << 40}},
		{"uint64 buffer", []uint64{1 << 63}},
		{"bools", []bool{true, false, true}},
		{"list", []any{1.0, "two", []any{true}}},
		{"object", NewObject().Set("b", 1.0).Set("a", []any{"x", nil})},
		{"nested", NewObject().Set("inner", NewObject().Set("v", []float32{1, 2}))},
	}

	enc, dec := NewEncoder(), NewDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := mxarray.Live()

			a, err := enc.Encode(tt.value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := dec.Decode(a)
			a.Destroy()
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			want, _ := json.Marshal(tt.value)
			have, _ := json.Marshal(got)
			if string(want) != string(have) {
				t.Errorf("round trip = %s, want %s", have, want)
			}
			if mxarray.Live() != before {
				t.Errorf("leaked %d arrays", mxarray.Live()-before)
			}
		})
	}
}

// Arrays whose shape a host value can express come back with the same
// class, shape and elements.
func TestRoundTrip_Arrays(t *testing.T) {
	tests := []struct {
		name  string
		array func(t *testing.T) *mxarray.Array
	}{
		{"double scalar", func(t *testing.T) *mxarray.Array { return mxarray.NewDoubleScalar(7) }},
		{"double column", func(t *testing.T) *mxarray.Array { return mxarray.FromSlice([]float64{1, 2, 3}) }},
		{"int16 column", func(t *testing.T) *mxarray.Array { return mxarray.FromSlice([]int16{-4, 5}) }},
		{"complex scalar", func(t *testing.T) *mxarray.Array { return mxarray.NewComplexScalar(1, -2) }},
		{"complex single column", func(t *testing.T) *mxarray.Array {
			return mustArray(t)(mxarray.FromSlices([]float32{1, 2}, []float32{3, 4}, 2, 1))
		}},
		{"string", func(t *testing.T) *mxarray.Array { return mxarray.NewString("hello") }},
		{"logical scalar", func(t *testing.T) *mxarray.Array { return mxarray.NewLogicalScalar(true) }},
		{"logical column", func(t *testing.T) *mxarray.Array {
			a := mustArray(t)(mxarray.NewLogical(3, 1))
			copy(a.Logicals(), []bool{true, false, true})
			return a
		}},
		{"struct", func(t *testing.T) *mxarray.Array {
			s := mustArray(t)(mxarray.NewStruct([]string{"val", "name"}))
			if err := s.SetField(0, "val", mxarray.NewLogicalScalar(true)); err != nil {
				t.Fatal(err)
			}
			if err := s.SetField(0, "name", mxarray.NewString("sensor")); err != nil {
				t.Fatal(err)
			}
			return s
		}},
		{"cell column", func(t *testing.T) *mxarray.Array {
			c := mustArray(t)(mxarray.NewCell(2, 1))
			if err := c.SetCell(0, mxarray.NewDoubleScalar(1)); err != nil {
				t.Fatal(err)
			}
			if err := c.SetCell(1, mxarray.NewString("two")); err != nil {
				t.Fatal(err)
			}
			return c
		}},
	}

	enc, dec := NewEncoder(), NewDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.array(t)
			defer a.Destroy()

			v, err := dec.Decode(a)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			b, err := enc.Encode(v)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			defer b.Destroy()

			if !mxarray.Equal(a, b) {
				t.Errorf("round trip = %s %v, want %s %v", b.ClassName(), b.Dims(), a.ClassName(), a.Dims())
			}
		})
	}
}

// A user object that only looks like a complex pair stays a struct.
func TestEncoder_ComplexObjectShape(t *testing.T) {
	enc := NewEncoder()
	tests := []struct {
		name    string
		value   *Object
		complex bool
	}{
		{"typed parts", NewObject().Set("re", []float64{1}).Set("im", []float64{2}), true},
		{"scalar parts", NewObject().Set("re", 1.0).Set("im", 2.0), false},
		{"mixed classes", NewObject().Set("re", []float64{1}).Set("im", []float32{2}), false},
		{"length mismatch", NewObject().Set("re", []int8{1, 2}).Set("im", []int8{2}), false},
		{"swapped keys", NewObject().Set("im", []float64{1}).Set("re", []float64{2}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := enc.Encode(tt.value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			defer a.Destroy()
			if a.IsComplex() != tt.complex || a.IsStruct() == tt.complex {
				t.Errorf("encoded as %s (complex=%v)", a.ClassName(), a.IsComplex())
			}
		})
	}
}

// Scalar typed values widen to double on the way in; complex comes back as
// an object of parts.
func TestRoundTrip_Widening(t *testing.T) {
	enc, dec := NewEncoder(), NewDecoder()

	a, err := enc.Encode(int8(-3))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := dec.Decode(a)
	a.Destroy()
	if got != -3.0 {
		t.Errorf("int8 round trip = %#v", got)
	}

	a, err = enc.Encode(complex(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	got, _ = dec.Decode(a)
	a.Destroy()
	re, _ := got.(*Object).Get("re")
	im, _ := got.(*Object).Get("im")
	if !reflect.DeepEqual(re, []float64{1}) || !reflect.DeepEqual(im, []float64{2}) {
		t.Errorf("complex round trip = %v / %v", re, im)
	}
}

func TestObject(t *testing.T) {
	o := NewObject().Set("x", 1.0).Set("y", 2.0).Set("x", 3.0)
	if keys := o.Keys(); !reflect.DeepEqual(keys, []string{"x", "y"}) {
		t.Errorf("keys = %v", keys)
	}
	if v, _ := o.Get("x"); v != 3.0 {
		t.Errorf("x = %v", v)
	}

	keys := o.Keys()
	keys[0] = "mutated"
	if o.Keys()[0] != "x" {
		t.Error("Keys must return a snapshot")
	}

	if !o.Delete("x") || o.Delete("x") {
		t.Error("Delete should report presence once")
	}
	if o.Len() != 1 {
		t.Errorf("Len = %d", o.Len())
	}

	var zero Object
	zero.Set("a", true)
	if zero.Len() != 1 {
		t.Error("zero Object should be usable")
	}
}

func TestParseJSON_KeepsOrder(t *testing.T) {
	v, err := ParseJSON([]byte(`{"z": 1, "a": [true, null, "s"], "m": {"k": 2}}`))
	if err != nil {
		t.Fatal(err)
	}
	obj := v.(*Object)
	if keys := obj.Keys(); !reflect.DeepEqual(keys, []string{"z", "a", "m"}) {
		t.Errorf("keys = %v", keys)
	}
	out, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"z":1,"a":[true,null,"s"],"m":{"k":2}}` {
		t.Errorf("marshal = %s", out)
	}

	var target Object
	if err := json.Unmarshal([]byte(`{"b":1,"a":2}`), &target); err != nil {
		t.Fatal(err)
	}
	if keys := target.Keys(); !reflect.DeepEqual(keys, []string{"b", "a"}) {
		t.Errorf("unmarshal keys = %v", keys)
	}

	if err := json.Unmarshal([]byte(`[1]`), &target); err == nil {
		t.Error("array into Object should fail")
	}
	if _, err := ParseJSON([]byte(`1 2`)); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("trailing data err = %v", err)
	}
	if _, err := ParseJSON([]byte(`{"a":`)); err == nil {
		t.Error("truncated JSON should fail")
	}
}
