package loopback

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/wippyai/mxbridge/mxarray"
)

// display renders an assignment the way the command window echoes it.
func display(name string, a *mxarray.Array) string {
	if a.IsStruct() && a.IsScalar() {
		return name + " = \n\n" + body(a) + "\n"
	}
	return name + " =\n\n" + body(a) + "\n"
}

// body renders a value without its name, as disp prints it.
func body(a *mxarray.Array) string {
	if a.IsEmpty() && !a.IsStruct() {
		return "     []\n"
	}
	dims := a.Dims()
	switch a.Class() {
	case mxarray.ClassChar:
		if len(dims) == 2 {
			return charRows(a)
		}
	case mxarray.ClassStruct:
		return structBody(a)
	case mxarray.ClassCell:
		if len(dims) == 2 {
			return cellBody(a)
		}
	case mxarray.ClassLogical:
		if len(dims) == 2 {
			return grid(a, func(i int) string {
				if a.Logicals()[i] {
					return "1"
				}
				return "0"
			}, 4)
		}
	default:
		if a.IsNumeric() && len(dims) == 2 {
			return numericBody(a)
		}
	}
	return "  " + summary(a) + "\n"
}

func charRows(a *mxarray.Array) string {
	v := charsToCty(a)
	var b strings.Builder
	if v.Type().IsTupleType() {
		for _, row := range v.AsValueSlice() {
			fmt.Fprintf(&b, "    '%s'\n", row.AsString())
		}
		return b.String()
	}
	fmt.Fprintf(&b, "    '%s'\n", v.AsString())
	return b.String()
}

func numericBody(a *mxarray.Array) string {
	n := a.NumElements()
	re := make([]float64, n)
	for i := range re {
		re[i] = floatAt(a.Real(), i)
	}
	var im []float64
	if a.IsComplex() {
		im = make([]float64, n)
		for i := range im {
			im[i] = floatAt(a.Imag(), i)
		}
	}

	integral := im == nil
	for _, f := range re {
		if f != math.Trunc(f) && !math.IsInf(f, 0) && !math.IsNaN(f) {
			integral = false
			break
		}
	}

	cells := make([]string, n)
	width := 0
	for i, f := range re {
		s := formatNumber(f, integral)
		if im != nil {
			sign := "+"
			if im[i] < 0 || math.Signbit(im[i]) {
				sign = "-"
			}
			s += " " + sign + " " + formatNumber(math.Abs(im[i]), false) + "i"
		}
		cells[i] = s
		width = max(width, len(s))
	}
	if integral {
		width = max(6, width+3)
	} else {
		width += 4
	}
	return grid(a, func(i int) string { return cells[i] }, width)
}

func formatNumber(f float64, integral bool) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case integral:
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// grid lays out a 2-D array right-aligned in columns of width.
func grid(a *mxarray.Array, cell func(int) string, width int) string {
	dims := a.Dims()
	rows, cols := dims[0], dims[1]
	var b strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			fmt.Fprintf(&b, "%*s", width, cell(r+c*rows))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func structBody(a *mxarray.Array) string {
	var b strings.Builder
	names := a.FieldNames()
	if !a.IsScalar() {
		fmt.Fprintf(&b, "  %s struct array with fields:\n\n", dimString(a))
		for _, name := range names {
			fmt.Fprintf(&b, "    %s\n", name)
		}
		return b.String()
	}
	if len(names) == 0 {
		return "  struct with no fields.\n"
	}
	b.WriteString("  struct with fields:\n\n")
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	for _, name := range names {
		child, _ := a.Field(0, name)
		fmt.Fprintf(&b, "    %*s: %s\n", width, name, inline(child))
	}
	return b.String()
}

func cellBody(a *mxarray.Array) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s cell array\n\n", dimString(a))
	dims := a.Dims()
	rows, cols := dims[0], dims[1]
	for r := 0; r < rows; r++ {
		b.WriteString("   ")
		for c := 0; c < cols; c++ {
			child, _ := a.Cell(r + c*rows)
			fmt.Fprintf(&b, " {%s}", inline(child))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// inline renders a compact one-line form used inside structs and cells.
func inline(a *mxarray.Array) string {
	if a == nil || a.IsEmpty() {
		return "[]"
	}
	switch {
	case a.IsChar() && a.Dims()[0] == 1:
		return "'" + a.String() + "'"
	case a.IsLogical() && a.IsScalar():
		if a.Logicals()[0] {
			return "1"
		}
		return "0"
	case a.IsNumeric() && !a.IsComplex() && a.IsScalar():
		f := floatAt(a.Real(), 0)
		return formatNumber(f, f == math.Trunc(f))
	case a.IsNumeric() && !a.IsComplex() && len(a.Dims()) == 2 && a.Dims()[0] == 1 && a.NumElements() <= 8:
		parts := make([]string, a.NumElements())
		for i := range parts {
			f := floatAt(a.Real(), i)
			parts[i] = formatNumber(f, f == math.Trunc(f))
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return summary(a)
}

func summary(a *mxarray.Array) string {
	if a.IsCell() {
		return "{" + dimString(a) + " cell}"
	}
	return "[" + dimString(a) + " " + a.ClassName() + "]"
}

func dimString(a *mxarray.Array) string {
	dims := a.Dims()
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}

// floatAt reads element i of any numeric storage slice as float64.
func floatAt(data any, i int) float64 {
	v := reflect.ValueOf(data).Index(i)
	switch v.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return 0
}
