package transcoder

import (
	"reflect"
	"strings"
	"sync"
)

// structField is one exported Go struct field mapped to a struct field name.
type structField struct {
	name  string
	index []int
}

// fieldCache memoizes the field list of each Go struct type. It is safe for
// concurrent use.
type fieldCache struct {
	cache sync.Map // reflect.Type -> []structField
}

var defaultFields = &fieldCache{}

// fields returns the exported fields of t in declaration order. The `mx`
// tag renames a field; `mx:"-"` skips it. Embedded structs without a tag
// contribute their fields inline.
func (c *fieldCache) fields(t reflect.Type) []structField {
	if cached, ok := c.cache.Load(t); ok {
		return cached.([]structField)
	}
	fs := collectFields(t, nil, nil)
	c.cache.Store(t, fs)
	return fs
}

func collectFields(t reflect.Type, prefix []int, out []structField) []structField {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, hasTag := f.Tag.Lookup("mx")
		if tag == "-" {
			continue
		}
		index := append(append([]int(nil), prefix...), i)

		if f.Anonymous && !hasTag {
			ft := f.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				out = collectFields(ft, index, out)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if n, _, _ := strings.Cut(tag, ","); n != "" {
			name = n
		}
		out = append(out, structField{name: name, index: index})
	}
	return out
}
