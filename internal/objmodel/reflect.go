package objmodel

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// maxInlineDepth bounds descent through values that are not nodes themselves
// (embedded structs, slices of structs, maps)
const maxInlineDepth = 32

// Reflect walks plain Go values. A node is a non-nil pointer; its references
// are the pointers reachable through exported fields, slices, arrays, maps and
// interfaces without crossing another pointer.
type Reflect struct{}

// TypeOf returns the package-qualified name of the pointed-to type
func (Reflect) TypeOf(obj any) string {
	t := reflect.TypeOf(obj)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// References lists the pointers held by obj in field order
func (Reflect) References(obj any) ([]any, error) {
	v := reflect.ValueOf(obj)
	if !v.IsValid() || v.Kind() != reflect.Pointer {
		return nil, Unavailable(obj, errors.New("not a pointer"))
	}
	if v.IsNil() {
		return nil, nil
	}

	var refs []any
	collect(v.Elem(), &refs, 0)
	return refs, nil
}

func collect(v reflect.Value, out *[]any, depth int) {
	if depth > maxInlineDepth {
		return
	}

	switch v.Kind() {
	case reflect.Pointer:
		if !v.IsNil() && v.CanInterface() {
			*out = append(*out, v.Interface())
		}
	case reflect.Interface:
		if !v.IsNil() {
			collect(v.Elem(), out, depth+1)
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			collect(v.Field(i), out, depth+1)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			collect(v.Index(i), out, depth+1)
		}
	case reflect.Map:
		for _, k := range sortedKeys(v) {
			collect(k, out, depth+1)
			collect(v.MapIndex(k), out, depth+1)
		}
	}
}

// sortedKeys orders map keys by their printed form so repeated crawls of the
// same graph discover map values in the same order
func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	sort.SliceStable(keys, func(i, j int) bool {
		return keyString(keys[i]) < keyString(keys[j])
	})
	return keys
}

func keyString(k reflect.Value) string {
	if !k.CanInterface() {
		return k.String()
	}
	return fmt.Sprintf("%v", k.Interface())
}
