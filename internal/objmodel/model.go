// Package objmodel defines what the crawler needs from a host object system:
// a type tag per object and the objects it currently references.
package objmodel

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrEnumerationUnavailable is returned by References when an object's
// outgoing references cannot be read. The crawler treats such objects as leaves.
var ErrEnumerationUnavailable = errors.New("references unavailable")

// Model gives the crawler introspection over one object system
type Model interface {
	// TypeOf returns the concrete type tag used to group obj
	TypeOf(obj any) string
	// References returns obj's outgoing references. Nil entries are allowed
	// and ignored.
	References(obj any) ([]any, error)
}

// Namer is implemented by models that can give objects a display name
type Namer interface {
	NameOf(obj any) string
}

// NameOf returns a display name for obj, falling back to its type tag
func NameOf(m Model, obj any) string {
	if n, ok := m.(Namer); ok {
		if name := n.NameOf(obj); name != "" {
			return name
		}
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprintf("%s@%#x", m.TypeOf(obj), v.Pointer())
	}
	return fmt.Sprintf("%v", obj)
}

// Unavailable wraps err as ErrEnumerationUnavailable
func Unavailable(obj any, err error) error {
	return fmt.Errorf("%w: %T: %v", ErrEnumerationUnavailable, obj, err)
}
