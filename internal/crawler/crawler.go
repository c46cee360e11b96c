package crawler

import (
	"reflect"
	"time"

	"github.com/alvmarrod/ref-weaver/internal/memory"
	"github.com/alvmarrod/ref-weaver/internal/objmodel"
	"github.com/sirupsen/logrus"
)

// Crawler discovers every object reachable from a root through a Model
type Crawler struct {
	model      objmodel.Model
	filter     *TypeFilter
	onDiscover func(node *memory.Node)
}

// NewCrawler creates a crawler over model. filter may be nil.
func NewCrawler(model objmodel.Model, filter *TypeFilter) *Crawler {
	return &Crawler{
		model:  model,
		filter: filter,
	}
}

// OnDiscover registers a callback invoked once per newly discovered node
func (c *Crawler) OnDiscover(fn func(node *memory.Node)) {
	c.onDiscover = fn
}

// Crawl walks the reference graph depth-first from root and returns a new
// session. A nil root yields an empty session.
func (c *Crawler) Crawl(root any) *memory.Session {
	session := memory.NewSession()
	if isNil(root) {
		logrus.Debug("Crawl invoked without a root object")
		return session
	}

	start := time.Now()
	stack := newFrontier()
	stack.push(root)
	peak := 1
	rootID, _ := identityOf(root)

	for {
		obj, ok := stack.pop()
		if !ok {
			break
		}

		id, ok := identityOf(obj)
		if !ok {
			logrus.Debugf("Skipping %T: no usable identity", obj)
			continue
		}
		if !session.Visit(id) {
			continue
		}

		typ := c.model.TypeOf(obj)
		if c.filter.Excluded(typ) {
			if id == rootID {
				logrus.Infof("Root %s has excluded type %s, nothing to crawl", objmodel.NameOf(c.model, obj), typ)
			} else {
				logrus.Debugf("Skipping excluded type %s", typ)
			}
			continue
		}

		node := session.Add(obj, typ)
		if c.onDiscover != nil {
			c.onDiscover(node)
		}

		refs, err := c.model.References(obj)
		if err != nil {
			// Leaf: nothing further to follow from this object
			logrus.Debugf("References of %s unavailable: %v", objmodel.NameOf(c.model, obj), err)
			continue
		}
		stack.pushAll(refs)
		if n := stack.size(); n > peak {
			peak = n
		}
	}

	logrus.Debugf("Crawl discovered %d objects of %d types in %v (peak frontier %d)",
		session.Discovered(), session.Groups().Len(), time.Since(start), peak)
	return session
}

// Crawl is a shorthand for NewCrawler(model, nil).Crawl(root)
func Crawl(model objmodel.Model, root any) *memory.Session {
	return NewCrawler(model, nil).Crawl(root)
}

// pointerKey identifies reference values that cannot be map keys themselves
type pointerKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// identityOf returns a comparable key equal for the same underlying object
func identityOf(obj any) (any, bool) {
	v := reflect.ValueOf(obj)
	if !v.IsValid() {
		return nil, false
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return nil, false
		}
		return pointerKey{typ: v.Type(), ptr: v.Pointer(), len: v.Len()}, true
	case reflect.Map:
		if v.IsNil() {
			return nil, false
		}
		return pointerKey{typ: v.Type(), ptr: v.Pointer()}, true
	case reflect.Func:
		// Closures of one literal share a code pointer
		return nil, false
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer, reflect.Interface:
		if v.IsNil() {
			return nil, false
		}
	}

	if !v.Comparable() {
		return nil, false
	}
	return obj, true
}

func isNil(obj any) bool {
	if obj == nil {
		return true
	}
	switch v := reflect.ValueOf(obj); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}
