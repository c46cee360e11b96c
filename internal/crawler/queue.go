package crawler

// frontier is the LIFO work list of the depth-first walk. Popping it yields
// the same pre-order a recursive walk would.
type frontier struct {
	items []any
}

func newFrontier() *frontier {
	return &frontier{
		items: make([]any, 0, 16),
	}
}

// push adds one object on top of the stack
func (f *frontier) push(obj any) {
	f.items = append(f.items, obj)
}

// pushAll adds an object's references so that the first one is popped first.
// Nil references are dropped here.
func (f *frontier) pushAll(refs []any) {
	for i := len(refs) - 1; i >= 0; i-- {
		if isNil(refs[i]) {
			continue
		}
		f.items = append(f.items, refs[i])
	}
}

// pop removes and returns the top of the stack
func (f *frontier) pop() (any, bool) {
	if len(f.items) == 0 {
		return nil, false
	}
	last := len(f.items) - 1
	obj := f.items[last]
	f.items[last] = nil
	f.items = f.items[:last]
	return obj, true
}

// size returns the number of pending objects
func (f *frontier) size() int {
	return len(f.items)
}
