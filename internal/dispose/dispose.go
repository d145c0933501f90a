// Package dispose tracks subscription handles so they can be released together.
package dispose

// Disposable releases a listener, connection or other registration.
type Disposable interface {
	Dispose()
}

// Func adapts a plain function to Disposable.
type Func func()

// Dispose calls f once it is non-nil.
func (f Func) Dispose() {
	if f != nil {
		f()
	}
}

// List collects disposables and releases them in reverse order of addition.
// The zero value is ready to use. A List is not safe for concurrent use.
type List struct {
	items []Disposable
}

// Add appends d to the list. Nil entries are ignored.
func (l *List) Add(d ...Disposable) {
	for _, item := range d {
		if item != nil {
			l.items = append(l.items, item)
		}
	}
}

// Len reports how many disposables are still held.
func (l *List) Len() int {
	return len(l.items)
}

// Dispose releases every held item, last added first, and empties the list.
func (l *List) Dispose() {
	for len(l.items) > 0 {
		last := len(l.items) - 1
		item := l.items[last]
		l.items = l.items[:last]
		item.Dispose()
	}
}
