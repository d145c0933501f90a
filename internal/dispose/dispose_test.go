package dispose

import (
	"reflect"
	"testing"
)

func TestListDisposesInReverseOrder(t *testing.T) {
	var order []int
	var l List
	for i := 1; i <= 3; i++ {
		l.Add(Func(func() { order = append(order, i) }))
	}
	l.Add(nil)

	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}

	l.Dispose()

	if want := []int{3, 2, 1}; !reflect.DeepEqual(order, want) {
		t.Errorf("dispose order = %v, want %v", order, want)
	}
	if l.Len() != 0 {
		t.Errorf("Len() after Dispose = %d, want 0", l.Len())
	}

	l.Dispose()
	if len(order) != 3 {
		t.Errorf("second Dispose ran %d extra items", len(order)-3)
	}
}

func TestListAddDuringDispose(t *testing.T) {
	var l List
	ran := false
	l.Add(Func(func() {
		l.Add(Func(func() { ran = true }))
	}))

	l.Dispose()

	if !ran {
		t.Error("disposable added while disposing was not released")
	}
}

func TestNilFunc(t *testing.T) {
	var f Func
	f.Dispose()
}
