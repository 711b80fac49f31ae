package transcoder

import (
	"reflect"
	"sync"
	"testing"

	"github.com/wippyai/mxbridge/errors"
	"github.com/wippyai/mxbridge/mxarray"
)

func mustValue(t *testing.T, h *Holder) any {
	t.Helper()
	v, err := h.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	return v
}

func TestHolder_ValueAliases(t *testing.T) {
	a := mxarray.FromSlice([]float64{1, 2, 3})
	h := NewHolder(a)
	defer h.Close()

	view1 := mustValue(t, h).(*View)
	view2 := mustValue(t, h).(*View)
	if h.LiveViews() != 2 {
		t.Errorf("LiveViews = %d, want 2", h.LiveViews())
	}
	if h.Cache().Buffers() != 1 {
		t.Errorf("Buffers = %d, want 1", h.Cache().Buffers())
	}

	d, _ := ViewData[float64](view1)
	d[1] = 20
	if got, _ := mxarray.Values[float64](a); got[1] != 20 {
		t.Errorf("view write did not reach the array: %v", got)
	}

	view1.Release()
	view2.Release()
	if h.LiveViews() != 0 {
		t.Errorf("LiveViews = %d after release", h.LiveViews())
	}
}

func TestHolder_MutationRejectedWhileAliased(t *testing.T) {
	a := mxarray.FromSlice([]int32{1, 2})
	h := NewHolder(a)
	defer h.Close()

	view := mustValue(t, h).(*View)

	if err := h.SetValue("replacement"); !errors.IsKind(err, errors.KindBusy) {
		t.Errorf("SetValue err = %v, want busy", err)
	}
	if err := h.SetData([]int32{9, 9}, nil); !errors.IsKind(err, errors.KindBusy) {
		t.Errorf("SetData err = %v, want busy", err)
	}
	other := mxarray.NewDoubleScalar(1)
	if err := h.Set(other); !errors.IsKind(err, errors.KindBusy) {
		t.Errorf("Set err = %v, want busy", err)
	}
	other.Destroy()

	// Data and views are intact after the rejections.
	d, ok := ViewData[int32](view)
	if !ok || !reflect.DeepEqual(d, []int32{1, 2}) {
		t.Errorf("view data = %v, %v", d, ok)
	}
	if h.Array() != a {
		t.Error("array replaced despite live views")
	}

	view.Release()
	if err := h.SetData([]int32{9, 9}, nil); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}
	if got, _ := mxarray.Values[int32](h.Array()); !reflect.DeepEqual(got, []int32{9, 9}) {
		t.Errorf("data = %v", got)
	}

	if err := h.SetValue("replacement"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if !a.Destroyed() {
		t.Error("replaced array is not destroyed")
	}
	if h.Array().String() != "replacement" {
		t.Errorf("array = %s", h.Array())
	}
}

func TestHolder_SetOwnArray(t *testing.T) {
	a := mxarray.FromSlice([]float64{1, 2})
	h := NewHolder(a)
	defer h.Close()

	if err := h.Set(a); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("Set(own array) err = %v, want invalid_input", err)
	}
	if a.Destroyed() {
		t.Fatal("own array destroyed")
	}
	v, err := h.Value()
	if err != nil {
		t.Fatalf("Value after rejected Set: %v", err)
	}
	v.(*View).Release()
}

func TestHolder_CloseDefersUntilViewsReleased(t *testing.T) {
	before := mxarray.Live()
	a := mustArray(t)(mxarray.FromSlices([]float64{1, 2}, []float64{3, 4}, 1, 2))
	h := NewHolder(a)

	obj := mustValue(t, h).(*Object)
	re, _ := obj.Get("re")
	im, _ := obj.Get("im")
	if h.LiveViews() != 2 {
		t.Errorf("LiveViews = %d, want 2", h.LiveViews())
	}

	h.Close()
	if h.Destroyed() || a.Destroyed() {
		t.Error("destroyed while views are live")
	}
	if h.Array() != nil {
		t.Error("Array should be nil after Close")
	}
	if _, err := h.Value(); !errors.IsKind(err, errors.KindDestroyed) {
		t.Errorf("Value after Close err = %v, want destroyed", err)
	}

	re.(*View).Release()
	if h.Destroyed() {
		t.Error("destroyed with one view still live")
	}
	im.(*View).Release()
	if !h.Destroyed() || !a.Destroyed() {
		t.Error("not destroyed after the last view was released")
	}
	if mxarray.Live() != before {
		t.Errorf("live arrays = %d, want %d", mxarray.Live(), before)
	}

	h.Close()
}

func TestHolder_CloseWithoutViews(t *testing.T) {
	a := mxarray.NewString("x")
	h := NewHolder(a)
	h.Close()
	if !h.Destroyed() || !a.Destroyed() {
		t.Error("Close without views should destroy immediately")
	}
}

func TestHolder_FailedDecodeReleasesViews(t *testing.T) {
	c := mustArray(t)(mxarray.NewCell(2))
	if err := c.SetCell(0, mxarray.FromSlice([]float64{1, 2})); err != nil {
		t.Fatal(err)
	}
	if err := c.SetCell(1, mxarray.NewFunctionHandle("f")); err != nil {
		t.Fatal(err)
	}

	h := NewHolder(c)
	defer h.Close()

	if _, err := h.Value(); !errors.IsKind(err, errors.KindUnsupportedType) {
		t.Errorf("err = %v, want unsupported_type", err)
	}
	if h.LiveViews() != 0 {
		t.Errorf("views from a failed decode stay live: %d", h.LiveViews())
	}
}

func TestHolder_ConcurrentViewsAndClose(t *testing.T) {
	before := mxarray.Live()
	a := mxarray.FromSlice(make([]float64, 8))
	h := NewHolder(a)

	var wg sync.WaitGroup
	views := make(chan *View, 64)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 8; i++ {
				v, err := h.Value()
				if err != nil {
					return
				}
				views <- v.(*View)
			}
		}()
	}
	wg.Wait()
	close(views)

	h.Close()

	var release sync.WaitGroup
	for v := range views {
		release.Add(1)
		go func(v *View) {
			defer release.Done()
			v.Release()
		}(v)
	}
	release.Wait()

	if !h.Destroyed() {
		t.Error("holder not destroyed after all views released")
	}
	if mxarray.Live() != before {
		t.Errorf("live arrays = %d, want %d", mxarray.Live(), before)
	}
}
