package frame_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.vapo.dev/pkg/backend/headless"
	"src.vapo.dev/pkg/cell"
	. "src.vapo.dev/pkg/frame"
	"src.vapo.dev/pkg/testutil"
)

type changeLog []Change

func (l *changeLog) Changed(c Change) { *l = append(*l, c) }

func TestLabelAndButton(t *testing.T) {
	s := headless.NewSurface(headless.Input{Clicks: []string{"OK"}})
	ctx := New(s, 1, nil)

	ctx.Label("hello")
	if ctx.Button("Cancel") {
		t.Errorf("Button(Cancel) -> true, want false")
	}
	if !ctx.Button("OK") {
		t.Errorf("Button(OK) -> false, want true")
	}
	if ctx.Button("OK") {
		t.Errorf("second Button(OK) -> true, want false")
	}

	want := []string{"hello", "Cancel", "OK", "OK"}
	if diff := cmp.Diff(want, s.Texts()); diff != "" {
		t.Errorf("drawn texts (-want +got):\n%s", diff)
	}
}

func TestInput_NoEditNoNotification(t *testing.T) {
	var log changeLog
	c := cell.New("abc")
	ctx := New(headless.NewSurface(headless.Input{}), 1, &log)

	if err := ctx.Input(c); err != nil {
		t.Fatal(err)
	}
	if len(log) != 0 {
		t.Errorf("got notifications %v for an unedited field", log)
	}
	if v, _ := c.Load(); v != "abc" {
		t.Errorf("cell content -> %q, want \"abc\"", v)
	}
}

func TestInput_EditNotifiesOnce(t *testing.T) {
	var log changeLog
	c := cell.New("abc")
	ctx := New(headless.NewSurface(headless.Input{Edits: map[int]string{0: "abd"}}), 7, &log)

	if err := ctx.Input(c); err != nil {
		t.Fatal(err)
	}
	want := changeLog{{Cell: c.ID(), Frame: 7, Before: "abc", After: "abd"}}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
	if v, _ := c.Load(); v != "abd" {
		t.Errorf("cell content -> %q, want \"abd\"", v)
	}

	// Rendering the now unchanged field again does not notify.
	ctx2 := New(headless.NewSurface(headless.Input{}), 8, &log)
	ctx2.Input(c)
	if len(log) != 1 {
		t.Errorf("got %d notifications after re-rendering, want 1", len(log))
	}
}

func TestInput_EditToSameValueDoesNotNotify(t *testing.T) {
	var log changeLog
	c := cell.New("abc")
	ctx := New(headless.NewSurface(headless.Input{Edits: map[int]string{0: "abc"}}), 1, &log)
	ctx.Input(c)
	if len(log) != 0 {
		t.Errorf("got notifications %v, want none", log)
	}
}

func TestInput_BorrowConflict(t *testing.T) {
	c := cell.New("abc")
	w, _ := c.BorrowMut()
	defer w.Release()

	ctx := New(headless.NewSurface(headless.Input{}), 1, nil)
	if err := ctx.Input(c); !errors.Is(err, cell.ErrBorrowConflict) {
		t.Errorf("Input while borrowed -> %v, want ErrBorrowConflict", err)
	}
}

func TestInvalidate(t *testing.T) {
	ctx := New(headless.NewSurface(headless.Input{}), 3, nil)
	if !ctx.Valid() {
		t.Fatalf("new context is not valid")
	}
	ctx.Invalidate()
	ctx.Invalidate()
	if ctx.Valid() {
		t.Errorf("context still valid after Invalidate")
	}

	for _, op := range []struct {
		name string
		f    func()
	}{
		{"label", func() { ctx.Label("x") }},
		{"button", func() { ctx.Button("x") }},
		{"input", func() { ctx.Input(cell.New("")) }},
	} {
		for i := 0; i < 10; i++ {
			r := testutil.Recover(op.f)
			sv, ok := r.(*ScopeViolation)
			if !ok {
				t.Fatalf("%s on invalid context panicked with %v, want *ScopeViolation", op.name, r)
			}
			if sv.Op != op.name || sv.Frame != 3 {
				t.Errorf("got %+v, want Op=%s Frame=3", sv, op.name)
			}
		}
	}
}

func TestNotifiers(t *testing.T) {
	var a, b changeLog
	n := Notifiers(&a, nil, &b)
	n.Changed(Change{Before: "x", After: "y"})
	if len(a) != 1 || len(b) != 1 {
		t.Errorf("Notifiers delivered %d and %d changes, want 1 and 1", len(a), len(b))
	}
}
