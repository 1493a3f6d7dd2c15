package script_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	lua "github.com/yuin/gopher-lua"
	"src.vapo.dev/pkg/backend/headless"
	"src.vapo.dev/pkg/cell"
	"src.vapo.dev/pkg/frame"
	. "src.vapo.dev/pkg/script"
	"src.vapo.dev/pkg/testutil"
)

const noDraw = "\nvapo.draw = function(ctx) end\n"

func setup(t *testing.T, src string) *Runtime {
	t.Helper()
	r := New(Options{})
	t.Cleanup(r.Close)
	if err := r.LoadSource("test.lua", []byte(src)); err != nil {
		t.Fatal(err)
	}
	return r
}

func draw(r *Runtime, n uint64, in headless.Input, notify frame.Notifier) (*headless.Surface, error) {
	s := headless.NewSurface(in)
	ctx := frame.New(s, n, notify)
	defer ctx.Invalidate()
	return s, r.Draw(ctx)
}

func TestCells_GetSet(t *testing.T) {
	setup(t, `
		local s = vapo.dstr("abc")
		assert(s:get() == "abc")
		s:set("xyz")
		assert(s:get() == "xyz")
		s:set(12)
		assert(s:get() == "12", "number set on string cell")

		assert(vapo.dstr():get() == "", "default string")
		assert(vapo.dstr(1.5):get() == "1.5")

		local n = vapo.dnum("3")
		assert(n:get() == 3)
		n:set(0.5)
		assert(n:get() == 0.5)
		assert(vapo.dnum():get() == 0)

		local i = vapo.dint(4)
		i:set("5")
		assert(i:get() == 5)

		local b = vapo.dbool(true)
		assert(b:get() == true)
		b:set(false)
		assert(b:get() == false)
		assert(vapo.dbool():get() == false)
	`+noDraw)
}

func TestCells_FailedSetLeavesValue(t *testing.T) {
	setup(t, `
		local n = vapo.dnum(1)
		local ok, err = pcall(function() n:set({}) end)
		assert(not ok)
		assert(string.find(err, "cannot convert table to number", 1, true), err)
		assert(n:get() == 1)

		local s = vapo.dstr("keep")
		ok, err = pcall(function() s:set(true) end)
		assert(not ok)
		assert(string.find(err, "bad argument #2", 1, true), err)
		assert(s:get() == "keep")

		local i = vapo.dint(2)
		assert(not pcall(function() i:set(2.5) end))
		assert(i:get() == 2)

		local b = vapo.dbool(true)
		assert(not pcall(function() b:set(0) end))
		assert(b:get() == true)
	`+noDraw)
}

func TestCells_FactoryRejectsBadInitialValue(t *testing.T) {
	r := New(Options{})
	defer r.Close()
	err := r.LoadSource("test.lua", []byte(`vapo.dint("x")`+noDraw))
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Stage != StageExec {
		t.Fatalf("got error %v, want a LoadError at stage exec", err)
	}
	if !strings.Contains(err.Error(), "is not a number") {
		t.Errorf("error %q does not mention the conversion failure", err)
	}
}

func TestCells_Extensions(t *testing.T) {
	setup(t, `
		local s = vapo.dstr("héllo")
		assert(tostring(s) == "héllo")
		assert(#s == 6)
		assert(s:len() == 6)
		assert(s .. "!" == "héllo!")
		assert("<" .. s == "<héllo")
		assert(s .. s == "héllohéllo")
		assert(s .. 1 == "héllo1")
		assert(not pcall(function() return s .. {} end))

		local n = vapo.dnum(1.5)
		assert(n:add(2) == 3.5)
		assert(n:get() == 3.5)
		assert(tostring(n) == "3.5")
		n:set(4)
		assert(tostring(n) == "4")

		local i = vapo.dint(1)
		assert(i:add(-3) == -2)
		assert(tostring(i) == "-2")

		local b = vapo.dbool(false)
		assert(b:toggle() == true)
		assert(b:get() == true)
		assert(tostring(b) == "true")
	`+noDraw)
}

func TestCells_KindsAreDistinct(t *testing.T) {
	setup(t, `
		local s, n = vapo.dstr("a"), vapo.dnum(1)
		local ok, err = pcall(function() return n.get(s) end)
		assert(not ok)
		assert(string.find(err, "number cell expected", 1, true), err)
		assert(getmetatable(s) == "string cell")
	`+noDraw)
}

func TestNamespace(t *testing.T) {
	quits := 0
	r := New(Options{Quit: func() { quits++ }})
	defer r.Close()
	err := r.LoadSource("test.lua", []byte(`
		local v = require "vapo"
		assert(v == vapo)
		vapo.log("loading", 1, vapo.dstr("x"))
		vapo.draw = function(ctx) vapo.quit() end
	`))
	if err != nil {
		t.Fatal(err)
	}
	if r.Namespace() != r.L.GetGlobal("vapo") {
		t.Errorf("Namespace() is not the global vapo")
	}
	if _, err := draw(r, 1, headless.Input{}, nil); err != nil {
		t.Fatal(err)
	}
	if quits != 1 {
		t.Errorf("Quit called %d times, want 1", quits)
	}
}

var loadErrorTests = []struct {
	name  string
	src   string
	stage string
	msg   string
}{
	{"parse", "vapo.draw = function(ctx", StageParse, "test.lua"},
	{"exec", `error("top-level failure")`, StageExec, "top-level failure"},
	{"no draw", `local x = 1`, StageContract, ErrNoDraw.Error()},
	{"draw not function", `vapo.draw = 42`, StageContract, ErrNoDraw.Error()},
}

func TestLoadSource_Errors(t *testing.T) {
	for _, test := range loadErrorTests {
		t.Run(test.name, func(t *testing.T) {
			r := New(Options{})
			defer r.Close()
			err := r.LoadSource("test.lua", []byte(test.src))
			var lerr *LoadError
			if !errors.As(err, &lerr) {
				t.Fatalf("got error %v, want *LoadError", err)
			}
			if lerr.Stage != test.stage || lerr.Path != "test.lua" {
				t.Errorf("got stage %q path %q, want %q test.lua", lerr.Stage, lerr.Path, test.stage)
			}
			if !strings.Contains(err.Error(), test.msg) {
				t.Errorf("error %q does not contain %q", err, test.msg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := testutil.InTempDir(t)
	testutil.ApplyDir(testutil.Dir{"vapo.lua": "vapo.draw = function(ctx) ctx:label('hi') end"})

	r := New(Options{})
	defer r.Close()
	if err := r.Load(filepath.Join(dir, "vapo.lua")); err != nil {
		t.Fatal(err)
	}

	err := r.Load(filepath.Join(dir, "missing.lua"))
	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Stage != StageRead {
		t.Errorf("got error %v, want LoadError at stage read", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error %v does not wrap fs.ErrNotExist", err)
	}
}

func TestLoad_ExampleScript(t *testing.T) {
	if _, err := os.Stat("../../vapo.lua"); err != nil {
		t.Skip("example script not found")
	}
	r := New(Options{})
	defer r.Close()
	if err := r.Load("../../vapo.lua"); err != nil {
		t.Fatal(err)
	}
	if _, err := draw(r, 1, headless.Input{}, nil); err != nil {
		t.Errorf("first frame of example script failed: %v", err)
	}
}

type changeLog []frame.Change

func (l *changeLog) Changed(c frame.Change) { *l = append(*l, c) }

func TestDraw(t *testing.T) {
	r := setup(t, `
		name = vapo.dstr("abc")
		clicks = 0
		vapo.draw = function(ctx)
			ctx:label("Hello")
			ctx:label(42)
			ctx:label(nil)
			ctx:label({})
			if ctx:button("Click") then clicks = clicks + 1 end
			ctx:input(name)
		end
	`)

	var log changeLog
	s, err := draw(r, 1, headless.Input{}, &log)
	if err != nil {
		t.Fatal(err)
	}
	wantTexts := []string{"Hello", "42", "[Unknown]", "[Unknown]", "Click", "abc"}
	if diff := cmp.Diff(wantTexts, s.Texts()); diff != "" {
		t.Errorf("texts (-want +got):\n%s", diff)
	}
	if len(log) != 0 {
		t.Errorf("got changes %v without edits", log)
	}

	_, err = draw(r, 2, headless.Input{Clicks: []string{"Click"}, Edits: map[int]string{0: "abd"}}, &log)
	if err != nil {
		t.Fatal(err)
	}
	if clicks := r.L.GetGlobal("clicks"); clicks != lua.LNumber(1) {
		t.Errorf("clicks = %v, want 1", clicks)
	}
	if len(log) != 1 || log[0].Before != "abc" || log[0].After != "abd" || log[0].Frame != 2 {
		t.Errorf("got changes %v, want one change from abc to abd in frame 2", log)
	}
	nameCell, _ := CellOf(StringKind, r.L.GetGlobal("name"))
	if v, _ := nameCell.Load(); v != "abd" {
		t.Errorf("name = %q, want \"abd\"", v)
	}
}

func TestDraw_ScriptError(t *testing.T) {
	r := setup(t, `vapo.draw = function(ctx) error("boom") end`)
	_, err := draw(r, 1, headless.Input{}, nil)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("got error %v, want one containing boom", err)
	}
}

func TestDraw_InputRequiresStringCell(t *testing.T) {
	r := setup(t, `vapo.draw = function(ctx) ctx:input(vapo.dnum(1)) end`)
	_, err := draw(r, 1, headless.Input{}, nil)
	if err == nil || !strings.Contains(err.Error(), "string cell expected") {
		t.Errorf("got error %v, want bad argument error", err)
	}
}

func TestDraw_StaleContextIsFatal(t *testing.T) {
	for _, src := range []string{
		`saved:label("x")`,
		`pcall(function() saved:button("x") end)`,
		`saved:input(vapo.dstr())`,
	} {
		r := setup(t, `
			vapo.draw = function(ctx)
				if saved then `+src+` end
				saved = ctx
			end
		`)
		if _, err := draw(r, 1, headless.Input{}, nil); err != nil {
			t.Fatal(err)
		}
		v := testutil.Recover(func() { draw(r, 2, headless.Input{}, nil) })
		iv, ok := v.(*InvariantViolation)
		if !ok {
			t.Fatalf("%s: got panic %v, want *InvariantViolation", src, v)
		}
		var sv *frame.ScopeViolation
		if !errors.As(iv, &sv) || sv.Frame != 1 {
			t.Errorf("%s: got cause %v, want scope violation of frame 1", src, iv.Cause)
		}
	}
}

func TestDraw_BorrowConflictIsFatal(t *testing.T) {
	r := setup(t, `vapo.draw = function(ctx) pcall(function() shared:get() end) end`)
	c := cell.New("host")
	r.L.SetGlobal("shared", NewCellValue(r, StringKind, c.Clone()))

	w, _ := c.BorrowMut()
	v := testutil.Recover(func() { draw(r, 1, headless.Input{}, nil) })
	w.Release()
	if iv, ok := v.(*InvariantViolation); !ok || !errors.Is(iv, cell.ErrBorrowConflict) {
		t.Errorf("got panic %v, want InvariantViolation caused by ErrBorrowConflict", v)
	}

	// Once the borrow is gone the same script draws normally.
	if _, err := draw(r, 2, headless.Input{}, nil); err != nil {
		t.Errorf("got error %v after the borrow ended", err)
	}
}

func TestDraw_ReleasedHandleIsFatal(t *testing.T) {
	r := setup(t, `vapo.draw = function(ctx) ctx:input(shared) end`)
	c := cell.New("host")
	h := c.Clone()
	r.L.SetGlobal("shared", NewCellValue(r, StringKind, h))
	h.Release()

	v := testutil.Recover(func() { draw(r, 1, headless.Input{}, nil) })
	if iv, ok := v.(*InvariantViolation); !ok || !errors.Is(iv, cell.ErrReleased) {
		t.Errorf("got panic %v, want InvariantViolation caused by ErrReleased", v)
	}
}

func TestClose_ReleasesHandles(t *testing.T) {
	r := New(Options{})
	c := cell.New("x")
	r.L.SetGlobal("exposed", NewCellValue(r, StringKind, c.Clone()))
	if err := r.LoadSource("test.lua", []byte(`kept = vapo.dstr("y")`+noDraw)); err != nil {
		t.Fatal(err)
	}
	kept, _ := CellOf(StringKind, r.L.GetGlobal("kept"))
	if c.Refs() != 2 {
		t.Errorf("Refs() = %d after exposing, want 2", c.Refs())
	}

	r.Close()
	r.Close()
	if c.Refs() != 1 {
		t.Errorf("Refs() = %d after Close, want 1", c.Refs())
	}
	if !kept.Released() {
		t.Errorf("cell created by the script not released by Close")
	}
}

func TestDraw_ReleasesCollectedCells(t *testing.T) {
	r := setup(t, `vapo.draw = function(ctx)
		local tmp = vapo.dstr("x")
		ctx:label(tmp:get())
	end`)
	const frames = 500
	for i := uint64(1); i <= frames; i++ {
		if _, err := draw(r, i, headless.Input{}, nil); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, "cells created by past frames to be released", func() bool {
		return r.LiveHandles() < frames/10
	})
}

func TestDraw_ReleasesDroppedSharedCell(t *testing.T) {
	r := setup(t, `vapo.draw = function(ctx) shared = nil end`)
	c := cell.New("host")
	r.L.SetGlobal("shared", NewCellValue(r, StringKind, c.Clone()))
	if _, err := draw(r, 1, headless.Input{}, nil); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "the dropped handle to be released", func() bool {
		r.LiveHandles()
		return c.Refs() == 1
	})
	if v, err := c.Load(); v != "host" || err != nil {
		t.Errorf("host handle reads (%q, %v), want (host, nil)", v, err)
	}
}

// Runs the garbage collector until cond holds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testutil.Scaled(5 * time.Second))
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		runtime.GC()
		time.Sleep(testutil.Scaled(time.Millisecond))
	}
}
