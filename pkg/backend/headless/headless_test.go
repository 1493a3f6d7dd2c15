package headless_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	. "src.vapo.dev/pkg/backend/headless"
	"src.vapo.dev/pkg/ui"
)

// Draws a fixed layout and records the results of the interactive widgets.
type fakeHandler struct {
	closeOn string
	clicked []string
	name    string
	closed  bool
}

func (h *fakeHandler) OnFrame(s ui.Surface) {
	s.StyledLabel(ui.Style{Bold: true}, "title")
	for _, label := range []string{"A", "B"} {
		if s.Button(label) {
			h.clicked = append(h.clicked, label)
			if label == h.closeOn {
				h.closed = true
			}
		}
	}
	s.TextEdit(&h.name)
}

func (h *fakeHandler) ShouldClose() bool { return h.closed }
func (h *fakeHandler) RequestClose()     { h.closed = true }

func TestSurface(t *testing.T) {
	s := NewSurface(Input{Clicks: []string{"B", "B"}, Edits: map[int]string{1: "second"}})
	s.Label("l")
	a := s.Button("A")
	b1 := s.Button("B")
	b2 := s.Button("B")
	b3 := s.Button("B")
	first, second := "x", "y"
	s.TextEdit(&first)
	s.TextEdit(&second)

	if a || !b1 || !b2 || b3 {
		t.Errorf("buttons returned %v %v %v %v, want false true true false", a, b1, b2, b3)
	}
	if first != "x" || second != "second" {
		t.Errorf("fields are %q %q, want x second", first, second)
	}
	want := "l\n[ A ]\n[ B ]\n[ B ]\n[ B ]\n> x\n> second\n"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestBackend_Text(t *testing.T) {
	var out bytes.Buffer
	h := &fakeHandler{}
	b := &Backend{In: strings.NewReader("# comment\nclick A\ntype 0 bob\n\nframe\nquit\nclick B\n"), Out: &out}
	if err := b.Run(context.Background(), h); err != nil {
		t.Fatal(err)
	}
	want := "--- frame 1 ---\ntitle\n[ A ]\n[ B ]\n> \n" +
		"--- frame 2 ---\ntitle\n[ A ]\n[ B ]\n> bob\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A"}, h.clicked); diff != "" {
		t.Errorf("clicks (-want +got):\n%s", diff)
	}
	if !h.closed {
		t.Errorf("quit did not request close")
	}
}

func TestBackend_JSON(t *testing.T) {
	var out bytes.Buffer
	b := &Backend{In: strings.NewReader("click B\nframe\n"), Out: &out, JSON: true}
	if err := b.Run(context.Background(), &fakeHandler{}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var f Frame
	if err := json.Unmarshal([]byte(lines[1]), &f); err != nil {
		t.Fatal(err)
	}
	want := Frame{Frame: 2, Ops: []Op{
		{Kind: OpLabel, Text: "title", Style: "1"},
		{Kind: OpButton, Text: "A", Index: 0},
		{Kind: OpButton, Text: "B", Index: 1, Clicked: true},
		{Kind: OpInput, Text: "", Index: 0},
	}}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("frame (-want +got):\n%s", diff)
	}
}

func TestBackend_StopsWhenHandlerCloses(t *testing.T) {
	var out bytes.Buffer
	h := &fakeHandler{closeOn: "B"}
	b := &Backend{In: strings.NewReader("click B\nframe\nframe\nframe\n"), Out: &out}
	if err := b.Run(context.Background(), h); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out.String(), "--- frame"); n != 2 {
		t.Errorf("drew %d frames, want 2", n)
	}
}

func TestBackend_LongLine(t *testing.T) {
	long := strings.Repeat("abcdefgh", 100<<10/8)
	var out bytes.Buffer
	h := &fakeHandler{}
	b := &Backend{In: strings.NewReader("type 0 " + long + "\nframe\n"), Out: &out}
	if err := b.Run(context.Background(), h); err != nil {
		t.Fatal(err)
	}
	if h.name != long {
		t.Errorf("field has %d bytes, want %d", len(h.name), len(long))
	}
	if !strings.Contains(out.String(), "> "+long+"\n") {
		t.Errorf("second frame does not show the typed text")
	}
}

func TestBackend_MaxFrames(t *testing.T) {
	var out bytes.Buffer
	b := &Backend{In: strings.NewReader("frame\nframe\nframe\n"), Out: &out, MaxFrames: 2}
	if err := b.Run(context.Background(), &fakeHandler{}); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out.String(), "--- frame"); n != 2 {
		t.Errorf("drew %d frames, want 2", n)
	}
}

func TestBackend_BadCommands(t *testing.T) {
	for _, test := range []struct{ in, msg string }{
		{"dance\n", `line 1: unknown command "dance"`},
		{"frame\ntype x y\n", `line 2: bad field index "x"`},
	} {
		b := &Backend{In: strings.NewReader(test.in), Out: &bytes.Buffer{}}
		err := b.Run(context.Background(), &fakeHandler{})
		if err == nil || err.Error() != test.msg {
			t.Errorf("input %q: got error %v, want %s", test.in, err, test.msg)
		}
	}
}

func TestBackend_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Backend{In: strings.NewReader("frame\n"), Out: &bytes.Buffer{}}
	if err := b.Run(ctx, &fakeHandler{}); err != context.Canceled {
		t.Errorf("got error %v, want context.Canceled", err)
	}
}
