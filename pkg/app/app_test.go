package app

import (
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"src.vapo.dev/pkg/dispatch"
	"src.vapo.dev/pkg/must"
	. "src.vapo.dev/pkg/prog/progtest"
	"src.vapo.dev/pkg/store"
	"src.vapo.dev/pkg/testutil"
)

const counterScript = `
local count = vapo.dint(0)
local name = vapo.dstr("")
vapo.draw = function(ctx)
	ctx:label("count " .. tostring(count))
	if ctx:button("+") then count:add(1) end
	ctx:input(name)
	ctx:label("hello " .. name)
end
`

func TestProgram_Headless(t *testing.T) {
	testutil.InTempDir(t)
	must.WriteFile("vapo.lua", counterScript)

	Test(t, &Program{},
		ThatVapo().WithStdin("click +\nframe\ntype 0 bob\nframe\n").WritesStdout(
			"--- frame 1 ---\ncount 0\n[ + ]\n> \nhello \n"+
				"--- frame 2 ---\ncount 0\n[ + ]\n> \nhello \n"+
				"--- frame 3 ---\ncount 1\n[ + ]\n> bob\nhello bob\n"),
		ThatVapo("-backend", "headless", "-json").WithStdin("quit\n").WritesStdout(
			`{"frame":1,"ops":[{"kind":"label","text":"count 0","index":0},`+
				`{"kind":"button","text":"+","index":0},`+
				`{"kind":"input","text":"","index":0},`+
				`{"kind":"label","text":"hello ","index":0}]}`+"\n"),
	)
}

func TestProgram_ScriptArgumentAndConfig(t *testing.T) {
	testutil.InTempDir(t)
	must.WriteFile("other.lua", `vapo.draw = function(ctx) ctx:label("other") end`)
	must.WriteFile("two.yaml", "frames: 2\n")

	Test(t, &Program{},
		ThatVapo("other.lua").WritesStdout("--- frame 1 ---\nother\n"),
		ThatVapo("-config", "two.yaml", "other.lua").WithStdin("frame\nframe\nframe\n").
			WritesStdout("--- frame 1 ---\nother\n--- frame 2 ---\nother\n"),
		ThatVapo("a.lua", "b.lua").
			ExitsWith(2).WritesStderrContaining("at most one script may be given\nUsage:"),
		ThatVapo("-backend", "sdl", "other.lua").
			ExitsWith(2).WritesStderrContaining(`unknown backend "sdl"`),
		ThatVapo("-config", "missing.yaml", "other.lua").
			ExitsWith(2).WritesStderrContaining("missing.yaml"),
	)
}

func TestProgram_LoadErrors(t *testing.T) {
	testutil.InTempDir(t)
	must.WriteFile("syntax.lua", "vapo.draw = function(ctx\n")
	must.WriteFile("nodraw.lua", "local x = 1\n")
	must.WriteFile("quit.lua", "vapo.quit()\nvapo.draw = function(ctx) ctx:label('bye') end\n")

	Test(t, &Program{},
		ThatVapo("missing.lua").
			ExitsWith(2).WritesStderrContaining("cannot load missing.lua (read)"),
		ThatVapo("syntax.lua").
			ExitsWith(2).WritesStderrContaining("cannot load syntax.lua (parse)"),
		ThatVapo("nodraw.lua").
			ExitsWith(2).WritesStderrContaining("vapo.draw is not a function"),
		ThatVapo("quit.lua").WithStdin("frame\n").WritesStdout("--- frame 1 ---\nbye\n"),
	)
}

func TestProgram_ErrorScreen(t *testing.T) {
	testutil.InTempDir(t)
	must.WriteFile("vapo.lua", `vapo.draw = function(ctx) error("boom") end`)

	exit, stdout, _ := Run(&Program{}, "frame\nclick Quit\nframe\nframe\n", "vapo")
	if exit != 0 {
		t.Errorf("exit = %d, want 0", exit)
	}
	frames := strings.Split(stdout, "--- frame ")
	if len(frames) != 4 {
		t.Fatalf("got %d frames, want 3:\n%s", len(frames)-1, stdout)
	}
	if !strings.HasPrefix(frames[2], "2 ---\n"+dispatch.ErrorBanner+"\n") ||
		!strings.Contains(frames[2], "boom") ||
		!strings.HasSuffix(frames[2], "[ "+dispatch.QuitLabel+" ]\n") {
		t.Errorf("frame 2 is not the error screen:\n%s", frames[2])
	}
}

func TestProgram_InvariantViolation(t *testing.T) {
	testutil.InTempDir(t)
	must.WriteFile("vapo.lua", `
local saved
vapo.draw = function(ctx)
	if saved then saved:label("stale") end
	saved = ctx
end
`)
	Test(t, &Program{},
		ThatVapo().WithStdin("frame\n").
			ExitsWith(2).
			WritesStdout("--- frame 1 ---\n").
			WritesStderrContaining("fatal: invariant violation"),
	)
}

func TestProgram_Journal(t *testing.T) {
	testutil.InTempDir(t)
	must.WriteFile("vapo.lua", counterScript)
	must.WriteFile("vapo.yaml", "journal: changes.db\n")

	exit, _, stderr := Run(&Program{}, "type 0 al\nframe\ntype 0 al\nframe\ntype 0 alice\nframe\n", "vapo")
	if exit != 0 {
		t.Fatalf("exit = %d, stderr = %q", exit, stderr)
	}

	st, err := store.NewStore("changes.db")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	changes, err := st.Changes(0, math.MaxInt)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 2 ||
		changes[0].Before != "" || changes[0].After != "al" || changes[0].Frame != 2 ||
		changes[1].Before != "al" || changes[1].After != "alice" || changes[1].Frame != 4 {
		t.Errorf("journal = %+v", changes)
	}
}

func TestProgram_LoadErrorLeavesNothingBehind(t *testing.T) {
	testutil.InTempDir(t)
	must.WriteFile("vapo.lua", "vapo.draw = function(ctx\n")
	// An address that cannot be listened on; opening it first would fail
	// with another error.
	must.WriteFile("vapo.yaml", "journal: changes.db\nmetrics: 'bad address'\n")

	exit, _, stderr := Run(&Program{}, "", "vapo")
	if exit != 2 {
		t.Errorf("exit = %d, want 2", exit)
	}
	if !strings.Contains(stderr, "cannot load vapo.lua (parse)") {
		t.Errorf("stderr = %q, want load error", stderr)
	}
	if strings.Contains(stderr, "cannot serve metrics") {
		t.Errorf("metrics served before the script was loaded")
	}
	if _, err := os.Stat("changes.db"); !os.IsNotExist(err) {
		t.Errorf("journal created before the script was loaded: %v", err)
	}
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	dispatch.NewMetrics(reg).Frames.Add(3)
	addr, stop, err := serveMetrics("127.0.0.1:0", reg)
	if err != nil {
		t.Skip("cannot listen:", err)
	}
	defer stop()

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "vapo_frames_total 3") {
		t.Errorf("metrics output does not contain the frame counter:\n%s", body)
	}
}
