// Package progtest contains utilities for testing [prog.Program] instances.
package progtest

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"src.vapo.dev/pkg/must"
	"src.vapo.dev/pkg/prog"
)

// Case is a test case for Test, built with ThatVapo.
type Case struct {
	args  []string
	stdin string
	want  result
}

type result struct {
	exit           int
	stdout, stderr output
}

type output struct {
	content  string
	contains bool
}

func (o output) match(s string) bool {
	if o.contains {
		return strings.Contains(s, o.content)
	}
	return s == o.content
}

// ThatVapo returns a new Case with the specified CLI arguments.
//
// The new Case expects the program run to exit with 0, and write nothing to
// stdout or stderr.
//
// When combined with subsequent method calls, a test case reads like English.
// For example, a test for the fact that "vapo -bad-flag" exits with 2 reads:
//
//	ThatVapo("-bad-flag").ExitsWith(2)
func ThatVapo(args ...string) Case {
	return Case{args: append([]string{"vapo"}, args...)}
}

// WithStdin returns an altered Case that provides the given input to stdin.
func (c Case) WithStdin(s string) Case {
	c.stdin = s
	return c
}

// DoesNothing returns c itself. It is useful to mark tests that otherwise
// don't have any expectations.
func (c Case) DoesNothing() Case { return c }

// ExitsWith returns an altered Case that requires the program to exit with
// the given status.
func (c Case) ExitsWith(code int) Case {
	c.want.exit = code
	return c
}

// WritesStdout returns an altered Case that requires the program to write
// exactly the given text to stdout.
func (c Case) WritesStdout(s string) Case {
	c.want.stdout = output{content: s}
	return c
}

// WritesStdoutContaining returns an altered Case that requires the program to
// write output to stdout that contains the given text as a substring.
func (c Case) WritesStdoutContaining(s string) Case {
	c.want.stdout = output{content: s, contains: true}
	return c
}

// WritesStderr returns an altered Case that requires the program to write
// exactly the given text to stderr.
func (c Case) WritesStderr(s string) Case {
	c.want.stderr = output{content: s}
	return c
}

// WritesStderrContaining returns an altered Case that requires the program to
// write output to stderr that contains the given text as a substring.
func (c Case) WritesStderrContaining(s string) Case {
	c.want.stderr = output{content: s, contains: true}
	return c
}

// Test runs test cases against a given program.
func Test(t *testing.T, p prog.Program, cases ...Case) {
	t.Helper()
	for _, c := range cases {
		t.Run(strings.Join(c.args, " "), func(t *testing.T) {
			t.Helper()
			exit, stdout, stderr := Run(p, c.stdin, c.args...)
			if exit != c.want.exit {
				t.Errorf("got exit %v, want %v", exit, c.want.exit)
			}
			if !c.want.stdout.match(stdout) {
				t.Errorf("got stdout %q, want %s", stdout, describe(c.want.stdout))
			}
			if !c.want.stderr.match(stderr) {
				t.Errorf("got stderr %q, want %s", stderr, describe(c.want.stderr))
			}
		})
	}
}

func describe(o output) string {
	if o.contains {
		return "containing " + strconv.Quote(o.content)
	}
	return strconv.Quote(o.content)
}

// Run runs a program with the given stdin and arguments, and returns its exit
// status and output. The first element of args is the program name.
func Run(p prog.Program, stdin string, args ...string) (exit int, stdout, stderr string) {
	r0, w0 := must.Pipe()
	r1, w1 := must.Pipe()
	r2, w2 := must.Pipe()
	go func() {
		w0.WriteString(stdin)
		w0.Close()
	}()
	outCh, errCh := readAsync(r1), readAsync(r2)

	exit = prog.Run([3]*os.File{r0, w1, w2}, args, p)
	r0.Close()
	w1.Close()
	w2.Close()
	return exit, <-outCh, <-errCh
}

func readAsync(r *os.File) <-chan string {
	ch := make(chan string, 1)
	go func() { ch <- must.ReadAllAndClose(r) }()
	return ch
}
