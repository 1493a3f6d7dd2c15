package tt

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// testT implements the T interface and is used to verify the Test function's
// interaction with T.
type testT []string

func (t *testT) Helper() {}

func (t *testT) Errorf(format string, args ...any) {
	*t = append(*t, fmt.Sprintf(format, args...))
}

func add(x, y int) int { return x + y }

func addsub(x, y int) (int, int) { return x + y, x - y }

func failIfNegative(x int) error {
	if x < 0 {
		return errors.New("negative argument")
	}
	return nil
}

func TestTTPass(t *testing.T) {
	var testT testT
	Test(&testT, Fn("addsub", addsub), Table{
		Args(1, 10).Rets(11, -9),
		Args(1, 10).Rets(Any, -9),
	})
	Test(&testT, Fn("failIfNegative", failIfNegative), Table{
		Args(1).Rets(nil),
		Args(-1).Rets(ErrorMatching("negative")),
	})
	if len(testT) > 0 {
		t.Errorf("Test errors when test should pass: %v", testT)
	}
}

func TestTTFailOneReturn(t *testing.T) {
	var testT testT
	Test(&testT, Fn("add", add), Table{Args(1, 10).Rets(12)})
	assertOneError(t, testT, "add(1, 10) returns (-want +got):\n")
}

func TestTTFailMultiReturn(t *testing.T) {
	var testT testT
	Test(&testT, Fn("addsub", addsub), Table{Args(1, 10).Rets(11, -90)})
	assertOneError(t, testT, "addsub(1, 10) returns (-want +got):\n")
}

func TestTTFailCustomFmt(t *testing.T) {
	var testT testT
	Test(&testT,
		Fn("addsub", addsub).ArgsFmt("x = %d, y = %d"),
		Table{Args(1, 10).Rets(11, -90)})
	assertOneError(t, testT, "addsub(x = 1, y = 10) returns (-want +got):\n")
}

func TestTTFailErrorMatching(t *testing.T) {
	var testT testT
	Test(&testT, Fn("failIfNegative", failIfNegative), Table{
		Args(1).Rets(ErrorMatching("negative")),
	})
	assertOneError(t, testT, "failIfNegative(1) returns")
}

func assertOneError(t *testing.T, testT testT, wantPrefix string) {
	t.Helper()
	switch len(testT) {
	case 0:
		t.Errorf("Test didn't error when it should have done so")
	case 1:
		if !strings.HasPrefix(testT[0], wantPrefix) {
			t.Errorf("Test wrote message:\nwant: %q...\ngot: %q", wantPrefix, testT[0])
		}
	default:
		t.Errorf("Test wrote too many error messages")
	}
}
