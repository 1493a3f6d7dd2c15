package term

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"src.vapo.dev/pkg/logutil"
	"src.vapo.dev/pkg/ui"
)

var logger = logutil.GetLogger("[term] ")

// Event is a key decoded from terminal input, or the error that ended the
// input.
type Event struct {
	Key ui.Key
	Err error
}

// Timeout for bytes in escape sequences. Modern terminal emulators send escape
// sequences very fast, so 10ms is more than sufficient. SSH connections on a
// slow link might be problematic though.
var keySeqTimeout = 10 * time.Millisecond

// Used by readRune to signal end of current sequence.
const runeEndOfSeq rune = -1

type seqError struct {
	msg string
	seq string
}

func (err seqError) Error() string {
	return fmt.Sprintf("%s: %q", err.msg, err.seq)
}

// NewReader starts decoding keys from r, and returns a channel on which they
// are delivered. The channel is closed after an event with a non-nil Err,
// which is io.EOF when the input ends. Malformed escape sequences are logged
// and skipped.
//
// Decoding happens on a separate goroutine, which exits when r returns an
// error.
func NewReader(r io.Reader) <-chan Event {
	runes := make(chan rune)
	events := make(chan Event)
	var readErr error
	go func() {
		defer close(runes)
		br := bufio.NewReader(r)
		for {
			r, _, err := br.ReadRune()
			if err != nil {
				readErr = err
				return
			}
			runes <- r
		}
	}()
	go func() {
		defer close(events)
		for {
			k, err := readKey(runes)
			if err == io.EOF {
				// Written before runes was closed.
				err = readErr
			}
			if se, ok := err.(seqError); ok {
				logger.Debugf("skipping key sequence: %v", se)
				continue
			}
			if err != nil {
				events <- Event{Err: err}
				return
			}
			events <- Event{Key: k}
		}
	}()
	return events
}

func readKey(runes <-chan rune) (key ui.Key, err error) {
	r, ok := <-runes
	if !ok {
		return ui.Key{}, io.EOF
	}

	currentSeq := string(r)
	// Attempts to read a rune within a timeout of keySeqTimeout. It returns
	// runeEndOfSeq if the sequence ends; the caller should terminate the
	// current sequence when it sees that value.
	readRune := func() rune {
		select {
		case r, ok := <-runes:
			if !ok {
				return runeEndOfSeq
			}
			currentSeq += string(r)
			return r
		case <-time.After(keySeqTimeout):
			return runeEndOfSeq
		}
	}
	badSeq := func(msg string) {
		err = seqError{msg, currentSeq}
	}

	if r != 0x1b {
		return ctrlModify(r), nil
	}
	r2 := readRune()
	switch r2 {
	case runeEndOfSeq:
		// Nothing follows. Taken as a lone Escape.
		return ui.K('[', ui.Ctrl), nil
	case '[':
		// A '[' follows. CSI style function key sequence.
		nums := make([]int, 0, 2)
		r = readRune()
	CSISeq:
		for {
			switch {
			case r == ';':
				nums = append(nums, 0)
			case '0' <= r && r <= '9':
				if len(nums) == 0 {
					nums = append(nums, 0)
				}
				cur := len(nums) - 1
				nums[cur] = nums[cur]*10 + int(r-'0')
			case r == runeEndOfSeq:
				badSeq("incomplete CSI")
				return
			default: // Treat as a terminator.
				break CSISeq
			}
			r = readRune()
		}
		if r == '~' && len(nums) >= 1 {
			if k, ok := csiSeqTilde[nums[0]]; ok {
				return ui.K(k), nil
			}
		} else if k, ok := csiSeqByLast[r]; ok {
			return k, nil
		}
		badSeq("bad CSI")
		return
	case 'O':
		// An 'O' follows. G3 style function key sequence: read one rune.
		r = readRune()
		if k, ok := g3Seq[r]; ok {
			return k, nil
		}
		if r == runeEndOfSeq {
			// Nothing follows after 'O'. Taken as Alt-O.
			return ui.K('O', ui.Alt), nil
		}
		badSeq("bad G3")
		return
	default:
		// Something other than '[' or 'O' follows. Taken as an
		// Alt-modified key, possibly also modified by Ctrl.
		k := ctrlModify(r2)
		k.Mod |= ui.Alt
		return k, nil
	}
}

// Determines whether a rune corresponds to a Ctrl-modified key and returns the
// ui.Key the rune represents.
func ctrlModify(r rune) ui.Key {
	switch r {
	case '\n':
		return ui.K(ui.Enter)
	case 0x08:
		return ui.K(ui.Backspace)
	case ui.Tab, ui.Enter, ui.Backspace:
		// Ambiguous Ctrl keys; prefer the non-Ctrl form as they are more likely.
		return ui.K(r)
	default:
		if 0x1 <= r && r <= 0x1d {
			return ui.K(r+0x40, ui.Ctrl)
		}
	}
	return ui.K(r)
}

// G3-style key sequences: \eO followed by exactly one character.
var g3Seq = map[rune]ui.Key{
	'A': ui.K(ui.Up), 'B': ui.K(ui.Down), 'C': ui.K(ui.Right), 'D': ui.K(ui.Left),
	'H': ui.K(ui.Home), 'F': ui.K(ui.End),
}

// CSI-style key sequences identified by the last rune. For instance, \e[A is
// Up.
var csiSeqByLast = map[rune]ui.Key{
	'A': ui.K(ui.Up), 'B': ui.K(ui.Down), 'C': ui.K(ui.Right), 'D': ui.K(ui.Left),
	'H': ui.K(ui.Home), 'F': ui.K(ui.End),
	'Z': ui.K(ui.Tab, ui.Shift),
}

// CSI-style key sequences ending with '~', identified by the first argument.
// For instance, \e[3~ is Delete.
var csiSeqTilde = map[int]rune{
	1: ui.Home, 4: ui.End, 7: ui.Home, 8: ui.End,
	3: ui.Delete,
}
