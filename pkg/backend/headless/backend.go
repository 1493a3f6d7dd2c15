package headless

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"src.vapo.dev/pkg/backend"
	"src.vapo.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[headless] ")

// Backend reads commands from In, one per line, and writes every frame to
// Out. The commands are:
//
//	click LABEL    activate the button LABEL in the next frame
//	type N TEXT    set the content of the N-th input field in the next frame
//	frame          draw a frame with the pending clicks and edits
//	quit           request close and stop
//
// Blank lines and lines starting with # are ignored. One frame is drawn
// before the first command is read. Lines may be up to MaxLine bytes long.
type Backend struct {
	In  io.Reader
	Out io.Writer
	// Write frames as JSON objects, one per line.
	JSON bool
	// Stop after this many frames. Zero means no limit.
	MaxFrames int
}

var _ backend.Backend = (*Backend)(nil)

// MaxLine is the maximum length of a command line.
const MaxLine = 16 << 20

// Frame is the JSON representation of a drawn frame.
type Frame struct {
	Frame int  `json:"frame"`
	Ops   []Op `json:"ops"`
}

func (b *Backend) Run(ctx context.Context, h backend.Handler) error {
	frames := 0
	var pending Input
	drawFrame := func() (bool, error) {
		frames++
		s := NewSurface(pending)
		pending = Input{}
		h.OnFrame(s)
		if err := b.write(frames, s); err != nil {
			return false, err
		}
		return h.ShouldClose() || (b.MaxFrames > 0 && frames >= b.MaxFrames), nil
	}

	if done, err := drawFrame(); done || err != nil {
		return err
	}
	scanner := bufio.NewScanner(b.In)
	scanner.Buffer(make([]byte, 0, 64<<10), MaxLine)
	for lineno := 1; scanner.Scan(); lineno++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "click":
			pending.Clicks = append(pending.Clicks, arg)
		case "type":
			nstr, text, _ := strings.Cut(arg, " ")
			n, err := strconv.Atoi(nstr)
			if err != nil || n < 0 {
				return fmt.Errorf("line %d: bad field index %q", lineno, nstr)
			}
			if pending.Edits == nil {
				pending.Edits = make(map[int]string)
			}
			pending.Edits[n] = text
		case "frame":
			if done, err := drawFrame(); done || err != nil {
				return err
			}
		case "quit":
			logger.Infof("quit command on line %d", lineno)
			h.RequestClose()
			return nil
		default:
			return fmt.Errorf("line %d: unknown command %q", lineno, cmd)
		}
	}
	return scanner.Err()
}

func (b *Backend) write(n int, s *Surface) error {
	if b.JSON {
		ops := s.Ops
		if ops == nil {
			ops = []Op{}
		}
		return json.NewEncoder(b.Out).Encode(Frame{n, ops})
	}
	_, err := fmt.Fprintf(b.Out, "--- frame %d ---\n%s", n, s)
	return err
}
