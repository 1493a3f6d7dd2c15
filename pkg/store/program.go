package store

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"src.vapo.dev/pkg/config"
	"src.vapo.dev/pkg/prog"
)

// Program prints the change journal named in the configuration file.
type Program struct {
	changes bool
	config  *string
	json    *bool
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.changes, "changes", false, "Print the change journal and quit")
	p.config = fs.ConfigPath()
	p.json = fs.JSON()
}

func (p *Program) Run(fds [3]*os.File, args []string) error {
	if !p.changes {
		return prog.ErrNextProgram
	}
	if len(args) > 0 {
		return prog.BadUsage("-changes takes no arguments")
	}
	cfg, err := config.Load(*p.config)
	if err != nil {
		return err
	}
	if cfg.Journal == "" {
		return fmt.Errorf("no journal configured")
	}
	if _, err := os.Stat(cfg.Journal); err != nil {
		return fmt.Errorf("cannot open journal: %w", err)
	}
	st, err := NewStore(cfg.Journal)
	if err != nil {
		return fmt.Errorf("cannot open journal: %w", err)
	}
	defer st.Close()

	changes, err := st.Changes(0, math.MaxInt)
	if err != nil {
		return err
	}
	for _, c := range changes {
		if *p.json {
			b, err := json.Marshal(jsonChange{c.Seq, c})
			if err != nil {
				return err
			}
			fmt.Fprintf(fds[1], "%s\n", b)
		} else {
			fmt.Fprintf(fds[1], "%d\t%s\tcell %d\tframe %d\t%s -> %s\n",
				c.Seq, c.Time.Format(time.RFC3339), c.Cell, c.Frame,
				strconv.Quote(c.Before), strconv.Quote(c.After))
		}
	}
	return nil
}

// The JSON form of a Change in the output of -changes, which includes the
// sequence number.
type jsonChange struct {
	Seq int `json:"seq"`
	Change
}
