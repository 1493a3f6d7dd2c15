// Package app implements the main subprogram, which runs a script on one of
// the backends.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"src.vapo.dev/pkg/backend"
	"src.vapo.dev/pkg/backend/headless"
	"src.vapo.dev/pkg/backend/rpc"
	"src.vapo.dev/pkg/backend/tty"
	"src.vapo.dev/pkg/config"
	"src.vapo.dev/pkg/dispatch"
	"src.vapo.dev/pkg/frame"
	"src.vapo.dev/pkg/logutil"
	"src.vapo.dev/pkg/prog"
	"src.vapo.dev/pkg/script"
	"src.vapo.dev/pkg/store"
	"src.vapo.dev/pkg/sys"
)

var logger = logutil.GetLogger("[app] ")

// Program runs a script. It is the last subprogram and always applicable.
type Program struct {
	backend string
	config  *string
	json    *bool
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.StringVar(&p.backend, "backend", "",
		"Backend to use: auto, tty, headless or rpc; overrides the configuration file")
	p.config = fs.ConfigPath()
	p.json = fs.JSON()
}

func (p *Program) Run(fds [3]*os.File, args []string) (err error) {
	// Invariant violations abort the program after deferred cleanups.
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var violation *script.InvariantViolation
		if e, ok := r.(error); ok && errors.As(e, &violation) {
			logger.Errorw("invariant violation", "error", violation)
			err = fmt.Errorf("fatal: %w", violation)
			return
		}
		panic(r)
	}()
	if len(args) > 1 {
		return prog.BadUsage("at most one script may be given")
	}
	cfg, err := p.loadConfig(args)
	if err != nil {
		return err
	}
	if cfg.Log != "" {
		if err := logutil.SetOutputFile(cfg.Log); err != nil {
			fmt.Fprintln(fds[2], "Warning: cannot open log file:", err)
		}
	}

	// Load the script first so a broken one leaves no journal or listener.
	var d *dispatch.Dispatcher
	quitEarly := false
	rt := script.New(script.Options{Quit: func() {
		if d == nil {
			quitEarly = true
		} else {
			d.RequestClose()
		}
	}})
	defer rt.Close()
	if err := rt.Load(cfg.Script); err != nil {
		logger.Errorw("cannot load script", "path", cfg.Script, "error", err)
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if cfg.Metrics != "" {
		_, stop, err := serveMetrics(cfg.Metrics, reg)
		if err != nil {
			return fmt.Errorf("cannot serve metrics: %w", err)
		}
		defer stop()
	}

	var notifier frame.Notifier
	if cfg.Journal != "" {
		st, err := store.NewStore(cfg.Journal)
		if err != nil {
			return fmt.Errorf("cannot open journal: %w", err)
		}
		defer st.Close()
		notifier = store.Notifier(st)
	}

	errorColor, _ := cfg.ErrorColor()
	d = dispatch.New(rt, dispatch.Options{
		Notifier:   notifier,
		ErrorColor: errorColor,
		Metrics:    dispatch.NewMetrics(reg),
	})
	if quitEarly {
		d.RequestClose()
	}

	be := p.selectBackend(cfg, fds)
	logger.Infow("running", "script", cfg.Script, "backend", fmt.Sprintf("%T", be))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err = be.Run(ctx, d)
	if errors.Is(err, context.Canceled) {
		return prog.Exit(130)
	}
	return err
}

func (p *Program) loadConfig(args []string) (config.Config, error) {
	cfg, err := config.Load(*p.config)
	if err != nil {
		return cfg, err
	}
	if len(args) == 1 {
		cfg.Script = args[0]
	}
	if p.backend != "" {
		cfg.Backend = p.backend
		if err := cfg.Validate(); err != nil {
			return cfg, prog.BadUsage(err.Error())
		}
	}
	return cfg, nil
}

func (p *Program) selectBackend(cfg config.Config, fds [3]*os.File) backend.Backend {
	name := cfg.Backend
	if name == config.BackendAuto {
		name = config.BackendHeadless
		if sys.IsATTY(fds[0].Fd()) && sys.IsATTY(fds[1].Fd()) {
			name = config.BackendTTY
		}
	}
	switch name {
	case config.BackendTTY:
		return &tty.Backend{In: fds[0], Out: fds[1], Interval: cfg.Interval}
	case config.BackendRPC:
		return &rpc.Backend{Conn: rpc.Stdio{In: fds[0], Out: fds[1]}}
	default:
		return &headless.Backend{In: fds[0], Out: fds[1], JSON: *p.json, MaxFrames: cfg.Frames}
	}
}

// Starts serving the metrics in reg on addr. It returns the address listened
// on and a function that stops the server.
func serveMetrics(addr string, reg *prometheus.Registry) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Errorw("metrics server failed", "error", err)
		}
	}()
	logger.Infow("serving metrics", "addr", ln.Addr().String())
	return ln.Addr().String(), func() { srv.Close() }, nil
}
