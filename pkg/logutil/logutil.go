// Package logutil provides logging utilities.
//
// All loggers write to one shared output, which discards everything until
// SetOutput or SetOutputFile is called. The terminal backend owns the screen,
// so logs are never written to the terminal by default.
package logutil

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	out     io.Writer = io.Discard
	outFile *os.File

	core = zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.AddSync(sharedWriter{}),
		zap.DebugLevel)
)

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

type sharedWriter struct{}

func (sharedWriter) Write(p []byte) (int, error) {
	mu.Lock()
	defer mu.Unlock()
	return out.Write(p)
}

// GetLogger gets a logger with the given name.
func GetLogger(name string) *zap.SugaredLogger {
	return zap.New(core).Named(name).Sugar()
}

// SetOutput redirects the output of all loggers obtained with GetLogger to
// the new io.Writer. If the old output was a file opened by SetOutputFile, it
// is closed.
func SetOutput(newout io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if outFile != nil {
		outFile.Close()
		outFile = nil
	}
	out = newout
}

// SetOutputFile redirects the output of loggers obtained with GetLogger to
// the named file, which is created if needed and appended to otherwise. An
// empty name discards all output.
func SetOutputFile(fname string) error {
	if fname == "" {
		SetOutput(io.Discard)
		return nil
	}
	file, err := os.OpenFile(fname, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	SetOutput(file)
	mu.Lock()
	outFile = file
	mu.Unlock()
	return nil
}
