// Package rpc implements a backend driven by a remote renderer over JSON-RPC
// 2.0, using the header framing of the language server protocol.
//
// The renderer sends a "frame" request for every frame, with the input
// collected since the previous one as parameters, and receives the drawing
// operations of the frame. A "quit" request closes the backend.
package rpc

import (
	"context"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/jsonrpc2"
	"src.vapo.dev/pkg/backend"
	"src.vapo.dev/pkg/backend/headless"
	"src.vapo.dev/pkg/logutil"
)

var logger = logutil.GetLogger("[rpc] ")

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

// FrameParams are the parameters of the frame method.
type FrameParams = headless.Input

// FrameResult is the result of the frame method.
type FrameResult struct {
	Frame       int           `json:"frame"`
	Ops         []headless.Op `json:"ops"`
	ShouldClose bool          `json:"shouldClose"`
}

// Backend serves the renderer connected through Conn.
type Backend struct {
	Conn io.ReadWriteCloser
}

var _ backend.Backend = (*Backend)(nil)

// Stdio joins an input and an output file into a connection.
type Stdio struct{ In, Out *os.File }

func (c Stdio) Read(p []byte) (int, error)  { return c.In.Read(p) }
func (c Stdio) Write(p []byte) (int, error) { return c.Out.Write(p) }

func (c Stdio) Close() error {
	if err := c.In.Close(); err != nil {
		c.Out.Close()
		return err
	}
	return c.Out.Close()
}

type call struct {
	conn *jsonrpc2.Conn
	req  *jsonrpc2.Request
}

// Forwards requests to the frame loop, so that frames are drawn on the
// goroutine that called Run.
type forwarder struct {
	calls chan<- call
	done  <-chan struct{}
}

func (f forwarder) Handle(_ context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	select {
	case f.calls <- call{conn, req}:
	case <-f.done:
	}
}

func (b *Backend) Run(ctx context.Context, h backend.Handler) error {
	calls := make(chan call)
	done := make(chan struct{})
	defer close(done)

	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(b.Conn, jsonrpc2.VSCodeObjectCodec{}),
		forwarder{calls, done})
	defer conn.Close()

	frames := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-conn.DisconnectNotify():
			logger.Info("renderer disconnected")
			h.RequestClose()
			return nil
		case c := <-calls:
			var result any
			var rpcErr *jsonrpc2.Error
			switch c.req.Method {
			case "frame":
				var params FrameParams
				if c.req.Params != nil && json.Unmarshal(*c.req.Params, &params) != nil {
					rpcErr = errInvalidParams
					break
				}
				frames++
				s := headless.NewSurface(params)
				h.OnFrame(s)
				ops := s.Ops
				if ops == nil {
					ops = []headless.Op{}
				}
				result = FrameResult{frames, ops, h.ShouldClose()}
			case "quit":
				h.RequestClose()
			default:
				rpcErr = errMethodNotFound
			}

			if !c.req.Notif {
				var err error
				if rpcErr != nil {
					err = c.conn.ReplyWithError(ctx, c.req.ID, rpcErr)
				} else {
					err = c.conn.Reply(ctx, c.req.ID, result)
				}
				if err != nil {
					return err
				}
			}
			if h.ShouldClose() {
				return nil
			}
		}
	}
}
