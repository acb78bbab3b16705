package hal

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// DefaultWebsocketPath is where the emulator accepts connections.
const DefaultWebsocketPath = "/uart"

// ServeWebsocket accepts websocket connections on addr and hands each
// one to handle as a raw byte stream. The connection is closed when
// handle returns. It returns when ctx is done.
func ServeWebsocket(ctx context.Context, addr, path string, handle func(io.ReadWriteCloser)) error {
	if path == "" {
		path = DefaultWebsocketPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		glog.Infof("websocket %s connected", conn.Request().RemoteAddr)
		handle(conn)
		glog.Infof("websocket %s closed", conn.Request().RemoteAddr)
	}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	err := srv.ListenAndServe()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// DialWebsocket connects to an emulator, e.g. ws://localhost:8080/uart.
func DialWebsocket(url string) (io.ReadWriteCloser, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// Port is an io.Writer forwarding to the currently attached
// connection. Writes with nothing attached are discarded, the same
// as a UART with its TX line unplugged.
type Port struct {
	w    io.Writer
	lock sync.Mutex
}

// Attach makes w the destination of further writes.
func (p *Port) Attach(w io.Writer) {
	p.lock.Lock()
	p.w = w
	p.lock.Unlock()
}

// Detach removes w if it's still attached.
func (p *Port) Detach(w io.Writer) {
	p.lock.Lock()
	if p.w == w {
		p.w = nil
	}
	p.lock.Unlock()
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.w == nil {
		return len(b), nil
	}
	return p.w.Write(b)
}
