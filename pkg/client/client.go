// Package client talks to a dongle from the host side.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/dongle/pkg/wire"
)

// DefaultTimeout bounds how long a command waits for its reply.
const DefaultTimeout = 3 * time.Second

var (
	// ErrNoReply indicates no reply arrived in time, or the device
	// restarted before replying.
	ErrNoReply = errors.New("no reply")
	// ErrClosed indicates the transport is gone.
	ErrClosed = errors.New("connection closed")
	// ErrUnexpectedReply indicates a reply not matching the command.
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// Result is the outcome of a command.
type Result struct {
	Response wire.Response
	Err      error
}

// Command is a request waiting for its reply.
type Command struct {
	Line string
	Kind wire.CommandKind

	resultCh  chan Result
	next      *Command
	abandoned bool
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// deliver completes the command unless it's already completed.
func (c *Command) deliver(res Result) {
	select {
	case c.resultCh <- res:
	default:
	}
}

// Client sends command lines and pairs replies with them. The device
// answers in order, so pending commands are kept in a FIFO list.
type Client struct {
	Timeout time.Duration

	rw        io.ReadWriter
	eventCh   chan wire.Response
	cmdsHead  *Command
	cmdsTail  *Command
	cmdsLock  sync.Mutex
	writeLock sync.Mutex
}

// NewClient creates a client over the transport.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{
		Timeout: DefaultTimeout,
		rw:      rw,
		eventCh: make(chan wire.Response, 4),
	}
}

// EventChan delivers unsolicited lines, like the ready announcement
// after the device restarts.
func (c *Client) EventChan() <-chan wire.Response {
	return c.eventCh
}

// Do sends a line and returns the Command to wait on.
func (c *Client) Do(line string) *Command {
	cmd := &Command{
		Line:     line,
		Kind:     wire.ParseCommand(line).Kind,
		resultCh: make(chan Result, 1),
	}
	if err := wire.ValidateLine(line); err != nil {
		cmd.resultCh <- Result{Err: err}
		return cmd
	}
	c.cmdsLock.Lock()
	if c.cmdsHead == nil {
		c.cmdsHead = cmd
	} else {
		c.cmdsTail.next = cmd
	}
	c.cmdsTail = cmd
	c.cmdsLock.Unlock()

	c.writeLock.Lock()
	_, err := io.WriteString(c.rw, line+"\n")
	c.writeLock.Unlock()
	if err != nil {
		c.remove(cmd)
		cmd.deliver(Result{Err: fmt.Errorf("send %q: %w", line, err)})
		return cmd
	}
	glog.V(2).Infof("TX %q", line)
	return cmd
}

// Exec sends a line and waits for the reply. A device ERR reply
// returns the response along with a *wire.ResponseError.
func (c *Client) Exec(ctx context.Context, line string) (wire.Response, error) {
	cmd := c.Do(line)
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-cmd.resultCh:
		if res.Err != nil {
			return res.Response, res.Err
		}
		if err := res.Response.Err(); err != nil {
			return res.Response, err
		}
		if !res.Response.Answers(cmd.Kind) {
			return res.Response, fmt.Errorf("%w %q to %q", ErrUnexpectedReply, res.Response.Line, line)
		}
		return res.Response, nil
	case <-timer.C:
		c.abandon(cmd)
		return wire.Response{}, ErrNoReply
	case <-ctx.Done():
		c.abandon(cmd)
		return wire.Response{}, ctx.Err()
	}
}

// Connect opens the session, the device flashes all LEDs.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.Exec(ctx, wire.CmdConnect)
	return err
}

// Disconnect ends the session.
func (c *Client) Disconnect(ctx context.Context) error {
	_, err := c.Exec(ctx, wire.CmdDisconnect)
	return err
}

// GetCode reads slot n (1-3).
func (c *Client) GetCode(ctx context.Context, n int) (string, error) {
	line, err := wire.GetCodeRequest(n)
	if err != nil {
		return "", err
	}
	resp, err := c.Exec(ctx, line)
	if err != nil {
		return "", err
	}
	if resp.Slot != n {
		return "", fmt.Errorf("%w %q to %q", ErrUnexpectedReply, resp.Line, line)
	}
	return resp.Value, nil
}

// SetCode writes slot n (1-3).
func (c *Client) SetCode(ctx context.Context, n int, value string) error {
	line, err := wire.SetCodeRequest(n, value)
	if err != nil {
		return err
	}
	_, err = c.Exec(ctx, line)
	return err
}

// Status returns how many slots hold a code.
func (c *Client) Status(ctx context.Context) (int, error) {
	resp, err := c.Exec(ctx, wire.CmdStatus)
	if err != nil {
		return 0, err
	}
	return resp.Stored, nil
}

// Run reads reply lines until the transport fails or ctx is done.
// Commands still pending then fail with ErrClosed.
func (c *Client) Run(ctx context.Context) error {
	lineCh, errCh := make(chan string), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.readLoop(subCtx, lineCh, errCh)
	defer c.failAll(ErrClosed)
	for {
		select {
		case line := <-lineCh:
			c.HandleLine(line)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HandleLine dispatches a received line.
func (c *Client) HandleLine(line string) {
	resp := wire.ParseResponse(line)
	if resp.Line == "" {
		return
	}
	glog.V(2).Infof("RX %q", resp.Line)
	if resp.Kind == wire.RespKindReady {
		// the device restarted, nothing pending will be answered.
		c.failAll(ErrNoReply)
		select {
		case c.eventCh <- resp:
		default:
			glog.Warningf("event dropped: %q", resp.Line)
		}
		return
	}

	c.cmdsLock.Lock()
	// replies to commands given up on may still arrive, skip those
	// which surely don't own this reply.
	for c.cmdsHead != nil && c.cmdsHead.abandoned && !resp.Answers(c.cmdsHead.Kind) {
		c.popLocked()
	}
	cmd := c.popLocked()
	abandoned := cmd != nil && cmd.abandoned
	c.cmdsLock.Unlock()

	switch {
	case cmd == nil:
		glog.Warningf("unsolicited reply %q", resp.Line)
	case abandoned:
		glog.V(1).Infof("late reply %q to %q dropped", resp.Line, cmd.Line)
	default:
		cmd.deliver(Result{Response: resp})
	}
}

func (c *Client) popLocked() *Command {
	cmd := c.cmdsHead
	if cmd == nil {
		return nil
	}
	if c.cmdsHead = cmd.next; c.cmdsHead == nil {
		c.cmdsTail = nil
	}
	cmd.next = nil
	return cmd
}

func (c *Client) abandon(cmd *Command) {
	c.cmdsLock.Lock()
	cmd.abandoned = true
	c.cmdsLock.Unlock()
}

func (c *Client) remove(cmd *Command) {
	c.cmdsLock.Lock()
	defer c.cmdsLock.Unlock()
	var prev *Command
	for curr := c.cmdsHead; curr != nil; prev, curr = curr, curr.next {
		if curr != cmd {
			continue
		}
		if prev == nil {
			c.cmdsHead = curr.next
		} else {
			prev.next = curr.next
		}
		if c.cmdsTail == curr {
			c.cmdsTail = prev
		}
		curr.next = nil
		return
	}
}

func (c *Client) failAll(err error) {
	var waiting []*Command
	c.cmdsLock.Lock()
	for cmd := c.popLocked(); cmd != nil; cmd = c.popLocked() {
		if !cmd.abandoned {
			waiting = append(waiting, cmd)
		}
	}
	c.cmdsLock.Unlock()
	for _, cmd := range waiting {
		cmd.deliver(Result{Err: err})
	}
}

func (c *Client) readLoop(ctx context.Context, lineCh chan string, errCh chan error) {
	reader := bufio.NewReader(c.rw)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			select {
			case lineCh <- line:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}
