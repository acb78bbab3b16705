package sh

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/abiosoft/ishell"
	"golang.org/x/term"

	"github.com/robotalks/dongle/pkg/client"
	"github.com/robotalks/dongle/pkg/config"
	"github.com/robotalks/dongle/pkg/wire"
)

// ErrNotConnected is returned by commands needing a dongle.
var ErrNotConnected = errors.New("not connected")

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	AutoConnect bool

	Shell     *ishell.Shell
	Config    *config.Config
	Clipboard Clipboard
	// Dial opens the port, defaults to Config.OpenPort.
	Dial func(port string) (io.ReadWriteCloser, error)
	// Out receives notices not tied to a command.
	Out io.Writer

	Conn *Conn

	copied bool
	codes  map[int]string
	lock   sync.Mutex
}

// Conn is an open port with a running client.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	Port   string
	Client *client.Client

	rwc  io.ReadWriteCloser
	done chan struct{}
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&PortCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell. It's interactive unless -e is given or
// stdin isn't a terminal.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly && term.IsTerminal(int(os.Stdin.Fd())),

		Shell:     ishell.New(),
		Config:    conf,
		Clipboard: &SystemClipboard{},
		Out:       os.Stdout,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

func (s *Shell) notice(format string, args ...interface{}) {
	if s.Out != nil {
		fmt.Fprintf(s.Out, format+"\n", args...)
	}
}

// Client returns the connected client.
func (s *Shell) Client() (*client.Client, error) {
	if s.Conn == nil {
		return nil, ErrNotConnected
	}
	return s.Conn.Client, nil
}

// Connect opens the port and sends CONNECT. An empty port uses the
// configured one.
func (s *Shell) Connect(port string) error {
	if port == "" {
		port = s.Config.Serial.Port
	}
	if port == "" {
		return config.ErrNoPort
	}
	if s.Conn != nil {
		s.Conn.close()
		s.Conn = nil
		s.setPrompt(unconnectedPrompt)
	}
	dial := s.Dial
	if dial == nil {
		dial = func(port string) (io.ReadWriteCloser, error) {
			conf := *s.Config
			conf.Serial.Port = port
			return conf.OpenPort()
		}
	}
	rwc, err := dial(port)
	if err != nil {
		return err
	}
	conn := &Conn{
		Port:   port,
		Client: client.NewClient(rwc),
		rwc:    rwc,
		done:   make(chan struct{}),
	}
	if s.Config.Client.TimeoutMs > 0 {
		conn.Client.Timeout = s.Config.ReplyTimeout()
	}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	go s.runConn(conn)
	if err := conn.Client.Connect(conn.Ctx); err != nil {
		conn.close()
		return fmt.Errorf("connect %s: %w", port, err)
	}
	s.Conn = conn
	s.setPrompt(fmt.Sprintf("[%s] > ", port))
	return nil
}

func (s *Shell) runConn(conn *Conn) {
	defer close(conn.done)
	errCh := make(chan error, 1)
	go func() { errCh <- conn.Client.Run(conn.Ctx) }()
	for {
		select {
		case evt := <-conn.Client.EventChan():
			if evt.Kind == wire.RespKindReady {
				s.notice("dongle on %s restarted, connect again", conn.Port)
			}
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.notice("%s closed: %v", conn.Port, err)
			}
			return
		}
	}
}

func (c *Conn) close() {
	c.Cancel()
	c.rwc.Close()
	<-c.done
}

// Disconnect sends DISCONNECT and closes the port. The port is closed
// even if the dongle didn't answer.
func (s *Shell) Disconnect() error {
	if s.Conn == nil {
		return ErrNotConnected
	}
	conn := s.Conn
	s.Conn = nil
	s.setPrompt(unconnectedPrompt)
	err := conn.Client.Disconnect(conn.Ctx)
	conn.close()
	return err
}

// GetCode reads slot n and puts the code on the clipboard.
func (s *Shell) GetCode(n int) (string, error) {
	code, err := s.fetchCode(n)
	if err != nil {
		return "", err
	}
	if code != "" {
		if err := s.copy(code); err != nil {
			s.notice("not copied: %v", err)
		}
	}
	return code, nil
}

func (s *Shell) fetchCode(n int) (string, error) {
	cli, err := s.Client()
	if err != nil {
		return "", err
	}
	code, err := cli.GetCode(context.Background(), n)
	if err != nil {
		return "", err
	}
	s.lock.Lock()
	if s.codes == nil {
		s.codes = make(map[int]string)
	}
	s.codes[n] = code
	s.lock.Unlock()
	return code, nil
}

// SetCode writes slot n.
func (s *Shell) SetCode(n int, value string) error {
	cli, err := s.Client()
	if err != nil {
		return err
	}
	if err := cli.SetCode(context.Background(), n, value); err != nil {
		return err
	}
	s.lock.Lock()
	if s.codes != nil {
		delete(s.codes, n)
	}
	s.lock.Unlock()
	return nil
}

// Status returns how many codes the dongle holds.
func (s *Shell) Status() (int, error) {
	cli, err := s.Client()
	if err != nil {
		return 0, err
	}
	return cli.Status(context.Background())
}

// Raw sends a line as is and returns the reply line.
func (s *Shell) Raw(line string) (string, error) {
	cli, err := s.Client()
	if err != nil {
		return "", err
	}
	resp, err := cli.Exec(context.Background(), line)
	var respErr *wire.ResponseError
	if errors.As(err, &respErr) || errors.Is(err, client.ErrUnexpectedReply) {
		return resp.Line, nil
	}
	return resp.Line, err
}

// Copy puts the code of slot n on the clipboard, fetching it unless
// it was retrieved before.
func (s *Shell) Copy(n int) error {
	s.lock.Lock()
	code, ok := s.codes[n]
	s.lock.Unlock()
	if !ok {
		var err error
		if code, err = s.fetchCode(n); err != nil {
			return err
		}
	}
	if code == "" {
		return fmt.Errorf("slot %d is empty", n)
	}
	return s.copy(code)
}

func (s *Shell) copy(text string) error {
	if s.Clipboard == nil {
		return ErrNoClipboard
	}
	if err := s.Clipboard.Copy(text); err != nil {
		return err
	}
	s.copied = true
	return nil
}

// PortInfo describes the current or configured port.
func (s *Shell) PortInfo() string {
	conf := *s.Config
	state := "disconnected"
	if s.Conn != nil {
		conf.Serial.Port = s.Conn.Port
		state = "connected"
	}
	return conf.DescribePort() + "\nState: " + state
}

// Close disconnects and wipes codes copied to the clipboard.
func (s *Shell) Close() {
	if s.Conn != nil {
		if err := s.Disconnect(); err != nil {
			s.notice("disconnect: %v", err)
		}
	}
	if s.copied && s.Clipboard != nil {
		if err := s.Clipboard.Clear(); err != nil {
			s.notice("clipboard not cleared: %v", err)
		}
		s.copied = false
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if s.AutoConnect && s.Config.Serial.Port != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Serial.Port)
		}
		if err := s.Connect(""); err != nil {
			log.Printf("connect %q failed: %v", s.Config.Serial.Port, err)
			return
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Println(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Println("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := config.Resolve()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).WithAutoConnect(true).Run(flag.Args()...)
}
