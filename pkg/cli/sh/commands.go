package sh

import (
	"github.com/abiosoft/ishell"
)

var (
	// ConnectCmd opens the port and greets the dongle.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT]",
		Func: func(c *ishell.Context) {
			var port string
			if len(c.Args) > 0 {
				port = c.Args[0]
			}
			s := ShellFrom(c)
			if err := s.Connect(port); err != nil {
				c.Err(err)
				return
			}
			c.Printf("Connected to %s\n", s.Conn.Port)
		},
	}

	// DisconnectCmd says goodbye and closes the port.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			if err := ShellFrom(c).Disconnect(); err != nil {
				c.Err(err)
				return
			}
			c.Println("Disconnected")
		}),
	}

	// PortCmd shows the port settings.
	PortCmd = ishell.Cmd{
		Name:    "port",
		Aliases: []string{"p"},
		Help:    "",
		Func: func(c *ishell.Context) {
			c.Println(ShellFrom(c).PortInfo())
		},
	}
)
