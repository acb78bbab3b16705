package codes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/dongle/pkg/cli/sh"
)

func slotArg(c *ishell.Context) (int, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("SLOT required"))
		return 0, false
	}
	n, err := strconv.Atoi(c.Args[0])
	if err != nil {
		c.Err(fmt.Errorf("Invalid SLOT: %v", err))
		return 0, false
	}
	return n, true
}

var (
	// GetCmd reads a slot and copies the code to the clipboard.
	GetCmd = ishell.Cmd{
		Name:    "get",
		Aliases: []string{"g"},
		Help:    "SLOT",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			n, ok := slotArg(c)
			if !ok {
				return
			}
			code, err := sh.ShellFrom(c).GetCode(n)
			if err != nil {
				c.Err(err)
				return
			}
			if code == "" {
				c.Printf("Slot %d: Empty\n", n)
				return
			}
			c.Printf("Slot %d: %s (copied)\n", n, code)
		}),
	}

	// SetCmd writes a slot. Remaining arguments are joined with spaces.
	SetCmd = ishell.Cmd{
		Name:    "set",
		Aliases: []string{"s"},
		Help:    "SLOT VALUE",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			n, ok := slotArg(c)
			if !ok {
				return
			}
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("VALUE required"))
				return
			}
			if err := sh.ShellFrom(c).SetCode(n, strings.Join(c.Args[1:], " ")); err != nil {
				c.Err(err)
				return
			}
			c.Printf("Slot %d saved\n", n)
		}),
	}

	// StatusCmd shows how many codes are stored.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			count, err := sh.ShellFrom(c).Status()
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%d codes stored\n", count)
		}),
	}

	// CopyCmd copies a code to the clipboard.
	CopyCmd = ishell.Cmd{
		Name:    "copy",
		Aliases: []string{"cp"},
		Help:    "SLOT",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			n, ok := slotArg(c)
			if !ok {
				return
			}
			if err := sh.ShellFrom(c).Copy(n); err != nil {
				c.Err(err)
				return
			}
			c.Printf("Slot %d copied\n", n)
		}),
	}

	// RawCmd sends a line as is.
	RawCmd = ishell.Cmd{
		Name:    "raw",
		Aliases: []string{"r"},
		Help:    "LINE",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("LINE required"))
				return
			}
			reply, err := sh.ShellFrom(c).Raw(strings.Join(c.Args, " "))
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(reply)
		}),
	}
)

func init() {
	sh.AddCmds(
		&GetCmd,
		&SetCmd,
		&StatusCmd,
		&CopyCmd,
		&RawCmd,
	)
}
