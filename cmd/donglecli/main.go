package main

import (
	"github.com/robotalks/dongle/pkg/cli/sh"
	"github.com/robotalks/dongle/pkg/config"

	_ "github.com/robotalks/dongle/pkg/cli/cmds/codes"
)

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
