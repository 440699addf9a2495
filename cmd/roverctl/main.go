package main

import (
	"github.com/robotalks/rover/pkg/cli/sh"

	_ "github.com/robotalks/rover/pkg/cli/cmds/motion"
)

func main() {
	sh.Main()
}
