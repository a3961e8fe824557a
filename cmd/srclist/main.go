package main

import (
	"os"

	"github.com/srclist/srclist/cmd/srclist/cmds"
)

func main() {
	if err := cmds.New(false).Execute(); err != nil {
		os.Exit(1)
	}
}
