// Package main is the styleecho command line.
package main

import (
	"os"

	"github.com/easeaico/style-echo/cmd/styleecho/commands"
)

// Set by the release build.
var version = "dev"

func main() {
	commands.SetVersion(version)
	os.Exit(commands.Execute())
}
