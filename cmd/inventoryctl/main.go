// Command inventoryctl runs maintenance tasks against the inventory storage.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var envFile = flag.String("env-file", "", "Path to a .env file loaded before the environment")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&hashPasswordCmd{in: os.Stdin, out: os.Stdout}, "auth")
	commander.Register(&reconcileCmd{out: os.Stdout}, "stock")
	commander.Register(&reportCmd{out: os.Stdout}, "stock")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
