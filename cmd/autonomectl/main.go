package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"autonome/internal/cli"
	"autonome/internal/ctl"
)

func main() {
	cli.LoadEnvFile()
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range ctl.Commands(ctl.FromEnvironment, os.Stdout) {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
