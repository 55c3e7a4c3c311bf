package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/willibrandon/gonuget-pm/cmd/gonuget/cli"
	"github.com/willibrandon/gonuget-pm/cmd/gonuget/commands"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.SetupVersion()

	cli.AddCommand(commands.NewVersionCommand(cli.Console))
	cli.AddCommand(commands.NewGatherCommand(cli.Console))
	cli.AddCommand(commands.NewUninstallCommand(cli.Console))

	// Interrupts cancel in-flight source queries; the command returns
	// context.Canceled and exits 130.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		cli.Console.Error("%v", err)
		return commands.ExitCode(err)
	}
	return commands.ExitOK
}
