package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[xcm-delegator] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "xdd"
	app.Usage = "Cross-chain Delegation Daemon (xdd)."
	app.Commands = append(app.Commands, initCommand, startCommand)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
