package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "tradeadmin"
	app.Usage = "The trade admin command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		schedulerCMD,
		consoleCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
