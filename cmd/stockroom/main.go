package main

import (
	"os"

	"github.com/urfave/cli/v2"

	applog "stockroom/internal/log"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		applog.Error(nil, "stockroom.exit", err, nil)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "stockroom",
		Usage: "stock list, orders and product intake over a JSON product file",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the web server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "port", Usage: "listen port (overrides PORT)"},
				},
				Action: serve,
			},
			{
				Name:   "check",
				Usage:  "validate the product file and print the stock list",
				Action: check,
			},
		},
		DefaultCommand: "serve",
	}
}
