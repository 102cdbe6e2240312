package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/thara-playground/lightdb/pager"
	"github.com/thara-playground/lightdb/table"
)

func main() {
	app := &cli.App{
		Name:      "lightdb",
		Usage:     "a minimal single-table relational store with a disk-resident B+tree",
		ArgsUsage: "<database file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "logrus level: debug, info, warn, error",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("Must supply a database filename.", 1)
	}
	path := c.Args().Get(0)

	log := logrus.New()
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid log level: %v", err), 1)
	}
	log.SetLevel(level)

	p, err := pager.Open(path, log)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open database: %v", err), 1)
	}

	bt, err := table.Open(p, log)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open table: %v", err), 1)
	}

	repl, err := NewREPL(bt, log)
	if err != nil {
		return cli.Exit(fmt.Sprintf("init repl: %v", err), 1)
	}
	defer repl.Close()

	return repl.Run()
}
