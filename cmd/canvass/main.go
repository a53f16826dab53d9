// Package main implements the canvass command line client.
//
//	canvass ballot add --poll 5 --option 1
//	canvass ballot add --poll 7 --option 2,1 --comment "ranked"
//	canvass ballot list
//	canvass ballot submit
//	canvass tags
//	canvass comments serve
//
// The wallet key, the database and the persisted ballots live in the data
// folder of the configuration.
package main

import (
	"fmt"
	"io"
	"os"

	"go.canvass.io/canvass/cli"
	"go.canvass.io/canvass/cli/ucli"
)

var printer io.Writer = os.Stderr

func main() {
	err := run(os.Args, os.Stdout)
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	a := newApp(out)

	builder := ucli.NewBuilder("canvass", nil,
		ucli.WithUsage("stage, sign and submit votes on governance polls"),
		ucli.WithWriter(out),
		ucli.WithBefore(a.before),
		ucli.WithFlags(
			cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				EnvVars: []string{"CANVASS_CONFIG"},
				Usage:   "path to the YAML configuration",
			},
			cli.StringFlag{
				Name:  "env",
				Usage: "path to the .env file",
				Value: ".env",
			},
		),
	)

	inits := []cli.Initializer{
		ballotController{app: a},
		tagsController{app: a},
		commentsController{app: a},
	}

	for _, ctrl := range inits {
		ctrl.SetCommands(builder)
	}

	return builder.Build().Run(args)
}
