package main

import (
	"context"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/eeprom/adapter"
	"github.com/mklimuk/eeprom/cmd/eeprom/console"
	"github.com/mklimuk/eeprom/eectx"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the MCP2221 USB bridge",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "print the I2C engine status",
	Action: func(c *cli.Context) error {
		return printStatus(c, func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error) {
			return a.Status(ctx)
		})
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current transfer and free the bus",
	Action: func(c *cli.Context) error {
		return printStatus(c, func(ctx context.Context, a *adapter.MCP2221) (*adapter.MCP2221Status, error) {
			return a.ReleaseBus(ctx)
		})
	},
}

func printStatus(c *cli.Context, fetch func(context.Context, *adapter.MCP2221) (*adapter.MCP2221Status, error)) error {
	a := adapter.NewMCP2221()
	ctx := eectx.WithVerbose(c.Context, c.Bool("verbose"))
	status, err := fetch(ctx, a)
	if err != nil {
		return console.Exit(console.ExitFailure, "adapter communication error: %s", console.Red(err))
	}
	enc := yaml.NewEncoder(console.Writer())
	defer func() {
		_ = enc.Close()
	}()
	err = enc.Encode(status)
	if err != nil {
		return console.Exit(console.ExitFailure, "encoding error: %s", console.Red(err))
	}
	return nil
}
