package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/eeprom/cmd/eeprom/console"
	"github.com/mklimuk/eeprom/config"
)

var commit string
var date string

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	err := newApp().Run(args)
	if err == nil {
		return 0
	}
	var exerr cli.ExitCoder
	if errors.As(err, &exerr) {
		console.Errorf("%s", exerr.Error())
		return exerr.ExitCode()
	}
	slog.Error("unexpected error", "error", err)
	return console.ExitFailure
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "eeprom"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", config.Version, date, commit)
	app.Usage = "AT24MAC402/602 EEPROM tool"
	// exit codes are returned by run
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"EEPROM_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "bus adapter: mcp2221, generic, nanopi or mock",
		},
		&cli.StringFlag{
			Name:  "device",
			Usage: "i2c device of the generic adapter",
		},
		&cli.IntFlag{
			Name:  "bus",
			Usage: "i2c bus number of the nanopi adapter",
		},
		&cli.StringFlag{
			Name:  "part",
			Usage: "part name: AT24MAC402 or AT24MAC602",
		},
		&cli.IntFlag{
			Name:  "pins",
			Usage: "A2..A0 address pin strapping (0-7)",
		},
		&cli.IntFlag{
			Name:  "speed",
			Usage: "i2c clock in Hz; 0 keeps the current bus clock",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&infoCmd,
		&readCmd,
		&writeCmd,
		&dumpCmd,
		&backupCmd,
		&restoreCmd,
		&verifyCmd,
		&mcp2221Cmd,
		&usbCmd,
	}
	return app
}
