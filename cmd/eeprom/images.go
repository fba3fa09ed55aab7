package main

import (
	"errors"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/eeprom/cmd/eeprom/console"
	"github.com/mklimuk/eeprom/memory/at24mac"
	"github.com/mklimuk/eeprom/memory/image"
)

var backupCmd = cli.Command{
	Name:  "backup",
	Usage: "save the whole array to a raw image file",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "image file"},
	},
	Action: func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		data, err := io.ReadAll(s.eeprom.Cursor(s.ctx))
		if err != nil {
			return console.Exit(console.ExitFailure, "read failed: %s", console.Red(err))
		}
		err = os.WriteFile(c.String("out"), data, 0o644)
		if err != nil {
			return console.Exit(console.ExitFailure, "could not write image: %s", console.Red(err))
		}
		console.PInfof(console.PictoNotebook, "%d bytes saved to %s, crc32 %08x", len(data), c.String("out"), image.Checksum(data))
		return nil
	},
}

var restoreCmd = cli.Command{
	Name:  "restore",
	Usage: "write a raw image back to the array",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "image file"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		data, err := readImage(c.String("in"))
		if err != nil {
			return err
		}
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		if len(data) != s.eeprom.Len() {
			return console.Exit(console.ExitUsage, "image holds %d bytes, %s holds %d", len(data), s.eeprom.Part(), s.eeprom.Len())
		}
		if !c.Bool("yes") {
			answer, err := console.NoOrYes("overwrite the EEPROM contents?")
			if err != nil {
				return console.Exit(console.ExitCancelled, "prompt failed: %s", console.Red(err))
			}
			if answer != console.Yes {
				console.PInfof(console.PictoStop, "restore cancelled")
				return nil
			}
		}
		err = s.eeprom.Write(s.ctx, 0, data)
		if err != nil {
			var werr *at24mac.WriteError
			if errors.As(err, &werr) {
				return console.Exit(console.ExitFailure, "restore stopped after %d bytes: %s", werr.Written, console.Red(werr.Err))
			}
			return console.Exit(console.ExitFailure, "restore failed: %s", console.Red(err))
		}
		readBack, err := s.eeprom.ReadAll(s.ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "read back failed: %s", console.Red(err))
		}
		want, got := image.Checksum(data), image.Checksum(readBack)
		if want != got {
			return console.Exit(console.ExitMismatch, "read back crc32 %08x, expected %08x", got, want)
		}
		console.PInfof(console.PictoFinish, "image restored, crc32 %08x", got)
		return nil
	},
}

var verifyCmd = cli.Command{
	Name:  "verify",
	Usage: "compare the array with a raw image file",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "image file"},
	},
	Action: func(c *cli.Context) error {
		data, err := readImage(c.String("in"))
		if err != nil {
			return err
		}
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		current, err := s.eeprom.ReadAll(s.ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "read failed: %s", console.Red(err))
		}
		diff := image.Diff(current, data)
		if len(diff) == 0 {
			console.PInfof(console.PictoFinish, "%s matches the image, crc32 %08x", s.eeprom.Part(), image.Checksum(current))
			return nil
		}
		for _, span := range diff {
			console.Warnf("%s differs (%d bytes)", span, span.Len())
		}
		return console.Exit(console.ExitMismatch, "%d regions differ", len(diff))
	},
}

func readImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, console.Exit(console.ExitUsage, "could not read image: %s", console.Red(err))
	}
	return data, nil
}
