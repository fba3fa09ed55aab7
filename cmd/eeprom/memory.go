package main

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/eeprom/cmd/eeprom/console"
)

type infoReport struct {
	Part      string `yaml:"part"`
	Primary   string `yaml:"primary_address"`
	Secondary string `yaml:"identity_address"`
	Capacity  int    `yaml:"capacity"`
	PageSize  int    `yaml:"page_size"`
	MAC       string `yaml:"mac"`
	Serial    string `yaml:"serial"`
	SerialDec string `yaml:"serial_decimal"`
}

var infoCmd = cli.Command{
	Name:  "info",
	Usage: "print the identity block and geometry of the part",
	Action: func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		primary, secondary := s.eeprom.Addresses()
		id := s.eeprom.Identity()
		part := s.eeprom.Part()
		report := infoReport{
			Part:      part.Name,
			Primary:   fmt.Sprintf("0x%02x", primary),
			Secondary: fmt.Sprintf("0x%02x", secondary),
			Capacity:  part.Capacity,
			PageSize:  part.PageSize,
			MAC:       id.MAC.String(),
			Serial:    id.SerialHex(),
			SerialDec: id.SerialNumber().String(),
		}
		enc := yaml.NewEncoder(console.Writer())
		defer func() {
			_ = enc.Close()
		}()
		err = enc.Encode(report)
		if err != nil {
			return console.Exit(console.ExitFailure, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}

var readCmd = cli.Command{
	Name:  "read",
	Usage: "read bytes from the array",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "address", Aliases: []string{"a"}, Usage: "first byte address"},
		&cli.IntFlag{Name: "length", Aliases: []string{"n"}, Value: 1, Usage: "number of bytes"},
	},
	Action: func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		data, err := s.eeprom.Read(s.ctx, c.Int("address"), c.Int("length"))
		if err != nil {
			return console.Exit(console.ExitFailure, "read failed: %s", console.Red(err))
		}
		console.Print(hex.EncodeToString(data))
		return nil
	},
}

var writeCmd = cli.Command{
	Name:  "write",
	Usage: "write bytes to the array; unchanged pages are not rewritten",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "address", Aliases: []string{"a"}, Usage: "first byte address"},
		&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "hex encoded bytes"},
		&cli.StringFlag{Name: "text", Usage: "raw text, used instead of --data"},
	},
	Action: func(c *cli.Context) error {
		var data []byte
		switch {
		case c.IsSet("text"):
			data = []byte(c.String("text"))
		case c.IsSet("data"):
			var err error
			data, err = hex.DecodeString(c.String("data"))
			if err != nil {
				return console.Exit(console.ExitUsage, "invalid hex data: %s", console.Red(err))
			}
		default:
			return console.Exit(console.ExitUsage, "one of --data or --text is required")
		}
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		address := c.Int("address")
		err = s.eeprom.Write(s.ctx, address, data)
		if err != nil {
			return console.Exit(console.ExitFailure, "write failed: %s", console.Red(err))
		}
		console.PInfof(console.PictoPin, "%d bytes written at 0x%02x", len(data), address)
		return nil
	},
}

var dumpCmd = cli.Command{
	Name:  "dump",
	Usage: "hex dump of the whole array",
	Action: func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()
		data, err := s.eeprom.ReadAll(s.ctx)
		if err != nil {
			return console.Exit(console.ExitFailure, "read failed: %s", console.Red(err))
		}
		console.Printf("%s", hex.Dump(data))
		return nil
	},
}
