package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/eeprom"
	"github.com/mklimuk/eeprom/adapter"
	"github.com/mklimuk/eeprom/cmd/eeprom/console"
	"github.com/mklimuk/eeprom/config"
	"github.com/mklimuk/eeprom/eectx"
	"github.com/mklimuk/eeprom/i2c"
	"github.com/mklimuk/eeprom/memory/at24mac"
)

// session is an opened part together with whatever must be closed after use.
type session struct {
	ctx    context.Context
	eeprom *at24mac.AT24MAC
	close  func() error
}

func (s *session) Close() {
	if s.close == nil {
		return
	}
	if err := s.close(); err != nil {
		slog.Warn("could not close bus", "error", err)
	}
}

// settings merges the config file (if any) with the global flags.
func settings(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("bus") {
		cfg.Bus = c.Int("bus")
	}
	if c.IsSet("part") {
		cfg.Part = c.String("part")
	}
	if c.IsSet("speed") {
		cfg.Speed = c.Int("speed")
	}
	if c.IsSet("pins") {
		pins := c.Int("pins")
		if pins < 0 || pins > 7 {
			return cfg, fmt.Errorf("%w: address pins %d outside 0-7", config.ErrInvalidConfig, pins)
		}
		cfg.AddressPins = byte(pins)
	}
	return cfg, cfg.Validate()
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := settings(c)
	if err != nil {
		return nil, console.Exit(console.ExitUsage, "configuration error: %s", console.Red(err))
	}
	ctx := eectx.WithVerbose(c.Context, c.Bool("verbose"))
	ctx = eectx.WithOperation(ctx, c.Command.Name)
	bus, closer, sleep, err := openBus(ctx, cfg)
	if err != nil {
		return nil, console.Exit(console.ExitFailure, "could not open %s adapter: %s", cfg.Adapter, console.Red(err))
	}
	part, err := cfg.ResolvePart()
	if err != nil {
		return nil, console.Exit(console.ExitUsage, "configuration error: %s", console.Red(err))
	}
	opts := []at24mac.Option{
		at24mac.WithPart(part),
		at24mac.WithAddressPins(cfg.AddressPins),
		at24mac.WithWriteDelay(cfg.WriteDelay),
	}
	if sleep != nil {
		opts = append(opts, at24mac.WithSleep(sleep))
	}
	e, err := at24mac.New(ctx, bus, opts...)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, console.Exit(console.ExitFailure, "could not open %s: %s", part, console.Red(err))
	}
	return &session{ctx: ctx, eeprom: e, close: closer}, nil
}

func openBus(ctx context.Context, cfg config.Config) (eeprom.I2CBus, func() error, at24mac.SleepFunc, error) {
	switch cfg.Adapter {
	case config.AdapterMCP2221:
		a := adapter.NewMCP2221()
		if err := a.Init(ctx); err != nil {
			return nil, nil, nil, err
		}
		if hz, ok := requestedSpeed(cfg); ok {
			if err := a.SetSpeed(ctx, hz); err != nil {
				return nil, nil, nil, err
			}
		}
		return a, nil, nil, nil
	case config.AdapterGeneric:
		b, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, nil, nil, err
		}
		if hz, ok := requestedSpeed(cfg); ok {
			// most sysfs hosts cannot change the clock at runtime
			if err := b.SetSpeed(physic.Frequency(hz) * physic.Hertz); err != nil {
				_ = b.Close()
				return nil, nil, nil, err
			}
		}
		return b, b.Close, nil, nil
	case config.AdapterNanoPi:
		a := nanopi.NewNeoAdaptor()
		if err := a.Connect(); err != nil {
			return nil, nil, nil, fmt.Errorf("could not connect nanopi adaptor: %w", err)
		}
		b := i2c.NewGobotBus(a, cfg.Bus)
		return b, func() error {
			err := b.Close()
			if ferr := a.Finalize(); ferr != nil && err == nil {
				err = ferr
			}
			return err
		}, nil, nil
	case config.AdapterMock:
		part, err := cfg.ResolvePart()
		if err != nil {
			return nil, nil, nil, err
		}
		m := at24mac.NewMockDevice(part, cfg.AddressPins)
		return m, nil, m.Sleep, nil
	}
	return nil, nil, nil, fmt.Errorf("%w: unknown adapter %q", config.ErrInvalidConfig, cfg.Adapter)
}

// requestedSpeed reports the bus clock to program, if any.
func requestedSpeed(cfg config.Config) (int, bool) {
	return cfg.Speed, cfg.Speed > 0
}
