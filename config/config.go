// Package config holds the settings the eeprom CLI uses to reach a part.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/eeprom/memory/at24mac"
)

// Version is injected at build time.
var Version = "latest"

const (
	AdapterMCP2221 = "mcp2221"
	AdapterGeneric = "generic"
	AdapterNanoPi  = "nanopi"
	AdapterMock    = "mock"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Adapter     string        `yaml:"adapter"`
	Device      string        `yaml:"device"`
	Bus         int           `yaml:"bus"`
	Part        string        `yaml:"part"`
	AddressPins byte          `yaml:"address_pins"`
	WriteDelay  time.Duration `yaml:"write_delay"`
	// Speed is the bus clock in Hz; 0 leaves the clock as the host set it.
	Speed       int           `yaml:"speed"`
}

func Default() Config {
	return Config{
		Adapter:     AdapterMCP2221,
		Device:      "/dev/i2c-1",
		Bus:         1,
		Part:        at24mac.AT24MAC402.Name,
		AddressPins: at24mac.DefaultAddressPins,
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("could not open config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not decode config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Adapter {
	case AdapterMCP2221, AdapterGeneric, AdapterNanoPi, AdapterMock:
	default:
		return fmt.Errorf("%w: unknown adapter %q", ErrInvalidConfig, c.Adapter)
	}
	if _, err := at24mac.PartByName(c.Part); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.AddressPins > 7 {
		return fmt.Errorf("%w: address pins %d above 7", ErrInvalidConfig, c.AddressPins)
	}
	if c.WriteDelay < 0 {
		return fmt.Errorf("%w: negative write delay", ErrInvalidConfig)
	}
	if c.Speed < 0 {
		return fmt.Errorf("%w: negative bus speed", ErrInvalidConfig)
	}
	return nil
}

// ResolvePart resolves the configured part name.
func (c Config) ResolvePart() (at24mac.Part, error) {
	return at24mac.PartByName(c.Part)
}
