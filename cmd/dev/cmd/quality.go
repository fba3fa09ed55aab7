package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// hardware-free packages; they run against the chip simulator and fake buses
const unitPackages = "memory/at24mac, memory/image, adapter, i2c, config, eectx, cmd/eeprom"

func TestCmd() *cobra.Command {
	return qualityCmd("test", "Run unit tests",
		"Runs the unit tests of "+unitPackages+". None of them need an attached part.",
		func() error { return test.Test() })
}

func LintCmd() *cobra.Command {
	return qualityCmd("lint", "Run linting", "Runs the linters over the whole module.", func() error { return test.Lint() })
}

func IntegrationTestCmd() *cobra.Command {
	return qualityCmd("integration-test", "Run integration tests against attached hardware",
		"Runs the integration tests. An AT24MAC402/602 must be reachable through an MCP2221 bridge or a host i2c bus.",
		func() error { return test.Integ() })
}

func qualityCmd(use, short, long string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(); err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return nil
		},
	}
}
