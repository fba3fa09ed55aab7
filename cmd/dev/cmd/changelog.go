package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// ChangelogCmd regenerates CHANGELOG.md from conventional commits with git-chglog.
func ChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Generate or update CHANGELOG.md from git history",
		Example: `  dev changelog
  dev changelog --next v0.2.0
  dev changelog --tag v0.1.0 --output CHANGES.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := exec.LookPath("git-chglog"); err != nil {
				slog.Error("git-chglog not found in PATH, install it with: go install github.com/git-chglog/git-chglog/cmd/git-chglog@latest")
				return fmt.Errorf("git-chglog not installed: %w", err)
			}
			chglogArgs, err := changelogArgs(cmd)
			if err != nil {
				return err
			}
			slog.Info("running git-chglog", "args", chglogArgs)
			gitChglog := exec.Command("git-chglog", chglogArgs...)
			gitChglog.Stdout = os.Stdout
			gitChglog.Stderr = os.Stderr
			if err := gitChglog.Run(); err != nil {
				return fmt.Errorf("failed to generate changelog: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("next", "", "Next version tag (e.g., v0.2.0)")
	cmd.Flags().String("output", "CHANGELOG.md", "Output file path")
	cmd.Flags().String("tag", "", "Generate changelog for specific tag")

	return cmd
}

func changelogArgs(cmd *cobra.Command) ([]string, error) {
	var args []string
	next, err := cmd.Flags().GetString("next")
	if err != nil {
		return nil, fmt.Errorf("could not get next flag: %w", err)
	}
	if next != "" {
		args = append(args, "--next-tag", next)
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, fmt.Errorf("could not get output flag: %w", err)
	}
	args = append(args, "--output", output)
	tag, err := cmd.Flags().GetString("tag")
	if err != nil {
		return nil, fmt.Errorf("could not get tag flag: %w", err)
	}
	if tag != "" {
		args = append(args, tag)
	}
	return args, nil
}
