// Package cli implements fastclickctl, the operator tool for seeding users,
// driving sale sessions and rebuilding statements outside the HTTP API.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"

	open EnvOpener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand builds the command tree. open connects to the database and
// Redis; nil uses the environment configuration.
func NewRootCommand(open EnvOpener) *cobra.Command {
	if open == nil {
		open = OpenFromConfig
	}
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "fastclickctl",
		Short: "Fastclick operator tool",
		Long:  "Seed accounts, open and close sale sessions, and rebuild financial statements.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewSeedUserCommand(opts))
	cmd.AddCommand(NewHashPasswordCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))
	cmd.AddCommand(NewStatementsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
