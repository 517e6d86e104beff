// Package cmd implements the synthlinks command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

// ErrFailingLinks is returned when the scan completed but at least one link
// failed its expectation.
var ErrFailingLinks = errors.New("failing links found")

var cfgFile string

// NewRootCommand builds the synthlinks command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "synthlinks",
		Short:         "Synthetic broken-link checker",
		Long:          `synthlinks loads a page, follows a bounded sample of its links and reports which ones broke.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default $SYNTHLINKS_CONFIG)")

	root.AddCommand(newCheckCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "synthlinks version %s\n", Version)
		},
	})

	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
