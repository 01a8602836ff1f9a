package commands

import (
	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/quill"
	"github.com/simonhull/firebird-suite/quill/internal/output"
)

// RootCmd creates and returns the root command for the quill CLI
func RootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "quill",
		Short: "Generate text-resource providers for Go packages",
		Long: `Quill generates provider variables for declarations bound to text resources.

For every marked declaration Greeting in package com.acme it writes:
• GreetingProvider, which reads com/acme/Greeting.txt at runtime
• GreetingProviderJ2cl, which embeds the text as a string literal

Providers that already exist are never regenerated, so quill is safe to run
from go generate on every build.

Declarations are read from quill.resources.yml and from //quill:resource
directives in Go source.`,
		Version:       quill.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			output.SetVerbose(verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to quill.yml (default: ./quill.yml when present)")

	return cmd
}

// VersionCmd prints the quill version
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the quill version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("quill %s\n", quill.Version)
		},
	}
}
