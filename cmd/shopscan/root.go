// Package main provides the entry point for the shopscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for shopscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shopscan",
		Short: "Product URL crawler for e-commerce storefronts",
		Long: `shopscan crawls e-commerce storefronts and collects product page URLs.
It follows category and pagination links, classifies product pages by URL
shape and page markup, and writes per-domain reports.

Crawls are polite by default: one request at a time per domain with a
randomized delay, honoring robots.txt. Every run is archived in a local
database so later runs can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
