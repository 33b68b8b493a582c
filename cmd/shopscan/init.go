package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed templates/shopscan.yaml
var sitesTemplate embed.FS

// sitesFileName is the default sites file name.
const sitesFileName = ".shopscan"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new shopscan sites file",
		Long: `Initialize creates a new .shopscan sites file in the current directory.

The generated file includes:
- A default seed set of storefronts to crawl
- Default settings for page budget, depth, and politeness delays
- Commented examples for site-specific overrides
- Documentation for all available options

Examples:
  # Create .shopscan in current directory
  shopscan init

  # Create sites file at a specific path
  shopscan init -o mysites.yaml

  # Force overwrite existing file
  shopscan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", sitesFileName,
		"Output file path for the sites file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing sites file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("sites file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := sitesTemplate.ReadFile("templates/shopscan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read sites template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write sites file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write sites file: %w", err)
	}

	fmt.Printf("Created sites file: %s\n", outputPath)
	fmt.Println("\nEdit this file to configure site-specific settings such as:")
	fmt.Println("  - Fetch mechanism per site (plain HTTP or headless browser)")
	fmt.Println("  - Politeness delay and page budget per site")
	fmt.Println("  - Extra product URL patterns")

	return nil
}
