package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSitesFile is the default sites file name.
const DefaultSitesFile = ".shopscan"

// ErrSitesFileNotFound is returned when the sites file does not exist.
var ErrSitesFileNotFound = errors.New("sites file not found")

// LoadSitesFile loads site configurations from a YAML file.
// If the file does not exist, it returns ErrSitesFileNotFound.
// Callers should handle this error appropriately based on whether
// the sites file path was explicitly specified by the user.
func LoadSitesFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided sites file path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSitesFileNotFound
		}
		return nil, err
	}

	var sf File
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, err
	}

	// Initialize Sites map if nil
	if sf.Sites == nil {
		sf.Sites = make(map[string]SiteConfig)
	}

	return &sf, nil
}

// FindSitesFile searches for the sites file in the following order:
// 1. If sitesPath is specified, use it directly
// 2. Look for .shopscan in the current directory
// 3. Look for .shopscan in the user's home directory
//
// Returns the path to the sites file if found, or empty string if not found.
func FindSitesFile(sitesPath string) string {
	// If explicit path is provided, use it
	if sitesPath != "" {
		if _, err := os.Stat(sitesPath); err == nil {
			return sitesPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdSites := filepath.Join(cwd, DefaultSitesFile)
		if _, err := os.Stat(cwdSites); err == nil {
			return cwdSites
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeSites := filepath.Join(home, DefaultSitesFile)
		if _, err := os.Stat(homeSites); err == nil {
			return homeSites
		}
	}

	return ""
}
