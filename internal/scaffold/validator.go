package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFile is the name of the file written by Initialize.
const ConfigFile = "warren.yml"

// CheckExisting returns an error if dir already holds a warren.yml.
func CheckExisting(dir string) error {
	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'warren init --force' to reinitialize (this will overwrite existing configuration)", path)
	}
	return nil
}
