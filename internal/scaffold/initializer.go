// Package scaffold writes a starter warren.yml.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/dyluth/warren/internal/config"
	"github.com/dyluth/warren/internal/instance"
)

//go:embed templates/*
var templatesFS embed.FS

// Options describes the project to initialize.
type Options struct {
	Dir        string // target directory, default "."
	Instance   string // default "default"
	Driver     string // "redis" (default) or "sqlite"
	RedisURL   string // default redis://localhost:6379/0
	SQLitePath string // default world.db
	Force      bool   // overwrite an existing warren.yml
}

func (o *Options) applyDefaults() {
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.Instance == "" {
		o.Instance = "default"
	}
	if o.Driver == "" {
		o.Driver = "redis"
	}
	if o.RedisURL == "" {
		o.RedisURL = "redis://localhost:6379/0"
	}
	if o.SQLitePath == "" {
		o.SQLitePath = "world.db"
	}
}

// Initialize renders warren.yml into opts.Dir and checks that the result
// loads as a valid configuration. It returns the path written.
func Initialize(opts Options) (string, error) {
	opts.applyDefaults()
	if err := instance.ValidateName(opts.Instance); err != nil {
		return "", err
	}
	if opts.Driver != "redis" && opts.Driver != "sqlite" {
		return "", fmt.Errorf("invalid store driver: %s (must be 'redis' or 'sqlite')", opts.Driver)
	}

	if !opts.Force {
		if err := CheckExisting(opts.Dir); err != nil {
			return "", err
		}
	}

	content, err := render(opts)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", opts.Dir, err)
	}

	path := filepath.Join(opts.Dir, ConfigFile)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("created %s is not valid: %w", path, err)
	}
	return path, nil
}

func render(opts Options) ([]byte, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/warren.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read warren.yml template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("failed to render warren.yml: %w", err)
	}
	return buf.Bytes(), nil
}
