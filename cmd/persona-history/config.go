package main

import (
	"errors"
	"path/filepath"
)

type Config struct {
	InDir   string
	IDs     []string
	OutPath string
	Pretty  bool
	Text    bool
	List    bool
}

func (c Config) Validate() error {
	if c.InDir == "" {
		return errors.New("missing -in")
	}
	if c.List && (c.Text || len(c.IDs) > 0) {
		return errors.New("-list cannot be combined with -text or -ids")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InDir: filepath.FromSlash("persona-out/sessions"),
	}
}
