package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the project file name looked up in the current and
// home directories.
const DefaultConfigFile = ".componentscan"

// UserConfigFile is the project file name inside the XDG config directory.
const UserConfigFile = "config.yaml"

// LoadConfigFile reads and validates a project file.
// A missing file is reported as ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	f := &File{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfigFile, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// FindConfigFile returns configPath when it exists. With an empty
// configPath it returns the first existing candidate of SearchPaths.
// It returns "" when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if exists(configPath) {
			return configPath
		}
		return ""
	}
	for _, p := range SearchPaths() {
		if exists(p) {
			return p
		}
	}
	return ""
}

// SearchPaths lists where a project file is looked for, in order: the
// current directory, the home directory, then the XDG config directory.
func SearchPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return append(paths, filepath.Join(XDGConfigDir(), UserConfigFile))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
