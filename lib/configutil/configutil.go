// Package configutil reads json5 configuration files. A config may
// carry a sibling `<name>.local.<ext>` overlay that merges over the
// committed file, keeping machine-local settings out of version
// control.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// ReadConfig loads the named config file and merges its local overlay
// over it when one exists. Either file alone is enough; when neither
// exists the error satisfies os.IsNotExist.
func ReadConfig[T any](name string) (T, error) {
	var out T

	found, err := readInto(name, &out)
	if err != nil {
		return out, err
	}

	overlayPath := localOverlayPath(name)
	var overlay T
	foundOverlay, err := readInto(overlayPath, &overlay)
	if err != nil {
		return out, err
	}
	if foundOverlay {
		err = mergo.Merge(&out, overlay, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", overlayPath)
	}

	if !found && !foundOverlay {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks from the working directory up to the
// filesystem root looking for a config file with the given name, so a
// test running deep inside the module still finds the repo-level
// config.
func ReadRecursively[T any](name string) (T, error) {
	var out T

	dir, err := os.Getwd()
	if err != nil {
		return out, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if !os.IsNotExist(err) {
			return config, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return out, os.ErrNotExist
		}
		dir = parent
	}
}

// readInto parses one file into out. A missing or empty file reports
// found = false rather than an error.
func readInto[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	return true, json5.Unmarshal(contents, out)
}

// config.json5 -> config.local.json5
func localOverlayPath(name string) string {
	dir := filepath.Dir(name)
	base := filepath.Base(name)

	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return filepath.Join(dir, base+".local")
	}
	return filepath.Join(dir, fmt.Sprintf("%s.local%s", base[:i], base[i:]))
}
