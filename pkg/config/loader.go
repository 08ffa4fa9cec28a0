package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	xlog "github.com/yonas-y/dabstract/internal/log"
)

var (
	ErrNotFound = errors.New("config: file not found")
	ErrParse    = errors.New("config: parse error")
)

var extensions = []string{".yaml", ".yml"}

// LoadOptions controls Load.
type LoadOptions struct {
	// Walk searches dir recursively instead of only its top level.
	Walk bool
	// Vars are substituted for ${name} before the environment is.
	Vars map[string]string
}

// Find returns the path of <name>.yaml or <name>.yml under dir.
func Find(dir, name string, walk bool) (string, error) {
	if !walk {
		for _, ext := range extensions {
			p := filepath.Join(dir, name+ext)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
		return "", fmt.Errorf("%w: %s in %s", ErrNotFound, name, dir)
	}
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, ext := range extensions {
			if d.Name() == name+ext {
				found = path
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s under %s", ErrNotFound, name, dir)
	}
	return found, nil
}

// Load finds the file name under dir, expands ${VAR} references and decodes
// it strictly into out.
func Load(dir, name string, opts LoadOptions, out any) error {
	path, err := Find(dir, name, opts.Walk)
	if err != nil {
		return err
	}
	// #nosec G304 -- config paths come from the caller
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	expanded := os.Expand(string(raw), func(key string) string {
		if v, ok := opts.Vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	})

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s contains multiple documents", ErrParse, path)
	}

	logger := xlog.WithComponent("config")
	logger.Debug().Str(xlog.FieldPath, path).Msg("config loaded")
	return nil
}

// LoadDirs loads a Dirs file.
func LoadDirs(dir, name string) (Dirs, error) {
	var d Dirs
	if err := Load(dir, name, LoadOptions{Walk: true}, &d); err != nil {
		return nil, err
	}
	return d, nil
}
