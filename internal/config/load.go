package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:   resolvedPath,
				Config: base,
				Warnings: []Warning{{
					Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
				}},
				Exists: false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	cfg.Grammar.Files = resolveRelative(resolvedPath, cfg.Grammar.Files)
	warnings = append(warnings, grammarFileWarnings(cfg.Grammar.Files)...)

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

// grammarFileWarnings flags listed rule files that cannot be read yet.
// Loading still fails later; the warning names the file before the grammar error does.
func grammarFileWarnings(files []string) []Warning {
	var warnings []Warning
	for _, file := range files {
		info, err := os.Stat(file)
		switch {
		case err != nil:
			warnings = append(warnings, Warning{Message: fmt.Sprintf("grammar file %q: %v", file, err)})
		case info.IsDir():
			warnings = append(warnings, Warning{Message: fmt.Sprintf("grammar file %q is a directory", file)})
		}
	}
	return warnings
}
