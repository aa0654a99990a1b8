package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "voxkeys", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "voxkeys", "config.jsonc"), nil
}

// resolveRelative anchors grammar file paths at the config file directory.
func resolveRelative(configPath string, files []string) []string {
	if len(files) == 0 {
		return files
	}
	out := make([]string, 0, len(files))
	base := filepath.Dir(configPath)
	for _, file := range files {
		switch {
		case strings.HasPrefix(file, "~/"):
			if home, err := os.UserHomeDir(); err == nil {
				file = filepath.Join(home, file[2:])
			}
		case !filepath.IsAbs(file):
			file = filepath.Join(base, file)
		}
		out = append(out, file)
	}
	return out
}
