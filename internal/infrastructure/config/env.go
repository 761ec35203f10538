package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/doeshing/ridepilot/internal/pkg/filesystem"
)

// LoadEnv reads KEY=value pairs from the first .env file found, without
// overriding variables already set in the process. It reports the file used.
func LoadEnv(explicit string) (string, error) {
	for _, path := range envPaths(explicit) {
		if !filesystem.Exists(path) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return path, err
		}
		return path, nil
	}
	return "", nil
}

// envPaths lists candidates in priority order: the configured file, the
// working directory, then ~/.ridepilot/.env.
func envPaths(explicit string) []string {
	var paths []string
	if explicit != "" {
		paths = append(paths, expandPath(explicit))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	return append(paths, filepath.Join(HomeDir(), ".env"))
}
