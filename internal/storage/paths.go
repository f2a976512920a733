// Package storage keeps dense layer parameters in a BadgerDB store, the
// weight ingestion side of a pipeline.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "nnstream"

// EnvDataDir overrides the platform data directory when set.
const EnvDataDir = "NNSTREAM_DATA_DIR"

// GetDataDir returns the directory nnstream keeps its state in, creating it
// if needed. NNSTREAM_DATA_DIR wins; otherwise it is appName under the
// platform's per-user application data root.
func GetDataDir() (string, error) {
	dir := os.Getenv(EnvDataDir)
	if dir == "" {
		base, err := dataRoot()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, appName)
	}
	return ensureDir(dir)
}

// GetDatabaseDir returns the directory holding the BadgerDB files.
func GetDatabaseDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(dataDir, "db"))
}

func dataRoot() (string, error) {
	env, fallback := "XDG_DATA_HOME", []string{".local", "share"}
	switch runtime.GOOS {
	case "darwin":
		env, fallback = "", []string{"Library", "Application Support"}
	case "windows":
		env, fallback = "APPDATA", []string{"AppData", "Roaming"}
	}

	if env != "" {
		if dir := os.Getenv(env); dir != "" {
			return dir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{home}, fallback...)...), nil
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
