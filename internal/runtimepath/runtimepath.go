package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
)

// socketName is the API socket file inside Dir.
const socketName = "xwinsys.sock"

// Dir returns the per-user runtime directory, preferring XDG_RUNTIME_DIR,
// then /run/user/<uid>, then a private directory under /tmp that is
// created on demand.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}

	uid := os.Getuid()
	if dir := fmt.Sprintf("/run/user/%d", uid); isDir(dir) {
		return dir, nil
	}

	dir := fmt.Sprintf("/tmp/xwinsys-runtime-%d", uid)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return dir, nil
}

// SocketPath returns the default API socket path.
func SocketPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, socketName), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
