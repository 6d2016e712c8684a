// Package srv launches the external dev-srv static file server as a
// plain subprocess with the caller's standard streams attached.
package srv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"dev/pkg/logger"
)

// BinaryName is the helper binary serving static files.
const BinaryName = "dev-srv"

// Launcher locates and runs the dev-srv helper. The lookup functions
// are injectable so tests can point at a stub binary.
type Launcher struct {
	lookPath func(string) (string, error)
	homeDir  func() (string, error)
}

// NewLauncher builds a launcher using the real PATH and home lookup.
func NewLauncher() *Launcher {
	return &Launcher{
		lookPath: exec.LookPath,
		homeDir:  os.UserHomeDir,
	}
}

// Locate finds the dev-srv binary: PATH first, then ~/.dev/bin.
func (l *Launcher) Locate() (string, error) {
	if path, err := l.lookPath(BinaryName); err == nil {
		return path, nil
	}

	home, err := l.homeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	fallback := filepath.Join(home, ".dev", "bin", BinaryName)
	info, err := os.Stat(fallback)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH or at %s", BinaryName, fallback)
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return "", fmt.Errorf("%s is not an executable", fallback)
	}
	return fallback, nil
}

// Serve runs dev-srv for dir on port, blocking until the server exits
// or ctx is cancelled. Each launch gets its own cancellation scope, so
// cancelling one serve never affects another.
func (l *Launcher) Serve(ctx context.Context, port int, dir string) error {
	bin, err := l.Locate()
	if err != nil {
		return err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory %q: %w", dir, err)
	}
	if info, err := os.Stat(absDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%q is not a directory", dir)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, strconv.Itoa(port), absDir)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logger.Info("serving directory", "binary", bin, "port", port, "dir", absDir)
	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return runCtx.Err()
		}
		return fmt.Errorf("%s exited: %w", BinaryName, err)
	}
	return nil
}
