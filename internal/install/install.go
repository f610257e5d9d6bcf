// Package install resolves the renderer executable and optionally copies it
// into a private cache directory.
package install

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// EnvRenderer overrides the renderer source path.
const EnvRenderer = "TRAYBRIDGE_RENDERER"

// DefaultBinaryName is the renderer executable looked up on PATH.
const DefaultBinaryName = "tray_renderer"

// Options controls how the renderer is located.
type Options struct {
	// Source is the renderer executable. When empty the TRAYBRIDGE_RENDERER
	// environment variable and then PATH are consulted.
	Source string
	// CacheDir, when set, receives a private copy of the renderer.
	CacheDir   string
	BinaryName string
	Logger     *zap.Logger
}

// Installer makes sure a runnable renderer exists. Ensure is idempotent.
type Installer struct {
	opts   Options
	logger *zap.Logger

	mu   sync.Mutex
	path string
}

// New constructs an Installer.
func New(opts Options) *Installer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{opts: opts, logger: logger.Named("install")}
}

// BinaryName returns the platform specific executable name.
func (i *Installer) BinaryName() string {
	name := strings.TrimSpace(i.opts.BinaryName)
	if name == "" {
		name = DefaultBinaryName
	}
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		name += ".exe"
	}
	return name
}

// Ensure resolves the renderer and, with a cache directory configured, copies
// it there when the cached copy is missing or differs. It returns the path to
// execute.
func (i *Installer) Ensure(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.path != "" {
		if _, err := os.Stat(i.path); err == nil {
			return i.path, nil
		}
		i.logger.Debug("previously installed renderer vanished", zap.String("path", i.path))
		i.path = ""
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	source, err := i.resolveSource()
	if err != nil {
		return "", err
	}

	target := source
	if dir := strings.TrimSpace(i.opts.CacheDir); dir != "" {
		target = filepath.Join(dir, i.BinaryName())
		if err := i.copyIfChanged(ctx, source, target); err != nil {
			return "", err
		}
	}

	i.path = target
	i.logger.Info("renderer ready", zap.String("path", target))
	return target, nil
}

// Path returns the most recently installed path without touching the disk.
func (i *Installer) Path() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.path
}

// DefaultPath guesses the renderer path without copying anything. It is used
// when a bridge is constructed before Ensure completed.
func (i *Installer) DefaultPath() string {
	if p := i.Path(); p != "" {
		return p
	}
	if dir := strings.TrimSpace(i.opts.CacheDir); dir != "" {
		return filepath.Join(dir, i.BinaryName())
	}
	if source, err := i.resolveSource(); err == nil {
		return source
	}
	return i.BinaryName()
}

func (i *Installer) resolveSource() (string, error) {
	if src := strings.TrimSpace(i.opts.Source); src != "" {
		return absolute(src)
	}
	if src := strings.TrimSpace(os.Getenv(EnvRenderer)); src != "" {
		return absolute(src)
	}
	found, err := exec.LookPath(i.BinaryName())
	if err != nil {
		return "", fmt.Errorf("install: locate %s: %w", i.BinaryName(), err)
	}
	return absolute(found)
}

func absolute(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("install: resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("install: stat renderer: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("install: renderer %s is a directory", abs)
	}
	return abs, nil
}

func (i *Installer) copyIfChanged(ctx context.Context, source, target string) error {
	if source == target {
		return nil
	}

	want, err := digestFile(source)
	if err != nil {
		return err
	}
	if have, err := digestFile(target); err == nil && bytes.Equal(have, want) {
		i.logger.Debug("cached renderer up to date", zap.String("path", target))
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		i.logger.Debug("cached renderer unreadable, replacing", zap.Error(err))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("install: ensure cache dir: %w", err)
	}

	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("install: open source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), ".renderer-*")
	if err != nil {
		return fmt.Errorf("install: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("install: copy renderer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o755); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install: chmod renderer: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install: move renderer into place: %w", err)
	}

	i.logger.Info("copied renderer", zap.String("from", source), zap.String("to", target))
	return nil
}

func digestFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("install: hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}
