package traybridge

import (
	"go.uber.org/zap"

	"github.com/example/traybridge/internal/process"
)

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPlatform overrides runtime.GOOS for the checkbox title policy.
func WithPlatform(platform string) Option {
	return func(c *Controller) {
		if platform != "" {
			c.platform = platform
		}
	}
}

// WithCheckboxPolicy replaces the default title marker policy.
func WithCheckboxPolicy(policy CheckboxPolicy) Option {
	return func(c *Controller) {
		c.policy = policy
	}
}

// WithInstallOptions configures how Install and the default binary path
// locate the renderer.
func WithInstallOptions(opts InstallOptions) Option {
	return func(c *Controller) {
		c.installOpts = opts
	}
}

// WithHostExit replaces os.Exit as the function Kill(true) uses to end the
// host process.
func WithHostExit(exit func(code int)) Option {
	return func(c *Controller) {
		if exit != nil {
			c.hostExit = exit
		}
	}
}

type spawnFunc func(path string, logger *zap.Logger) bridge

func withSpawner(spawn spawnFunc) Option {
	return func(c *Controller) {
		c.spawn = spawn
	}
}

func startProcess(path string, logger *zap.Logger) bridge {
	return process.Start(path, logger)
}
