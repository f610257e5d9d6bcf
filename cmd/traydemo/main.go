// Command traydemo runs a small tray through traybridge: a checkable item, a
// plain item and an exit item.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/traybridge"
	"github.com/example/traybridge/internal/config"
	"github.com/example/traybridge/internal/logging"
)

var (
	configPath string
	binPath    string
	iconPath   string
	logger     *zap.Logger
	cfg        *config.Config
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "traydemo",
		Short:        "Tray demo driven through traybridge",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err = logging.New(cfg.LoggingOptions())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&binPath, "bin", "", "Renderer executable (overrides renderer.path)")
	rootCmd.Flags().StringVar(&iconPath, "icon", "", "Tray icon file (.png on posix, .ico on windows)")

	rootCmd.AddCommand(runCmd(), installCmd())
	return rootCmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Show the demo tray until Exit is clicked",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&iconPath, "icon", "", "Tray icon file (.png on posix, .ico on windows)")
	return cmd
}

func installCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Resolve the renderer and copy it into the cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := traybridge.Install(cmd.Context(), installOptions())
			if err != nil {
				return fmt.Errorf("install failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func installOptions() traybridge.InstallOptions {
	source := binPath
	if source == "" {
		source = cfg.Renderer.Path
	}
	return traybridge.InstallOptions{
		Source:   source,
		CacheDir: cfg.Renderer.CacheDir,
		Logger:   logger,
	}
}

func runDemo(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	icon, err := loadIcon(iconPath)
	if err != nil {
		return err
	}

	opts := []traybridge.Option{
		traybridge.WithLogger(logger),
		traybridge.WithPlatform(cfg.Platform),
		traybridge.WithInstallOptions(installOptions()),
	}
	tray := traybridge.New(traybridge.Config{Menu: demoMenu(icon)}, opts...)

	tray.OnReady(func() {
		logger.Info("tray is ready")
	})
	tray.OnClick(func(ev traybridge.ClickEvent) {
		handleClick(tray, logger, ev)
	})
	tray.OnError(func(err error) {
		logger.Error("renderer error", zap.Error(err))
	})
	tray.OnExit(func(status traybridge.ExitStatus) {
		logger.Info("renderer exited", zap.Stringer("status", status))
	})

	select {
	case <-tray.Done():
	case <-ctx.Done():
		logger.Info("interrupted, stopping renderer")
		tray.Kill(false)
		<-tray.Done()
	}
	return nil
}
