// Package traybridge drives an external system tray renderer over a
// line-delimited JSON protocol on the renderer's stdin and stdout.
//
// Install the renderer, then construct a Controller with the initial menu:
//
//	if _, err := traybridge.Install(ctx, traybridge.InstallOptions{}); err != nil {
//		return err
//	}
//	tray := traybridge.New(traybridge.Config{Menu: menu}, traybridge.WithLogger(logger))
//	tray.OnClick(func(ev traybridge.ClickEvent) {
//		if ev.SeqID == 0 {
//			_ = tray.SendAction(traybridge.UpdateItemAction{
//				Item:  ev.Item.WithChecked(!ev.Item.IsChecked()),
//				SeqID: ev.SeqID,
//			})
//		}
//	})
//
// The initial menu is written every time the renderer reports ready. Actions
// are written immediately and are never queued behind readiness.
package traybridge

import (
	"context"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/traybridge/internal/checkbox"
	"github.com/example/traybridge/internal/event"
	"github.com/example/traybridge/internal/install"
	"github.com/example/traybridge/internal/process"
	"github.com/example/traybridge/internal/protocol"
)

// Config describes the tray to create.
type Config struct {
	Menu Menu
	// BinPath is the renderer executable. When empty it is derived from the
	// install options.
	BinPath string
}

// bridge is the part of *process.Bridge the controller depends on.
type bridge interface {
	WriteLine(text string)
	Lines() <-chan string
	Kill() error
	Killed() bool
	OnExit(fn func(process.ExitStatus))
	OnError(fn func(error))
	Done() <-chan struct{}
	Err() error
}

// Controller owns one renderer process for its whole lifetime.
type Controller struct {
	id          string
	logger      *zap.Logger
	platform    string
	policy      CheckboxPolicy
	encoder     *checkbox.Encoder
	installOpts InstallOptions
	installer   *install.Installer
	hostExit    func(int)
	spawn       spawnFunc

	mu      sync.RWMutex
	binPath string

	bridge bridge
	menu   Menu
	state  atomic.Int32

	ready  *event.Bus[struct{}]
	clicks *event.Bus[ClickEvent]
	routed chan struct{}
}

// New spawns the renderer and wires the initial menu to its ready signal.
// Launch failures are reported through OnError.
func New(conf Config, opts ...Option) *Controller {
	c := &Controller{
		id:       uuid.NewString(),
		logger:   zap.NewNop(),
		platform: runtime.GOOS,
		hostExit: os.Exit,
		spawn:    startProcess,
		ready:    event.NewBus[struct{}](),
		clicks:   event.NewBus[ClickEvent](),
		routed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.Named("traybridge").With(zap.String("bridge_id", c.id))
	c.encoder = checkbox.NewWithPolicy(c.platform, c.policy)
	if c.installOpts.Logger == nil {
		c.installOpts.Logger = c.logger
	}
	c.installer = install.New(c.installOpts)

	c.binPath = conf.BinPath
	if c.binPath == "" {
		c.binPath = c.installer.DefaultPath()
	}
	c.menu = c.encoder.Menu(conf.Menu)
	c.state.Store(int32(StateStarting))

	c.logger.Info("starting renderer",
		zap.String("path", c.binPath),
		zap.String("platform", c.encoder.Platform()),
		zap.Int("items", len(c.menu.Items)))

	c.bridge = c.spawn(c.binPath, c.logger)
	c.bridge.OnExit(func(status process.ExitStatus) {
		c.transition(StateExited)
		c.logger.Info("renderer exited", zap.Int("code", status.Code), zap.String("signal", status.Signal))
	})
	if err := c.bridge.Err(); err != nil {
		c.transition(StateExited)
	}

	c.OnReady(c.sendInitialMenu)
	go c.route(c.bridge.Lines())
	return c
}

// Install resolves the renderer, copying it into the configured cache
// directory when needed, and records its path. It is idempotent.
func Install(ctx context.Context, opts InstallOptions) (string, error) {
	return install.New(opts).Ensure(ctx)
}

// Install resolves the renderer with the controller's install options and
// records the resulting path in BinPath.
func (c *Controller) Install(ctx context.Context) error {
	path, err := c.installer.Ensure(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.binPath = path
	c.mu.Unlock()
	return nil
}

// OnReady registers a listener for every ready message from the renderer.
func (c *Controller) OnReady(fn func()) *Controller {
	if fn != nil {
		c.ready.Subscribe(func(struct{}) { fn() })
	}
	return c
}

// OnClick registers a listener for item clicks.
func (c *Controller) OnClick(fn func(ClickEvent)) *Controller {
	c.clicks.Subscribe(fn)
	return c
}

// OnExit registers a listener for renderer termination.
func (c *Controller) OnExit(fn func(ExitStatus)) {
	c.bridge.OnExit(fn)
}

// OnError registers a listener for process level errors such as a failed
// launch or a broken stdin pipe.
func (c *Controller) OnError(fn func(error)) {
	if fn == nil {
		return
	}
	c.bridge.OnError(func(err error) {
		c.logger.Debug("renderer error", zap.Error(err), zap.String("path", c.BinPath()))
		fn(err)
	})
}

// Kill stops reading from the renderer and terminates it. With terminateHost
// the host process exits with status 0 once the renderer's exit has been
// observed, after every previously registered exit listener ran.
func (c *Controller) Kill(terminateHost bool) {
	c.transition(StateExiting)

	if terminateHost {
		if c.bridge.Err() != nil {
			defer c.hostExit(0)
		} else {
			c.bridge.OnExit(func(ExitStatus) {
				c.logger.Info("terminating host after renderer exit")
				c.hostExit(0)
			})
		}
	}

	if err := c.bridge.Kill(); err != nil {
		c.logger.Warn("failed to terminate renderer", zap.Error(err))
	}
}

// Killed reports whether a termination signal was sent to the renderer.
func (c *Controller) Killed() bool {
	return c.bridge.Killed()
}

// BinPath returns the renderer executable path.
func (c *Controller) BinPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.binPath
}

// ID identifies this controller in logs.
func (c *Controller) ID() string {
	return c.id
}

// State returns the current lifecycle stage.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Done is closed when the renderer has exited or failed to start.
func (c *Controller) Done() <-chan struct{} {
	return c.bridge.Done()
}

func (c *Controller) sendInitialMenu() {
	line, err := protocol.Encode(protocol.InitialMenu{Menu: c.menu})
	if err != nil {
		c.logger.Error("failed to encode initial menu", zap.Error(err))
		return
	}
	c.bridge.WriteLine(string(line))
	c.transition(StateRunning)
	c.logger.Debug("initial menu sent", zap.Int("items", len(c.menu.Items)))
}

// transition moves the state machine forward. Ready and Running only follow
// their predecessor, and Exited is final.
func (c *Controller) transition(to State) {
	for {
		from := State(c.state.Load())
		switch {
		case from == StateExited:
			return
		case to == StateReady && from != StateStarting:
			return
		case to == StateRunning && from != StateReady:
			return
		case to == StateExiting && from == StateExiting:
			return
		}
		if c.state.CompareAndSwap(int32(from), int32(to)) {
			c.logger.Debug("state changed", zap.Stringer("from", from), zap.Stringer("to", to))
			return
		}
	}
}
