package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapio"

	"github.com/example/traybridge/internal/event"
)

// maxLineSize bounds a single protocol line; menus carry base64 icons.
const maxLineSize = 8 << 20

// ExitStatus describes how the renderer terminated. Code is -1 when the process
// was ended by a signal, in which case Signal names it.
type ExitStatus struct {
	Code   int
	Signal string
}

func (s ExitStatus) String() string {
	if s.Signal != "" {
		return fmt.Sprintf("signal %s", s.Signal)
	}
	return fmt.Sprintf("exit code %d", s.Code)
}

// SpawnError reports that the renderer executable could not be launched.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("process: start %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Bridge owns a single renderer child process and its stdio streams.
type Bridge struct {
	path   string
	logger *zap.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *zapio.Writer

	writeMu sync.Mutex
	lines   chan string
	stop    chan struct{}
	once    sync.Once
	done    chan struct{}

	killed   atomic.Bool
	spawnErr error

	exit   *event.Bus[ExitStatus]
	errors *event.Bus[error]
}

// Start launches the executable at path without arguments. It never fails
// synchronously: a launch failure is reported to error listeners as a
// *SpawnError, including listeners registered afterwards.
func Start(path string, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		path:   path,
		logger: logger.Named("process"),
		lines:  make(chan string),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		exit:   event.NewLatch[ExitStatus](),
		errors: event.NewBus[error](),
	}

	if err := b.spawn(); err != nil {
		b.spawnErr = &SpawnError{Path: path, Err: err}
		b.logger.Error("renderer failed to start", zap.String("path", path), zap.Error(err))
		close(b.lines)
		close(b.done)
		return b
	}

	b.logger.Debug("renderer started", zap.String("path", path), zap.Int("pid", b.cmd.Process.Pid))
	go b.run()
	return b
}

func (b *Bridge) spawn() error {
	if strings.TrimSpace(b.path) == "" {
		return errors.New("empty executable path")
	}

	cmd := exec.Command(b.path)
	configureCommand(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	b.stderr = &zapio.Writer{Log: b.logger.Named("renderer"), Level: zap.DebugLevel}
	cmd.Stderr = b.stderr

	if err := cmd.Start(); err != nil {
		return err
	}

	b.cmd = cmd
	b.stdin = stdin
	b.stdout = stdout
	return nil
}

func (b *Bridge) run() {
	scanner := bufio.NewScanner(b.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	stopped := false
	for scanner.Scan() {
		line := scanner.Text()
		if stopped {
			continue
		}
		select {
		case b.lines <- line:
		case <-b.stop:
			stopped = true
		}
	}
	if err := scanner.Err(); err != nil && !isClosedPipe(err) {
		b.logger.Warn("renderer output stream failed", zap.Error(err))
		b.errors.Publish(fmt.Errorf("process: read output: %w", err))
	}
	close(b.lines)

	err := b.cmd.Wait()
	_ = b.stderr.Close()

	status := exitStatus(b.cmd.ProcessState)
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		b.logger.Warn("renderer wait failed", zap.Error(err))
		b.errors.Publish(fmt.Errorf("process: wait: %w", err))
	}

	b.logger.Debug("renderer exited", zap.Int("code", status.Code), zap.String("signal", status.Signal))
	b.exit.Publish(status)
	close(b.done)
}

// WriteLine sends text to the renderer followed by a single newline. Empty
// text is ignored. Write failures are reported to error listeners.
func (b *Bridge) WriteLine(text string) {
	if text == "" {
		return
	}
	if b.stdin == nil {
		return
	}

	line := strings.TrimSpace(text) + "\n"

	b.writeMu.Lock()
	_, err := io.WriteString(b.stdin, line)
	b.writeMu.Unlock()

	if err != nil {
		b.logger.Warn("write to renderer failed", zap.Error(err))
		b.errors.Publish(fmt.Errorf("process: write line: %w", err))
		return
	}
	b.logger.Debug("wrote line", zap.Int("bytes", len(line)))
}

// Lines returns the renderer's output, one element per line. The channel is
// closed when the output ends or Kill is called. There is only one sequence
// per Bridge.
func (b *Bridge) Lines() <-chan string {
	return b.lines
}

// Kill stops delivering output and asks the renderer to terminate.
func (b *Bridge) Kill() error {
	b.once.Do(func() {
		close(b.stop)
		if b.stdout != nil {
			_ = b.stdout.Close()
		}
	})
	if b.cmd == nil || b.cmd.Process == nil {
		return nil
	}

	if err := terminate(b.cmd.Process); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("process: terminate: %w", err)
	}
	b.killed.Store(true)
	b.logger.Debug("termination signalled", zap.Int("pid", b.cmd.Process.Pid))
	return nil
}

// Killed reports whether a termination signal was delivered.
func (b *Bridge) Killed() bool {
	return b.killed.Load()
}

// OnExit registers a listener for process termination. Listeners registered
// after the process exited are invoked immediately.
func (b *Bridge) OnExit(fn func(ExitStatus)) {
	b.exit.Subscribe(fn)
}

// OnError registers a listener for process level errors.
func (b *Bridge) OnError(fn func(error)) {
	if fn == nil {
		return
	}
	b.errors.Subscribe(fn)
	if b.spawnErr != nil {
		fn(b.spawnErr)
	}
}

// Done is closed once the process has exited or failed to start.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Err returns the spawn error, if any.
func (b *Bridge) Err() error {
	return b.spawnErr
}

// Path returns the executable path the bridge was started with.
func (b *Bridge) Path() string {
	return b.path
}

// PID returns the child process id or 0 when it never started.
func (b *Bridge) PID() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

func isClosedPipe(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
