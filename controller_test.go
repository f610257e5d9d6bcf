package traybridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/traybridge/internal/event"
	"github.com/example/traybridge/internal/process"
	"github.com/example/traybridge/internal/protocol"
)

type fakeBridge struct {
	in      chan string
	out     chan string
	writes  chan string
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	killed  atomic.Bool
	err     error
	exit    *event.Bus[process.ExitStatus]
	errs    *event.Bus[error]
	writeMu sync.Mutex
}

func newFakeBridge() *fakeBridge {
	f := &fakeBridge{
		in:     make(chan string),
		out:    make(chan string),
		writes: make(chan string, 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		exit:   event.NewLatch[process.ExitStatus](),
		errs:   event.NewBus[error](),
	}
	go f.pump()
	return f
}

func newFailedBridge(err error) *fakeBridge {
	f := &fakeBridge{
		out:    make(chan string),
		writes: make(chan string, 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		err:    err,
		exit:   event.NewLatch[process.ExitStatus](),
		errs:   event.NewBus[error](),
	}
	close(f.out)
	close(f.done)
	return f
}

func (f *fakeBridge) pump() {
	defer close(f.out)
	for {
		select {
		case line := <-f.in:
			select {
			case f.out <- line:
			case <-f.stop:
				return
			}
		case <-f.stop:
			return
		}
	}
}

// emit feeds a renderer line as if it were printed on stdout.
func (f *fakeBridge) emit(t *testing.T, line string) {
	t.Helper()
	select {
	case f.in <- line:
	case <-time.After(5 * time.Second):
		t.Fatalf("renderer line %q was not consumed", line)
	}
}

func (f *fakeBridge) WriteLine(text string) {
	if text == "" || f.err != nil {
		return
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	f.writes <- text
}

func (f *fakeBridge) Lines() <-chan string { return f.out }

func (f *fakeBridge) Kill() error {
	if f.err != nil {
		return nil
	}
	first := false
	f.once.Do(func() {
		first = true
		close(f.stop)
	})
	if !first {
		return nil
	}
	f.killed.Store(true)
	f.exit.Publish(process.ExitStatus{Code: -1, Signal: "SIGTERM"})
	close(f.done)
	return nil
}

func (f *fakeBridge) Killed() bool { return f.killed.Load() }

func (f *fakeBridge) OnExit(fn func(process.ExitStatus)) { f.exit.Subscribe(fn) }

func (f *fakeBridge) OnError(fn func(error)) {
	if fn == nil {
		return
	}
	f.errs.Subscribe(fn)
	if f.err != nil {
		fn(f.err)
	}
}

func (f *fakeBridge) Done() <-chan struct{} { return f.done }

func (f *fakeBridge) Err() error { return f.err }

func (f *fakeBridge) nextWrite(t *testing.T) protocol.Message {
	t.Helper()
	select {
	case line := <-f.writes:
		msg, err := protocol.DecodeHostMessage([]byte(line))
		if err != nil {
			t.Fatalf("host wrote undecodable line %q: %v", line, err)
		}
		return msg
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a host write")
	}
	return nil
}

func (f *fakeBridge) expectNoWrite(t *testing.T) {
	t.Helper()
	select {
	case line := <-f.writes:
		t.Fatalf("unexpected host write %q", line)
	case <-time.After(50 * time.Millisecond):
	}
}

func testMenu() Menu {
	return Menu{
		Icon:    "aWNvbg==",
		Title:   "Demo",
		Tooltip: "demo tray",
		Items: []MenuItem{
			{Title: "checkable", Tooltip: "toggle me", Checked: Bool(false), Enabled: true},
			{Title: "thing", Tooltip: "plain", Enabled: true},
			{Title: "Exit", Tooltip: "bye", Enabled: true},
		},
	}
}

func newTestController(t *testing.T, fake *fakeBridge, platform string, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{
		WithPlatform(platform),
		WithLogger(zap.NewNop()),
		WithHostExit(func(int) { t.Errorf("unexpected host exit") }),
		withSpawner(func(string, *zap.Logger) bridge { return fake }),
	}, opts...)
	c := New(Config{Menu: testMenu(), BinPath: "/opt/renderer"}, opts...)
	t.Cleanup(func() { _ = fake.Kill() })
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestControllerSendsMenuOnEveryReady(t *testing.T) {
	fake := newFakeBridge()
	c := newTestController(t, fake, "linux")

	if c.State() != StateStarting {
		t.Fatalf("expected starting state, got %s", c.State())
	}

	for i := 0; i < 3; i++ {
		fake.emit(t, `{"type":"ready"}`)
		msg := fake.nextWrite(t)
		initial, ok := msg.(protocol.InitialMenu)
		if !ok {
			t.Fatalf("ready %d: expected initial menu, got %T", i, msg)
		}
		if got := initial.Menu.Items[0].Title; got != "checkable"+UncheckedMarker {
			t.Fatalf("ready %d: expected marked title, got %q", i, got)
		}
		if got := initial.Menu.Items[1].Title; got != "thing" {
			t.Fatalf("ready %d: plain item changed to %q", i, got)
		}
		if initial.Menu.Icon != "aWNvbg==" || initial.Menu.Title != "Demo" {
			t.Fatalf("ready %d: menu header lost: %+v", i, initial.Menu)
		}
	}
	fake.expectNoWrite(t)
	if c.State() != StateRunning {
		t.Fatalf("expected running state, got %s", c.State())
	}
}

func TestControllerReadyListenersFollowMenuWrite(t *testing.T) {
	fake := newFakeBridge()
	c := newTestController(t, fake, "darwin")

	seen := make(chan int, 4)
	c.OnReady(func() { seen <- len(fake.writes) })

	fake.emit(t, `{"type":"ready"}`)
	select {
	case n := <-seen:
		if n != 1 {
			t.Fatalf("expected menu written before user listener, pending writes %d", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("ready listener not invoked")
	}
}

func TestControllerClickToggleRoundTrip(t *testing.T) {
	fake := newFakeBridge()
	c := newTestController(t, fake, "linux")

	var sendErr error
	clicked := make(chan ClickEvent, 1)
	c.OnClick(func(ev ClickEvent) {
		if ev.SeqID == 0 {
			sendErr = c.SendAction(UpdateItemAction{
				Item:  ev.Item.WithChecked(!ev.Item.IsChecked()),
				SeqID: ev.SeqID,
			})
		}
		clicked <- ev
	})

	fake.emit(t, `{"type":"ready"}`)
	fake.nextWrite(t)

	fake.emit(t, `{"type":"clicked","item":{"title":"checkable 🅇","tooltip":"toggle me","checked":false,"enabled":true},"seq_id":0}`)

	var ev ClickEvent
	select {
	case ev = <-clicked:
	case <-time.After(5 * time.Second):
		t.Fatalf("click listener not invoked")
	}
	if sendErr != nil {
		t.Fatalf("send action: %v", sendErr)
	}
	if ev.Item.Title != "checkable 🅇" || ev.Item.IsChecked() {
		t.Fatalf("click item not delivered verbatim: %+v", ev.Item)
	}

	msg := fake.nextWrite(t)
	update, ok := msg.(protocol.UpdateItemAction)
	if !ok {
		t.Fatalf("expected update-item, got %T", msg)
	}
	if update.SeqID != 0 {
		t.Fatalf("expected seq id 0, got %d", update.SeqID)
	}
	if update.Item.Title != "checkable"+CheckedMarker || !update.Item.IsChecked() {
		t.Fatalf("unexpected toggled item %+v", update.Item)
	}
}

func TestControllerIgnoresBadLines(t *testing.T) {
	fake := newFakeBridge()
	c := newTestController(t, fake, "linux")

	var readies, clicks atomic.Int32
	c.OnReady(func() { readies.Add(1) })
	c.OnClick(func(ClickEvent) { clicks.Add(1) })

	fake.emit(t, "not json")
	fake.emit(t, `{"type":"hello"}`)
	fake.emit(t, `{"seq_id":3}`)
	fake.emit(t, `{"type":"ready"}`)
	fake.nextWrite(t)

	waitFor(t, func() bool { return readies.Load() == 1 })
	if clicks.Load() != 0 {
		t.Fatalf("expected no clicks, got %d", clicks.Load())
	}
	fake.expectNoWrite(t)
}

func TestControllerDispatchesInArrivalOrder(t *testing.T) {
	fake := newFakeBridge()
	c := newTestController(t, fake, "windows")

	var mu sync.Mutex
	var order []int
	c.OnClick(func(ev ClickEvent) {
		mu.Lock()
		order = append(order, ev.SeqID)
		mu.Unlock()
	})

	fake.emit(t, `{"type":"clicked","item":{"title":"thing","tooltip":"","enabled":true},"seq_id":1}`)
	fake.emit(t, `{"type":"clicked","item":{"title":"Exit","tooltip":"","enabled":true},"seq_id":2}`)
	fake.emit(t, `{"type":"clicked","item":{"title":"thing","tooltip":"","enabled":true},"seq_id":1}`)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})
	mu.Lock()
	defer mu.Unlock()
	want := []int{1, 2, 1}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestControllerActionsAreNotBufferedBeforeReady(t *testing.T) {
	fake := newFakeBridge()
	c := newTestController(t, fake, "linux")

	if err := c.SendAction(UpdateMenuAction{Menu: testMenu(), SeqID: 0}); err != nil {
		t.Fatalf("send action: %v", err)
	}
	msg := fake.nextWrite(t)
	update, ok := msg.(protocol.UpdateMenuAction)
	if !ok {
		t.Fatalf("expected update-menu, got %T", msg)
	}
	if got := update.Menu.Items[0].Title; got != "checkable"+UncheckedMarker {
		t.Fatalf("expected marked title, got %q", got)
	}
	if c.State() != StateStarting {
		t.Fatalf("action changed state to %s", c.State())
	}
}

func TestControllerSendActionDoesNotMutateCaller(t *testing.T) {
	fake := newFakeBridge()
	c := newTestController(t, fake, "linux")

	menu := testMenu()
	item := menu.Items[0].WithChecked(true)
	if err := c.SendAction(UpdateMenuAndItemAction{Menu: menu, Item: item, SeqID: 0}); err != nil {
		t.Fatalf("send action: %v", err)
	}
	msg := fake.nextWrite(t)
	update := msg.(protocol.UpdateMenuAndItemAction)

	if menu.Items[0].Title != "checkable" || item.Title != "checkable" {
		t.Fatalf("caller values mutated: %q %q", menu.Items[0].Title, item.Title)
	}
	if update.Item.Title != "checkable"+CheckedMarker {
		t.Fatalf("expected checked marker, got %q", update.Item.Title)
	}
	if update.Menu.Items[2].Title != "Exit" {
		t.Fatalf("non checkable item changed: %q", update.Menu.Items[2].Title)
	}
}

func TestControllerSendActionRejectsNil(t *testing.T) {
	fake := newFakeBridge()
	c := newTestController(t, fake, "linux")

	err := c.SendAction(nil)
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected encoding error, got %v", err)
	}
	fake.expectNoWrite(t)
}

func TestControllerCustomPolicy(t *testing.T) {
	fake := newFakeBridge()
	policy := func(platform string, item MenuItem) MenuItem {
		item.Title = platform + ":" + item.Title
		return item
	}
	c := newTestController(t, fake, "plan9", WithCheckboxPolicy(policy))

	if err := c.SendAction(UpdateItemAction{Item: MenuItem{Title: "x", Enabled: true}, SeqID: 4}); err != nil {
		t.Fatalf("send action: %v", err)
	}
	update := fake.nextWrite(t).(protocol.UpdateItemAction)
	if update.Item.Title != "plan9:x" {
		t.Fatalf("policy not applied: %q", update.Item.Title)
	}
}

func TestControllerWriteLineIgnoresEmpty(t *testing.T) {
	fake := newFakeBridge()
	c := newTestController(t, fake, "linux")

	c.WriteLine("").WriteLine(`{"type":"update-item","item":{"title":"a","tooltip":"","enabled":true},"seq_id":1}`)
	if _, ok := fake.nextWrite(t).(protocol.UpdateItemAction); !ok {
		t.Fatalf("expected raw update-item line")
	}
	fake.expectNoWrite(t)
}

func TestControllerKillTerminatesHostAfterListeners(t *testing.T) {
	fake := newFakeBridge()

	var mu sync.Mutex
	var events []string
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}
	exitCode := -100

	c := newTestController(t, fake, "linux", WithHostExit(func(code int) {
		exitCode = code
		record("host")
	}))
	c.OnExit(func(status ExitStatus) {
		if status.Signal != "SIGTERM" {
			t.Errorf("expected SIGTERM, got %+v", status)
		}
		record("listener")
	})

	c.Kill(true)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0] != "listener" || events[1] != "host" {
		t.Fatalf("unexpected exit order %v", events)
	}
	if exitCode != 0 {
		t.Fatalf("expected host exit code 0, got %d", exitCode)
	}
	if !c.Killed() {
		t.Fatalf("expected killed")
	}
	if c.State() != StateExited {
		t.Fatalf("expected exited state, got %s", c.State())
	}
}

func TestControllerKillStopsDelivery(t *testing.T) {
	fake := newFakeBridge()
	c := newTestController(t, fake, "linux")

	var clicks atomic.Int32
	c.OnClick(func(ClickEvent) { clicks.Add(1) })

	c.Kill(false)

	select {
	case <-c.routed:
	case <-time.After(5 * time.Second):
		t.Fatalf("router did not stop after kill")
	}
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("done not closed after kill")
	}
	if clicks.Load() != 0 {
		t.Fatalf("unexpected clicks after kill")
	}
}

func TestControllerSpawnFailure(t *testing.T) {
	spawnErr := &SpawnError{Path: "/missing", Err: os.ErrNotExist}
	fake := newFailedBridge(spawnErr)

	hostExits := 0
	c := New(Config{Menu: testMenu(), BinPath: "/missing"},
		withSpawner(func(string, *zap.Logger) bridge { return fake }),
		WithHostExit(func(int) { hostExits++ }))

	var got error
	c.OnError(func(err error) { got = err })
	if !errors.Is(got, os.ErrNotExist) {
		t.Fatalf("expected replayed spawn error, got %v", got)
	}
	var se *SpawnError
	if !errors.As(got, &se) || se.Path != "/missing" {
		t.Fatalf("expected spawn error for /missing, got %v", got)
	}
	if c.State() != StateExited {
		t.Fatalf("expected exited state, got %s", c.State())
	}

	c.Kill(true)
	if hostExits != 1 {
		t.Fatalf("expected host exit once, got %d", hostExits)
	}
	if c.Killed() {
		t.Fatalf("failed spawn must not report killed")
	}
	select {
	case <-c.routed:
	case <-time.After(5 * time.Second):
		t.Fatalf("router still running after failed spawn")
	}
}

func TestControllerDefaultsBinPathFromInstaller(t *testing.T) {
	fake := newFakeBridge()
	cache := t.TempDir()

	var spawned string
	c := New(Config{Menu: testMenu()},
		WithInstallOptions(InstallOptions{CacheDir: cache}),
		withSpawner(func(path string, _ *zap.Logger) bridge {
			spawned = path
			return fake
		}))
	t.Cleanup(func() { _ = fake.Kill() })

	if filepath.Dir(spawned) != cache {
		t.Fatalf("expected renderer under %s, got %s", cache, spawned)
	}
	if c.BinPath() != spawned {
		t.Fatalf("bin path %q does not match spawned %q", c.BinPath(), spawned)
	}
}

func TestControllerInstallUpdatesBinPath(t *testing.T) {
	source := filepath.Join(t.TempDir(), "renderer")
	if err := os.WriteFile(source, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write renderer: %v", err)
	}
	cache := t.TempDir()

	fake := newFakeBridge()
	c := newTestController(t, fake, "linux",
		WithInstallOptions(InstallOptions{Source: source, CacheDir: cache}))

	if err := c.Install(context.Background()); err != nil {
		t.Fatalf("install: %v", err)
	}
	if filepath.Dir(c.BinPath()) != cache {
		t.Fatalf("expected installed path under %s, got %s", cache, c.BinPath())
	}
	if _, err := os.Stat(c.BinPath()); err != nil {
		t.Fatalf("installed renderer missing: %v", err)
	}
}

func TestInstallMissingRenderer(t *testing.T) {
	_, err := Install(context.Background(), InstallOptions{Source: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Fatalf("expected error for missing renderer")
	}
}
