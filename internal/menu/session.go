package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/example/traybridge/internal/logging"
	"github.com/example/traybridge/internal/protocol"
)

const maxLineSize = 8 * 1024 * 1024

// Session connects a Tray to a host speaking the line protocol.
type Session struct {
	tray   Tray
	in     io.Reader
	out    io.Writer
	logger *zap.Logger

	writeMu sync.Mutex

	mu   sync.RWMutex
	menu protocol.Menu
}

// NewSession builds a session reading host messages from in and writing
// events to out.
func NewSession(tray Tray, in io.Reader, out io.Writer, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		tray:   tray,
		in:     in,
		out:    out,
		logger: logger.Named("session"),
	}
}

// Run reports ready once the tray is up and serves host messages and clicks
// until the host closes its end or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.readHost()
	go s.forwardClicks(ctx)

	return s.tray.Run(ctx, func() {
		s.logger.Debug("tray ready")
		s.emit(protocol.ReadyEvent{})
	})
}

// Menu returns a copy of the current menu.
func (s *Session) Menu() protocol.Menu {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.menu.Clone()
}

// Apply handles a single host line.
func (s *Session) Apply(line []byte) error {
	msg, err := protocol.DecodeHostMessage(line)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case protocol.InitialMenu:
		s.setMenu(m.Menu)
	case protocol.UpdateMenuAction:
		s.setMenu(m.Menu)
	case protocol.UpdateItemAction:
		return s.setItem(m.SeqID, m.Item)
	case protocol.UpdateMenuAndItemAction:
		s.setMenu(m.Menu)
		return s.setItem(m.SeqID, m.Item)
	}
	return nil
}

func (s *Session) setMenu(m protocol.Menu) {
	s.mu.Lock()
	s.menu = m.Clone()
	s.mu.Unlock()

	s.logger.Debug("menu replaced", zap.Int("items", len(m.Items)))
	s.tray.SetMenu(m)
}

func (s *Session) setItem(index int, item protocol.MenuItem) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.menu.Items) {
		count := len(s.menu.Items)
		s.mu.Unlock()
		return fmt.Errorf("menu: item %d out of range (%d items)", index, count)
	}
	s.menu.Items[index] = item
	s.mu.Unlock()

	s.tray.SetItem(index, item)
	return nil
}

func (s *Session) readHost() {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := s.Apply(line); err != nil {
			s.logger.Warn("ignoring host line",
				zap.Error(err),
				zap.String("payload", logging.DescribePayload(line)))
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("host input failed", zap.Error(err))
	}

	s.logger.Info("host closed input, quitting")
	s.tray.Quit()
}

func (s *Session) forwardClicks(ctx context.Context) {
	clicks := s.tray.Clicks()
	for {
		select {
		case <-ctx.Done():
			return
		case index, ok := <-clicks:
			if !ok {
				return
			}
			s.click(index)
		}
	}
}

func (s *Session) click(index int) {
	s.mu.RLock()
	if index < 0 || index >= len(s.menu.Items) {
		s.mu.RUnlock()
		s.logger.Debug("click on unknown item", zap.Int("index", index))
		return
	}
	item := s.menu.Items[index]
	s.mu.RUnlock()

	s.emit(protocol.ClickEvent{Item: item, SeqID: index})
}

func (s *Session) emit(ev protocol.Event) {
	line, err := protocol.Encode(ev)
	if err != nil {
		s.logger.Error("failed to encode event", zap.Error(err))
		return
	}
	line = append(line, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(line); err != nil {
		s.logger.Warn("failed to write event", zap.String("type", ev.MessageType()), zap.Error(err))
	}
}
