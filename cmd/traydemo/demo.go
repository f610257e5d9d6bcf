package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/example/traybridge"
)

const (
	itemCheckable = iota
	itemThing
	itemExit
)

// actor is the part of *traybridge.Controller the click handler drives.
type actor interface {
	SendAction(traybridge.Action) error
	Kill(terminateHost bool)
}

func demoMenu(icon string) traybridge.Menu {
	return traybridge.Menu{
		Icon:    icon,
		Title:   "traybridge",
		Tooltip: "traybridge demo",
		Items: []traybridge.MenuItem{
			{Title: "checkable", Tooltip: "toggles on click", Checked: traybridge.Bool(true), Enabled: true},
			{Title: "thing", Tooltip: "logs on click", Enabled: true},
			{Title: "Exit", Tooltip: "stop the renderer and exit", Enabled: true},
		},
	}
}

func handleClick(tray actor, logger *zap.Logger, ev traybridge.ClickEvent) {
	switch ev.SeqID {
	case itemCheckable:
		item := ev.Item.WithChecked(!ev.Item.IsChecked())
		if err := tray.SendAction(traybridge.UpdateItemAction{Item: item, SeqID: ev.SeqID}); err != nil {
			logger.Error("failed to toggle item", zap.Error(err))
		}
	case itemThing:
		logger.Info("thing clicked", zap.String("title", ev.Item.Title))
	case itemExit:
		logger.Info("exit clicked")
		tray.Kill(true)
	default:
		logger.Warn("click on unknown item", zap.Int("seq_id", ev.SeqID))
	}
}

// loadIcon reads an image file and returns it base64 encoded.
func loadIcon(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read icon: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
