// Package ui is the system tray surface: a glanceable mirror of the editing
// session (loaded project, playback, export progress) with save/close/quit
// actions. It never mutates session state directly; actions go through the
// callbacks wired in main.
package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/walterlow/snapit/internal/session"
)

type Tray struct {
	logger *slog.Logger

	projectItem *systray.MenuItem
	statusItem  *systray.MenuItem
	exportItem  *systray.MenuItem

	mu sync.Mutex

	onSave  func() error
	onClose func()
	onQuit  func()
}

type TrayConfig struct {
	Logger  *slog.Logger
	OnSave  func() error
	OnClose func()
	OnQuit  func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		logger:  cfg.Logger,
		onSave:  cfg.OnSave,
		onClose: cfg.OnClose,
		onQuit:  cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("Snapit")
	systray.SetTooltip("Snapit Session")

	t.projectItem = systray.AddMenuItem("No project", "Loaded project")
	t.projectItem.Disable()

	t.statusItem = systray.AddMenuItem("Idle", "Session status")
	t.statusItem.Disable()

	t.exportItem = systray.AddMenuItem("", "Export progress")
	t.exportItem.Disable()
	t.exportItem.Hide()

	systray.AddSeparator()

	saveItem := systray.AddMenuItem("Save Project", "Persist the current project")
	closeItem := systray.AddMenuItem("Close Project", "Close the current project")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Snapit")

	go func() {
		for {
			select {
			case <-saveItem.ClickedCh:
				t.handleSave()
			case <-closeItem.ClickedCh:
				if t.onClose != nil {
					t.onClose()
				}
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleSave() {
	if t.onSave != nil {
		if err := t.onSave(); err != nil {
			t.logger.Error("failed to save project from tray", "error", err)
		}
	}
}

// Refresh mirrors a session status snapshot into the menu. main calls it on
// a ticker; items not created yet (tray still starting) are skipped.
func (t *Tray) Refresh(st session.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.projectItem == nil {
		return
	}

	if st.HasProject {
		t.projectItem.SetTitle(st.ProjectName)
	} else {
		t.projectItem.SetTitle("No project")
	}

	t.statusItem.SetTitle(stateLabel(st))

	if st.Exporting {
		t.exportItem.SetTitle(fmt.Sprintf("Export: %s %.0f%%", st.ExportStage, st.ExportPercent))
		t.exportItem.Show()
	} else {
		t.exportItem.Hide()
	}
}

func stateLabel(st session.Status) string {
	switch {
	case st.Exporting:
		return "Exporting"
	case st.AutoZooming:
		return "Generating auto-zoom"
	case st.Saving:
		return "Saving"
	case st.Playing:
		return "Playing"
	case st.HasProject:
		return "Paused"
	default:
		return "Idle"
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}
