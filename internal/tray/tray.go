// Package tray provides a system tray menu for palmgate.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: session start/stop, photo mode and the last score.
type Tray struct {
	onToggle    func(running bool) error
	onPhotoMode func(enabled bool)
	onSettings  func()
	onQuit      func()
	running     bool
	photoMode   bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuPhotoMode *systray.MenuItem
	menuLastScore *systray.MenuItem
}

// New creates a new Tray with capture stopped.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback run when capture is started or stopped. A
// failed start leaves the menu showing the previous state.
func (t *Tray) OnToggle(fn func(running bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnPhotoMode sets the callback run when photo mode is toggled.
func (t *Tray) OnPhotoMode(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPhotoMode = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("palmgate")
	systray.SetTooltip("palmgate hand capture")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.running), "Start or stop capture")
	t.menuPhotoMode = systray.AddMenuItemCheckbox("Photo mode", "Process a still photo on demand", t.photoMode)
	systray.AddSeparator()

	t.menuLastScore = systray.AddMenuItem("Last: none", "Last comparison score")
	t.menuLastScore.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit palmgate")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuPhotoMode.ClickedCh:
				t.handlePhotoMode()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(running bool) string {
	if running {
		return "■ Stop capture"
	}
	return "▶ Start capture"
}

// handleToggle flips the capture state. The callback runs outside the lock.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	want := !t.running
	callback := t.onToggle
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(want); err != nil {
			t.SetLastScore(fmt.Sprintf("error: %v", err))
			return
		}
	}
	t.SetRunning(want)
}

func (t *Tray) handlePhotoMode() {
	t.mu.Lock()
	t.photoMode = !t.photoMode
	enabled := t.photoMode
	if t.menuPhotoMode != nil {
		if enabled {
			t.menuPhotoMode.Check()
		} else {
			t.menuPhotoMode.Uncheck()
		}
	}
	callback := t.onPhotoMode
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetRunning updates the capture state shown in the menu, e.g. when a
// session ends on its own.
func (t *Tray) SetRunning(running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = running
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(running))
	}
}

// SetLastScore updates the last score display in the menu.
func (t *Tray) SetLastScore(text string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastScore != nil {
		if text == "" {
			t.menuLastScore.SetTitle("Last: none")
		} else {
			t.menuLastScore.SetTitle("Last: " + text)
		}
	}
}

// FormatScore renders a comparison outcome for the menu.
func FormatScore(score float64, accepted bool) string {
	verdict := "rejected"
	if accepted {
		verdict = "accepted"
	}
	return fmt.Sprintf("%.4f (%s)", score, verdict)
}

// IsRunning returns the capture state shown in the menu.
func (t *Tray) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// PhotoMode returns whether photo mode is checked.
func (t *Tray) PhotoMode() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.photoMode
}

// SetPhotoMode sets the initial photo mode check state.
func (t *Tray) SetPhotoMode(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.photoMode = enabled
	if t.menuPhotoMode != nil {
		if enabled {
			t.menuPhotoMode.Check()
		} else {
			t.menuPhotoMode.Uncheck()
		}
	}
}
