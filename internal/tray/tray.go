// Package tray provides a system tray menu for gesturefield.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/gesturefield/internal/particles"
)

// Tray represents the system tray menu.
type Tray struct {
	onToggle   func()
	onTemplate func(particles.TemplateID)
	onOpen     func()
	onQuit     func()

	gesture  bool
	scale    float64
	template particles.TemplateID
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuScale     *systray.MenuItem
	menuTemplates map[particles.TemplateID]*systray.MenuItem
}

// New creates a Tray showing the given template with gesture control off.
func New(template particles.TemplateID) *Tray {
	return &Tray{
		scale:    1,
		template: template,
	}
}

// OnToggle sets the callback for the gesture control menu item.
func (t *Tray) OnToggle(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnTemplate sets the callback for template selection.
func (t *Tray) OnTemplate(fn func(particles.TemplateID)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTemplate = fn
}

// OnOpen sets the callback for the "Open in Browser" menu item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the quit menu item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func gestureLabel(enabled bool) string {
	if enabled {
		return "● Gesture control"
	}
	return "○ Gesture control"
}

func scaleLabel(scale float64) string {
	return fmt.Sprintf("Scale: %.2f", scale)
}

func (t *Tray) onReady() {
	systray.SetTitle("Gesturefield")
	systray.SetTooltip("Gesture-controlled particle field")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(gestureLabel(t.gesture), "Toggle hand tracking")
	t.menuScale = systray.AddMenuItem(scaleLabel(t.scale), "Current field scale")
	t.menuScale.Disable()
	systray.AddSeparator()

	menuTemplate := systray.AddMenuItem("Template", "Particle template")
	t.menuTemplates = make(map[particles.TemplateID]*systray.MenuItem)
	for _, info := range particles.Templates() {
		item := menuTemplate.AddSubMenuItem(info.Name, string(info.ID))
		if info.ID == t.template {
			item.Check()
		}
		t.menuTemplates[info.ID] = item

		go func(id particles.TemplateID, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.handleTemplate(id)
			}
		}(info.ID, item)
	}
	systray.AddSeparator()
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open in Browser...", "Open the web view")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit gesturefield")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.RLock()
	callback := t.onToggle
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleTemplate(id particles.TemplateID) {
	t.mu.RLock()
	callback := t.onTemplate
	t.mu.RUnlock()

	if callback != nil {
		callback(id)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
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

// SetGesture updates the gesture control indicator.
func (t *Tray) SetGesture(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gesture = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(gestureLabel(enabled))
	}
}

// SetScale updates the scale readout.
func (t *Tray) SetScale(scale float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if scaleLabel(scale) == scaleLabel(t.scale) {
		return
	}
	t.scale = scale
	if t.menuScale != nil {
		t.menuScale.SetTitle(scaleLabel(scale))
	}
}

// SetTemplate moves the check mark to id.
func (t *Tray) SetTemplate(id particles.TemplateID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.template == id {
		return
	}
	if item := t.menuTemplates[t.template]; item != nil {
		item.Uncheck()
	}
	if item := t.menuTemplates[id]; item != nil {
		item.Check()
	}
	t.template = id
}

// State returns the displayed gesture flag, scale and template.
func (t *Tray) State() (gesture bool, scale float64, template particles.TemplateID) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gesture, t.scale, t.template
}
