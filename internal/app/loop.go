package app

import (
	"context"
	"time"

	"github.com/ayusman/gesturefield/internal/tray"
)

// runLoop is the render loop. Each tick it resolves the scale through the
// bridge, advances the engine by the elapsed time and updates the renderer
// and tray until ctx is done.
func (a *App) runLoop(ctx context.Context) {
	ticker := time.NewTicker(a.config.RenderInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			a.Frame(dt)
		}
	}
}

// Frame advances the field by dt seconds and presents it.
func (a *App) Frame(dt float64) {
	scale := a.bridge.Tick()
	a.engine.Step(dt, scale)

	if a.term == nil && a.trayRef() == nil {
		return
	}

	params := a.bridge.Parameters()
	if a.term != nil {
		a.term.Draw(a.engine.Snapshot(), params)
	}
	if t := a.trayRef(); t != nil {
		t.SetScale(params.Scale)
		t.SetGesture(params.GestureEnabled)
		t.SetTemplate(params.Template)
	}
}

func (a *App) trayRef() *tray.Tray {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tray
}
