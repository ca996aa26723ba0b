package app

import (
	"errors"
	"strconv"

	"github.com/ayusman/gesturefield/internal/control"
	"github.com/ayusman/gesturefield/internal/log"
	"github.com/ayusman/gesturefield/internal/particles"
	"github.com/ayusman/gesturefield/internal/store"
)

// LoadPreferences overlays stored settings on def. Unreadable values are
// logged and skipped.
func LoadPreferences(repo *store.SettingsRepository, def control.Preferences) control.Preferences {
	p := def

	if v, err := repo.Get(store.KeyTemplate); err == nil {
		if id := particles.TemplateID(v); particles.Known(id) {
			p.Template = id
		} else {
			log.Warn("ignoring stored template", "value", v)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Warn("failed to read stored template", "error", err)
	}

	if v, err := repo.Get(store.KeyColor); err == nil {
		if _, perr := particles.ParseHex(v); perr == nil {
			p.Color = v
		} else {
			log.Warn("ignoring stored color", "value", v)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Warn("failed to read stored color", "error", err)
	}

	if v, err := repo.GetFloat(store.KeyManualScale); err == nil {
		p.ManualScale = v
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Warn("failed to read stored scale", "error", err)
	}

	if v, err := repo.GetInt(store.KeyParticleCount); err == nil {
		p.ParticleCountBase = v
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Warn("failed to read stored particle count", "error", err)
	}

	return p
}

// SavePreferences writes p in one transaction.
func SavePreferences(repo *store.SettingsRepository, p control.Preferences) error {
	return repo.SetMany(map[string]string{
		store.KeyTemplate:      string(p.Template),
		store.KeyColor:         p.Color,
		store.KeyManualScale:   strconv.FormatFloat(p.ManualScale, 'f', -1, 64),
		store.KeyParticleCount: strconv.Itoa(p.ParticleCountBase),
	})
}

// engineSettings converts preferences to engine settings with the same
// fallbacks the bridge applies.
func engineSettings(p control.Preferences) particles.Settings {
	s := particles.DefaultSettings()
	if particles.Known(p.Template) {
		s.Template = p.Template
	}
	if c, err := particles.ParseHex(p.Color); err == nil {
		s.Color = c
	}
	if p.ParticleCountBase >= control.MinParticleCount && p.ParticleCountBase <= control.MaxParticleCount {
		s.ParticleCountBase = p.ParticleCountBase
	}
	return s
}
