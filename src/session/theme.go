package session

import (
	"sync"

	logger "github.com/sirupsen/logrus"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Theme is the persisted display preference, light by default.
type Theme struct {
	store *Store

	mu      sync.Mutex
	current string
}

func NewTheme(store *Store) *Theme {
	t := &Theme{store: store, current: ThemeLight}
	var saved string
	if ok, err := store.Load(themeStorageKey, &saved); err != nil {
		logger.WithError(err).Warn("discarding unreadable theme snapshot")
	} else if ok && (saved == ThemeLight || saved == ThemeDark) {
		t.current = saved
	}
	return t
}

func (t *Theme) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Toggle flips between light and dark and persists the choice.
func (t *Theme) Toggle() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == ThemeLight {
		t.current = ThemeDark
	} else {
		t.current = ThemeLight
	}
	return t.current, t.store.Save(themeStorageKey, t.current)
}
