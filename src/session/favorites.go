package session

import (
	"sync"

	logger "github.com/sirupsen/logrus"
)

// Favorites is the persisted watchlist of trading pairs.
type Favorites struct {
	store *Store

	mu    sync.Mutex
	pairs []string
}

func NewFavorites(store *Store) *Favorites {
	f := &Favorites{store: store}
	if _, err := store.Load(favoritePairsKey, &f.pairs); err != nil {
		logger.WithError(err).Warn("discarding unreadable favorites snapshot")
		f.pairs = nil
	}
	return f
}

// Add appends a pair to the watchlist. Adding a pair that is already
// present is a no-op.
func (f *Favorites) Add(symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pair := range f.pairs {
		if pair == symbol {
			return nil
		}
	}
	f.pairs = append(f.pairs, symbol)
	return f.store.Save(favoritePairsKey, f.pairs)
}

// Remove drops a pair from the watchlist. Removing an absent pair is a
// no-op.
func (f *Favorites) Remove(symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, pair := range f.pairs {
		if pair == symbol {
			f.pairs = append(f.pairs[:i], f.pairs[i+1:]...)
			return f.store.Save(favoritePairsKey, f.pairs)
		}
	}
	return nil
}

func (f *Favorites) List() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	pairs := make([]string, len(f.pairs))
	copy(pairs, f.pairs)
	return pairs
}
