package catalog

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ramonehamilton/cardfinder/internal/cardid"
)

// Catalog is an immutable snapshot of card records indexed by cd.
type Catalog struct {
	cards    []Card
	byCD     map[string]int
	loadedAt time.Time
}

// New builds a Catalog from raw records. Records that are not the latest
// printing or have no cd are dropped; ids are normalized and the first record
// wins when a cd repeats.
func New(records []Card) *Catalog {
	c := &Catalog{
		cards:    make([]Card, 0, len(records)),
		byCD:     make(map[string]int, len(records)),
		loadedAt: time.Now(),
	}

	for _, rec := range records {
		if !rec.Latest() {
			continue
		}
		rec.CD = cardid.Normalize(rec.CD)
		if rec.CD == "" {
			continue
		}
		if _, dup := c.byCD[rec.CD]; dup {
			continue
		}
		rec.haystack = buildHaystack(&rec)
		c.byCD[rec.CD] = len(c.cards)
		c.cards = append(c.cards, rec)
	}

	return c
}

// Cards returns the records in load order. The slice must not be modified.
func (c *Catalog) Cards() []Card {
	if c == nil {
		return nil
	}
	return c.cards
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.cards)
}

// LoadedAt returns when the snapshot was built.
func (c *Catalog) LoadedAt() time.Time {
	return c.loadedAt
}

// Lookup returns the record for cd.
func (c *Catalog) Lookup(cd string) (Card, bool) {
	if c == nil {
		return Card{}, false
	}
	i, ok := c.byCD[cardid.Normalize(cd)]
	if !ok {
		return Card{}, false
	}
	return c.cards[i], true
}

// Race returns the race of cd, if the card is known.
func (c *Catalog) Race(cd string) (string, bool) {
	card, ok := c.Lookup(cd)
	if !ok {
		return "", false
	}
	return card.Race, true
}

// Source holds the current Catalog and lets it be replaced wholesale.
// It is safe for concurrent use.
type Source struct {
	current atomic.Pointer[Catalog]

	mu        sync.Mutex
	listeners map[int]func(*Catalog)
	nextID    int
}

// NewSource creates a Source holding initial (which may be nil).
func NewSource(initial *Catalog) *Source {
	s := &Source{listeners: make(map[int]func(*Catalog))}
	if initial == nil {
		initial = New(nil)
	}
	s.current.Store(initial)
	return s
}

// Current returns the active snapshot.
func (s *Source) Current() *Catalog {
	return s.current.Load()
}

// Replace swaps in next and notifies reload listeners.
func (s *Source) Replace(next *Catalog) {
	if next == nil {
		next = New(nil)
	}
	s.current.Store(next)

	s.mu.Lock()
	listeners := make([]func(*Catalog), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

// OnReload registers fn to run after every Replace. The returned func
// unregisters it.
func (s *Source) OnReload(fn func(*Catalog)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Race resolves the race of cd against the current snapshot.
func (s *Source) Race(cd string) (string, bool) {
	return s.Current().Race(cd)
}
