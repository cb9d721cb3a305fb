// Package ownership tracks how many copies of each card the user owns.
//
// Counts are persisted as one JSON document in the kv substrate, keyed by
// canonical card id:
//
//	{"00123": {"normal": 1, "shine": 0, "premium": 0}}
//
// Every operation reads the latest document, changes it in memory and writes
// the whole document back. The store is not safe for concurrent use; callers
// serialize access the same way a UI event loop would.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/ramonehamilton/cardfinder/internal/cardid"
	"github.com/ramonehamilton/cardfinder/internal/catalog"
	"github.com/ramonehamilton/cardfinder/internal/events"
	"github.com/ramonehamilton/cardfinder/internal/kv"
	"github.com/ramonehamilton/cardfinder/internal/metrics"
)

// DefaultKey is the substrate key holding the ownership document.
const DefaultKey = "owned_cards_v1"

// Capacities by race.
const (
	OldGodCapacity  = 1
	DefaultCapacity = 3
)

var (
	// ErrInvalidCardID is returned for an empty card id.
	ErrInvalidCardID = errors.New("ownership: invalid card id")

	// ErrReentrantWrite is returned when a change listener tries to write
	// to the store that is notifying it.
	ErrReentrantWrite = errors.New("ownership: write from inside a change listener")
)

// Entry is the owned-copy count of one card.
type Entry struct {
	Normal  int `json:"normal"`
	Shine   int `json:"shine"`
	Premium int `json:"premium"`
}

// Total returns the number of owned copies across all finishes.
func (e Entry) Total() int {
	return e.Normal + e.Shine + e.Premium
}

// clamped returns e with negative parts raised to zero.
func (e Entry) clamped() Entry {
	return Entry{
		Normal:  max(e.Normal, 0),
		Shine:   max(e.Shine, 0),
		Premium: max(e.Premium, 0),
	}
}

// RaceResolver looks up the race of a card that is not in the store's cache.
type RaceResolver interface {
	Race(cd string) (string, bool)
}

type noRaces struct{}

func (noRaces) Race(string) (string, bool) { return "", false }

// Options configures a Store.
type Options struct {
	// Key overrides DefaultKey.
	Key string

	// Resolver is consulted when neither a race hint nor the cache knows a
	// card's race. Defaults to a resolver that knows nothing.
	Resolver RaceResolver

	Logger *slog.Logger
}

// Store is the per-card ownership counter.
type Store struct {
	substrate kv.Store
	key       string
	resolver  RaceResolver
	logger    *slog.Logger

	races     map[string]string
	listeners events.Listeners
}

// NewStore creates an ownership store on top of substrate.
func NewStore(substrate kv.Store, opts Options) (*Store, error) {
	if substrate == nil {
		return nil, fmt.Errorf("substrate is required")
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Resolver == nil {
		opts.Resolver = noRaces{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Store{
		substrate: substrate,
		key:       opts.Key,
		resolver:  opts.Resolver,
		logger:    opts.Logger,
		races:     make(map[string]string),
	}, nil
}

// load reads the persisted document. Missing or malformed documents yield an
// empty map.
func (s *Store) load() map[string]Entry {
	raw, err := s.substrate.Get(context.Background(), s.key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("ownership read failed, using empty state", "key", s.key, "error", err)
			metrics.RecordPersistenceFailure("ownership", "read")
		}
		return make(map[string]Entry)
	}

	var doc map[string]Entry
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		s.logger.Warn("ownership document corrupt, using empty state", "key", s.key, "error", err)
		metrics.RecordPersistenceFailure("ownership", "read")
		return make(map[string]Entry)
	}
	return canonicalize(doc)
}

// canonicalize rekeys doc by canonical card id. When several keys name the
// same card, the canonical key wins, then the smallest raw key.
func canonicalize(doc map[string]Entry) map[string]Entry {
	keys := lo.Keys(doc)
	slices.Sort(keys)

	out := make(map[string]Entry, len(doc))
	for _, raw := range keys {
		cd := cardid.Normalize(raw)
		if cd == "" {
			continue
		}
		if _, seen := out[cd]; seen && raw != cd {
			continue
		}
		out[cd] = doc[raw]
	}
	return out
}

// save writes the whole document back. Failures are logged and swallowed.
func (s *Store) save(doc map[string]Entry) {
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn("ownership encode failed", "error", err)
		metrics.RecordPersistenceFailure("ownership", "write")
		return
	}
	if err := s.substrate.Set(context.Background(), s.key, string(data)); err != nil {
		s.logger.Warn("ownership write failed", "key", s.key, "error", err)
		metrics.RecordPersistenceFailure("ownership", "write")
	}
}

// Get returns the entry for cd; unknown cards have the zero entry.
func (s *Store) Get(cd string) Entry {
	cd = cardid.Normalize(cd)
	if cd == "" {
		return Entry{}
	}
	return s.load()[cd].clamped()
}

// All returns every non-zero entry keyed by canonical card id.
func (s *Store) All() map[string]Entry {
	doc := s.load()
	out := make(map[string]Entry, len(doc))
	for cd, e := range doc {
		if e = e.clamped(); e.Total() > 0 {
			out[cardid.Normalize(cd)] = e
		}
	}
	return out
}

// Set stores entry for cd with every part clamped to zero or more, then
// notifies listeners. It does not enforce capacity; callers that compute a
// new total clamp it with Capacity first.
func (s *Store) Set(cd string, entry Entry) (Entry, error) {
	if s.listeners.Notifying() {
		metrics.RecordMutation("ownership", "set", ErrReentrantWrite)
		return Entry{}, ErrReentrantWrite
	}
	cd = cardid.Normalize(cd)
	if cd == "" {
		metrics.RecordMutation("ownership", "set", ErrInvalidCardID)
		return Entry{}, ErrInvalidCardID
	}

	entry = entry.clamped()
	doc := s.load()
	if entry.Total() == 0 {
		delete(doc, cd)
	} else {
		doc[cd] = entry
	}
	s.save(doc)

	metrics.RecordMutation("ownership", "set", nil)
	s.logger.Debug("ownership updated", "cd", cd, "total", entry.Total())
	s.listeners.Notify()
	return entry, nil
}

// RememberRace caches the race of cd for later capacity lookups.
func (s *Store) RememberRace(cd, race string) {
	cd = cardid.Normalize(cd)
	if cd == "" || race == "" {
		return
	}
	s.races[cd] = race
}

// Prime fills the race cache from a catalog snapshot.
func (s *Store) Prime(cat *catalog.Catalog) {
	for _, card := range cat.Cards() {
		s.RememberRace(card.CD, card.Race)
	}
}

// Capacity returns how many copies of cd may be owned: 1 for the Old God
// race, otherwise 3. The race comes from raceHint, then the cache, then the
// resolver; an unresolved race gets the permissive default.
func (s *Store) Capacity(cd, raceHint string) int {
	if raceHint == catalog.OldGodRace {
		return OldGodCapacity
	}

	cd = cardid.Normalize(cd)
	race := raceHint
	if race == "" {
		race = s.races[cd]
	}
	if race == "" {
		if resolved, ok := s.resolver.Race(cd); ok {
			race = resolved
			s.RememberRace(cd, resolved)
		}
	}

	if race == catalog.OldGodRace {
		return OldGodCapacity
	}
	return DefaultCapacity
}

// SetTotal clamps n into [0, capacity] and stores it as normal copies.
func (s *Store) SetTotal(cd string, n int, raceHint string) (Entry, error) {
	capacity := s.Capacity(cd, raceHint)
	n = min(max(n, 0), capacity)
	return s.Set(cd, Entry{Normal: n})
}

// Toggle advances the total by one, wrapping to zero once it has reached
// capacity.
func (s *Store) Toggle(cd string, raceHint string) (Entry, error) {
	capacity := s.Capacity(cd, raceHint)
	current := s.Get(cd).Total()

	next := current + 1
	if current >= capacity {
		next = 0
	}
	return s.SetTotal(cd, next, raceHint)
}

// Complete reports whether the owned total of cd has reached capacity.
func (s *Store) Complete(cd, raceHint string) bool {
	return s.Get(cd).Total() >= s.Capacity(cd, raceHint)
}

// OnChange registers fn to run after every successful Set. Listeners may
// read the store but must not write to it. The returned func unregisters fn.
func (s *Store) OnChange(fn func()) func() {
	return s.listeners.Add(fn)
}
