// Package groups manages named card groups and the two system groups,
// fav and meta.
//
// The whole collection is one versioned JSON document in the kv substrate.
// Each read repairs the document (see ensureDefault), and each mutation
// rewrites it in full before notifying listeners. Like the ownership store,
// a Store is not safe for concurrent use.
package groups

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ramonehamilton/cardfinder/internal/cardid"
	"github.com/ramonehamilton/cardfinder/internal/events"
	"github.com/ramonehamilton/cardfinder/internal/kv"
	"github.com/ramonehamilton/cardfinder/internal/metrics"
)

// DefaultKey is the substrate key holding the group document.
const DefaultKey = "card_groups_v1"

// DefaultGroupName is used when a group is created without a name.
const DefaultGroupName = "新しいグループ"

// maxNameSuffix is the last numbered suffix tried before falling back to a
// timestamp.
const maxNameSuffix = 999

// Options configures a Store.
type Options struct {
	// Key overrides DefaultKey.
	Key string

	// Official overrides the embedded official meta list.
	Official *OfficialMeta

	Logger *slog.Logger

	// Now and NewID default to time.Now and a uuid based generator.
	Now   func() time.Time
	NewID func() string
}

// Store is the group collection.
type Store struct {
	substrate kv.Store
	key       string
	official  OfficialMeta
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	listeners events.Listeners
}

// NewStore creates a group store on top of substrate.
func NewStore(substrate kv.Store, opts Options) (*Store, error) {
	if substrate == nil {
		return nil, fmt.Errorf("substrate is required")
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	official := DefaultOfficialMeta()
	if opts.Official != nil {
		official = *opts.Official
		official.Cards = slices.Clone(official.Cards)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "grp-" + uuid.NewString() }
	}

	return &Store{
		substrate: substrate,
		key:       opts.Key,
		official:  official,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}, nil
}

// read loads and repairs the persisted state. A repaired document is written
// back so the substrate always holds a valid collection.
func (s *Store) read() *State {
	raw, err := s.substrate.Get(context.Background(), s.key)
	st := &State{}
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		s.logger.Warn("group state read failed, using default state", "key", s.key, "error", err)
		metrics.RecordPersistenceFailure("groups", "read")
	default:
		decoded, derr := decodeState(raw)
		if derr != nil {
			s.logger.Warn("group state corrupt, using default state", "key", s.key, "error", derr)
			metrics.RecordPersistenceFailure("groups", "read")
		} else {
			st = decoded
		}
	}

	ensureDefault(st, s.official)

	if encoded, eerr := encodeState(st); eerr == nil && encoded != raw {
		s.logger.Debug("group state reconciled", "key", s.key, "groups", len(st.Order))
		s.write(encoded)
	}
	return st
}

func (s *Store) save(st *State) {
	encoded, err := encodeState(st)
	if err != nil {
		s.logger.Warn("group state encode failed", "error", err)
		metrics.RecordPersistenceFailure("groups", "write")
		return
	}
	s.write(encoded)
}

func (s *Store) write(encoded string) {
	if err := s.substrate.Set(context.Background(), s.key, encoded); err != nil {
		s.logger.Warn("group state write failed", "key", s.key, "error", err)
		metrics.RecordPersistenceFailure("groups", "write")
	}
}

// mutate runs fn against the latest state, persists the result and notifies
// listeners. Nothing is written when fn fails.
func (s *Store) mutate(op string, fn func(st *State) error) error {
	if s.listeners.Notifying() {
		metrics.RecordMutation("groups", op, ErrReentrantWrite)
		return ErrReentrantWrite
	}

	st := s.read()
	if err := fn(st); err != nil {
		metrics.RecordMutation("groups", op, err)
		s.logger.Debug("group operation rejected", "op", op, "reason", Reason(err))
		return err
	}
	ensureDefault(st, s.official)
	s.save(st)

	metrics.RecordMutation("groups", op, nil)
	s.listeners.Notify()
	return nil
}

// State returns a copy of the current, reconciled collection.
func (s *Store) State() State {
	return s.read().Clone()
}

// ListGroups returns the groups in display order.
func (s *Store) ListGroups() []Group {
	st := s.read()
	return lo.Map(st.Order, func(id string, _ int) Group {
		return st.Groups[id].Clone()
	})
}

// Group returns the group with the given id.
func (s *Store) Group(id string) (Group, bool) {
	g := s.read().Groups[id]
	if g == nil {
		return Group{}, false
	}
	return g.Clone(), true
}

// CreateGroup appends a new group. The name is made unique by appending
// （2）, （3） and so on.
func (s *Store) CreateGroup(name string) (Group, error) {
	var created Group
	err := s.mutate("create", func(st *State) error {
		if len(st.Order) >= MaxGroups {
			return ErrLimitExceeded
		}

		name = strings.TrimSpace(name)
		if name == "" {
			name = DefaultGroupName
		}

		id := s.newID()
		for st.Groups[id] != nil || IsSystem(id) {
			id = s.newID()
		}

		g := &Group{ID: id, Name: s.uniqueName(st, name, ""), Cards: make(CardSet)}
		st.Groups[id] = g
		st.Order = append(st.Order, id)
		created = g.Clone()
		return nil
	})
	return created, err
}

// RenameGroup renames a group. An empty name leaves it unchanged. Renaming a
// system group to a different name marks it touched.
func (s *Store) RenameGroup(id, name string) (Group, error) {
	var renamed Group
	err := s.mutate("rename", func(st *State) error {
		g, err := mutableGroup(st, id)
		if err != nil {
			return err
		}

		if name = strings.TrimSpace(name); name != "" {
			resolved := s.uniqueName(st, name, id)
			if resolved != g.Name {
				st.sysTouch(id)
			}
			g.Name = resolved
		}
		renamed = g.Clone()
		return nil
	})
	return renamed, err
}

// DeleteGroup removes a group. System groups leave a tombstone so they are
// not recreated.
func (s *Store) DeleteGroup(id string) error {
	return s.mutate("delete", func(st *State) error {
		if _, err := mutableGroup(st, id); err != nil {
			return err
		}

		st.sysDelete(id)
		delete(st.Groups, id)
		st.Order = slices.DeleteFunc(st.Order, isID(id))
		if st.ActiveID == id {
			st.ActiveID = ""
		}
		if st.EditingID == id {
			st.EditingID = ""
			st.EditBase = nil
		}
		return nil
	})
}

// MoveGroup moves a group to position to, clamped into range.
func (s *Store) MoveGroup(id string, to int) error {
	return s.mutate("move", func(st *State) error {
		from := slices.Index(st.Order, id)
		if from < 0 {
			return ErrNotFound
		}

		order := slices.Delete(st.Order, from, from+1)
		to = min(max(to, 0), len(order))
		st.Order = slices.Insert(order, to, id)
		return nil
	})
}

// SetActive makes id the active group, or clears the active group when id
// does not exist.
func (s *Store) SetActive(id string) error {
	return s.mutate("set_active", func(st *State) error {
		st.ActiveID = ""
		if st.Groups[id] != nil {
			st.ActiveID = id
		}
		return nil
	})
}

// ToggleActive clears the active group if it is id, otherwise behaves like
// SetActive.
func (s *Store) ToggleActive(id string) error {
	return s.mutate("toggle_active", func(st *State) error {
		switch {
		case id != "" && st.ActiveID == id:
			st.ActiveID = ""
		case st.Groups[id] != nil:
			st.ActiveID = id
		default:
			st.ActiveID = ""
		}
		return nil
	})
}

// StartEditing opens an edit session on id. A session on another group is
// closed first, as if StopEditing had been called.
func (s *Store) StartEditing(id string) error {
	return s.mutate("start_editing", func(st *State) error {
		g := st.Groups[id]
		if g == nil {
			return ErrNotFound
		}
		if st.EditingID == id && st.EditBase != nil {
			return nil
		}

		finishEditing(st)
		st.EditingID = id
		st.EditBase = &EditBase{ID: id, Name: g.Name, CardsHash: g.Cards.Hash()}
		return nil
	})
}

// StopEditing closes the edit session. A system group whose name or cards
// differ from the snapshot taken by StartEditing is marked touched.
func (s *Store) StopEditing() error {
	return s.mutate("stop_editing", func(st *State) error {
		finishEditing(st)
		return nil
	})
}

func finishEditing(st *State) {
	if st.EditingID == "" {
		st.EditBase = nil
		return
	}
	if g, base := st.Groups[st.EditingID], st.EditBase; g != nil && base != nil && base.ID == st.EditingID {
		if g.Name != base.Name || g.Cards.Hash() != base.CardsHash {
			st.sysTouch(st.EditingID)
		}
	}
	st.EditingID = ""
	st.EditBase = nil
}

// ToggleCardInGroup flips membership of cd in group id and reports whether
// the card is now a member. Changes to a system group outside an edit session
// of that group mark it touched immediately.
func (s *Store) ToggleCardInGroup(id, cd string) (bool, error) {
	var member bool
	err := s.mutate("toggle_card", func(st *State) error {
		cd = cardid.Normalize(cd)
		if cd == "" {
			return ErrInvalidCardID
		}
		g, err := mutableGroup(st, id)
		if err != nil {
			return err
		}

		member = g.Cards.Toggle(cd)
		if st.EditingID != id {
			st.sysTouch(id)
		}
		return nil
	})
	return member, err
}

// ActiveFilterSet returns the cards of the active group. The boolean is false
// when no group restriction applies: nothing is active, or a group is being
// edited. An active group with no cards returns an empty set and true, which
// filters every card out.
func (s *Store) ActiveFilterSet() (CardSet, bool) {
	st := s.read()
	if st.EditingID != "" || st.ActiveID == "" {
		return nil, false
	}
	return st.Groups[st.ActiveID].Cards.Clone(), true
}

// OnChange registers fn to run after every successful mutation. Listeners
// may read the store but must not write to it. The returned func unregisters
// fn.
func (s *Store) OnChange(fn func()) func() {
	return s.listeners.Add(fn)
}

func mutableGroup(st *State, id string) (*Group, error) {
	g := st.Groups[id]
	if g == nil {
		return nil, ErrNotFound
	}
	if g.Fixed && !IsSystem(id) {
		return nil, ErrImmutable
	}
	return g, nil
}

// uniqueName resolves name against every group except excludeID.
func (s *Store) uniqueName(st *State, name, excludeID string) string {
	taken := make(map[string]bool, len(st.Groups))
	for id, g := range st.Groups {
		if id != excludeID {
			taken[g.Name] = true
		}
	}
	if !taken[name] {
		return name
	}
	for n := 2; n <= maxNameSuffix; n++ {
		if candidate := fmt.Sprintf("%s（%d）", name, n); !taken[candidate] {
			return candidate
		}
	}
	return fmt.Sprintf("%s（%d）", name, s.now().UnixMilli())
}
