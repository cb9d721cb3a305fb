package groups

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/ramonehamilton/cardfinder/internal/cardid"
)

// SchemaVersion is the version written to the "v" field of the persisted state.
const SchemaVersion = 1

// MaxGroups is the most groups a collection may hold.
const MaxGroups = 10

// System group ids.
const (
	FavID  = "fav"
	MetaID = "meta"
)

// CardSet is an unordered set of canonical card ids. It encodes as a sorted
// JSON array.
type CardSet map[string]struct{}

// NewCardSet builds a set from card ids, normalizing each.
func NewCardSet(cds ...string) CardSet {
	s := make(CardSet, len(cds))
	for _, cd := range cds {
		if cd = cardid.Normalize(cd); cd != "" {
			s[cd] = struct{}{}
		}
	}
	return s
}

// Has reports whether cd is in the set.
func (s CardSet) Has(cd string) bool {
	_, ok := s[cardid.Normalize(cd)]
	return ok
}

// Len returns the number of cards.
func (s CardSet) Len() int {
	return len(s)
}

// Toggle flips membership of cd and reports whether it is now a member.
func (s CardSet) Toggle(cd string) bool {
	cd = cardid.Normalize(cd)
	if _, ok := s[cd]; ok {
		delete(s, cd)
		return false
	}
	s[cd] = struct{}{}
	return true
}

// Sorted returns the ids in ascending order.
func (s CardSet) Sorted() []string {
	ids := lo.Keys(s)
	slices.Sort(ids)
	return ids
}

// Hash is an order-independent fingerprint of the set's contents.
func (s CardSet) Hash() string {
	return strings.Join(s.Sorted(), ",")
}

// Clone returns an independent copy.
func (s CardSet) Clone() CardSet {
	out := make(CardSet, len(s))
	for cd := range s {
		out[cd] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s CardSet) MarshalJSON() ([]byte, error) {
	ids := s.Sorted()
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

// UnmarshalJSON accepts an array of ids or, for older documents, an object
// whose keys are ids and whose truthy values mark membership.
func (s *CardSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	out := make(CardSet)

	switch {
	case bytes.Equal(data, []byte("null")):
	case len(data) > 0 && data[0] == '[':
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("card set: %w", err)
		}
		out = NewCardSet(ids...)
	case len(data) > 0 && data[0] == '{':
		var legacy map[string]any
		if err := json.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("card set: %w", err)
		}
		for cd, v := range legacy {
			if truthy(v) {
				if cd = cardid.Normalize(cd); cd != "" {
					out[cd] = struct{}{}
				}
			}
		}
	default:
		return fmt.Errorf("card set: unexpected JSON %q", data)
	}

	*s = out
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && t != "false"
	default:
		return v != nil
	}
}

// Group is a named set of cards.
type Group struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Fixed bool    `json:"fixed"`
	Cards CardSet `json:"cards"`
}

// Clone returns an independent copy.
func (g *Group) Clone() Group {
	return Group{ID: g.ID, Name: g.Name, Fixed: g.Fixed, Cards: g.Cards.Clone()}
}

// SysFlags tracks the lifecycle of the fav system group.
type SysFlags struct {
	Touched bool `json:"touched"`
	Deleted bool `json:"deleted"`
}

// MetaFlags tracks the lifecycle of the meta system group, including the
// official list version its contents were last synced from.
type MetaFlags struct {
	Touched bool `json:"touched"`
	Deleted bool `json:"deleted"`
	Ver     int  `json:"ver"`
}

// SysState holds the system group flags.
type SysState struct {
	Fav  SysFlags  `json:"fav"`
	Meta MetaFlags `json:"meta"`
}

// EditBase is the snapshot taken when an edit session starts.
type EditBase struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CardsHash string `json:"cardsHash"`
}

// State is the persisted root of the group collection.
type State struct {
	V         int               `json:"v"`
	Order     []string          `json:"order"`
	Groups    map[string]*Group `json:"groups"`
	ActiveID  string            `json:"activeId"`
	EditingID string            `json:"editingId"`
	Sys       SysState          `json:"sys"`
	EditBase  *EditBase         `json:"_editBase"`
}

// Clone returns a deep copy.
func (st *State) Clone() State {
	out := State{
		V:         st.V,
		Order:     slices.Clone(st.Order),
		Groups:    make(map[string]*Group, len(st.Groups)),
		ActiveID:  st.ActiveID,
		EditingID: st.EditingID,
		Sys:       st.Sys,
	}
	for id, g := range st.Groups {
		c := g.Clone()
		out.Groups[id] = &c
	}
	if st.EditBase != nil {
		base := *st.EditBase
		out.EditBase = &base
	}
	return out
}

// sysTouch marks a system group as user-modified. Other ids are ignored.
func (st *State) sysTouch(id string) {
	switch id {
	case FavID:
		st.Sys.Fav.Touched = true
	case MetaID:
		st.Sys.Meta.Touched = true
	}
}

// sysDelete sets the tombstone of a system group.
func (st *State) sysDelete(id string) {
	switch id {
	case FavID:
		st.Sys.Fav.Deleted = true
		st.Sys.Fav.Touched = true
	case MetaID:
		st.Sys.Meta.Deleted = true
		st.Sys.Meta.Touched = true
	}
}

// IsSystem reports whether id is one of the built-in groups.
func IsSystem(id string) bool {
	return id == FavID || id == MetaID
}

// decodeState parses a persisted document, switching on its schema version.
// Documents without a version predate the field and share the v1 shape.
func decodeState(raw string) (*State, error) {
	var head struct {
		V *int `json:"v"`
	}
	if err := json.Unmarshal([]byte(raw), &head); err != nil {
		return nil, fmt.Errorf("parse group state: %w", err)
	}

	version := 0
	if head.V != nil {
		version = *head.V
	}

	switch version {
	case 0, SchemaVersion:
		var st State
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, fmt.Errorf("parse group state v%d: %w", version, err)
		}
		st.V = SchemaVersion
		return &st, nil
	default:
		return nil, fmt.Errorf("unsupported group state version %d", version)
	}
}

func encodeState(st *State) (string, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encode group state: %w", err)
	}
	return string(data), nil
}
