package filter

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ramonehamilton/cardfinder/internal/catalog"
)

// Facet is a multi-select filter dimension.
type Facet string

// Facets, in evaluation and chip order.
const (
	FacetRace     Facet = "race"
	FacetCategory Facet = "category"
	FacetType     Facet = "type"
	FacetRarity   Facet = "rarity"
	FacetPack     Facet = "pack"
	FacetEffect   Facet = "effect"
	FacetField    Facet = "field"
	FacetBP       Facet = "bp"
	FacetAbility  Facet = "ability"
)

// Facets lists every facet in evaluation and chip order.
var Facets = []Facet{
	FacetRace,
	FacetCategory,
	FacetType,
	FacetRarity,
	FacetPack,
	FacetEffect,
	FacetField,
	FacetBP,
	FacetAbility,
}

// OwnedMode restricts cards by how many copies are owned.
type OwnedMode string

const (
	OwnedOff        OwnedMode = "off"
	OwnedAny        OwnedMode = "owned"
	OwnedIncomplete OwnedMode = "incomplete"
	OwnedComplete   OwnedMode = "complete"
)

// ParseOwnedMode validates a mode name. The empty string means off.
func ParseOwnedMode(s string) (OwnedMode, error) {
	switch m := OwnedMode(strings.TrimSpace(s)); m {
	case "", OwnedOff:
		return OwnedOff, nil
	case OwnedAny, OwnedIncomplete, OwnedComplete:
		return m, nil
	default:
		return OwnedOff, fmt.Errorf("unknown ownership mode %q", s)
	}
}

// Range is an inclusive numeric bound. A nil end is unbounded.
type Range struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// Bounded returns a Range from min to max.
func Bounded(lo, hi int) Range {
	return Range{Min: &lo, Max: &hi}
}

// AtLeast returns a Range with no upper bound.
func AtLeast(lo int) Range {
	return Range{Min: &lo}
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v int) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Active reports whether the range restricts anything. A minimum of zero or
// less with no maximum is the slider's resting position.
func (r Range) Active() bool {
	return (r.Min != nil && *r.Min > 0) || r.Max != nil
}

// Selection is the full filter state for one recomputation pass.
type Selection struct {
	Facets  map[Facet][]string `json:"facets,omitempty"`
	Flags   []catalog.Flag     `json:"flags,omitempty"`
	Cost    Range              `json:"cost"`
	Power   Range              `json:"power"`
	Keyword string             `json:"keyword,omitempty"`
	Owned   OwnedMode          `json:"owned,omitempty"`

	// Snapshot of the group store.
	ActiveID  string `json:"activeId,omitempty"`
	EditingID string `json:"editingId,omitempty"`
}

// Tokens splits the keyword into folded, whitespace-separated tokens.
func (s *Selection) Tokens() []string {
	return strings.Fields(catalog.Fold(s.Keyword))
}

// GroupFilterActive reports whether the active group restricts visibility.
// Editing a group suspends the restriction.
func (s *Selection) GroupFilterActive() bool {
	return s.EditingID == "" && s.ActiveID != ""
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	out := s
	if s.Facets != nil {
		out.Facets = make(map[Facet][]string, len(s.Facets))
		for f, values := range s.Facets {
			out.Facets[f] = slices.Clone(values)
		}
	}
	out.Flags = slices.Clone(s.Flags)
	out.Cost = s.Cost.clone()
	out.Power = s.Power.clone()
	return out
}

func (r Range) clone() Range {
	out := Range{}
	if r.Min != nil {
		v := *r.Min
		out.Min = &v
	}
	if r.Max != nil {
		v := *r.Max
		out.Max = &v
	}
	return out
}

// Validate rejects unknown facets, flags and modes.
func (s *Selection) Validate() error {
	for f := range s.Facets {
		if !slices.Contains(Facets, f) {
			return fmt.Errorf("unknown facet %q", f)
		}
	}
	for _, f := range s.Flags {
		if !slices.Contains(catalog.Flags, f) {
			return fmt.Errorf("unknown flag %q", f)
		}
	}
	if _, err := ParseOwnedMode(string(s.Owned)); err != nil {
		return err
	}
	for name, r := range map[string]Range{"cost": s.Cost, "power": s.Power} {
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return fmt.Errorf("%s range min %d exceeds max %d", name, *r.Min, *r.Max)
		}
	}
	return nil
}

// keywordOnlyChange reports whether a and b differ in nothing but Keyword.
func keywordOnlyChange(a, b Selection) bool {
	if a.Keyword == b.Keyword {
		return false
	}
	a.Keyword, b.Keyword = "", ""
	return selectionsEqual(a, b)
}

func selectionsEqual(a, b Selection) bool {
	return maps.EqualFunc(a.Facets, b.Facets, slices.Equal[[]string]) &&
		slices.Equal(a.Flags, b.Flags) &&
		rangesEqual(a.Cost, b.Cost) &&
		rangesEqual(a.Power, b.Power) &&
		a.Keyword == b.Keyword &&
		a.Owned == b.Owned &&
		a.ActiveID == b.ActiveID &&
		a.EditingID == b.EditingID
}

func rangesEqual(a, b Range) bool {
	return intPtrEqual(a.Min, b.Min) && intPtrEqual(a.Max, b.Max)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
