// Package filter decides which catalog cards are visible for a Selection.
//
// A pass compiles the Selection once (folding the keyword, resolving the
// active group and snapshotting ownership) and then tests every card. Keyword
// edits are debounced by a Recomputer; every other change recomputes at once.
package filter

import (
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/ramonehamilton/cardfinder/internal/cardid"
	"github.com/ramonehamilton/cardfinder/internal/catalog"
	"github.com/ramonehamilton/cardfinder/internal/groups"
	"github.com/ramonehamilton/cardfinder/internal/metrics"
	"github.com/ramonehamilton/cardfinder/internal/ownership"
)

// Ownership is the view of the ownership store the engine needs.
type Ownership interface {
	All() map[string]ownership.Entry
	Capacity(cd, raceHint string) int
}

// GroupSource looks up groups by id.
type GroupSource interface {
	Group(id string) (groups.Group, bool)
}

type noOwnership struct{}

func (noOwnership) All() map[string]ownership.Entry { return nil }
func (noOwnership) Capacity(string, string) int     { return ownership.DefaultCapacity }

type noGroups struct{}

func (noGroups) Group(string) (groups.Group, bool) { return groups.Group{}, false }

// Options configures an Engine. Nil collaborators behave as if nothing is
// owned and no group exists.
type Options struct {
	Ownership Ownership
	Groups    GroupSource
	Logger    *slog.Logger
}

// Engine evaluates selections against cards.
type Engine struct {
	ownership Ownership
	groups    GroupSource
	logger    *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	if opts.Ownership == nil {
		opts.Ownership = noOwnership{}
	}
	if opts.Groups == nil {
		opts.Groups = noGroups{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{ownership: opts.Ownership, groups: opts.Groups, logger: opts.Logger}
}

// Result is the outcome of one pass.
type Result struct {
	Cards   []catalog.Card `json:"cards"`
	Visible int            `json:"visible"`
	Total   int            `json:"total"`
	Chips   []Chip         `json:"chips"`
}

// Matcher is a Selection compiled for repeated evaluation.
type Matcher struct {
	sel    Selection
	tokens []string
	facets map[Facet][]string
	flags  []catalog.Flag

	groupActive bool
	members     groups.CardSet

	owned     map[string]ownership.Entry
	ownership Ownership
}

// Compile prepares sel for evaluation against the current store contents.
func (e *Engine) Compile(sel Selection) *Matcher {
	m := &Matcher{
		sel:       sel,
		tokens:    sel.Tokens(),
		facets:    make(map[Facet][]string, len(sel.Facets)),
		flags:     sel.Flags,
		ownership: e.ownership,
	}

	for f, values := range sel.Facets {
		values = lo.Compact(values)
		if f == FacetPack {
			values = lo.Map(values, func(v string, _ int) string { return catalog.PackEnglishName(v) })
		}
		if len(values) > 0 {
			m.facets[f] = values
		}
	}

	if sel.GroupFilterActive() {
		m.groupActive = true
		if g, ok := e.groups.Group(sel.ActiveID); ok {
			m.members = g.Cards
		}
	}

	if sel.Owned != "" && sel.Owned != OwnedOff {
		m.owned = e.ownership.All()
	}
	return m
}

// Visible reports whether card passes sel.
func (e *Engine) Visible(card *catalog.Card, sel Selection) bool {
	return e.Compile(sel).Match(card)
}

// Apply runs one pass over cards.
func (e *Engine) Apply(cards []catalog.Card, sel Selection) Result {
	start := time.Now()
	m := e.Compile(sel)

	visible := make([]catalog.Card, 0, len(cards))
	for i := range cards {
		if m.Match(&cards[i]) {
			visible = append(visible, cards[i])
		}
	}

	elapsed := time.Since(start)
	metrics.RecordFilterPass(len(visible), elapsed)
	e.logger.Debug("filter pass", "visible", len(visible), "total", len(cards), "duration", elapsed)

	return Result{
		Cards:   visible,
		Visible: len(visible),
		Total:   len(cards),
		Chips:   e.ActiveChips(sel),
	}
}

// Match reports whether card passes every clause.
func (m *Matcher) Match(card *catalog.Card) bool {
	return m.matchKeyword(card) &&
		m.matchFacets(card) &&
		m.matchFlags(card) &&
		m.sel.Cost.Contains(card.Cost) &&
		m.sel.Power.Contains(card.Power) &&
		m.matchGroup(card) &&
		m.matchOwned(card)
}

func (m *Matcher) matchKeyword(card *catalog.Card) bool {
	if len(m.tokens) == 0 {
		return true
	}
	haystack := card.Haystack()
	for _, tok := range m.tokens {
		if !strings.Contains(haystack, tok) {
			return false
		}
	}
	return true
}

func (m *Matcher) matchFacets(card *catalog.Card) bool {
	for f, values := range m.facets {
		if f == FacetEffect {
			text := card.EffectText()
			if !lo.SomeBy(values, func(v string) bool { return strings.Contains(text, v) }) {
				return false
			}
			continue
		}
		if !lo.Contains(values, facetValue(card, f)) {
			return false
		}
	}
	return true
}

func facetValue(card *catalog.Card, f Facet) string {
	switch f {
	case FacetRace:
		return card.Race
	case FacetCategory:
		return card.Category
	case FacetType:
		return card.Type
	case FacetRarity:
		return card.Rarity
	case FacetPack:
		return card.PackEnglish()
	case FacetField:
		return card.Field
	case FacetBP:
		return card.BPFlag
	case FacetAbility:
		return card.SpecialAbility
	default:
		return ""
	}
}

func (m *Matcher) matchFlags(card *catalog.Card) bool {
	for _, f := range m.flags {
		if !card.Flag(f) {
			return false
		}
	}
	return true
}

// matchGroup requires membership in the active group. A missing or empty
// group matches nothing.
func (m *Matcher) matchGroup(card *catalog.Card) bool {
	if !m.groupActive {
		return true
	}
	return m.members.Has(card.CD)
}

func (m *Matcher) matchOwned(card *catalog.Card) bool {
	switch m.sel.Owned {
	case "", OwnedOff:
		return true
	}

	total := m.owned[cardid.Normalize(card.CD)].Total()
	switch m.sel.Owned {
	case OwnedAny:
		return total > 0
	case OwnedComplete:
		return total >= m.ownership.Capacity(card.CD, card.Race)
	case OwnedIncomplete:
		return total < m.ownership.Capacity(card.CD, card.Race)
	default:
		return true
	}
}
