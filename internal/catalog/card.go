// Package catalog holds the read-only card records the filter engine runs
// over, plus loaders that read them from disk and a watcher that swaps the
// whole catalog when its file changes.
package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// OldGodRace is the race whose cards may only be owned once.
const OldGodRace = "旧神"

// Flag names a boolean ability flag on a card.
type Flag string

// Ability flags, in display order.
const (
	FlagDraw              Flag = "draw"
	FlagCardSearch        Flag = "cardSearch"
	FlagGraveyardRecovery Flag = "graveyardRecovery"
	FlagDestroyOpponent   Flag = "destroyOpponent"
	FlagDestroySelf       Flag = "destroySelf"
	FlagHeal              Flag = "heal"
	FlagPowerUp           Flag = "powerUp"
	FlagPowerDown         Flag = "powerDown"
)

// Flags lists every ability flag in display order.
var Flags = []Flag{
	FlagDraw,
	FlagCardSearch,
	FlagGraveyardRecovery,
	FlagDestroyOpponent,
	FlagDestroySelf,
	FlagHeal,
	FlagPowerUp,
	FlagPowerDown,
}

// Card is a single catalog record.
type Card struct {
	CD             string   `json:"cd" yaml:"cd"`
	Name           string   `json:"name" yaml:"name"`
	Race           string   `json:"race" yaml:"race"`
	Category       string   `json:"category" yaml:"category"`
	Type           string   `json:"type" yaml:"type"`
	Rarity         string   `json:"rarity" yaml:"rarity"`
	PackName       string   `json:"packName" yaml:"packName"`
	Cost           int      `json:"cost" yaml:"cost"`
	Power          int      `json:"power" yaml:"power"`
	EffectNames    []string `json:"effectNames,omitempty" yaml:"effectNames,omitempty"`
	EffectTexts    []string `json:"effectTexts,omitempty" yaml:"effectTexts,omitempty"`
	Field          string   `json:"field,omitempty" yaml:"field,omitempty"`
	SpecialAbility string   `json:"specialAbility,omitempty" yaml:"specialAbility,omitempty"`
	BPFlag         string   `json:"bpFlag,omitempty" yaml:"bpFlag,omitempty"`

	Draw              bool `json:"draw,omitempty" yaml:"draw,omitempty"`
	CardSearch        bool `json:"cardSearch,omitempty" yaml:"cardSearch,omitempty"`
	GraveyardRecovery bool `json:"graveyardRecovery,omitempty" yaml:"graveyardRecovery,omitempty"`
	DestroyOpponent   bool `json:"destroyOpponent,omitempty" yaml:"destroyOpponent,omitempty"`
	DestroySelf       bool `json:"destroySelf,omitempty" yaml:"destroySelf,omitempty"`
	Heal              bool `json:"heal,omitempty" yaml:"heal,omitempty"`
	PowerUp           bool `json:"powerUp,omitempty" yaml:"powerUp,omitempty"`
	PowerDown         bool `json:"powerDown,omitempty" yaml:"powerDown,omitempty"`

	// IsLatest marks the current printing. Nil counts as latest.
	IsLatest *bool `json:"isLatest,omitempty" yaml:"isLatest,omitempty"`

	haystack string
}

// Flag reports the value of an ability flag.
func (c *Card) Flag(f Flag) bool {
	switch f {
	case FlagDraw:
		return c.Draw
	case FlagCardSearch:
		return c.CardSearch
	case FlagGraveyardRecovery:
		return c.GraveyardRecovery
	case FlagDestroyOpponent:
		return c.DestroyOpponent
	case FlagDestroySelf:
		return c.DestroySelf
	case FlagHeal:
		return c.Heal
	case FlagPowerUp:
		return c.PowerUp
	case FlagPowerDown:
		return c.PowerDown
	default:
		return false
	}
}

// EffectText joins effect names and texts into one searchable string.
func (c *Card) EffectText() string {
	parts := make([]string, 0, len(c.EffectNames)+len(c.EffectTexts))
	parts = append(parts, c.EffectNames...)
	parts = append(parts, c.EffectTexts...)
	return strings.Join(parts, " ")
}

// PackEnglish returns the English-name prefix of the composite pack label.
func (c *Card) PackEnglish() string {
	return PackEnglishName(c.PackName)
}

// Haystack returns the folded keyword search text. It is computed once when
// the card enters a Catalog; cards built by hand compute it on demand.
func (c *Card) Haystack() string {
	if c.haystack == "" {
		return buildHaystack(c)
	}
	return c.haystack
}

// Latest reports whether the record is the current printing.
func (c *Card) Latest() bool {
	return c.IsLatest == nil || *c.IsLatest
}

func buildHaystack(c *Card) string {
	parts := []string{c.Name, c.Race, c.Category, c.Type, c.Field, c.SpecialAbility}
	parts = append(parts, c.EffectNames...)
	parts = append(parts, c.EffectTexts...)
	return Fold(strings.Join(parts, " "))
}

// PackEnglishName cuts a composite "english-name + local-name" pack label at
// the first non-ASCII rune, e.g. "BP01 Eternal Dawn「永遠の夜明け」" yields
// "BP01 Eternal Dawn". Labels without a local part are returned trimmed.
func PackEnglishName(label string) string {
	for i, r := range label {
		if r > unicode.MaxASCII {
			return strings.TrimSpace(label[:i])
		}
	}
	return strings.TrimSpace(label)
}

// Fold normalizes text for keyword matching: full-width ASCII becomes
// half-width, half-width katakana becomes full-width, and case is lowered.
func Fold(s string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Lower(language.Und).String(width.Fold.String(s))
}
