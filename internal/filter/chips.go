package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ramonehamilton/cardfinder/internal/catalog"
)

// ChipKind identifies what a chip represents.
type ChipKind string

const (
	ChipKeyword ChipKind = "keyword"
	ChipFacet   ChipKind = "facet"
	ChipFlag    ChipKind = "flag"
	ChipCost    ChipKind = "cost"
	ChipPower   ChipKind = "power"
	ChipGroup   ChipKind = "group"
	ChipOwned   ChipKind = "owned"
)

// Chip is one active, non-default part of a selection, ready for display.
type Chip struct {
	Kind  ChipKind `json:"kind"`
	Key   string   `json:"key,omitempty"`
	Value string   `json:"value,omitempty"`
	Label string   `json:"label"`
}

var facetLabels = map[Facet]string{
	FacetRace:     "種族",
	FacetCategory: "カテゴリ",
	FacetType:     "タイプ",
	FacetRarity:   "レアリティ",
	FacetPack:     "パック",
	FacetEffect:   "効果",
	FacetField:    "フィールド",
	FacetBP:       "BP",
	FacetAbility:  "特殊能力",
}

var flagLabels = map[catalog.Flag]string{
	catalog.FlagDraw:              "ドロー",
	catalog.FlagCardSearch:        "サーチ",
	catalog.FlagGraveyardRecovery: "墓地回収",
	catalog.FlagDestroyOpponent:   "相手破壊",
	catalog.FlagDestroySelf:       "自壊",
	catalog.FlagHeal:              "回復",
	catalog.FlagPowerUp:           "パワーアップ",
	catalog.FlagPowerDown:         "パワーダウン",
}

var ownedLabels = map[OwnedMode]string{
	OwnedAny:        "所持",
	OwnedIncomplete: "未コンプ",
	OwnedComplete:   "コンプ",
}

// ActiveChips lists the non-default parts of sel in a stable order: keyword,
// facets, flags, cost, power, group, ownership.
func (e *Engine) ActiveChips(sel Selection) []Chip {
	chips := make([]Chip, 0)

	if kw := strings.TrimSpace(sel.Keyword); kw != "" {
		chips = append(chips, Chip{Kind: ChipKeyword, Value: kw, Label: "「" + kw + "」"})
	}

	for _, f := range Facets {
		for _, v := range sel.Facets[f] {
			if v == "" {
				continue
			}
			chips = append(chips, Chip{
				Kind:  ChipFacet,
				Key:   string(f),
				Value: v,
				Label: fmt.Sprintf("%s: %s", facetLabels[f], v),
			})
		}
	}

	for _, f := range catalog.Flags {
		for _, selected := range sel.Flags {
			if selected == f {
				chips = append(chips, Chip{Kind: ChipFlag, Key: string(f), Label: flagLabels[f]})
				break
			}
		}
	}

	if sel.Cost.Active() {
		chips = append(chips, Chip{Kind: ChipCost, Value: rangeText(sel.Cost), Label: "コスト " + rangeText(sel.Cost)})
	}
	if sel.Power.Active() {
		chips = append(chips, Chip{Kind: ChipPower, Value: rangeText(sel.Power), Label: "パワー " + rangeText(sel.Power)})
	}

	if sel.GroupFilterActive() {
		name := sel.ActiveID
		if g, ok := e.groups.Group(sel.ActiveID); ok {
			name = g.Name
		}
		chips = append(chips, Chip{Kind: ChipGroup, Key: sel.ActiveID, Label: "グループ: " + name})
	}

	if label, ok := ownedLabels[sel.Owned]; ok {
		chips = append(chips, Chip{Kind: ChipOwned, Value: string(sel.Owned), Label: label})
	}

	return chips
}

// rangeText renders a range as "1〜5", "3〜" or "〜5".
func rangeText(r Range) string {
	var b strings.Builder
	if r.Min != nil {
		b.WriteString(strconv.Itoa(*r.Min))
	}
	b.WriteString("〜")
	if r.Max != nil {
		b.WriteString(strconv.Itoa(*r.Max))
	}
	return b.String()
}
