package groups

import (
	"slices"
	"strings"
)

// Default names of the system groups.
const (
	FavName  = "お気に入り"
	MetaName = "メタカード"
)

// ensureDefault repairs st in place so every invariant holds: system groups
// exist unless tombstoned, an untouched meta group follows the official list,
// order matches the group map without duplicates and holds at most MaxGroups
// entries, and active/editing ids point at existing groups.
func ensureDefault(st *State, official OfficialMeta) {
	st.V = SchemaVersion
	if st.Groups == nil {
		st.Groups = make(map[string]*Group)
	}

	for id, g := range st.Groups {
		if g == nil {
			delete(st.Groups, id)
			continue
		}
		g.ID = id
		if g.Cards == nil {
			g.Cards = make(CardSet)
		}
		if strings.TrimSpace(g.Name) == "" {
			g.Name = defaultNameFor(id)
		}
	}

	ensureSystemGroups(st, official)
	reconcileMeta(st, official)
	repairOrder(st)
	evictOverflow(st)

	if st.ActiveID != "" && st.Groups[st.ActiveID] == nil {
		st.ActiveID = ""
	}
	if st.EditingID != "" && st.Groups[st.EditingID] == nil {
		st.EditingID = ""
	}
	if st.EditingID == "" || (st.EditBase != nil && st.EditBase.ID != st.EditingID) {
		st.EditBase = nil
	}
}

func defaultNameFor(id string) string {
	switch id {
	case FavID:
		return FavName
	case MetaID:
		return MetaName
	default:
		return DefaultGroupName
	}
}

// ensureSystemGroups recreates missing system groups unless tombstoned. A
// system group present in the map is live, whatever its flag says.
func ensureSystemGroups(st *State, official OfficialMeta) {
	if g := st.Groups[FavID]; g != nil {
		g.Fixed = true
		st.Sys.Fav.Deleted = false
	} else if !st.Sys.Fav.Deleted {
		st.Groups[FavID] = &Group{ID: FavID, Name: FavName, Fixed: true, Cards: make(CardSet)}
		st.Order = slices.Insert(slices.DeleteFunc(st.Order, isID(FavID)), 0, FavID)
	}

	if g := st.Groups[MetaID]; g != nil {
		g.Fixed = true
		st.Sys.Meta.Deleted = false
	} else if !st.Sys.Meta.Deleted {
		st.Groups[MetaID] = &Group{ID: MetaID, Name: MetaName, Fixed: true, Cards: NewCardSet(official.Cards...)}
		st.Sys.Meta.Ver = official.Ver

		order := slices.DeleteFunc(st.Order, isID(MetaID))
		at := 0
		if len(order) > 0 && order[0] == FavID {
			at = 1
		}
		st.Order = slices.Insert(order, at, MetaID)
	}
}

// reconcileMeta replaces the contents of an untouched meta group when the
// official list version moves.
func reconcileMeta(st *State, official OfficialMeta) {
	meta := st.Groups[MetaID]
	if meta == nil || st.Sys.Meta.Touched || st.Sys.Meta.Ver == official.Ver {
		return
	}
	meta.Cards = NewCardSet(official.Cards...)
	st.Sys.Meta.Ver = official.Ver
}

// repairOrder drops duplicate and dangling ids, then appends groups that are
// missing from the order (system groups first, then by id).
func repairOrder(st *State) {
	seen := make(map[string]bool, len(st.Order))
	order := make([]string, 0, len(st.Order))
	for _, id := range st.Order {
		if seen[id] || st.Groups[id] == nil {
			continue
		}
		seen[id] = true
		order = append(order, id)
	}

	var missing []string
	for id := range st.Groups {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	slices.SortFunc(missing, func(a, b string) int {
		if IsSystem(a) != IsSystem(b) {
			if IsSystem(a) {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})

	st.Order = append(order, missing...)
}

// evictOverflow removes groups from the tail of the order, skipping fixed
// ones, until at most MaxGroups remain.
func evictOverflow(st *State) {
	for i := len(st.Order) - 1; i >= 0 && len(st.Order) > MaxGroups; i-- {
		id := st.Order[i]
		if st.Groups[id].Fixed {
			continue
		}
		delete(st.Groups, id)
		st.Order = slices.Delete(st.Order, i, i+1)
	}
}

func isID(id string) func(string) bool {
	return func(s string) bool { return s == id }
}
