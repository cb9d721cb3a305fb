package events

import "time"

// Event types.
const (
	TypeOwnershipChanged = "ownership:changed"
	TypeGroupsChanged    = "groups:changed"
	TypeCatalogReloaded  = "catalog:reloaded"
	TypeFilterUpdated    = "filter:updated"
)

// OwnershipChangedEvent is the payload for ownership:changed events.
// Store listeners carry no payload, so this only stamps the change.
type OwnershipChangedEvent struct {
	At time.Time `json:"at"`
}

// GroupsChangedEvent is the payload for groups:changed events.
type GroupsChangedEvent struct {
	ActiveID  string `json:"activeId"`
	EditingID string `json:"editingId"`
	Groups    int    `json:"groups"`
}

// CatalogReloadedEvent is the payload for catalog:reloaded events.
type CatalogReloadedEvent struct {
	Cards    int       `json:"cards"`
	LoadedAt time.Time `json:"loadedAt"`
}

// FilterUpdatedEvent is the payload for filter:updated events, sent after
// every recomputation pass.
type FilterUpdatedEvent struct {
	Visible int `json:"visible"`
	Total   int `json:"total"`
}
