package api

import (
	"context"
	"time"

	"github.com/ramonehamilton/cardfinder/internal/catalog"
	"github.com/ramonehamilton/cardfinder/internal/events"
	"github.com/ramonehamilton/cardfinder/internal/filter"
	"github.com/ramonehamilton/cardfinder/internal/groups"
	"github.com/ramonehamilton/cardfinder/internal/metrics"
	"github.com/ramonehamilton/cardfinder/internal/ownership"
)

// BridgeEvents turns store and catalog notifications into dispatcher events.
// Nil sources are skipped. The returned func removes every subscription.
func BridgeEvents(d *events.EventDispatcher, own *ownership.Store, grp *groups.Store, source *catalog.Source) func() {
	var unsubscribe []func()

	if own != nil {
		unsubscribe = append(unsubscribe, own.OnChange(func() {
			d.Dispatch(events.NewTypedEvent(context.Background(), events.TypeOwnershipChanged,
				events.OwnershipChangedEvent{At: time.Now()}))
		}))
	}

	if grp != nil {
		unsubscribe = append(unsubscribe, grp.OnChange(func() {
			st := grp.State()
			d.Dispatch(events.NewTypedEvent(context.Background(), events.TypeGroupsChanged,
				events.GroupsChangedEvent{ActiveID: st.ActiveID, EditingID: st.EditingID, Groups: len(st.Order)}))
		}))
	}

	if source != nil {
		unsubscribe = append(unsubscribe, source.OnReload(func(c *catalog.Catalog) {
			metrics.RecordCatalogSize(c.Len())
			d.Dispatch(events.NewTypedEvent(context.Background(), events.TypeCatalogReloaded,
				events.CatalogReloadedEvent{Cards: c.Len(), LoadedAt: c.LoadedAt()}))
		}))
	}

	return func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}
}

// PublishFilterResults returns a Recomputer publish func that announces each
// pass on d.
func PublishFilterResults(d *events.EventDispatcher) func(filter.Result) {
	return func(res filter.Result) {
		d.Dispatch(events.NewTypedEvent(context.Background(), events.TypeFilterUpdated,
			events.FilterUpdatedEvent{Visible: res.Visible, Total: res.Total}))
	}
}
