package filter

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ramonehamilton/cardfinder/internal/catalog"
)

// CatalogSource supplies the current catalog snapshot.
type CatalogSource interface {
	Current() *catalog.Catalog
}

// GroupSnapshot returns the group store's active and editing ids.
type GroupSnapshot func() (activeID, editingID string)

// RecomputerOptions configures a Recomputer.
type RecomputerOptions struct {
	// KeywordDelay defaults to DefaultKeywordDelay.
	KeywordDelay time.Duration

	// Groups refreshes the selection's group ids before each pass. When nil
	// the ids set through Update are used as is.
	Groups GroupSnapshot

	// Publish receives every result.
	Publish func(Result)

	// Exec runs a debounced pass. Callers that guard the stores with a lock
	// take it here; the default runs the pass directly.
	Exec func(func())

	Logger *slog.Logger
}

// Recomputer owns the current selection and keeps its result up to date.
// Keyword edits wait for the keyword delay; every other change, and every
// explicit Recompute, runs a pass immediately.
type Recomputer struct {
	engine  *Engine
	catalog CatalogSource
	groups  GroupSnapshot
	publish func(Result)
	exec    func(func())
	logger  *slog.Logger

	debounce *Debouncer

	mu     sync.Mutex
	sel    Selection
	result Result
	passes int
}

// NewRecomputer creates a Recomputer with an empty selection. No pass runs
// until the first change or Recompute.
func NewRecomputer(engine *Engine, source CatalogSource, opts RecomputerOptions) *Recomputer {
	if opts.KeywordDelay <= 0 {
		opts.KeywordDelay = DefaultKeywordDelay
	}
	if opts.Publish == nil {
		opts.Publish = func(Result) {}
	}
	if opts.Exec == nil {
		opts.Exec = func(fn func()) { fn() }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Recomputer{
		engine:   engine,
		catalog:  source,
		groups:   opts.Groups,
		publish:  opts.Publish,
		exec:     opts.Exec,
		logger:   opts.Logger,
		debounce: NewDebouncer(opts.KeywordDelay),
		sel:      Selection{Owned: OwnedOff},
	}
}

// Selection returns a copy of the current selection.
func (r *Recomputer) Selection() Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sel.Clone()
}

// Result returns the latest result.
func (r *Recomputer) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Passes returns how many passes have run.
func (r *Recomputer) Passes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passes
}

// Update applies fn to a copy of the selection and stores it. A change to
// the keyword alone is debounced; anything else recomputes now and drops a
// pending keyword pass, whose keyword is already part of the new selection.
func (r *Recomputer) Update(fn func(sel *Selection)) error {
	r.mu.Lock()
	next := r.sel.Clone()
	fn(&next)
	if err := next.Validate(); err != nil {
		r.mu.Unlock()
		return err
	}
	keywordOnly := keywordOnlyChange(r.sel, next)
	unchanged := selectionsEqual(r.sel, next)
	r.sel = next
	r.mu.Unlock()

	switch {
	case keywordOnly:
		r.debounce.Arm(func() { r.exec(func() { r.run() }) })
	case unchanged:
	default:
		r.Recompute()
	}
	return nil
}

// SetKeyword replaces the keyword, debounced.
func (r *Recomputer) SetKeyword(keyword string) error {
	return r.Update(func(sel *Selection) { sel.Keyword = keyword })
}

// Recompute cancels any pending keyword pass and runs one now. Store change
// listeners and catalog reloads call it.
func (r *Recomputer) Recompute() Result {
	r.debounce.Cancel()
	return r.run()
}

func (r *Recomputer) run() Result {
	r.mu.Lock()
	if r.groups != nil {
		r.sel.ActiveID, r.sel.EditingID = r.groups()
	}
	sel := r.sel.Clone()
	r.mu.Unlock()

	res := r.engine.Apply(r.catalog.Current().Cards(), sel)

	r.mu.Lock()
	r.result = res
	r.passes++
	r.mu.Unlock()

	r.publish(res)
	return res
}

// Notifier is anything with an OnChange registration, such as the
// ownership and group stores.
type Notifier interface {
	OnChange(fn func()) func()
}

// Bind recomputes whenever a store changes or the catalog reloads. The
// returned func removes every subscription.
func (r *Recomputer) Bind(source *catalog.Source, stores ...Notifier) func() {
	var unsubscribe []func()
	for _, s := range stores {
		unsubscribe = append(unsubscribe, s.OnChange(func() { r.Recompute() }))
	}
	if source != nil {
		unsubscribe = append(unsubscribe, source.OnReload(func(*catalog.Catalog) {
			r.exec(func() { r.Recompute() })
		}))
	}

	return func() {
		for _, fn := range unsubscribe {
			fn()
		}
		r.debounce.Cancel()
	}
}
