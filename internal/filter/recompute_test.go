package filter

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/cardfinder/internal/catalog"
	"github.com/ramonehamilton/cardfinder/internal/kv"
	"github.com/ramonehamilton/cardfinder/internal/ownership"
)

func TestDebouncer_CoalescesArms(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Int32

	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Arm(func() {
			calls.Add(1)
			last.Store(n)
		})
	}
	assert.True(t, d.Pending())

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), last.Load())
	assert.False(t, d.Pending())

	// Nothing else fires afterwards
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	d.Arm(func() { calls.Add(1) })

	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

type recorder struct {
	mu      sync.Mutex
	results []Result
}

func (r *recorder) publish(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func newTestRecomputer(t *testing.T, delay time.Duration) (*Recomputer, *catalog.Source, *recorder) {
	t.Helper()
	source := catalog.NewSource(catalog.New(testCards()))
	rec := &recorder{}
	r := NewRecomputer(NewEngine(Options{}), source, RecomputerOptions{
		KeywordDelay: delay,
		Publish:      rec.publish,
	})
	return r, source, rec
}

func TestRecomputer_NonKeywordChangesAreImmediate(t *testing.T) {
	r, _, rec := newTestRecomputer(t, time.Hour)

	require.NoError(t, r.Update(func(sel *Selection) {
		sel.Facets = map[Facet][]string{FacetType: {"赤"}}
	}))
	assert.Equal(t, 1, r.Passes())
	assert.Equal(t, 2, r.Result().Visible)
	assert.Equal(t, 1, rec.count())

	// No-op updates do not run a pass
	require.NoError(t, r.Update(func(*Selection) {}))
	assert.Equal(t, 1, r.Passes())
}

func TestRecomputer_KeywordIsDebounced(t *testing.T) {
	r, _, _ := newTestRecomputer(t, 30*time.Millisecond)

	require.NoError(t, r.SetKeyword("d"))
	require.NoError(t, r.SetKeyword("dr"))
	require.NoError(t, r.SetKeyword("dragon"))
	assert.Equal(t, 0, r.Passes())
	assert.Equal(t, "dragon", r.Selection().Keyword)

	assert.Eventually(t, func() bool { return r.Passes() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, r.Result().Visible)
}

func TestRecomputer_OtherChangeFlushesPendingKeyword(t *testing.T) {
	r, _, _ := newTestRecomputer(t, 50*time.Millisecond)

	require.NoError(t, r.SetKeyword("ユニット"))
	require.NoError(t, r.Update(func(sel *Selection) { sel.Cost = AtLeast(3) }))

	assert.Equal(t, 1, r.Passes())
	assert.Equal(t, 2, r.Result().Visible)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, r.Passes())
}

func TestRecomputer_RejectsInvalidSelection(t *testing.T) {
	r, _, _ := newTestRecomputer(t, time.Hour)

	err := r.Update(func(sel *Selection) { sel.Owned = "maybe" })
	assert.Error(t, err)
	assert.Equal(t, OwnedOff, r.Selection().Owned)
	assert.Equal(t, 0, r.Passes())
}

func TestRecomputer_BindsStoresAndCatalog(t *testing.T) {
	owned, err := ownership.NewStore(kv.NewMemoryStore(), ownership.Options{})
	require.NoError(t, err)

	source := catalog.NewSource(catalog.New(testCards()))
	r := NewRecomputer(NewEngine(Options{Ownership: owned}), source, RecomputerOptions{KeywordDelay: time.Hour})
	unbind := r.Bind(source, owned)

	require.NoError(t, r.Update(func(sel *Selection) { sel.Owned = OwnedAny }))
	assert.Equal(t, 0, r.Result().Visible)

	_, err = owned.Toggle("2", "")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Passes())
	assert.Equal(t, 1, r.Result().Visible)

	source.Replace(catalog.New(nil))
	assert.Equal(t, 3, r.Passes())
	assert.Equal(t, 0, r.Result().Total)

	unbind()
	_, err = owned.Toggle("2", "")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Passes())
}

func TestRecomputer_GroupSnapshot(t *testing.T) {
	source := catalog.NewSource(catalog.New(testCards()))
	r := NewRecomputer(NewEngine(Options{}), source, RecomputerOptions{
		Groups: func() (string, string) { return "missing", "" },
	})

	res := r.Recompute()
	assert.Equal(t, 0, res.Visible)
	assert.Equal(t, "missing", r.Selection().ActiveID)
}
