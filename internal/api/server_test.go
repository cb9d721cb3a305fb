package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/cardfinder/internal/catalog"
	"github.com/ramonehamilton/cardfinder/internal/events"
	"github.com/ramonehamilton/cardfinder/internal/filter"
	"github.com/ramonehamilton/cardfinder/internal/groups"
	"github.com/ramonehamilton/cardfinder/internal/kv"
	"github.com/ramonehamilton/cardfinder/internal/ownership"
)

type testEnv struct {
	server *Server
	source *catalog.Source
	groups *groups.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	substrate := kv.NewMemoryStore()
	source := catalog.NewSource(catalog.New([]catalog.Card{
		{CD: "1", Name: "混沌の王", Race: catalog.OldGodRace, Cost: 3},
		{CD: "2", Name: "見習い剣士", Race: "人間", Cost: 2},
		{CD: "3", Name: "Dragon Knight", Race: "ドラゴン", Cost: 7},
	}))

	owned, err := ownership.NewStore(substrate, ownership.Options{Resolver: source})
	require.NoError(t, err)
	grp, err := groups.NewStore(substrate, groups.Options{})
	require.NoError(t, err)

	var mu sync.Mutex
	dispatcher := events.NewEventDispatcher(nil)
	recomputer := filter.NewRecomputer(
		filter.NewEngine(filter.Options{Ownership: owned, Groups: grp}),
		source,
		filter.RecomputerOptions{
			KeywordDelay: 10 * time.Millisecond,
			Groups: func() (string, string) {
				st := grp.State()
				return st.ActiveID, st.EditingID
			},
			Publish: PublishFilterResults(dispatcher),
			Exec: func(fn func()) {
				mu.Lock()
				defer mu.Unlock()
				fn()
			},
		})
	t.Cleanup(recomputer.Bind(source, owned, grp))
	recomputer.Recompute()

	srv := NewServer(&Config{Port: 0, AllowedOrigins: []string{"http://localhost:*"}}, Deps{
		Ownership:  owned,
		Groups:     grp,
		Catalog:    source,
		Recomputer: recomputer,
		Dispatcher: dispatcher,
		Lock:       &mu,
	})
	go srv.WebSocketHub().Run()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{server: srv, source: source, groups: grp}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func (e *testEnv) visible(t *testing.T) float64 {
	t.Helper()
	_, body := e.do(t, http.MethodGet, "/api/v1/filter", nil)
	return body["data"].(map[string]interface{})["visible"].(float64)
}

func TestNewServer_Defaults(t *testing.T) {
	srv := NewServer(nil, Deps{Catalog: catalog.NewSource(nil)})
	assert.Equal(t, 8787, srv.Port())
	assert.NotNil(t, srv.WebSocketHub())
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(3), body["cards"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cardfinder_filter_pass_duration_seconds")
}

func TestJSONContentTypeRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/groups/", strings.NewReader(`{"name":"A"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestGroups_LimitIsRejected(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < groups.MaxGroups-2; i++ {
		rec, body := env.do(t, http.MethodPost, "/api/v1/groups/", map[string]string{"name": "X"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, true, body["ok"])
	}

	rec, body := env.do(t, http.MethodPost, "/api/v1/groups/", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "limit", body["reason"])

	_, body = env.do(t, http.MethodGet, "/api/v1/groups/", nil)
	assert.Len(t, body["data"], groups.MaxGroups)
}

func TestGroups_Rejections(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPut, "/api/v1/groups/missing", map[string]string{"name": "Z"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "notfound", body["reason"])

	rec, body = env.do(t, http.MethodPost, "/api/v1/groups/missing/move", map[string]int{"index": 0})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "notfound", body["reason"])

	rec, _ = env.do(t, http.MethodGet, "/api/v1/groups/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGroups_ActiveGroupDrivesFilter(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, float64(3), env.visible(t))

	_, body := env.do(t, http.MethodPost, "/api/v1/groups/", map[string]string{"name": "Deck"})
	id := body["data"].(map[string]interface{})["id"].(string)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/groups/"+id+"/toggle-active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), env.visible(t), "empty active group hides everything")

	rec, body = env.do(t, http.MethodPost, "/api/v1/groups/"+id+"/cards/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["data"].(map[string]interface{})["member"])
	assert.Equal(t, float64(1), env.visible(t))

	_, _ = env.do(t, http.MethodPost, "/api/v1/groups/"+id+"/editing", nil)
	assert.Equal(t, float64(3), env.visible(t), "editing suppresses the group filter")

	_, _ = env.do(t, http.MethodDelete, "/api/v1/groups/editing", nil)
	assert.Equal(t, float64(1), env.visible(t))

	_, _ = env.do(t, http.MethodDelete, "/api/v1/groups/active", nil)
	assert.Equal(t, float64(3), env.visible(t))
}

func TestGroups_StateAndDelete(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodDelete, "/api/v1/groups/fav", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])

	_, body = env.do(t, http.MethodGet, "/api/v1/groups/state", nil)
	st := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), st["v"])
	assert.Equal(t, []interface{}{"meta"}, st["order"])
	sys := st["sys"].(map[string]interface{})["fav"].(map[string]interface{})
	assert.Equal(t, true, sys["deleted"])
}

func TestOwnership_ToggleAndSummary(t *testing.T) {
	env := newTestEnv(t)

	// The Old God race is resolved from the catalog
	rec, body := env.do(t, http.MethodPost, "/api/v1/ownership/1/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "00001", data["cd"])
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["capacity"])
	assert.Equal(t, true, data["complete"])

	_, body = env.do(t, http.MethodPost, "/api/v1/ownership/1/toggle", nil)
	assert.Equal(t, float64(0), body["data"].(map[string]interface{})["total"])

	_, body = env.do(t, http.MethodPut, "/api/v1/ownership/2/total", map[string]interface{}{"total": 9, "race": "人間"})
	assert.Equal(t, float64(3), body["data"].(map[string]interface{})["total"])

	_, body = env.do(t, http.MethodGet, "/api/v1/ownership/summary", nil)
	summary := body["data"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["cards"])
	assert.Equal(t, float64(1), summary["owned"])
	assert.Equal(t, float64(1), summary["complete"])
}

func TestFilter_SetAndKeyword(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPut, "/api/v1/filter/", map[string]interface{}{
		"facets": map[string][]string{"race": {catalog.OldGodRace}},
		"cost":   map[string]int{"min": 0, "max": 5},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["visible"])
	assert.Len(t, data["chips"], 2)

	rec, _ = env.do(t, http.MethodPut, "/api/v1/filter/", map[string]interface{}{"owned": "sometimes"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/v1/filter/", map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/v1/filter/keyword", map[string]string{"keyword": "dragon"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Eventually(t, func() bool { return env.visible(t) == 1 }, time.Second, 10*time.Millisecond)

	_, body = env.do(t, http.MethodGet, "/api/v1/cards/", nil)
	cards := body["data"].([]interface{})
	require.Len(t, cards, 1)
	assert.Equal(t, "00003", cards[0].(map[string]interface{})["cd"])
}

func TestCards_Lookup(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/v1/cards/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "見習い剣士", body["data"].(map[string]interface{})["name"])

	rec, _ = env.do(t, http.MethodGet, "/api/v1/cards/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, body = env.do(t, http.MethodGet, "/api/v1/cards/?page=2&page_size=2", nil)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, float64(2), body["total_pages"])
}

func TestWebSocket_ReceivesStoreEvents(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.server.WebSocketHub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	greeting := map[string]bool{}
	for len(greeting) < 2 {
		ev := readWSEvent(t, conn)
		assert.Zero(t, ev.Seq)
		greeting[ev.Type] = true
	}
	assert.True(t, greeting[events.TypeFilterUpdated])
	assert.True(t, greeting[events.TypeGroupsChanged])

	_, err = env.groups.CreateGroup("A")
	require.NoError(t, err)

	seen := map[string]bool{}
	for !seen[events.TypeGroupsChanged] || !seen[events.TypeFilterUpdated] {
		ev := readWSEvent(t, conn)
		assert.NotZero(t, ev.Seq)
		seen[ev.Type] = true
	}
}

func readWSEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev wsEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

type wsEvent struct {
	Seq  uint64 `json:"seq"`
	Type string `json:"type"`
}

func TestCheckOrigin(t *testing.T) {
	srv := &Server{origins: []string{"http://localhost:*", "https://app.example"}}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"https://app.example", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, srv.checkOrigin(req), tt.origin)
	}
}

func TestBridgeEvents_CatalogReload(t *testing.T) {
	dispatcher := events.NewEventDispatcher(nil)
	source := catalog.NewSource(nil)

	var got []events.CatalogReloadedEvent
	dispatcher.Register(events.NewFuncObserver("test", func(ev events.Event) error {
		data, ok := events.GetTypedData[events.CatalogReloadedEvent](ev)
		require.True(t, ok)
		got = append(got, data)
		return nil
	}, events.TypeCatalogReloaded))

	unbind := BridgeEvents(dispatcher, nil, nil, source)
	source.Replace(catalog.New([]catalog.Card{{CD: "1"}}))
	unbind()
	source.Replace(catalog.New(nil))

	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Cards)
}
