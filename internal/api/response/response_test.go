package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapes(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		body   string
	}{
		{"success", func(w http.ResponseWriter) { Success(w, []int{1}) }, http.StatusOK, `{"data":[1]}`},
		{"ok", func(w http.ResponseWriter) { OK(w, nil) }, http.StatusOK, `{"ok":true}`},
		{"created", func(w http.ResponseWriter) { Created(w, "g1") }, http.StatusCreated, `{"ok":true,"data":"g1"}`},
		{"accepted", Accepted, http.StatusAccepted, `{"ok":true}`},
		{"rejected", func(w http.ResponseWriter) { Rejected(w, http.StatusConflict, "limit") }, http.StatusConflict, `{"ok":false,"reason":"limit"}`},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, errors.New("bad cost")) }, http.StatusBadRequest,
			`{"ok":false,"reason":"badrequest","message":"bad cost"}`},
		{"not found", func(w http.ResponseWriter) { NotFound(w, errors.New("card not found")) }, http.StatusNotFound,
			`{"ok":false,"reason":"notfound","message":"card not found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, []string{}, 1, 50, 0)
	assert.JSONEq(t, `{"data":[],"page":1,"page_size":50,"total_count":0,"total_pages":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Paginated(rec, []string{"a"}, 3, 50, 101)
	assert.Contains(t, rec.Body.String(), `"total_pages":3`)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	empty := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, DecodeJSON(empty, &v))
	assert.Empty(t, v.Name)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Deck"}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "Deck", v.Name)

	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.Error(t, DecodeJSON(bad, &v))
}
