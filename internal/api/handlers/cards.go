package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/cardfinder/internal/api/response"
	"github.com/ramonehamilton/cardfinder/internal/catalog"
	"github.com/ramonehamilton/cardfinder/internal/filter"
)

// CardHandler serves catalog records and the current filter result.
type CardHandler struct {
	catalog    *catalog.Source
	recomputer *filter.Recomputer
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(source *catalog.Source, recomputer *filter.Recomputer) *CardHandler {
	return &CardHandler{catalog: source, recomputer: recomputer}
}

// ListVisible returns one page of the cards visible under the current
// selection.
func (h *CardHandler) ListVisible(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 100)

	res := h.recomputer.Result()
	start := min((page-1)*pageSize, len(res.Cards))
	end := min(start+pageSize, len(res.Cards))

	response.Paginated(w, res.Cards[start:end], page, pageSize, res.Visible)
}

// GetCard returns one catalog record.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cd := chi.URLParam(r, "cd")
	card, ok := h.catalog.Current().Lookup(cd)
	if !ok {
		response.NotFound(w, errors.New("card not found"))
		return
	}
	response.Success(w, card)
}

// GetCatalog returns catalog metadata.
func (h *CardHandler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	current := h.catalog.Current()
	response.Success(w, map[string]interface{}{
		"cards":    current.Len(),
		"loadedAt": current.LoadedAt(),
	})
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}
