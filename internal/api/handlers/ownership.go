package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/cardfinder/internal/api/response"
	"github.com/ramonehamilton/cardfinder/internal/cardid"
	"github.com/ramonehamilton/cardfinder/internal/catalog"
	"github.com/ramonehamilton/cardfinder/internal/ownership"
)

// OwnershipHandler handles owned-copy counts.
type OwnershipHandler struct {
	store   *ownership.Store
	catalog *catalog.Source
}

// NewOwnershipHandler creates a new OwnershipHandler.
func NewOwnershipHandler(store *ownership.Store, source *catalog.Source) *OwnershipHandler {
	return &OwnershipHandler{store: store, catalog: source}
}

// ownedCard is the view of one card's ownership.
type ownedCard struct {
	CD       string          `json:"cd"`
	Entry    ownership.Entry `json:"entry"`
	Total    int             `json:"total"`
	Capacity int             `json:"capacity"`
	Complete bool            `json:"complete"`
}

func (h *OwnershipHandler) view(cd, race string, entry ownership.Entry) ownedCard {
	capacity := h.store.Capacity(cd, race)
	return ownedCard{
		CD:       cardid.Normalize(cd),
		Entry:    entry,
		Total:    entry.Total(),
		Capacity: capacity,
		Complete: entry.Total() >= capacity,
	}
}

// List returns every owned card.
func (h *OwnershipHandler) List(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, h.store.All())
}

// Summary returns completion counts against the catalog.
func (h *OwnershipHandler) Summary(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, h.store.Summarize(h.catalog.Current()))
}

// Get returns one card's entry and capacity.
func (h *OwnershipHandler) Get(w http.ResponseWriter, r *http.Request) {
	cd := chi.URLParam(r, "cd")
	response.Success(w, h.view(cd, r.URL.Query().Get("race"), h.store.Get(cd)))
}

// Set stores an entry as given. Capacity is not enforced.
func (h *OwnershipHandler) Set(w http.ResponseWriter, r *http.Request) {
	cd := chi.URLParam(r, "cd")
	var entry ownership.Entry
	if err := response.DecodeJSON(r, &entry); err != nil {
		response.BadRequest(w, err)
		return
	}

	stored, err := h.store.Set(cd, entry)
	if err != nil {
		reject(w, err)
		return
	}
	response.OK(w, h.view(cd, "", stored))
}

// SetTotal clamps a total into capacity and stores it.
func (h *OwnershipHandler) SetTotal(w http.ResponseWriter, r *http.Request) {
	cd := chi.URLParam(r, "cd")
	var req struct {
		Total int    `json:"total"`
		Race  string `json:"race"`
	}
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	stored, err := h.store.SetTotal(cd, req.Total, req.Race)
	if err != nil {
		reject(w, err)
		return
	}
	response.OK(w, h.view(cd, req.Race, stored))
}

// Toggle advances a card's total by one, wrapping at capacity.
func (h *OwnershipHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	cd := chi.URLParam(r, "cd")
	var req struct {
		Race string `json:"race"`
	}
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	stored, err := h.store.Toggle(cd, req.Race)
	if err != nil {
		reject(w, err)
		return
	}
	response.OK(w, h.view(cd, req.Race, stored))
}
