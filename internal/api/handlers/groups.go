package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/cardfinder/internal/api/response"
	"github.com/ramonehamilton/cardfinder/internal/groups"
)

// GroupHandler handles card group requests. Rejected operations answer
// {"ok":false,"reason":...}.
type GroupHandler struct {
	store *groups.Store
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(store *groups.Store) *GroupHandler {
	return &GroupHandler{store: store}
}

type nameRequest struct {
	Name string `json:"name"`
}

// List returns the groups in display order.
func (h *GroupHandler) List(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, h.store.Export())
}

// State returns the whole persisted collection.
func (h *GroupHandler) State(w http.ResponseWriter, _ *http.Request) {
	st := h.store.State()
	response.Success(w, &st)
}

// Get returns one group.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, ok := h.store.Group(chi.URLParam(r, "id"))
	if !ok {
		reject(w, groups.ErrNotFound)
		return
	}
	response.Success(w, g)
}

// Create adds a group.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	g, err := h.store.CreateGroup(req.Name)
	if err != nil {
		reject(w, err)
		return
	}
	response.Created(w, g)
}

// Rename renames a group.
func (h *GroupHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	g, err := h.store.RenameGroup(chi.URLParam(r, "id"), req.Name)
	if err != nil {
		reject(w, err)
		return
	}
	response.OK(w, g)
}

// Delete removes a group.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.result(w, h.store.DeleteGroup(chi.URLParam(r, "id")))
}

// Move reorders a group.
func (h *GroupHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}
	h.result(w, h.store.MoveGroup(chi.URLParam(r, "id"), req.Index))
}

// SetActive makes a group active.
func (h *GroupHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	h.result(w, h.store.SetActive(chi.URLParam(r, "id")))
}

// ToggleActive activates a group, or deactivates it if already active.
func (h *GroupHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	h.result(w, h.store.ToggleActive(chi.URLParam(r, "id")))
}

// ClearActive removes the group restriction.
func (h *GroupHandler) ClearActive(w http.ResponseWriter, _ *http.Request) {
	h.result(w, h.store.SetActive(""))
}

// StartEditing opens an edit session.
func (h *GroupHandler) StartEditing(w http.ResponseWriter, r *http.Request) {
	h.result(w, h.store.StartEditing(chi.URLParam(r, "id")))
}

// StopEditing closes the edit session.
func (h *GroupHandler) StopEditing(w http.ResponseWriter, _ *http.Request) {
	h.result(w, h.store.StopEditing())
}

// ToggleCard flips a card's membership.
func (h *GroupHandler) ToggleCard(w http.ResponseWriter, r *http.Request) {
	member, err := h.store.ToggleCardInGroup(chi.URLParam(r, "id"), chi.URLParam(r, "cd"))
	if err != nil {
		reject(w, err)
		return
	}
	response.OK(w, map[string]bool{"member": member})
}

func (h *GroupHandler) result(w http.ResponseWriter, err error) {
	if err != nil {
		reject(w, err)
		return
	}
	st := h.store.State()
	response.OK(w, map[string]string{"activeId": st.ActiveID, "editingId": st.EditingID})
}
