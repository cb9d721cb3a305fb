package handlers

import (
	"net/http"

	"github.com/ramonehamilton/cardfinder/internal/api/response"
	"github.com/ramonehamilton/cardfinder/internal/filter"
)

// FilterHandler reads and changes the current selection.
type FilterHandler struct {
	recomputer *filter.Recomputer
}

// NewFilterHandler creates a new FilterHandler.
func NewFilterHandler(recomputer *filter.Recomputer) *FilterHandler {
	return &FilterHandler{recomputer: recomputer}
}

// filterState is the body of GET /filter.
type filterState struct {
	Selection filter.Selection `json:"selection"`
	Visible   int              `json:"visible"`
	Total     int              `json:"total"`
	Chips     []filter.Chip    `json:"chips"`
}

func (h *FilterHandler) state() filterState {
	res := h.recomputer.Result()
	chips := res.Chips
	if chips == nil {
		chips = []filter.Chip{}
	}
	return filterState{
		Selection: h.recomputer.Selection(),
		Visible:   res.Visible,
		Total:     res.Total,
		Chips:     chips,
	}
}

// GetFilter returns the selection and the latest counts and chips.
func (h *FilterHandler) GetFilter(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, h.state())
}

// SetFilter replaces the selection. Group ids are owned by the group store
// and ignored here.
func (h *FilterHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var sel filter.Selection
	if err := response.DecodeJSON(r, &sel); err != nil {
		response.BadRequest(w, err)
		return
	}

	err := h.recomputer.Update(func(cur *filter.Selection) {
		sel.ActiveID, sel.EditingID = cur.ActiveID, cur.EditingID
		if sel.Owned == "" {
			sel.Owned = filter.OwnedOff
		}
		*cur = sel
	})
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	response.Success(w, h.state())
}

// SetKeyword changes only the keyword. The pass runs after the debounce.
func (h *FilterHandler) SetKeyword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword string `json:"keyword"`
	}
	if err := response.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	if err := h.recomputer.SetKeyword(req.Keyword); err != nil {
		response.BadRequest(w, err)
		return
	}
	response.Accepted(w)
}

// Recompute forces a pass now.
func (h *FilterHandler) Recompute(w http.ResponseWriter, _ *http.Request) {
	h.recomputer.Recompute()
	response.Success(w, h.state())
}
