package handlers

import (
	"errors"
	"net/http"

	"github.com/ramonehamilton/cardfinder/internal/api/response"
	"github.com/ramonehamilton/cardfinder/internal/groups"
	"github.com/ramonehamilton/cardfinder/internal/ownership"
)

// reject writes the {ok:false} body for a store error.
func reject(w http.ResponseWriter, err error) {
	reason := groups.Reason(err)
	switch {
	case errors.Is(err, ownership.ErrInvalidCardID):
		reason = "invalid"
	case errors.Is(err, ownership.ErrReentrantWrite):
		reason = "reentrant"
	}
	response.Rejected(w, statusFor(reason), reason)
}

func statusFor(reason string) int {
	switch reason {
	case "limit", "reentrant":
		return http.StatusConflict
	case "notfound":
		return http.StatusNotFound
	case "immutable":
		return http.StatusForbidden
	case "invalid":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
