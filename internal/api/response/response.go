// Package response writes the JSON bodies of the local API.
//
// Reads answer {"data": ...}. Store operations answer {"ok": true, "data": ...}
// or {"ok": false, "reason": "..."}; request errors use the same rejected
// shape with a message.
package response

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// SuccessResponse is the body of a read.
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ResultResponse is the body of a store operation or a failed request.
type ResultResponse struct {
	OK      bool        `json:"ok"`
	Reason  string      `json:"reason,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PaginatedResponse is one page of a list.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalCount int         `json:"total_count"`
	TotalPages int         `json:"total_pages"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// Success writes a read result.
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// OK writes an accepted store operation.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, ResultResponse{OK: true, Data: data})
}

// Created writes a store operation that created data.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, ResultResponse{OK: true, Data: data})
}

// Accepted writes an operation whose effect is applied later.
func Accepted(w http.ResponseWriter) {
	JSON(w, http.StatusAccepted, ResultResponse{OK: true})
}

// Rejected writes a refused store operation.
func Rejected(w http.ResponseWriter, status int, reason string) {
	JSON(w, status, ResultResponse{Reason: reason})
}

// Error writes a failed request. The reason is the lower-cased status text
// without spaces, such as "badrequest".
func Error(w http.ResponseWriter, status int, err error) {
	JSON(w, status, ResultResponse{
		Reason:  strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "")),
		Message: err.Error(),
	})
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadRequest, err)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, err error) {
	Error(w, http.StatusNotFound, err)
}

// Paginated writes one page. totalCount is the size of the whole list.
func Paginated(w http.ResponseWriter, data interface{}, page, pageSize, totalCount int) {
	JSON(w, http.StatusOK, PaginatedResponse{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: max((totalCount+pageSize-1)/pageSize, 1),
	})
}

// DecodeJSON decodes the request body into v. An empty body leaves v as is.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
