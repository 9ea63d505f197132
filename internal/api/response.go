package api

import (
	"errors"
	"net/http"

	"epargne/pkg/epargne"
)

// ErrorResponse is the structured error payload.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	Row       int    `json:"row,omitempty"`
}

// writeCoreError maps a core error to its HTTP status and writes the
// structured payload. Unclassified errors become 500s.
func writeCoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	response := ErrorResponse{Message: err.Error()}

	var coreErr *epargne.Error
	if errors.As(err, &coreErr) {
		status = mapErrorCodeToHTTPStatus(coreErr.Code)
		response.ErrorCode = string(coreErr.Code)
		response.Row = coreErr.Row
	}
	response.Code = status
	writeJSON(w, status, response)
}

func mapErrorCodeToHTTPStatus(code epargne.ErrorCode) int {
	switch code {
	case epargne.ErrCodeInvalidParameters,
		epargne.ErrCodeInsufficientQuantity,
		epargne.ErrCodeNegativeQuantity,
		epargne.ErrCodeImportRow:
		return http.StatusBadRequest
	case epargne.ErrCodeNotFound:
		return http.StatusNotFound
	case epargne.ErrCodeDuplicate:
		return http.StatusConflict
	case epargne.ErrCodePermissionDenied:
		return http.StatusForbidden
	case epargne.ErrCodeDatabase, epargne.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
