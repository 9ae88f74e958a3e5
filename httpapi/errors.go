package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/ByLCY/certify/assets"
	"github.com/ByLCY/certify/export"
	"github.com/ByLCY/certify/studio"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the user-facing message and a machine code.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var errUnknownDelivery = errors.New("unknown delivery")

// asGoError maps pipeline errors to categorized errors for the response.
func asGoError(err error) *goerrors.Error {
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		return ge
	}
	switch {
	case errors.Is(err, studio.ErrUnknownTemplate):
		return goerrors.New("unknown certificate template", goerrors.CategoryNotFound).WithTextCode("unknown_template")
	case errors.Is(err, errUnknownDelivery):
		return goerrors.New("unknown delivery", goerrors.CategoryNotFound).WithTextCode("unknown_delivery")
	case errors.Is(err, assets.ErrTemplateNotFound), errors.Is(err, assets.ErrDecodeFailed), errors.Is(err, assets.ErrFetchFailed):
		return goerrors.New("the template image could not be loaded", goerrors.CategoryInternal).WithTextCode("template_unavailable")
	case errors.Is(err, export.ErrStoreFailed):
		return goerrors.New("the certificate could not be saved", goerrors.CategoryInternal).WithTextCode("store_failed")
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.New("request timed out", goerrors.CategoryOperation).WithTextCode("timeout")
	default:
		return goerrors.New("internal error", goerrors.CategoryInternal).WithTextCode("internal")
	}
}

func statusForError(ge *goerrors.Error) int {
	switch ge.Category {
	case goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryOperation:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	ge := asGoError(err)
	writeJSON(w, statusForError(ge), ErrorResponse{Error: ErrorBody{Message: ge.Message, Code: ge.TextCode}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
