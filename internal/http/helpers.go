package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"dompet/internal/core"
)

var errEmptyBody = errors.New("request body is empty")

type errorResponse struct {
	Error string `json:"error"`
}

// validationErrors are the boundary errors reported back as 422.
var validationErrors = []error{
	core.ErrEmptyUserID,
	core.ErrEmptyMessage,
	core.ErrEmptyName,
	core.ErrEmptyDescription,
	core.ErrAmountPrecision,
	core.ErrInvalidPriority,
	core.ErrInvalidCadence,
	core.ErrInvalidRiskAppetite,
	core.ErrInvalidChannel,
	core.ErrInvalidAge,
	core.ErrInvalidHousehold,
	core.ErrNegativeAmount,
	core.ErrInvalidDate,
	core.ErrInvalidRange,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondDecodeError reports a body that failed to decode. Bad enumerations
// or dates inside otherwise valid JSON are validation failures.
func respondDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if isValidationError(err) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
}

// respondServiceError maps an error returned by a service call. Anything that
// is not a validation failure came from the ledger.
func respondServiceError(w http.ResponseWriter, err error) int {
	status := http.StatusBadGateway
	message := "ledger unavailable"
	switch {
	case isValidationError(err):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		message = "request timed out"
	case errors.Is(err, context.Canceled):
		status = http.StatusInternalServerError
		message = "request cancelled"
	}
	respondError(w, status, message)
	return status
}

// parseRange reads the optional start and end query parameters.
func parseRange(r *http.Request) (start, end *core.Date, err error) {
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("start")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return nil, nil, err
		}
		start = &d
	}
	if v := strings.TrimSpace(q.Get("end")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return nil, nil, err
		}
		end = &d
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, nil, core.ErrInvalidRange
	}
	return start, end, nil
}
