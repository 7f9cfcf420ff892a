package httpx

import (
	"errors"
	"net/http"

	"github.com/condoledger/condoledger/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var de *shared.Error
	if !errors.As(err, &de) {
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	var status int
	var title string
	switch de.Kind {
	case shared.KindValidation:
		status, title = http.StatusBadRequest, "Validation Failed"
	case shared.KindStateConflict:
		status, title = http.StatusConflict, "State Conflict"
	case shared.KindInvariantViolation:
		status, title = http.StatusUnprocessableEntity, "Invariant Violation"
	case shared.KindConcurrencyConflict:
		status, title = http.StatusConflict, "Concurrency Conflict"
	case shared.KindNotFound:
		status, title = http.StatusNotFound, "Not Found"
	default:
		status, title = http.StatusInternalServerError, "Internal Error"
	}
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: de.Message,
		Rule:   de.Rule,
	})
}
