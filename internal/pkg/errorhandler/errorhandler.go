package errorhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/budgetdesk/budgetdesk-api/internal/pkg/logger"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/response"
)

// Mapping binds a domain sentinel error to an HTTP status and error code.
type Mapping struct {
	Err     error
	Status  int
	Code    string
	Message string // empty means err.Error()
}

// Handle writes the response for the first mapping matching err via errors.Is.
// Unmapped errors are logged and reported as 500.
func Handle(ctx context.Context, w http.ResponseWriter, err error, mappings ...[]Mapping) {
	for _, set := range mappings {
		for _, m := range set {
			if !errors.Is(err, m.Err) {
				continue
			}
			msg := m.Message
			if msg == "" {
				msg = m.Err.Error()
			}
			if m.Status >= http.StatusInternalServerError {
				logger.LogError(ctx, err, "Request failed", "code", m.Code)
			}
			response.Error(w, m.Status, m.Code, msg)
			return
		}
	}

	logger.LogError(ctx, err, "Unhandled request error")
	response.InternalError(w)
}

// Validation logs field errors at warn level and writes a 422.
func Validation(ctx context.Context, w http.ResponseWriter, fieldErrors map[string]string) {
	logger.LogWarn(ctx, "Validation error", "validation_errors", fieldErrors)
	response.ValidationError(w, fieldErrors)
}
