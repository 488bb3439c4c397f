// Package handler holds the shared HTTP plumbing for the booking API
// surface: error-to-status mapping and the health endpoint.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sacrapods/nutrivet-api/internal/repository"
	"github.com/sacrapods/nutrivet-api/internal/service/booking"
	apperrors "github.com/sacrapods/nutrivet-api/pkg/errors"
	"github.com/sacrapods/nutrivet-api/pkg/httputil"
)

// RespondServiceError maps service layer failures onto HTTP statuses.
// Rejections keep their code and verbatim reason; rule violations are 422,
// contention and conflicts 409, ownership failures 403. Everything else is a
// 500 with a generic message.
func RespondServiceError(c *gin.Context, err error) {
	if rej, ok := booking.AsRejection(err); ok {
		status := http.StatusConflict
		switch rej.Code {
		case booking.CodeRuleViolation:
			status = http.StatusUnprocessableEntity
		case booking.CodePermissionDenied:
			status = http.StatusForbidden
		}
		httputil.RespondRejection(c, status, string(rej.Code), rej.Reason)
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		httputil.RespondRejection(c, http.StatusNotFound, "not_found", "resource not found")
		return
	}

	httputil.RespondWithError(c, apperrors.Internal(err))
}

// RespondBadRequest reports a malformed payload or parameter.
func RespondBadRequest(c *gin.Context, msg string) {
	httputil.RespondRejection(c, http.StatusBadRequest, "bad_request", msg)
}
