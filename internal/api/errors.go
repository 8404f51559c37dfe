package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amishk599/jobsync/internal/model"
)

// Error codes returned in the error envelope.
const (
	codeValidation = "validation_error"
	codeNotFound   = "not_found"
	codeInternal   = "internal_error"
)

// ErrorBody is the payload of every failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// writeError maps err onto a status code. Internal errors are logged and
// reported with a generic message.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		abort(c, http.StatusBadRequest, codeValidation, strings.TrimPrefix(err.Error(), model.ErrValidation.Error()+": "))
	case errors.Is(err, model.ErrNotFound):
		abort(c, http.StatusNotFound, codeNotFound, err.Error())
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		abort(c, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: msg}})
}
