package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/tradelens/app"
	"github.com/rustyeddy/tradelens/gemini"
	"github.com/rustyeddy/tradelens/imaging"
	"github.com/rustyeddy/tradelens/journal"
)

// Response is the envelope of every JSON reply.
type Response struct {
	RequestID string `json:"request_id"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, Response{RequestID: c.GetString(requestIDKey), Data: data})
}

// fail maps err onto an HTTP status and writes the error envelope.
func fail(c *gin.Context, err error) {
	status := StatusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Response{
		RequestID: c.GetString(requestIDKey),
		Message:   err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		RequestID: c.GetString(requestIDKey),
		Message:   err.Error(),
	})
}

// StatusFor returns the HTTP status for an application error.
func StatusFor(err error) int {
	switch {
	case gemini.IsAnalysisError(err):
		return http.StatusBadGateway
	case imaging.IsDecodeError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gemini.ErrNoImage),
		errors.Is(err, gemini.ErrNoStrategy),
		errors.Is(err, journal.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, journal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, journal.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, gemini.ErrNotConfigured),
		errors.Is(err, app.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
