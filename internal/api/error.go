package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/store"
)

var (
	ErrInvalid     = &Error{statusCode: http.StatusBadRequest, Code: ErrCodeInvalid, Msg: "request invalid"}
	ErrNotFound    = &Error{statusCode: http.StatusNotFound, Code: ErrCodeNotFound, Msg: "object not found"}
	ErrReadOnly    = &Error{statusCode: http.StatusMethodNotAllowed, Code: ErrCodeReadOnly, Msg: "topology is read-only"}
	ErrUnavailable = &Error{statusCode: http.StatusServiceUnavailable, Code: ErrCodeUnavailable, Msg: "topology store unavailable"}
	ErrRateLimited = &Error{statusCode: http.StatusTooManyRequests, Code: ErrCodeRateLimited, Msg: "too many requests"}
)

const (
	ErrCodeInvalid     = 40001
	ErrCodeDup         = 40002
	ErrCodeFailed      = 40003
	ErrCodeNotFound    = 40004
	ErrCodeReadOnly    = 40005
	ErrCodeUnavailable = 40006
	ErrCodeRateLimited = 40007
)

// Error is an api error.
type Error struct {
	statusCode int
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
}

func NewError(status, code int, msg string) *Error {
	return &Error{
		statusCode: status,
		Code:       code,
		Msg:        msg,
	}
}

func (e *Error) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// StatusCode is the HTTP status the error is written with.
func (e *Error) StatusCode() int { return e.statusCode }

// toError maps domain and storage errors onto api errors.
func toError(err error) *Error {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, model.ErrMalformedRequest),
		errors.Is(err, model.ErrUnknownProtocol),
		errors.Is(err, model.ErrUnknownAction):
		return NewError(http.StatusBadRequest, ErrCodeInvalid, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return NewError(http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicate):
		return NewError(http.StatusConflict, ErrCodeDup, err.Error())
	}
	return NewError(http.StatusInternalServerError, ErrCodeFailed, err.Error())
}

func writeError(c *gin.Context, err error) {
	e := toError(err)
	c.AbortWithStatusJSON(getStatusCode(e), e)
}

func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if e, ok := err.(*Error); ok {
		if e.statusCode >= http.StatusOK && e.statusCode < 600 {
			return e.statusCode
		}
	}
	return http.StatusInternalServerError
}
