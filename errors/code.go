package errors

import (
	"net/http"
)

func BadRequest() ErrorEnricher   { return WithCode(http.StatusBadRequest) }
func Unauthorized() ErrorEnricher { return WithCode(http.StatusUnauthorized) }
func Forbidden() ErrorEnricher    { return WithCode(http.StatusForbidden) }
func NotFound() ErrorEnricher     { return WithCode(http.StatusNotFound) }
func Conflict() ErrorEnricher     { return WithCode(http.StatusConflict) }
func Unavailable() ErrorEnricher  { return WithCode(http.StatusServiceUnavailable) }

func IsNotFound(err error) bool  { return Code(err) == http.StatusNotFound }
func IsForbidden(err error) bool { return Code(err) == http.StatusForbidden }
func IsConflict(err error) bool  { return Code(err) == http.StatusConflict }
