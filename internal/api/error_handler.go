package api

import (
	"errors"
	"net/http"

	"github.com/arslant84/l1a-test-sub000/internal/engine"
	"github.com/gin-gonic/gin"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// statusForError 把工作流错误类型映射为 HTTP 状态码
func statusForError(err error) (int, string) {
	var validationErr *engine.ValidationError
	var authErr *engine.AuthorizationError
	var transitionErr *engine.InvalidTransitionError
	var conflictErr *engine.StateConflictError
	var notFoundErr *engine.NotFoundError
	var repoErr *engine.RepositoryError
	var dirErr *engine.DirectoryError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation failed"
	case errors.As(err, &authErr):
		return http.StatusForbidden, "authorization failed"
	case errors.As(err, &transitionErr):
		return http.StatusUnprocessableEntity, "invalid transition"
	case errors.As(err, &conflictErr):
		return http.StatusConflict, "concurrent update conflict"
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, "not found"
	case errors.As(err, &repoErr):
		return http.StatusBadGateway, "repository unavailable"
	case errors.As(err, &dirErr):
		return http.StatusBadGateway, "directory unavailable"
	}
	return http.StatusInternalServerError, "internal server error"
}
