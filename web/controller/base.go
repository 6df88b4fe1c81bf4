// Package controller provides the HTTP handlers of the user API. Controllers register their
// routes on a gin router group and delegate to the service layer.
package controller

import (
	"errors"
	"net/http"

	"github.com/userhub/userhub/logger"
	"github.com/userhub/userhub/web/middleware"
	"github.com/userhub/userhub/web/service"

	"github.com/gin-gonic/gin"
)

const (
	msgUserNotFound       = "User not found"
	msgInvalidCredentials = "Invalid username or password"
	msgUserExists         = "User already exists"
)

// BaseController maps service errors onto HTTP responses for all controllers.
type BaseController struct{}

// handleError writes the response for err. Errors it does not recognise become a 500 and
// are logged with the request id.
func (a *BaseController) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		detailMsg(c, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, service.ErrInvalidCredentials):
		detailMsg(c, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, service.ErrUserExists):
		detailMsg(c, http.StatusConflict, msgUserExists)
	default:
		logger.Errorf("[%s] %s %s failed: %v", middleware.GetRequestID(c), c.Request.Method, c.Request.URL.Path, err)
		detailMsg(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
