package controller

import (
	"errors"
	"net/http"
	"strconv"
	"text/template"

	"github.com/userhub/userhub/logger"
	"github.com/userhub/userhub/util/metrics"
	"github.com/userhub/userhub/web/entity"
	"github.com/userhub/userhub/web/service"

	"github.com/gin-gonic/gin"
)

// UserController serves user registration, lookup and login.
type UserController struct {
	BaseController

	userService *service.UserService
	metrics     *metrics.Metrics
}

// NewUserController creates a UserController and registers its routes on g.
func NewUserController(g *gin.RouterGroup, userService *service.UserService, m *metrics.Metrics) *UserController {
	a := &UserController{userService: userService, metrics: m}
	a.initRouter(g)
	return a
}

func (a *UserController) initRouter(g *gin.RouterGroup) {
	g.POST("/add_user", a.addUser)
	g.GET("/get_users", a.getUsers)
	g.GET("/get_userbyId/:id", a.getUser)
	g.POST("/login", a.login)
}

// addUser stores a new user and redirects to the user list.
func (a *UserController) addUser(c *gin.Context) {
	var form entity.AddUserForm
	if err := c.ShouldBindJSON(&form); err != nil {
		detailMsg(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if _, err := a.userService.AddUser(c.Request.Context(), *form.Name, *form.Password, *form.Role); err != nil {
		a.handleError(c, err)
		return
	}
	a.metrics.UsersCreated.Inc()

	c.Redirect(http.StatusSeeOther, "/get_users")
}

func (a *UserController) getUsers(c *gin.Context) {
	users, err := a.userService.ListUsers(c.Request.Context())
	if err != nil {
		a.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.NewUserResponses(users))
}

func (a *UserController) getUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		detailMsg(c, http.StatusUnprocessableEntity, "id must be an integer")
		return
	}

	user, err := a.userService.GetUserById(c.Request.Context(), id)
	if err != nil {
		a.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity.NewUserResponse(user))
}

// login checks the credentials and answers with the user's public view. Unknown names and
// wrong passwords get the same 401.
func (a *UserController) login(c *gin.Context) {
	var form entity.LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		detailMsg(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := a.userService.CheckUser(c.Request.Context(), *form.Name, *form.Password)
	safeUser := template.HTMLEscapeString(*form.Name)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			a.metrics.LoginAttempts.WithLabelValues(metrics.LoginFailure).Inc()
			logger.Warningf("wrong username or password for \"%s\", IP: \"%s\"", safeUser, getRemoteIp(c))
		} else {
			a.metrics.LoginAttempts.WithLabelValues(metrics.LoginError).Inc()
		}
		a.handleError(c, err)
		return
	}

	a.metrics.LoginAttempts.WithLabelValues(metrics.LoginSuccess).Inc()
	logger.Infof("%s logged in successfully, Ip Address: %s", safeUser, getRemoteIp(c))
	c.JSON(http.StatusOK, entity.NewUserResponse(user))
}
