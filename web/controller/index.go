package controller

import (
	"net/http"

	"github.com/userhub/userhub/config"
	"github.com/userhub/userhub/util/metrics"

	"github.com/gin-gonic/gin"
)

// IndexController serves the operational endpoints: health and metrics.
type IndexController struct {
	BaseController

	metrics *metrics.Metrics
}

// NewIndexController creates a new IndexController and initializes its routes.
func NewIndexController(g *gin.RouterGroup, m *metrics.Metrics) *IndexController {
	a := &IndexController{metrics: m}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	g.GET("/healthz", a.healthz)
	g.GET("/metrics", gin.WrapH(a.metrics.Handler()))
}

func (a *IndexController) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "version": config.GetVersion()})
}
