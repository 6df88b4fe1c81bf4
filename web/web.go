// Package web provides the HTTP server of the userhub service: routing, middleware, the
// user API controllers and the background job scheduler.
package web

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/userhub/userhub/config"
	"github.com/userhub/userhub/logger"
	"github.com/userhub/userhub/util/common"
	"github.com/userhub/userhub/util/crypto"
	"github.com/userhub/userhub/util/metrics"
	"github.com/userhub/userhub/web/controller"
	"github.com/userhub/userhub/web/entity"
	"github.com/userhub/userhub/web/job"
	"github.com/userhub/userhub/web/middleware"
	"github.com/userhub/userhub/web/service"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP server with its controllers and scheduled jobs. The database handle is
// owned by the caller and survives Stop, so a Server can be rebuilt on reload.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	db          *gorm.DB
	userService *service.UserService
	metrics     *metrics.Metrics

	index *controller.IndexController
	user  *controller.UserController

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server over db, hashing passwords with hasher and recording into m.
// Like db, m is owned by the caller so it can be shared by successive servers.
func NewServer(db *gorm.DB, hasher crypto.Hasher, m *metrics.Metrics) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		db:          db,
		userService: service.NewUserService(db, hasher),
		metrics:     m,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// initRouter initializes Gin, registers middleware and controllers and returns the engine.
func (s *Server) initRouter() *gin.Engine {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()
	engine.Use(
		middleware.AuditMiddleware("/metrics", "/healthz"),
		middleware.MetricsMiddleware(s.metrics),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
	)

	g := engine.Group("/")
	s.user = controller.NewUserController(g, s.userService, s.metrics)
	s.index = controller.NewIndexController(g, s.metrics)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, entity.ErrorDetail{Detail: "Not Found"})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, entity.ErrorDetail{Detail: "Method Not Allowed"})
	})
	engine.HandleMethodNotAllowed = true

	return engine
}

// startTask schedules the background jobs.
func (s *Server) startTask() {
	spec := config.GetCheckpointCron()
	if _, err := s.cron.AddJob(spec, job.NewCheckpointJob(s.db)); err != nil {
		logger.Warningf("add checkpoint job with schedule %q failed: %v", spec, err)
	}
}

// Start opens the listener and serves in the background.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	s.cron = cron.New()
	s.cron.Start()

	engine := s.initRouter()

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("Web server running HTTP on", listener.Addr())

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped:", err)
		}
	}()

	s.startTask()
	return nil
}

// Stop shuts the HTTP server down gracefully and stops the scheduler. In-flight requests get
// shutdownTimeout to finish; the database handle is left open.
func (s *Server) Stop() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	var err1, err2 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	} else if s.listener != nil {
		err2 = s.listener.Close()
	}
	s.cancel()
	return common.Combine(err1, err2)
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// GetCtx returns the server's context; it is canceled by Stop.
func (s *Server) GetCtx() context.Context { return s.ctx }

// GetCron returns the server's cron scheduler instance.
func (s *Server) GetCron() *cron.Cron { return s.cron }
