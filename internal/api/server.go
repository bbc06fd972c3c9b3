package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hray3182/Athena/internal/notify"
	"github.com/hray3182/Athena/internal/page"
	"github.com/hray3182/Athena/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options wires the server to the rest of the process
type Options struct {
	Manager   *notify.Manager
	Deliverer notify.Sink
	Worker    *worker.Worker
	Hub       *page.Hub
	// Frontend is the origin of the single-page app. Unmatched routes are
	// proxied to it through Transport.
	Frontend  *url.URL
	Transport http.RoundTripper
	Gatherer  prometheus.Gatherer
	Origins   []string
	Location  *time.Location
}

type Server struct {
	engine    *gin.Engine
	manager   *notify.Manager
	deliverer notify.Sink
	worker    *worker.Worker
	hub       *page.Hub
	loc       *time.Location
	now       func() time.Time
}

func New(opts Options) *Server {
	s := &Server{
		engine:    gin.Default(),
		manager:   opts.Manager,
		deliverer: opts.Deliverer,
		worker:    opts.Worker,
		hub:       opts.Hub,
		loc:       opts.Location,
		now:       time.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}

	s.engine.Use(cors.New(cors.Config{
		AllowOrigins:     opts.Origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) {
	r := s.engine

	r.GET("/healthz", s.health)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		schedules := api.Group("/schedules")
		schedules.GET("", s.listSchedules)
		schedules.DELETE("", s.clearSchedules)
		schedules.PUT("/:id", s.putSchedule)
		schedules.DELETE("/:id", s.deleteSchedule)
		schedules.POST("/:id/toggle", s.toggleSchedule)

		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.putSettings)

		notifications := api.Group("/notifications")
		notifications.GET("/permission", s.getPermission)
		notifications.POST("/permission", s.requestPermission)
		notifications.PUT("/permission", s.setPermission)
		notifications.POST("/defaults", s.installDefaults)
		notifications.POST("/test", s.testNotification)
		notifications.POST("/click", s.click)

		api.POST("/push", s.push)
		api.GET("/events", s.events)
		api.POST("/events/:id/focus", s.focus)
	}

	if opts.Frontend == nil {
		return
	}

	// The worker script must always be revalidated and may control the whole origin
	sw := httputil.NewSingleHostReverseProxy(opts.Frontend)
	sw.ModifyResponse = func(resp *http.Response) error {
		resp.Header.Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
		resp.Header.Set("Service-Worker-Allowed", "/")
		return nil
	}
	r.GET("/service-worker.js", gin.WrapH(sw))

	proxy := httputil.NewSingleHostReverseProxy(opts.Frontend)
	if opts.Transport != nil {
		proxy.Transport = opts.Transport
	}
	r.NoRoute(gin.WrapH(proxy))
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[api] Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(c *gin.Context) {
	state := "none"
	if s.worker != nil && s.worker.State() != worker.StateNone {
		state = string(s.worker.State())
	}
	pages := 0
	if s.hub != nil {
		pages = s.hub.Len()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"worker":     state,
		"pages":      pages,
		"schedules":  s.manager.Registry().Len(),
		"permission": s.manager.Gate().CurrentStatus(),
	})
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
