package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hray3182/Athena/internal/models"
	"github.com/hray3182/Athena/internal/notify"
	"github.com/hray3182/Athena/internal/worker"
)

func (s *Server) getPermission(c *gin.Context) {
	gate := s.manager.Gate()
	c.JSON(http.StatusOK, gin.H{
		"status": gate.CurrentStatus(),
		"asked":  gate.Asked(),
	})
}

// requestPermission prompts the user and, when granted, installs reminders
func (s *Server) requestPermission(c *gin.Context) {
	status, err := s.manager.Enable(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "schedules": s.manager.Registry().Len()})
}

// setPermission records a decision the browser already made
func (s *Server) setPermission(c *gin.Context) {
	var req struct {
		Status notify.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if !req.Status.Valid() {
		abortWithError(c, http.StatusBadRequest, errors.New("status must be granted, denied or default"))
		return
	}

	ctx := c.Request.Context()
	if err := s.manager.Gate().Set(ctx, req.Status); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if err := s.manager.Restore(ctx); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status, "schedules": s.manager.Registry().Len()})
}

func (s *Server) installDefaults(c *gin.Context) {
	if err := s.manager.InstallDefaults(c.Request.Context()); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	s.listSchedules(c)
}

func (s *Server) testNotification(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
	}
	if req.Title == "" {
		req.Title = "🔔 Test notification"
	}
	if req.Body == "" {
		req.Body = "Notifications are working!"
	}

	delivered := s.deliverer.Deliver(c.Request.Context(), models.Payload{
		Title:     req.Title,
		Body:      req.Body,
		Tag:       "test-notification",
		Data:      map[string]string{"type": string(models.KindGeneric)},
		Timestamp: s.now(),
	})
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

func (s *Server) push(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.worker.Push(c.Request.Context(), raw); err != nil {
		if errors.Is(err, worker.ErrNotActive) {
			abortWithError(c, http.StatusServiceUnavailable, err)
			return
		}
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) click(c *gin.Context) {
	var req struct {
		Tag    string            `json:"tag"`
		Action string            `json:"action"`
		Data   map[string]string `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if req.Data == nil {
		req.Data = map[string]string{}
	}

	click := worker.Click{Tag: req.Tag, Action: req.Action, Data: req.Data}
	if !s.worker.HandleClick(c.Request.Context(), click) {
		abortWithError(c, http.StatusServiceUnavailable, worker.ErrNotActive)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"url": worker.DeepLink(req.Action, req.Data)})
}

// events streams notifications and click messages to one open page
func (s *Server) events(c *gin.Context) {
	session := s.hub.Open()
	defer s.hub.Close(session.ID)
	log.Printf("[api] Page %s connected (%d open)", session.ID, s.hub.Len())

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("session", gin.H{"id": session.ID})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-session.Events():
			if !ok {
				return false
			}
			c.SSEvent(e.Name, e.Data)
			return true
		}
	})
	log.Printf("[api] Page %s disconnected", session.ID)
}

func (s *Server) focus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if !s.hub.Focus(id) {
		abortWithError(c, http.StatusNotFound, errors.New("page session not found"))
		return
	}
	c.Status(http.StatusNoContent)
}
