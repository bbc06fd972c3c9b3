package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hray3182/Athena/internal/models"
	"github.com/hray3182/Athena/internal/notify"
	"github.com/hray3182/Athena/internal/rrule"
)

type scheduleRequest struct {
	Kind            models.Kind       `json:"kind" binding:"required"`
	Frequency       models.Frequency  `json:"frequency" binding:"required"`
	Time            string            `json:"time"`
	IntervalMinutes int               `json:"interval_minutes"`
	StartTime       string            `json:"start_time"`
	EndTime         string            `json:"end_time"`
	At              time.Time         `json:"at"`
	Days            []time.Weekday    `json:"days_of_week"`
	Enabled         *bool             `json:"enabled"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Icon            string            `json:"icon"`
	Data            map[string]string `json:"data"`
	Actions         []models.Action   `json:"actions"`
	Pool            []string          `json:"pool"`
}

func (r scheduleRequest) schedule(id string) models.Schedule {
	data := map[string]string{}
	for k, v := range r.Data {
		data[k] = v
	}
	data["type"] = string(r.Kind)
	data["id"] = id

	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return models.Schedule{
		ID:   id,
		Kind: r.Kind,
		Rule: models.Rule{
			Frequency: r.Frequency,
			Time:      r.Time,
			Interval:  time.Duration(r.IntervalMinutes) * time.Minute,
			Start:     r.StartTime,
			End:       r.EndTime,
			At:        r.At,
		},
		Days:    r.Days,
		Enabled: enabled,
		Template: models.Template{
			Payload: models.Payload{
				Title:   r.Title,
				Body:    r.Body,
				Icon:    r.Icon,
				Tag:     id,
				Data:    data,
				Actions: r.Actions,
			},
			Pool: r.Pool,
		},
	}
}

type scheduleView struct {
	models.Schedule
	IntervalMinutes int        `json:"interval_minutes,omitempty"`
	Description     string     `json:"description"`
	NextFire        *time.Time `json:"next_fire,omitempty"`
}

func (s *Server) view(sch models.Schedule, now time.Time) scheduleView {
	v := scheduleView{
		Schedule:    sch,
		Description: rrule.Describe(sch),
	}
	if sch.Rule.Frequency == models.FrequencyInterval {
		v.IntervalMinutes = int(sch.Rule.EffectiveInterval() / time.Minute)
	}
	if next, ok := rrule.NextFire(sch, now, s.loc); ok && sch.Enabled {
		v.NextFire = &next
	}
	return v
}

func (s *Server) listSchedules(c *gin.Context) {
	now := s.now().In(s.loc)
	list := s.manager.List()
	views := make([]scheduleView, 0, len(list))
	for _, sch := range list {
		views = append(views, s.view(sch, now))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) putSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	sch := req.schedule(c.Param("id"))
	if err := sch.Validate(); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.manager.Schedule(sch); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	stored, _ := s.manager.Registry().Get(sch.ID)
	c.JSON(http.StatusOK, s.view(stored, s.now().In(s.loc)))
}

func (s *Server) deleteSchedule(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.manager.Registry().Get(id); !ok {
		abortWithError(c, http.StatusNotFound, notify.ErrUnknownSchedule)
		return
	}
	s.manager.Remove(id)
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleSchedule(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	id := c.Param("id")
	if err := s.manager.Toggle(id, *req.Enabled); err != nil {
		if errors.Is(err, notify.ErrUnknownSchedule) {
			abortWithError(c, http.StatusNotFound, err)
			return
		}
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	sch, _ := s.manager.Registry().Get(id)
	c.JSON(http.StatusOK, s.view(sch, s.now().In(s.loc)))
}

func (s *Server) clearSchedules(c *gin.Context) {
	s.manager.ClearAll()
	c.Status(http.StatusNoContent)
}

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.manager.LoadSettings(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) putSettings(c *gin.Context) {
	// Fields missing from the body keep their stored values
	settings, err := s.manager.LoadSettings(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if err := c.ShouldBindJSON(&settings); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := settings.Validate(); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.manager.SaveSettings(c.Request.Context(), settings); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
