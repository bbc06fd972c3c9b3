package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hray3182/Athena/internal/models"
	"github.com/hray3182/Athena/internal/notify"
	"github.com/hray3182/Athena/internal/page"
	"github.com/hray3182/Athena/internal/repository"
	"github.com/hray3182/Athena/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRenderer struct {
	mu    sync.Mutex
	shown []models.Payload
}

func (r *fakeRenderer) Show(_ context.Context, p models.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, p)
	return nil
}

func (r *fakeRenderer) Close(context.Context, string) error      { return nil }
func (r *fakeRenderer) OpenWindow(context.Context, string) error { return nil }

func (r *fakeRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shown)
}

type testEnv struct {
	server   *Server
	manager  *notify.Manager
	hub      *page.Hub
	renderer *fakeRenderer
	hits     *atomic.Int32
}

// newTestEnv builds a server in front of a fake frontend. The worker is
// activated and running unless active is false.
func newTestEnv(t *testing.T, status notify.Status, active bool) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := repository.NewMemorySettingsRepository()
	if status != notify.StatusDefault {
		store.Set(ctx, models.KeyPermission, string(status))
	}
	gate, err := notify.NewGate(ctx, store, nil)
	if err != nil {
		t.Fatal(err)
	}

	hub := page.NewHub()
	renderer := &fakeRenderer{}
	cache := worker.NewMemoryStore()
	w := worker.New(renderer, hub, cache, nil)
	if active {
		if _, err := w.Register(ctx); err != nil {
			t.Fatal(err)
		}
		go w.Run(ctx)
		waitFor(t, w.Available)
	}

	deliverer := notify.NewDeliverer(gate, w, hub)
	registry := notify.NewRegistry()
	scheduler := notify.NewScheduler(registry, deliverer, notify.WithCheckInterval(time.Hour))
	t.Cleanup(scheduler.Stop)
	manager := notify.NewManager(ctx, registry, scheduler, gate, store, nil)

	hits := &atomic.Int32{}
	frontend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write([]byte("frontend " + r.URL.Path))
	}))
	t.Cleanup(frontend.Close)
	origin, _ := url.Parse(frontend.URL)

	s := New(Options{
		Manager:   manager,
		Deliverer: deliverer,
		Worker:    w,
		Hub:       hub,
		Frontend:  origin,
		Transport: worker.NewCachingTransport(origin, cache),
		Gatherer:  prometheus.NewRegistry(),
		Location:  time.UTC,
	})
	s.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }

	return &testEnv{server: s, manager: manager, hub: hub, renderer: renderer, hits: hits}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestScheduleLifecycle(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)

	rec := env.do(http.MethodPut, "/api/schedules/stretch", `{
		"kind": "exercise", "frequency": "interval", "interval_minutes": 30,
		"start_time": "09:00", "end_time": "17:00", "title": "🧘 Stretch"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body)
	}
	var created scheduleView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.IntervalMinutes != 30 || created.Template.Payload.Data["type"] != "exercise" || created.Template.Payload.Tag != "stretch" {
		t.Errorf("created = %+v", created)
	}
	if created.NextFire == nil || created.NextFire.Before(env.server.now()) {
		t.Errorf("NextFire = %v", created.NextFire)
	}

	rec = env.do(http.MethodGet, "/api/schedules", "")
	var list []scheduleView
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Description != "every 30 minutes between 09:00 and 17:00" {
		t.Fatalf("list = %+v", list)
	}

	if rec := env.do(http.MethodPost, "/api/schedules/stretch/toggle", `{"enabled": false}`); rec.Code != http.StatusOK {
		t.Errorf("toggle status = %d", rec.Code)
	}
	if s, _ := env.manager.Registry().Get("stretch"); s.Enabled {
		t.Error("schedule still enabled")
	}
	if rec := env.do(http.MethodPost, "/api/schedules/nope/toggle", `{"enabled": true}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown toggle status = %d", rec.Code)
	}

	if rec := env.do(http.MethodDelete, "/api/schedules/stretch", ""); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d", rec.Code)
	}
	if rec := env.do(http.MethodDelete, "/api/schedules/stretch", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d", rec.Code)
	}
}

func TestPutScheduleValidation(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{`},
		{"missing frequency", `{"kind": "water"}`},
		{"unknown kind", `{"kind": "laundry", "frequency": "daily", "time": "07:00"}`},
		{"bad time", `{"kind": "water", "frequency": "daily", "time": "7am"}`},
		{"bad weekday", `{"kind": "water", "frequency": "daily", "time": "07:00", "days_of_week": [9]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(http.MethodPut, "/api/schedules/x", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body)
			}
		})
	}
	valid := `{"kind": "exercise", "frequency": "daily", "time": "07:00"}`
	if rec := env.do(http.MethodPut, "/api/schedules/daily:stretch", valid); rec.Code != http.StatusBadRequest {
		t.Errorf("id with ':' status = %d, want 400", rec.Code)
	}
	if rec := env.do(http.MethodPut, "/api/schedules/"+strings.Repeat("t", models.MaxIDLength+1), valid); rec.Code != http.StatusBadRequest {
		t.Errorf("long id status = %d, want 400", rec.Code)
	}
	if env.manager.Registry().Len() != 0 {
		t.Error("invalid schedule was registered")
	}
}

func TestClearSchedules(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)
	env.manager.ScheduleMorningMotivation("07:30")

	if rec := env.do(http.MethodDelete, "/api/schedules", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.manager.Registry().Len() != 0 {
		t.Error("registry not cleared")
	}
}

func TestSettingsPartialUpdate(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)

	if rec := env.do(http.MethodPut, "/api/settings", `{"water_interval": 60}`); rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body)
	}

	var got models.ReminderSettings
	json.Unmarshal(env.do(http.MethodGet, "/api/settings", "").Body.Bytes(), &got)
	if got.WaterInterval != 60 || got.WaterStart != "07:00" || got.MotivationTime != "07:30" {
		t.Errorf("settings = %+v", got)
	}

	water, ok := env.manager.Registry().Get(notify.WaterReminderID)
	if !ok || water.Rule.Interval != time.Hour {
		t.Errorf("water reminder not re-applied: %+v", water.Rule)
	}

	if rec := env.do(http.MethodPut, "/api/settings", `{"water_interval": 0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid settings status = %d", rec.Code)
	}
}

func TestRecordBrowserPermission(t *testing.T) {
	env := newTestEnv(t, notify.StatusDefault, true)

	if rec := env.do(http.MethodPut, "/api/notifications/permission", `{"status": "maybe"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status = %d", rec.Code)
	}

	rec := env.do(http.MethodPut, "/api/notifications/permission", `{"status": "granted"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if n := env.manager.Registry().Len(); n != 3 {
		t.Errorf("restored %d reminders, want 3", n)
	}

	var perm struct {
		Status string `json:"status"`
		Asked  bool   `json:"asked"`
	}
	json.Unmarshal(env.do(http.MethodGet, "/api/notifications/permission", "").Body.Bytes(), &perm)
	if perm.Status != "granted" || !perm.Asked {
		t.Errorf("permission = %+v", perm)
	}
}

func TestRequestPermissionWithoutPrompter(t *testing.T) {
	env := newTestEnv(t, notify.StatusDefault, true)

	rec := env.do(http.MethodPost, "/api/notifications/permission", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"denied"`) {
		t.Errorf("response = %d %s", rec.Code, rec.Body)
	}
	if env.manager.Registry().Len() != 0 {
		t.Error("reminders installed without permission")
	}
}

func TestTestNotificationGoesThroughWorker(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)

	rec := env.do(http.MethodPost, "/api/notifications/test", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"delivered":true`) {
		t.Fatalf("response = %d %s", rec.Code, rec.Body)
	}
	waitFor(t, func() bool { return env.renderer.count() == 1 })

	denied := newTestEnv(t, notify.StatusDenied, true)
	rec = denied.do(http.MethodPost, "/api/notifications/test", `{"title": "hi"}`)
	if !strings.Contains(rec.Body.String(), `"delivered":false`) {
		t.Errorf("denied response = %s", rec.Body)
	}
}

func TestPushRequiresActiveWorker(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, false)
	if rec := env.do(http.MethodPost, "/api/push", `{"title": "x"}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	active := newTestEnv(t, notify.StatusGranted, true)
	if rec := active.do(http.MethodPost, "/api/push", `{"body": "hello"}`); rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	waitFor(t, func() bool { return active.renderer.count() == 1 })
	if got := active.renderer.shown[0].Title; got != worker.PushDefaultTitle {
		t.Errorf("Title = %q", got)
	}
	if rec := active.do(http.MethodPost, "/api/push", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad push status = %d", rec.Code)
	}
}

func TestClickFocusesOpenPage(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)
	session := env.hub.Open()

	rec := env.do(http.MethodPost, "/api/notifications/click", `{"tag": "water-reminder", "data": {"type": "water"}}`)
	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), `/health?tab=water`) {
		t.Fatalf("response = %d %s", rec.Code, rec.Body)
	}

	select {
	case e := <-session.Events():
		msg, ok := e.Data.(models.ClickMessage)
		if e.Name != page.EventMessage || !ok || msg.Type != models.ClickMessageType || msg.URL != "/health?tab=water" {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("page never received the click")
	}
}

func TestFocusUnknownSession(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)
	if rec := env.do(http.MethodPost, "/api/events/not-a-uuid/focus", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	session := env.hub.Open()
	if rec := env.do(http.MethodPost, "/api/events/"+session.ID.String()+"/focus", ""); rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)
	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, "event:") {
				return strings.TrimPrefix(line, "event:")
			}
		}
		return ""
	}

	if got := next(); got != "session" {
		t.Fatalf("first event = %q", got)
	}
	waitFor(t, func() bool { return env.hub.Len() == 1 })

	env.hub.Deliver(ctx, models.Payload{Title: "hello"})
	if got := next(); got != page.EventNotification {
		t.Errorf("second event = %q", got)
	}
}

func TestServiceWorkerHeaders(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)

	rec := env.do(http.MethodGet, "/service-worker.js", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "frontend /service-worker.js" {
		t.Fatalf("response = %d %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache, no-store, max-age=0, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
	if got := rec.Header().Get("Service-Worker-Allowed"); got != "/" {
		t.Errorf("Service-Worker-Allowed = %q", got)
	}
}

func TestFrontendProxyIsCacheFirst(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodGet, "/static/app.js", "")
		if rec.Code != http.StatusOK || rec.Body.String() != "frontend /static/app.js" {
			t.Fatalf("response = %d %s", rec.Code, rec.Body)
		}
	}
	if n := env.hits.Load(); n != 1 {
		t.Errorf("frontend hit %d times, want 1", n)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, notify.StatusGranted, true)

	rec := env.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"worker":"activated"`) {
		t.Errorf("response = %d %s", rec.Code, rec.Body)
	}
	if rec := env.do(http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
}
