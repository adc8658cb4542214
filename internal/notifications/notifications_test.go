package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"booking-portal/internal/models"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackNotifier_Disabled(t *testing.T) {
	var n *SlackNotifier
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Send(context.Background(), "hello"))

	n = NewSlackNotifier("")
	assert.False(t, n.Enabled())
	assert.NoError(t, n.FeedbackReceived(context.Background(), &models.SessionBooking{}, &models.SessionFeedback{}))
}

func TestSlackNotifier_FeedbackReceived(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	booking := &models.SessionBooking{ID: "b1", SessionPlan: models.SessionPlan{Title: "Go basics"}}
	feedback := &models.SessionFeedback{ID: "f1", UnclearTopic: "Channels", Comment: "Thanks"}

	require.NoError(t, n.FeedbackReceived(context.Background(), booking, feedback))
	assert.Equal(t, "New feedback for Go basics", payload["text"])

	attachments, ok := payload["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 1)
	fields := attachments[0].(map[string]interface{})["fields"].([]interface{})
	assert.Len(t, fields, 6)
}

func TestSlackNotifier_ReportsWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, NewSlackNotifier(srv.URL).Send(context.Background(), "hello"))
}

func TestFlashNotifier_RoundTrip(t *testing.T) {
	e := echo.New()
	store := sessions.NewCookieStore([]byte("test-secret"))
	e.Use(session.Middleware(store))
	e.POST("/notify", func(c echo.Context) error {
		n := NewFlashNotifier(c)
		n.Success("Deleted", "")
		n.Error("Oops...", "Something went wrong!")
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/show", func(c echo.Context) error {
		return c.JSON(http.StatusOK, Flashes(c))
	})

	req := httptest.NewRequest(http.MethodPost, "/notify", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1, "one session cookie per response")
	assert.Equal(t, "session", cookies[0].Name)

	req = httptest.NewRequest(http.MethodGet, "/show", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var flashes []Flash
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flashes))
	assert.Equal(t, []Flash{
		{Kind: KindSuccess, Title: "Deleted"},
		{Kind: KindError, Title: "Oops...", Text: "Something went wrong!"},
	}, flashes)
}

func TestFlashes_WithoutSessionStore(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Nil(t, Flashes(c))
	NewFlashNotifier(c).Success("ignored", "")
}

func TestFlashes_PoppedOnce(t *testing.T) {
	e := echo.New()
	store := sessions.NewCookieStore([]byte("test-secret"))
	e.Use(session.Middleware(store))
	e.POST("/notify", func(c echo.Context) error {
		NewFlashNotifier(c).Success("Deleted", "")
		return c.Redirect(http.StatusSeeOther, "/show")
	})
	e.GET("/show", func(c echo.Context) error {
		return c.JSON(http.StatusOK, Flashes(c))
	})

	jar := map[string]*http.Cookie{}
	send := func(method, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		for _, c := range jar {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		for _, c := range rec.Result().Cookies() {
			jar[c.Name] = c
		}
		return rec
	}

	rec := send(http.MethodPost, "/notify")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var flashes []Flash
	rec = send(http.MethodGet, "/show")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flashes))
	assert.Equal(t, []Flash{{Kind: KindSuccess, Title: "Deleted"}}, flashes)

	flashes = nil
	rec = send(http.MethodGet, "/show")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flashes))
	assert.Empty(t, flashes)
}
