package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"booking-portal/internal/feedback"
	"booking-portal/internal/models"
	"booking-portal/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(target string) echo.Context {
	e := echo.New()
	e.Logger.SetLevel(log.OFF)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"form validation", &feedback.ValidationError{Fields: map[string]string{"unclear_topic": "required"}}, http.StatusBadRequest},
		{"api validation", &repository.ValidationError{Message: "bad", Fields: map[string]string{"comment": "max"}}, http.StatusBadRequest},
		{"not found", fmt.Errorf("session booking x: %w", repository.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("too early: %w", repository.ErrConflict), http.StatusConflict},
		{"submit disabled", feedback.ErrSubmitDisabled, http.StatusConflict},
		{"unknown user", errUnknownUser, http.StatusUnauthorized},
		{"no token", ErrNoToken, http.StatusUnauthorized},
		{"network", &repository.NetworkError{StatusCode: 503, Message: "unavailable"}, http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := httpError(newTestContext("/"), tt.err)
			assert.Equal(t, tt.code, he.Code)
		})
	}
}

func TestHTTPError_ValidationBody(t *testing.T) {
	he := httpError(newTestContext("/"), &feedback.ValidationError{
		Fields: map[string]string{"unclear_topic": "required"},
	})

	body, ok := he.Message.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]string{"unclear_topic": "required"}, body["fields"])
	assert.NotEmpty(t, body["message"])
}

func TestParsePagination(t *testing.T) {
	p, err := parsePagination(newTestContext("/?limit=5&page=3"), 0)
	require.NoError(t, err)
	assert.Equal(t, models.Pagination{Limit: 5, Page: 3}, p)

	p, err = parsePagination(newTestContext("/"), 1000)
	require.NoError(t, err)
	assert.Equal(t, models.Pagination{Limit: 1000, Page: 1}, p)

	p, err = parsePagination(newTestContext("/"), 0)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPageLimit, p.Limit)

	p, err = parsePagination(newTestContext("/?limit=50000&page=-2"), 0)
	require.NoError(t, err)
	assert.Equal(t, models.Pagination{Limit: models.MaxPageLimit, Page: 1}, p)

	_, err = parsePagination(newTestContext("/?limit=abc"), 0)
	assert.Error(t, err)
}
