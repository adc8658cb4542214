package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"booking-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientOptions{
		BaseURL:      srv.URL,
		Token:        "test-token",
		Timeout:      time.Second,
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
}

func TestClient_GetOneSendsBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/session-bookings/b1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.SessionBooking{
			ID:          "b1",
			Status:      models.BookingStatusCompleted,
			Attendee:    &models.User{FirstName: "Jane"},
			SessionPlan: models.SessionPlan{Title: "Intro"},
		})
	})

	b, err := client.GetOne(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	require.NotNil(t, b.Attendee)
	assert.Equal(t, "Jane", b.Attendee.FullName())
}

func TestClient_GetAllEncodesPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Write([]byte(`{"docs":[{"id":"f1","session_booking_id":"b1"}],"totalDocs":1,"limit":1000,"page":1,"totalPages":1}`))
	})

	page, err := client.GetAll(context.Background(), models.Pagination{Limit: 1000, Page: 1})
	require.NoError(t, err)
	require.Len(t, page.Docs, 1)
	assert.Equal(t, "f1", page.Docs[0].ID)
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"message":"Session booking not found"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, IsNotFound(err))
				assert.Contains(t, err.Error(), "Session booking not found")
			},
		},
		{
			name:   "validation",
			status: http.StatusBadRequest,
			body:   `{"message":"feedback is incomplete","fields":{"unclear_topic":"required"}}`,
			check: func(t *testing.T, err error) {
				assert.True(t, IsValidation(err))
				verr, ok := err.(*ValidationError)
				require.True(t, ok)
				assert.Equal(t, "required", verr.Fields["unclear_topic"])
				assert.Equal(t, "feedback is incomplete", Message(err))
			},
		},
		{
			name:   "conflict",
			status: http.StatusConflict,
			body:   `{"message":"feedback opens after the session ends"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrConflict)
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   ``,
			check: func(t *testing.T, err error) {
				assert.True(t, IsNetwork(err))
				var nerr *NetworkError
				require.ErrorAs(t, err, &nerr)
				assert.Equal(t, http.StatusUnauthorized, nerr.StatusCode)
				assert.Equal(t, "Unauthorized", nerr.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Create(context.Background(), &models.SessionFeedback{SessionBookingID: "b1"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":"u1","first_name":"Jane","email":"jane@example.com"}`))
	})

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAsNetworkError(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"database unavailable"}`))
	})

	err := client.Delete(context.Background(), "f1")
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, "database unavailable", Message(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DeleteWithEmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/auth/feedback/f1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, client.Delete(context.Background(), "f1"))
}
