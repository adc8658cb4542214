package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booking-portal/internal/models"
	"booking-portal/internal/repository"

	"github.com/labstack/echo/v4"
)

var _ repository.Repository = (*CachedRepository)(nil)

// CachedRepository serves reads of one user's queries from a Cache and drops
// the user's feedback queries after every create or delete.
//
// Cache failures are logged and fall through to the wrapped repository.
type CachedRepository struct {
	next   repository.Repository
	cache  Cache
	ttl    time.Duration
	scope  string
	logger echo.Logger
}

func NewCachedRepository(next repository.Repository, cache Cache, ttl time.Duration, scope string, logger echo.Logger) *CachedRepository {
	return &CachedRepository{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		scope:  scope,
		logger: logger,
	}
}

func (r *CachedRepository) key(parts ...interface{}) string {
	k := r.scope
	for _, p := range parts {
		k += ":" + fmt.Sprint(p)
	}
	return k
}

func (r *CachedRepository) feedbackPrefix() string {
	return r.key("getFeedback")
}

func (r *CachedRepository) GetOne(ctx context.Context, id string) (*models.SessionBooking, error) {
	return fetch(ctx, r, r.key("getSessionBooking", id), func(ctx context.Context) (*models.SessionBooking, error) {
		return r.next.GetOne(ctx, id)
	})
}

func (r *CachedRepository) ListSessionBookings(ctx context.Context, p models.Pagination) ([]models.SessionBooking, error) {
	return fetch(ctx, r, r.key("getSessionBookings", p.Limit, p.Page), func(ctx context.Context) ([]models.SessionBooking, error) {
		return r.next.ListSessionBookings(ctx, p)
	})
}

func (r *CachedRepository) GetMe(ctx context.Context) (*models.User, error) {
	return fetch(ctx, r, r.key("getUserData"), r.next.GetMe)
}

func (r *CachedRepository) GetAll(ctx context.Context, p models.Pagination) (*models.FeedbackPage, error) {
	return fetch(ctx, r, r.key("getFeedbackList", p.Limit, p.Page), func(ctx context.Context) (*models.FeedbackPage, error) {
		return r.next.GetAll(ctx, p)
	})
}

func (r *CachedRepository) GetBySessionBooking(ctx context.Context, sessionBookingID string) (*models.SessionFeedback, error) {
	return fetch(ctx, r, r.key("getFeedback", sessionBookingID), func(ctx context.Context) (*models.SessionFeedback, error) {
		return r.next.GetBySessionBooking(ctx, sessionBookingID)
	})
}

func (r *CachedRepository) Create(ctx context.Context, feedback *models.SessionFeedback) (*models.SessionFeedback, error) {
	created, err := r.next.Create(ctx, feedback)
	if err != nil {
		return nil, err
	}
	r.Invalidate(ctx)
	return created, nil
}

func (r *CachedRepository) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

// Invalidate drops every cached feedback query of the scope.
func (r *CachedRepository) Invalidate(ctx context.Context) {
	if err := r.cache.DeletePrefix(ctx, r.feedbackPrefix()); err != nil {
		r.logger.Warnf("Failed to invalidate %s: %v", r.feedbackPrefix(), err)
	}
}

func fetch[T any](ctx context.Context, r *CachedRepository, key string, load func(context.Context) (T, error)) (T, error) {
	raw, err := r.cache.Get(ctx, key)
	if err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		r.logger.Warnf("Dropping undecodable cache entry %s", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warnf("Cache read for %s failed: %v", key, err)
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		r.logger.Warnf("Failed to encode %s for cache: %v", key, err)
		return value, nil
	}
	if err := r.cache.Set(ctx, key, encoded, r.ttl); err != nil {
		r.logger.Warnf("Cache write for %s failed: %v", key, err)
	}
	return value, nil
}
