package handlers

import (
	"errors"
	"net/http"

	"booking-portal/internal/common"
	"booking-portal/internal/feedback"
	"booking-portal/internal/models"
	"booking-portal/internal/query"
	"booking-portal/internal/repository"

	"github.com/labstack/echo/v4"
)

var errUnknownUser = errors.New("authenticated user does not exist")

// repositoryFor returns the repository of the authenticated user, wrapped in
// the query cache. The cache scope is the user, so cached reads never cross
// accounts.
func repositoryFor(c echo.Context, s *common.ServerState) (repository.Repository, error) {
	email, err := s.JwtIssuer.GetUserEmail(c)
	if err != nil {
		return nil, err
	}

	var next repository.Repository
	var scope string
	if s.APIClient != nil {
		token, err := s.JwtIssuer.GetToken(c)
		if err != nil {
			return nil, err
		}
		next = s.APIClient.WithToken(token)
		scope = email
	} else {
		user, err := models.GetUserByEmail(s.DB, email)
		if err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				return nil, errUnknownUser
			}
			return nil, err
		}
		next = s.Bookings.ForUser(user.ID)
		scope = user.ID
	}

	if s.Cache == nil {
		return next, nil
	}
	return query.NewCachedRepository(next, s.Cache, s.Config.Query.CacheTTL, scope, c.Logger()), nil
}

// parsePagination reads limit and page from the query string.
func parsePagination(c echo.Context, defaultLimit int) (models.Pagination, error) {
	p := models.Pagination{Limit: defaultLimit, Page: 1}
	err := echo.QueryParamsBinder(c).
		Int("limit", &p.Limit).
		Int("page", &p.Page).
		BindError()
	if err != nil {
		return p, err
	}
	return p.Normalize(), nil
}

// httpError maps repository and form errors onto API responses.
func httpError(c echo.Context, err error) *echo.HTTPError {
	var formErr *feedback.ValidationError
	var repoErr *repository.ValidationError

	switch {
	case errors.As(err, &formErr):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"message": "Feedback is incomplete",
			"fields":  formErr.Fields,
		})
	case errors.As(err, &repoErr):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"message": repoErr.Message,
			"fields":  repoErr.Fields,
		})
	case repository.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.Is(err, repository.ErrConflict), errors.Is(err, feedback.ErrSubmitDisabled):
		return echo.NewHTTPError(http.StatusConflict, "Feedback opens once the session has ended")
	case errors.Is(err, errUnknownUser), errors.Is(err, ErrNoToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized request")
	case repository.IsNetwork(err):
		c.Logger().Warnf("Booking API request failed: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, repository.Message(err))
	default:
		c.Logger().Error(err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
