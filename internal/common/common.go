package common

import (
	"booking-portal/internal/config"
	"booking-portal/internal/email"
	"booking-portal/internal/feedback"
	"booking-portal/internal/notifications"
	"booking-portal/internal/query"
	"booking-portal/internal/repository"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/wader/gormstore/v2"
	"gorm.io/gorm"
)

type JwtCustomClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type JWTIssuer interface {
	GenerateToken(email string) (string, error)
	Middleware() echo.MiddlewareFunc
	// PageMiddleware redirects unauthenticated page requests to loginPath.
	PageMiddleware(loginPath string) echo.MiddlewareFunc
	GetUserEmail(c echo.Context) (string, error)
	GetToken(c echo.Context) (string, error)
}

type ServerState struct {
	Echo        *echo.Echo
	Config      *config.Config
	DB          *gorm.DB
	Store       *gormstore.Store
	JwtIssuer   JWTIssuer
	Redis       *redis.Client
	EmailClient email.EmailClient
	Validator   *validator.Validate
	Clock       clock.Clock

	// Bookings reads through the local database, APIClient through a remote
	// deployment. APIClient is nil unless BOOKING_API_URL is set.
	Bookings  *repository.Store
	APIClient *repository.Client
	Cache     query.Cache

	Slack           *notifications.SlackNotifier
	FeedbackMetrics *feedback.Metrics
}
