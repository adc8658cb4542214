package server

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"booking-portal/internal/common"
	"booking-portal/internal/config"
	"booking-portal/internal/email"
	"booking-portal/internal/feedback"
	"booking-portal/internal/handlers"
	"booking-portal/internal/models"
	"booking-portal/internal/notifications"
	"booking-portal/internal/query"
	"booking-portal/internal/repository"
	"booking-portal/internal/utils"
	"booking-portal/internal/validation"
	"booking-portal/web"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	resend "github.com/resend/resend-go/v2"
	"github.com/wader/gormstore/v2"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const cacheNamespace = "booking-portal"

// CustomValidator Source: https://echo.labstack.com/docs/request#validate-data
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

type Template struct {
	templates *template.Template
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

type SentryLogger struct {
	echo.Logger
}

func (l *SentryLogger) Error(i ...interface{}) {
	if len(i) > 0 {
		if err, ok := i[0].(error); ok {
			handlers.CaptureError(err)
		} else {
			handlers.CaptureError(errors.New(fmt.Sprint(i...)))
		}
	}
	l.Logger.Error(i...)
}

func (l *SentryLogger) Errorf(format string, args ...interface{}) {
	handlers.CaptureError(fmt.Errorf(format, args...))
	l.Logger.Errorf(format, args...)
}

type Server struct {
	common.ServerState

	// quit stops the background cleanup goroutines.
	quit chan struct{}
}

func New(cfg *config.Config) *Server {
	e := echo.New()
	v := validation.New()
	e.Validator = &CustomValidator{validator: v}
	e.Logger = &SentryLogger{Logger: e.Logger}
	e.Logger.SetLevel(log.DEBUG)

	return &Server{
		common.ServerState{
			Echo:      e,
			Config:    cfg,
			Validator: v,
			Clock:     clock.New(),
		},
		make(chan struct{}),
	}
}

func (s *Server) Initialize() error {
	// Initialize database
	s.setupDatabase()

	s.setupRedis()

	s.setupCache()

	s.JwtIssuer = handlers.NewJwtAuth(s.Config.Auth.SessionSecret, s.Config.Auth.TokenTTL)

	// Initialize Resend email client
	s.setupEmailClient()

	s.Slack = notifications.NewSlackNotifier(s.Config.Slack.WebhookURL)
	if !s.Slack.Enabled() {
		s.Echo.Logger.Warn("SLACK_WEBHOOK_URL not configured, operator notifications will be disabled")
	}

	// Initialize session store
	s.setupSessionStore()

	if err := s.setupTemplates(); err != nil {
		return err
	}

	// Run Migrations
	s.runMigrations()

	s.setupRepositories()

	if err := s.setupMetrics(); err != nil {
		return err
	}

	// Setup routes
	s.setupRoutes()

	// Setup middleware -
	// Keep last to avoid Recover middleware and panic if something goes wrong on init
	s.setupMiddleware()

	return nil
}

func (s *Server) setupDatabase() {
	dsn := s.Config.Database.DSN
	if dsn == "" {
		s.Echo.Logger.Fatal("DATABASE_DSN environment variable is required")
	}

	var db *gorm.DB
	var err error

	// SQLite DSNs start with "file:"
	if strings.HasPrefix(dsn, "file:") {
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)})
	} else {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)})
	}

	if err != nil {
		s.Echo.Logger.Fatal(err)
	}
	s.DB = db
}

func (s *Server) setupRedis() {
	url := s.Config.Database.RedisURI

	// Redis is optional, the query cache falls back to memory without it
	if url == "" {
		s.Echo.Logger.Warn("REDIS_URI not configured, using the in-memory query cache")
		s.Redis = nil
		return
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		s.Echo.Logger.Warnf("Failed to parse Redis URL: %v, using the in-memory query cache", err)
		s.Redis = nil
		return
	}

	s.Redis = redis.NewClient(opts)

	// Validate proper connection, but don't panic on failure
	ctx := context.Background()
	result := s.Redis.Ping(ctx)
	if result.Err() != nil {
		s.Echo.Logger.Warnf("Redis connection failed: %v, using the in-memory query cache", result.Err())
		s.Redis = nil
		return
	}
}

func (s *Server) setupCache() {
	if s.Redis != nil {
		s.Cache = query.NewRedisCache(s.Redis, cacheNamespace)
		return
	}
	cache := query.NewMemoryCache()
	go cache.PeriodicCleanup(s.Config.Query.CacheTTL, s.quit)
	s.Cache = cache
}

func (s *Server) setupSessionStore() {
	store := gormstore.New(s.DB, []byte(s.Config.Auth.SessionSecret))
	store.SessionOpts.MaxAge = 60 * 60 * 24 * 30 // 30 days
	store.SessionOpts.SameSite = http.SameSiteLaxMode
	store.SessionOpts.HttpOnly = true

	go store.PeriodicCleanup(1*time.Hour, s.quit)

	// To solve securecookie: error - caused by: gob: type not registered for interface
	gob.Register(map[string]interface{}{})

	s.Store = store
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return "Not available"
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"properCase": utils.ToProperCase,
	}
}

func (s *Server) setupTemplates() error {
	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(web.FS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	s.Echo.Renderer = &Template{templates: tmpl}
	return nil
}

func (s *Server) runMigrations() {
	err := s.DB.AutoMigrate(
		&models.User{},
		&models.SessionPlan{},
		&models.ChatChannel{},
		&models.SessionBooking{},
		&models.SessionFeedback{},
	)
	if err != nil {
		s.Echo.Logger.Fatal(err)
	}
}

func (s *Server) setupRepositories() {
	s.Bookings = repository.NewStore(s.DB, s.Clock)

	if s.Config.API.BaseURL == "" {
		return
	}
	s.Echo.Logger.Infof("Reading session bookings from %s", s.Config.API.BaseURL)
	s.APIClient = repository.NewClient(repository.ClientOptions{
		BaseURL:  s.Config.API.BaseURL,
		Token:    s.Config.API.Token,
		Timeout:  s.Config.API.Timeout,
		RetryMax: s.Config.API.RetryMax,
		Logger:   s.Echo.Logger,
	})
}

func (s *Server) setupMiddleware() {
	s.Echo.Use(middleware.CORS())
	s.Echo.Use(session.Middleware(s.Store))
	s.Echo.Use(middleware.Recover())
	// Try to add prometheus middleware, but don't panic if already registered (e.g., in tests)
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok && err.Error() == "duplicate metrics collector registration attempted" {
				s.Echo.Logger.Warn("Prometheus middleware already registered, skipping")
			} else {
				panic(r)
			}
		}
	}()
	s.Echo.Use(echoprometheus.NewMiddleware("booking_portal"))
}

func (s *Server) setupMetrics() error {
	metrics, err := feedback.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register feedback metrics: %w", err)
	}
	s.FeedbackMetrics = metrics

	// Only register Redis metrics if Redis is available
	if s.Redis == nil {
		return nil
	}

	err = prometheus.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Subsystem: "redis",
			Name:      "connected_clients",
			Help:      "The number of clients currently connected to Redis",
		},
		func() float64 {
			ctx := context.Background()
			connectedClientsRaw := s.Redis.InfoMap(ctx).Item("Clients", "connected_clients")

			connectedClients, err := strconv.ParseFloat(connectedClientsRaw, 64)
			if err != nil {
				return math.NaN()
			}

			return connectedClients
		},
	))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		return fmt.Errorf("register redis metrics: %w", err)
	}
	return nil
}

func (s *Server) setupEmailClient() {
	apiKey := s.Config.Resend.APIKey
	if apiKey == "" {
		s.Echo.Logger.Warn("RESEND_API_KEY not configured, email notifications will be disabled")
		return
	}

	resendClient := resend.NewClient(apiKey)
	s.EmailClient = email.NewResendEmailClient(resendClient,
		s.Config.Resend.DefaultSender,
		s.Echo.Logger)
}

func (s *Server) setupRoutes() {
	handlers.SetupSentry(s.Echo, s.Config)

	// Serve static files
	s.Echo.StaticFS("/static", echo.MustSubFS(web.FS, "static"))

	api := handlers.NewAPIHandler(&s.ServerState)
	pages := handlers.NewPageHandler(&s.ServerState)

	// API routes group
	apiGroup := s.Echo.Group("/api")

	// Public API endpoints
	apiGroup.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	apiGroup.GET("/metrics", echoprometheus.NewHandler())
	apiGroup.POST("/sign-in", api.ManualSignIn)

	// Protected API routes group
	protectedAPI := apiGroup.Group("/auth", s.JwtIssuer.Middleware())

	protectedAPI.GET("/user", api.User)
	protectedAPI.GET("/session-bookings", api.ListSessionBookings)
	protectedAPI.GET("/session-bookings/:id", api.GetSessionBooking)
	protectedAPI.GET("/feedback", api.ListFeedback)
	protectedAPI.GET("/feedback/session-booking/:id", api.GetFeedbackBySessionBooking)
	protectedAPI.POST("/feedback", api.CreateFeedback)
	protectedAPI.DELETE("/feedback/:id", api.DeleteFeedback)

	// Debug endpoints - only enabled when ENABLE_DEBUG_ENDPOINTS=true
	if s.Config.Server.Debug {
		apiGroup.GET("/jwt-debug", func(c echo.Context) error {
			email := c.QueryParam("email")
			token, err := s.JwtIssuer.GenerateToken(email)
			if err != nil {
				return c.String(http.StatusInternalServerError, "Failed to generate token")
			}
			return c.JSON(http.StatusOK, map[string]string{
				"email": email,
				"token": token,
			})
		})
	}

	// Pages
	pageAuth := s.JwtIssuer.PageMiddleware("/sign-in")

	s.Echo.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/bookings")
	})
	s.Echo.GET("/sign-in", pages.SignInForm)
	s.Echo.POST("/sign-in", pages.SignIn)
	s.Echo.GET("/bookings", pages.Bookings, pageAuth)
	s.Echo.GET("/bookings/:id", pages.Booking, pageAuth)
	s.Echo.POST("/bookings/:id/feedback", pages.SubmitFeedback, pageAuth)
	s.Echo.POST("/feedback/:id/delete", pages.DeleteFeedback, pageAuth)
}

func (s *Server) Start() error {
	serverURL := s.Config.Server.Host + ":" + s.Config.Server.Port

	if s.Config.Server.TLS.Enabled {
		if _, err := os.Stat(s.Config.Server.TLS.CertFile); os.IsNotExist(err) {
			s.Echo.Logger.Warn("TLS certificate file not found, falling back to HTTP")
			return s.Echo.Start(serverURL)
		}
		if _, err := os.Stat(s.Config.Server.TLS.KeyFile); os.IsNotExist(err) {
			s.Echo.Logger.Warn("TLS key file not found, falling back to HTTP")
			return s.Echo.Start(serverURL)
		}
		return s.Echo.StartTLS(serverURL, s.Config.Server.TLS.CertFile, s.Config.Server.TLS.KeyFile)
	}

	return s.Echo.Start(serverURL)
}

// Shutdown stops the HTTP server and closes the backing connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	close(s.quit)
	if s.Redis != nil {
		if cerr := s.Redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
