package handlers

import (
	"errors"
	"net/http"
	"time"

	"booking-portal/internal/common"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	tokenCookie = "token"
	// Key under which echo-jwt stores the parsed token
	contextKey = "user"
)

var ErrNoToken = errors.New("no authentication token in request")

type JwtAuth struct {
	secret []byte
	ttl    time.Duration
}

var _ common.JWTIssuer = (*JwtAuth)(nil)

func NewJwtAuth(secret string, ttl time.Duration) *JwtAuth {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &JwtAuth{secret: []byte(secret), ttl: ttl}
}

func (j *JwtAuth) GenerateToken(email string) (string, error) {
	now := time.Now()
	claims := &common.JwtCustomClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

func (j *JwtAuth) config() echojwt.Config {
	return echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(common.JwtCustomClaims)
		},
		SigningKey:  j.secret,
		ContextKey:  contextKey,
		TokenLookup: "header:Authorization:Bearer ,cookie:" + tokenCookie,
	}
}

func (j *JwtAuth) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(j.config())
}

func (j *JwtAuth) PageMiddleware(loginPath string) echo.MiddlewareFunc {
	cfg := j.config()
	cfg.ErrorHandler = func(c echo.Context, err error) error {
		return c.Redirect(http.StatusSeeOther, loginPath)
	}
	return echojwt.WithConfig(cfg)
}

func (j *JwtAuth) token(c echo.Context) (*jwt.Token, error) {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoToken
	}
	return token, nil
}

func (j *JwtAuth) GetUserEmail(c echo.Context) (string, error) {
	token, err := j.token(c)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*common.JwtCustomClaims)
	if !ok || claims.Email == "" {
		return "", ErrNoToken
	}
	return claims.Email, nil
}

// GetToken returns the raw token the request was authenticated with.
func (j *JwtAuth) GetToken(c echo.Context) (string, error) {
	token, err := j.token(c)
	if err != nil {
		return "", err
	}
	return token.Raw, nil
}

func setTokenCookie(c echo.Context, token string, ttl time.Duration, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
