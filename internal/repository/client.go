package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"booking-portal/internal/models"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"
)

var _ Repository = (*Client)(nil)

type ClientOptions struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Logger       echo.Logger
}

// Client talks to a remote deployment of the booking API.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

func NewClient(opts ClientOptions) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	// Keep the last response so API error bodies can be decoded
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Logger != nil {
		rc.Logger = &leveledLogger{opts.Logger}
	} else {
		rc.Logger = nil
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		http:    rc,
	}
}

// WithToken returns a client that authenticates as the owner of token.
func (c *Client) WithToken(token string) *Client {
	scoped := *c
	scoped.token = token
	return &scoped
}

func (c *Client) GetMe(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetOne(ctx context.Context, id string) (*models.SessionBooking, error) {
	var b models.SessionBooking
	if err := c.do(ctx, http.MethodGet, "/api/auth/session-bookings/"+url.PathEscape(id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) ListSessionBookings(ctx context.Context, p models.Pagination) ([]models.SessionBooking, error) {
	var bookings []models.SessionBooking
	if err := c.do(ctx, http.MethodGet, "/api/auth/session-bookings?"+pageQuery(p), nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *Client) GetAll(ctx context.Context, p models.Pagination) (*models.FeedbackPage, error) {
	var page models.FeedbackPage
	if err := c.do(ctx, http.MethodGet, "/api/auth/feedback?"+pageQuery(p), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetBySessionBooking(ctx context.Context, sessionBookingID string) (*models.SessionFeedback, error) {
	var f models.SessionFeedback
	path := "/api/auth/feedback/session-booking/" + url.PathEscape(sessionBookingID)
	if err := c.do(ctx, http.MethodGet, path, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) Create(ctx context.Context, feedback *models.SessionFeedback) (*models.SessionFeedback, error) {
	var created models.SessionFeedback
	if err := c.do(ctx, http.MethodPost, "/api/auth/feedback", feedback, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/auth/feedback/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body interface{}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = payload
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// After the last retry the passthrough handler hands back both the
	// response and the retry error; the response is what we decode.
	resp, err := c.http.Do(req)
	if resp == nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeError maps an API error response onto the repository error taxonomy.
// The API answers with {"message": "...", "fields": {...}}.
func decodeError(status int, raw []byte) error {
	message := gjson.GetBytes(raw, "message").String()
	if message == "" {
		message = http.StatusText(status)
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", message, ErrNotFound)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		verr := &ValidationError{Message: message}
		fields := gjson.GetBytes(raw, "fields")
		if fields.IsObject() {
			verr.Fields = map[string]string{}
			fields.ForEach(func(key, value gjson.Result) bool {
				verr.Fields[key.String()] = value.String()
				return true
			})
		}
		return verr
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", message, ErrConflict)
	default:
		return &NetworkError{StatusCode: status, Message: message}
	}
}

func pageQuery(p models.Pagination) string {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	return q.Encode()
}

// leveledLogger routes retryablehttp logs through the echo logger.
type leveledLogger struct {
	logger echo.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(append([]interface{}{msg}, keysAndValues...)...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(append([]interface{}{msg}, keysAndValues...)...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(append([]interface{}{msg}, keysAndValues...)...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(append([]interface{}{msg}, keysAndValues...)...)
}
