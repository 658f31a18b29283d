// Package erp uploads attendance batches to the HR/ERP service.
package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/septivank/attendance-sync-worker/internal/event"
	"go.uber.org/zap"
)

const (
	loginPath  = "/api/login"
	uploadPath = "/trpc/hr.attendance.upload_data"

	DefaultTimeout = 30 * time.Second
)

// SessionConfig holds the ERP endpoint and credentials
type SessionConfig struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

// Session authenticates once and reuses the bearer token for every later
// request. It is not safe for concurrent Login calls.
type Session struct {
	http        *resty.Client
	cfg         SessionConfig
	accessToken string
	logger      *zap.Logger
}

// NewSession creates an unauthenticated session
func NewSession(cfg SessionConfig, logger *zap.Logger) *Session {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := resty.New()
	r.SetBaseURL(cfg.BaseURL)
	r.SetTimeout(timeout)
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("Accept", "application/json")

	return &Session{
		http:   r,
		cfg:    cfg,
		logger: logger,
	}
}

// Authenticated reports whether Login has succeeded.
func (s *Session) Authenticated() bool {
	return s.accessToken != ""
}

// Login exchanges the stored credentials for an access token and installs
// it as the bearer token on all further requests.
func (s *Session) Login(ctx context.Context) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(loginRequest{Email: s.cfg.Email, Password: s.cfg.Password}).
		Post(loginPath)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}

	if !resp.IsSuccess() {
		return &AuthenticationError{StatusCode: resp.StatusCode(), Message: errorMessage(resp)}
	}

	var login loginResponse
	if err := json.Unmarshal(resp.Body(), &login); err != nil {
		return &AuthenticationError{StatusCode: resp.StatusCode(), Message: fmt.Sprintf("invalid login response: %v", err)}
	}
	if login.AccessToken == "" {
		return &AuthenticationError{StatusCode: resp.StatusCode(), Message: "login successful but no access token returned"}
	}

	s.accessToken = login.AccessToken
	s.http.SetAuthToken(login.AccessToken)

	s.logger.Info("authenticated with ERP", zap.String("base_url", s.cfg.BaseURL))
	return nil
}

// UploadEvents sends one batch. Empty employee or event lists are logged
// and still sent. The decoded response object is returned as is.
func (s *Session) UploadEvents(ctx context.Context, employees []Employee, events []event.Event) (map[string]any, error) {
	if employees == nil {
		employees = []Employee{}
	}
	if events == nil {
		events = []event.Event{}
	}

	if len(employees) == 0 {
		s.logger.Warn("uploading batch without employees")
	}
	if len(events) == 0 {
		s.logger.Warn("uploading batch without events")
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(UploadBatch{Employees: employees, Events: events}).
		Post(uploadPath)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, &UploadError{StatusCode: resp.StatusCode(), Message: errorMessage(resp)}
	}

	var result map[string]any
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	s.logger.Info("upload response",
		zap.Int("employees", len(employees)),
		zap.Int("events", len(events)),
		zap.String("response", Summary(result)))

	return result, nil
}

// Summary renders an upload response as indented JSON.
func Summary(result map[string]any) string {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}

// IsAuthError reports whether err came from a rejected login.
func IsAuthError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}
