package ssoprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/learnpath/cert-portal/pkg/config"
	"github.com/learnpath/cert-portal/pkg/errors"
)

// HTTPClient talks to the hosted SSO provider over its JSON API. The
// provider's availability is probed lazily on first use with a bounded
// number of attempts; an unreachable provider makes every call return a
// provider-unavailable error instead of blocking or panicking.
type HTTPClient struct {
	merchant string
	platform string

	baseURL       string
	probeAttempts int
	probeInterval time.Duration
	httpClient    *http.Client
	logger        *slog.Logger

	mu     sync.Mutex
	probed bool
	ready  bool
}

// HTTPClientOption configures an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPDoer sets the underlying http.Client, used by tests.
func WithHTTPDoer(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HTTPClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// NewHTTPClient creates an HTTPClient for the given merchant/platform
// channel against cfg.ProviderHost.
func NewHTTPClient(merchant, platform string, cfg config.SSOConfig, opts ...HTTPClientOption) *HTTPClient {
	client := &HTTPClient{
		merchant:      merchant,
		platform:      platform,
		baseURL:       cfg.ProviderHost,
		probeAttempts: cfg.ProbeAttempts,
		probeInterval: cfg.ProbeInterval,
		httpClient:    &http.Client{Timeout: cfg.RequestTimeout},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// envelope is the provider's uniform response shape.
type envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Ready probes the provider once per client lifetime with bounded retries.
// After a failed probe, each later call retries a single attempt so a
// provider that comes up late is picked up without re-paying the full probe.
func (c *HTTPClient) Ready(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready {
		return nil
	}

	attempts := c.probeAttempts
	if c.probed {
		attempts = 1
	}
	c.probed = true

	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), errors.ErrCodeProviderDown, "provider probe cancelled")
			case <-time.After(c.probeInterval):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sso/v1/status", nil)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to build probe request")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("sso provider probe failed", "attempt", i+1, "err", err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			c.ready = true
			return nil
		}
		c.logger.Warn("sso provider probe unexpected status", "attempt", i+1, "status", resp.StatusCode)
	}

	return errors.New(errors.ErrCodeProviderDown, "sso provider did not answer readiness probe")
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}, headers map[string]string) (*envelope, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-merchant", c.merchant)
	req.Header.Set("x-platform", c.platform)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderDown, "sso provider request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderDown, "failed to read provider response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderDown, "malformed provider response")
	}

	if env.Status != "SUCCESS" {
		return &env, c.envelopeError(&env)
	}
	return &env, nil
}

// envelopeError maps the provider's business codes onto service errors.
func (c *HTTPClient) envelopeError(env *envelope) error {
	switch env.Code {
	case errors.OtpIncorrectCode:
		return errors.New(errors.ErrCodeOtpIncorrect, env.Message).WithDetail("code", env.Code)
	case http.StatusUnauthorized:
		return errors.New(errors.ErrCodeInvalidCredentials, env.Message).WithDetail("code", env.Code)
	case http.StatusConflict:
		return errors.New(errors.ErrCodeUserExists, env.Message).WithDetail("code", env.Code)
	case http.StatusNotFound:
		return errors.New(errors.ErrCodeUserNotFound, env.Message).WithDetail("code", env.Code)
	default:
		return errors.Newf(errors.ErrCodeUnauthorized, "provider rejected request: %s", env.Message).WithDetail("code", env.Code)
	}
}

func decodeData(env *envelope, out interface{}) error {
	if len(env.Data) == 0 {
		return errors.New(errors.ErrCodeProviderDown, "provider response missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, errors.ErrCodeProviderDown, "failed to decode provider data")
	}
	return nil
}

func (c *HTTPClient) GetValidLoggedInUser(ctx context.Context, ticketID string) (*UserDetail, error) {
	if ticketID == "" {
		return nil, errors.New(errors.ErrCodeNotLoggedIn, "no session ticket")
	}
	env, err := c.do(ctx, http.MethodGet, "/sso/v1/session/validate", nil, map[string]string{
		"X-TICKET-ID": ticketID,
	})
	if err != nil {
		return nil, err
	}
	var detail UserDetail
	if err := decodeData(env, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *HTTPClient) GetUserDetails(ctx context.Context, ticketID string) (*UserDetail, error) {
	if ticketID == "" {
		return nil, errors.New(errors.ErrCodeNotLoggedIn, "no session ticket")
	}
	env, err := c.do(ctx, http.MethodGet, "/sso/v1/user/details", nil, map[string]string{
		"X-TICKET-ID": ticketID,
	})
	if err != nil {
		return nil, err
	}
	var detail UserDetail
	if err := decodeData(env, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *HTTPClient) CheckUserExists(ctx context.Context, identifier string) (UserStatus, error) {
	env, err := c.do(ctx, http.MethodGet, "/sso/v1/user/status?identifier="+url.QueryEscape(identifier), nil, nil)
	if err != nil {
		return StatusUnknown, err
	}
	var data struct {
		Status UserStatus `json:"status"`
	}
	if err := decodeData(env, &data); err != nil {
		return StatusUnknown, err
	}
	return data.Status, nil
}

func (c *HTTPClient) RegisterUser(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/sso/v1/user/register", req, nil)
	if err != nil {
		return nil, err
	}
	var result RegisterResult
	if err := decodeData(env, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) LoginWithPassword(ctx context.Context, identifier, password string) (*LoginResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/sso/v1/login/password", map[string]string{
		"identifier": identifier,
		"password":   password,
	}, nil)
	if err != nil {
		return nil, err
	}
	var result LoginResult
	if err := decodeData(env, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) GetLoginOtp(ctx context.Context, identifier string) error {
	_, err := c.do(ctx, http.MethodPost, "/sso/v1/otp/login", map[string]string{"identifier": identifier}, nil)
	return err
}

func (c *HTTPClient) GetSignUpOtp(ctx context.Context, identifier string) error {
	_, err := c.do(ctx, http.MethodPost, "/sso/v1/otp/signup", map[string]string{"identifier": identifier}, nil)
	return err
}

func (c *HTTPClient) GetForgotPasswordOtp(ctx context.Context, identifier string) error {
	_, err := c.do(ctx, http.MethodPost, "/sso/v1/otp/forgot-password", map[string]string{"identifier": identifier}, nil)
	return err
}

func (c *HTTPClient) verifyOtp(ctx context.Context, path, identifier, otp string) (*LoginResult, error) {
	env, err := c.do(ctx, http.MethodPost, path, map[string]string{
		"identifier": identifier,
		"otp":        otp,
	}, nil)
	if err != nil {
		return nil, err
	}
	var result LoginResult
	if err := decodeData(env, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) VerifyLoginOtp(ctx context.Context, identifier, otp string) (*LoginResult, error) {
	return c.verifyOtp(ctx, "/sso/v1/otp/login/verify", identifier, otp)
}

func (c *HTTPClient) VerifySignUpOtp(ctx context.Context, identifier, otp string) (*LoginResult, error) {
	return c.verifyOtp(ctx, "/sso/v1/otp/signup/verify", identifier, otp)
}

func (c *HTTPClient) VerifyForgotPasswordOtp(ctx context.Context, identifier, otp string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/sso/v1/otp/forgot-password/verify", map[string]string{
		"identifier": identifier,
		"otp":        otp,
	}, nil)
	if err != nil {
		return "", err
	}
	var data struct {
		ResetToken string `json:"resetToken"`
	}
	if err := decodeData(env, &data); err != nil {
		return "", err
	}
	return data.ResetToken, nil
}

func (c *HTTPClient) ResetPassword(ctx context.Context, identifier, resetToken, newPassword string) error {
	_, err := c.do(ctx, http.MethodPost, "/sso/v1/password/reset", map[string]string{
		"identifier": identifier,
		"resetToken": resetToken,
		"password":   newPassword,
	}, nil)
	return err
}

func (c *HTTPClient) SignOutUser(ctx context.Context, ticketID string) error {
	if ticketID == "" {
		return nil
	}
	_, err := c.do(ctx, http.MethodPost, "/sso/v1/session/signout", nil, map[string]string{
		"X-TICKET-ID": ticketID,
	})
	if err != nil {
		return fmt.Errorf("failed to sign out on provider: %w", err)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
