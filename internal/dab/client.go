package dab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/1337.0.0.0 Safari/537.36"

var (
	// ErrInvalidCredentials means the API rejected the login email/password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoStreamURL means the API answered the stream lookup but the
	// response carried no playable URL. Distinct from a transport failure.
	ErrNoStreamURL = errors.New("service supplied no playable URL")
)

// Client is the authenticated DAB API session. Login is called once at
// startup; after that the session cookie lives in the jar and the client
// is safe for concurrent read-only use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	logger     *zap.Logger
}

// NewClient builds an unauthenticated client for the given API root.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second, Jar: jar},
		// 15 requests per 10 seconds = 1.5 req/sec
		limiter: rate.NewLimiter(rate.Every(666*time.Millisecond), 1),
		baseURL: baseURL,
		logger:  logger,
	}
}

// Login performs POST /auth/login and stores the session cookie in the
// client's jar. A 401 maps to ErrInvalidCredentials; anything else
// non-2xx is a transport-class failure.
func (c *Client) Login(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrInvalidCredentials
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("login failed: status %d", resp.StatusCode)
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		c.logger.Info("logged in to DAB API", zap.String("message", body.Message))
	} else {
		c.logger.Info("logged in to DAB API")
	}
	return nil
}

// do handles the low-level HTTP headers and rate limiting.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

// getJSON is a high-level helper for GET endpoints returning a JSON body.
func (c *Client) getJSON(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("DAB API error: status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
