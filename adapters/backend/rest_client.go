package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/logger"
	"github.com/layer-3/carbx/ports"
)

const maxErrorBody = 512

// RESTClient implements the Backend interface over HTTP. The session lives in a cookie jar.
type RESTClient struct {
	baseURL string
	client  *http.Client
}

// NewRESTClient creates a backend client rooted at baseURL
func NewRESTClient(baseURL string, timeout time.Duration) (ports.Backend, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}, nil
}

// RequestNonce issues a sign-in challenge for the wallet
func (c *RESTClient) RequestNonce(ctx context.Context, walletAddress string) (*core.Challenge, error) {
	var challenge core.Challenge
	body := map[string]string{"walletAddress": walletAddress}
	if _, err := c.do(ctx, http.MethodPost, "/auth/nonce", body, &challenge); err != nil {
		return nil, err
	}
	challenge.IssuedAt = time.Now()
	return &challenge, nil
}

// VerifySignature submits the signed challenge
func (c *RESTClient) VerifySignature(ctx context.Context, req core.VerifyRequest) (*core.VerifyResult, error) {
	var result core.VerifyResult
	if _, err := c.do(ctx, http.MethodPost, "/auth/verify", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchAuthMe returns the current session, mapping 401 to a nil session
func (c *RESTClient) FetchAuthMe(ctx context.Context) (*core.Session, error) {
	claims := jwt.MapClaims{}
	status, err := c.do(ctx, http.MethodGet, "/auth/me", nil, &claims)
	if status == http.StatusUnauthorized {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	session := &core.Session{Claims: claims}
	if sub, err := claims.GetSubject(); err == nil {
		session.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		session.ExpiresAt = &t
	}
	return session, nil
}

// Logout ends the backend session
func (c *RESTClient) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	return err
}

// FetchPuroAccount returns the deposit account of the session wallet
func (c *RESTClient) FetchPuroAccount(ctx context.Context) (*core.PuroAccount, error) {
	var account core.PuroAccount
	if _, err := c.do(ctx, http.MethodGet, "/users/puro-account", nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// FetchGroupedOrders returns the order groups of the session wallet
func (c *RESTClient) FetchGroupedOrders(ctx context.Context) ([]core.GroupedOrder, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, http.MethodGet, "/orders/grouped", nil, &raw); err != nil {
		return nil, err
	}

	groups, err := DecodeGroupedOrders(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode grouped orders: %w", err)
	}
	return groups, nil
}

// do performs a JSON request. It returns the response status, zero when no response arrived.
func (c *RESTClient) do(ctx context.Context, method, path string, body any, result any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, &core.RequestError{Method: method, Path: path, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close response body", zap.Error(err), zap.String("path", path))
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &core.RequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	logger.DebugCtx(ctx, "backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := string(respBody)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return resp.StatusCode, &core.RequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: text}
	}

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}
