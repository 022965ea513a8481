package forte

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "lara-bot/internal/common/errors"
	"lara-bot/internal/common/logger"
)

// Client wraps outbound calls to the Forte backend. It never retries and
// never classifies status codes; callers decide what a status means.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	log        zerolog.Logger
}

type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 && opts.RateBurst > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		limiter:    limiter,
		log:        logger.Component("forte"),
	}
}

// Response is a completed backend call: the numeric status and the raw JSON body.
type Response struct {
	Status int
	Body   json.RawMessage
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status/100 == 2 }

// ClientError reports a 4xx status.
func (r *Response) ClientError() bool { return r.Status/100 == 4 }

// Decode unmarshals the body into out. An empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, out)
}

// Object decodes the body as a JSON object. ok is false when the body is
// anything else (array, string, null).
func (r *Response) Object() (obj map[string]json.RawMessage, ok bool) {
	if err := json.Unmarshal(r.Body, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// Message returns the backend-declared "message" field, or fallback.
func (r *Response) Message(fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := r.Decode(&body); err != nil || body.Message == "" {
		return fallback
	}
	return body.Message
}

// Do performs one call. It fails only with a TransportError, when the
// round trip cannot complete or the body is not JSON.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.NewTransportError(method, path, err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.NewTransportError(method, path, err)
	}
	req.Header.Set("Authorization", c.authorization())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("backend call failed")
		return nil, apperrors.NewTransportError(method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransportError(method, path, err)
	}

	c.log.Info().
		Str("method", strings.ToLower(method)).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend call")

	if len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
		return nil, apperrors.NewTransportError(method, path, fmt.Errorf("non-JSON response body (status %d)", resp.StatusCode))
	}
	return &Response{Status: resp.StatusCode, Body: raw}, nil
}

func (c *Client) authorization() string {
	if strings.HasPrefix(c.token, "Bearer ") {
		return c.token
	}
	return "Bearer " + c.token
}
