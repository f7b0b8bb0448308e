package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Client sends GraphQL documents to the catalog API and reports throttling as ErrThrottled.
type Client struct {
	endpoint   string
	auth       AuthEngine
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLimiter makes every Send wait on limiter first.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

func NewClient(endpoint string, auth AuthEngine, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		auth:       auth,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts query with variables and returns the "data" member of the response.
func (c *Client) Send(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter")
		}
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		c.auth.SetApiKey(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "request was cancelled")
		}
		return nil, errors.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	// Throttling is signalled in the body; the status code is not trusted for it.
	var envelope graphQLResponse
	decodeErr := json.Unmarshal(raw, &envelope)
	if decodeErr == nil && isThrottled(envelope.Errors) {
		return nil, ErrThrottled
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Errors: envelope.Errors, Body: truncate(raw)}
	}
	if decodeErr != nil {
		return nil, errors.Wrap(decodeErr, "decode response")
	}
	if len(envelope.Errors) > 0 {
		return nil, &APIError{StatusCode: resp.StatusCode, Errors: envelope.Errors}
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: "response has no data"}
	}
	return envelope.Data, nil
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBody {
		return string(raw[:maxErrorBody])
	}
	return string(raw)
}
