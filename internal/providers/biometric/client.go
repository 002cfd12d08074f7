package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/rosilesmarcos01/bbms-sub000/internal/audit"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/correlation"
)

// maxResponseSize caps how much of a provider response is read.
const maxResponseSize = 1 << 20

// errNotFound is returned for 404 responses. Adapters decide what a missing resource means.
var errNotFound = errors.New("provider resource not found")

// client performs the raw HTTP calls. Every error it returns is either errNotFound
// or a *core.Error.
type client struct {
	provider     string
	baseURL      string
	apiKey       string
	apiKeyHeader string
	httpClient   *http.Client
}

func (c *client) get(ctx context.Context, subjectRef, path string) (gjson.Result, error) {
	return c.do(ctx, http.MethodGet, subjectRef, path, nil)
}

func (c *client) post(ctx context.Context, subjectRef, path string, payload any) (gjson.Result, error) {
	return c.do(ctx, http.MethodPost, subjectRef, path, payload)
}

func (c *client) do(ctx context.Context, method, subjectRef, path string, payload any) (gjson.Result, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return gjson.Result{}, core.ErrProviderRejected.Wrap(fmt.Errorf("marshalling payload: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return gjson.Result{}, core.ErrProviderRejected.Wrap(fmt.Errorf("creating request: %w", err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	// inject audit user-agent
	correlationID := correlation.FromContext(ctx)
	req.Header.Set("User-Agent", audit.CreateUserAgent(correlationID, subjectRef, c.provider))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// transport errors and timeouts are transient
		return gjson.Result{}, core.ErrProviderUnavailable.Wrap(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return gjson.Result{}, core.ErrProviderUnavailable.Wrap(fmt.Errorf("reading response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return gjson.Result{}, errNotFound
	case resp.StatusCode >= 500:
		return gjson.Result{}, core.ErrProviderUnavailable.Withf("provider returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return gjson.Result{}, core.ErrProviderUnavailable.Withf("provider is rate limiting")
	case resp.StatusCode >= 400:
		return gjson.Result{}, core.ErrProviderRejected.Withf("provider returned status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return gjson.Result{}, core.ErrProviderUnavailable.Withf("unexpected provider status %d", resp.StatusCode)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, core.ErrProviderUnavailable.Withf("provider returned malformed JSON")
	}
	return gjson.ParseBytes(data), nil
}
