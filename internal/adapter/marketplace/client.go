package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxErrorBody = 4 << 10

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 16
	return &http.Client{Timeout: timeout, Transport: transport}
}

// apiCall describes one JSON request against a marketplace API.
type apiCall struct {
	marketplace string
	operation   string
	method      string
	url         string
	header      http.Header
	body        any
}

// do sends the call and decodes a 2xx response into out. out may be nil.
func (c apiCall) do(ctx context.Context, client *http.Client, out any) (int, error) {
	var body io.Reader
	if c.body != nil {
		buf, err := json.Marshal(c.body)
		if err != nil {
			return 0, fmt.Errorf("%s %s: encode request: %w", c.marketplace, c.operation, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return 0, fmt.Errorf("%s %s: build request: %w", c.marketplace, c.operation, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", c.marketplace, c.operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &APIError{
			Marketplace: c.marketplace,
			Operation:   c.operation,
			Status:      resp.StatusCode,
			Body:        string(bytes.TrimSpace(msg)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s %s: decode response: %w", c.marketplace, c.operation, err)
	}
	return resp.StatusCode, nil
}
