package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/olahtaxi/taxirelay/internal/api/models"
)

// client is a thin HTTP caller for the relay. It never retries: a repeated
// POST /request would notify drivers twice.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(opts *options) *client {
	return &client{
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		http:    &http.Client{Timeout: opts.timeout},
	}
}

// do sends body as JSON (when non-nil) and returns the raw response body.
// Non-2xx responses become an error carrying the problem detail.
func (c *client) do(ctx context.Context, method, path string, body any, header http.Header) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp.StatusCode, data)
	}
	return data, nil
}

func responseError(status int, body []byte) error {
	var problem models.Problem
	if err := json.Unmarshal(body, &problem); err == nil && problem.Title != "" {
		msg := fmt.Sprintf("relay returned %d %s", status, problem.Title)
		if problem.Detail != "" {
			msg += ": " + problem.Detail
		}
		if problem.Code != "" {
			msg += " (" + string(problem.Code) + ")"
		}
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("relay returned %d: %s", status, strings.TrimSpace(string(body)))
}
