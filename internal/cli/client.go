package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/kondate/internal/jsonx"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/pipeline"
)

// Client calls a running kondate server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL (e.g. http://localhost:8080).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Recommend posts req to /api/v1/recommend.
func (c *Client) Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendResponse, error) {
	body, err := jsonx.Marshal(req)
	if err != nil {
		return nil, err
	}
	var out models.RecommendResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/recommend", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches /api/v1/status.
func (c *Client) Status(ctx context.Context) (*pipeline.Status, error) {
	var out pipeline.Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Diets fetches /api/v1/diets.
func (c *Client) Diets(ctx context.Context) (map[string][]string, error) {
	var out struct {
		Diets map[string][]string `json:"diets"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/diets", nil, &out); err != nil {
		return nil, err
	}
	return out.Diets, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if jsonx.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if err := jsonx.Decode(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
