// internal/api/api.go
// Request/response client for the lobby server's health and stats
// endpoints. Plain pass-through: no connection state, only uniform error
// mapping.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lobbyclient/internal/logger"
)

const requestTimeout = 10 * time.Second

// Error is the normalized failure shape. Status carries the HTTP status
// when the server responded with an error, 0 when no response was
// received, and -1 for a local fault.
type Error struct {
	Message string
	Status  int
	Data    json.RawMessage
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Client talks to the lobby server's HTTP side.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient returns a client with a bounded request timeout.
func NewClient(baseURL string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.New("api")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

// Health fetches the health check document.
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	return c.get(ctx, "/health")
}

// Stats fetches server statistics.
func (c *Client) Stats(ctx context.Context) (map[string]interface{}, error) {
	return c.get(ctx, "/api/stats")
}

func (c *Client) get(ctx context.Context, path string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &Error{Message: err.Error(), Status: -1}
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debugf("GET %s", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorf("GET %s: %v", path, err)
		return nil, &Error{
			Message: "No response from server. Please check your connection.",
			Status:  0,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: err.Error(), Status: -1}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Errorf("GET %s: status %d", path, resp.StatusCode)
		return nil, &Error{
			Message: serverErrorMessage(body),
			Status:  resp.StatusCode,
			Data:    json.RawMessage(body),
		}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &Error{Message: err.Error(), Status: -1}
	}
	return doc, nil
}

// serverErrorMessage pulls a message field out of an error body when one
// exists.
func serverErrorMessage(body []byte) string {
	var doc struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &doc); err == nil && doc.Message != "" {
		return doc.Message
	}
	return "Server error occurred"
}
