// Package inference provides the client for the external emotion
// classification endpoint. One still frame goes in; one closed-set label
// comes out. Every failure mode — network error, non-2xx status, error
// payload, missing or unrecognized label — is an ordinary error for the
// capture pipeline to log and drop; the next scheduled tick is the retry.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/conline/conline/pkg/types"
)

// Client handles communication with the classifier service. All calls are
// wrapped with circuit breaker protection so a dead classifier fails fast
// instead of stalling every participant's capture tick on a timeout.
type Client struct {
	baseURL        string
	client         *http.Client
	circuitBreaker *CircuitBreaker
	timeout        time.Duration
}

// Config holds classifier client configuration.
type Config struct {
	// BaseURL is the base URL of the classifier (default: http://127.0.0.1:5000)
	BaseURL string

	// Timeout is the per-call timeout (default: 5s). A timed-out call is
	// treated as a failure, never retried inline.
	Timeout time.Duration
}

// predictRequest is the request body for the /predict endpoint: a single
// base64-encoded JPEG data URL.
type predictRequest struct {
	Image string `json:"image"`
}

// predictResponse is the response from /predict. Exactly one of the fields
// is set on a well-formed response.
type predictResponse struct {
	Emotion string `json:"emotion"`
	Error   string `json:"error"`
}

// NewClient creates a classifier client with the given configuration.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:5000"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	return &Client{
		baseURL: config.BaseURL,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		circuitBreaker: NewCircuitBreaker(),
		timeout:        config.Timeout,
	}
}

// Classify submits one captured frame and returns its classified label.
// The label string is case-normalized and validated against the seven-value
// closed set; anything else (including the model's "No face detected"
// answer) is an unrecognized-label failure.
func (c *Client) Classify(ctx context.Context, frame []byte) (types.Label, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.classify(ctx, frame)
	})

	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("inference: classifier circuit breaker open: %w", err)
		}
		return "", err
	}

	return result.(types.Label), nil
}

// classify is the internal implementation of Classify without circuit
// breaker wrapping.
func (c *Client) classify(ctx context.Context, frame []byte) (types.Label, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := predictRequest{
		Image: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("inference: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/predict", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("inference: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference: failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("inference: classifier returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("inference: failed to decode response: %w", err)
	}

	if respData.Error != "" {
		return "", fmt.Errorf("inference: classifier error: %s", respData.Error)
	}
	if respData.Emotion == "" {
		return "", errors.New("inference: classifier response missing emotion label")
	}

	label, err := types.ParseLabel(respData.Emotion)
	if err != nil {
		return "", fmt.Errorf("inference: %w", err)
	}
	return label, nil
}

// HealthCheck verifies that the classifier is reachable. The model service
// exposes only /predict, so the probe sends an empty body: any HTTP
// response — including the 400 it answers with — proves the service is up;
// only a transport failure is unhealthy. Does not use circuit breaker
// protection since it's a health check itself.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/predict", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		return fmt.Errorf("inference: failed to create health check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference: health check failed: %w", err)
	}
	resp.Body.Close()
	return nil
}

// State returns the circuit breaker state for diagnostics.
func (c *Client) State() string {
	return c.circuitBreaker.State()
}
