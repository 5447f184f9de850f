// Package classifier provides adapters for the pre-trained emotion model:
// an HTTP model server and a long-lived local worker process.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/justestif/moodify/internal/emotion"
	"github.com/justestif/moodify/internal/vision"
)

const (
	userAgent   = "moodify/1.0"
	maxBodySize = 1 << 20
)

// predictRequest is the JSON body sent to the model server.
type predictRequest struct {
	Shape [4]int    `json:"shape"`
	Image []float32 `json:"image"`
}

// predictResponse is the JSON body returned by the model server. Servers
// answer with either a label->score map or a positional vector in label order.
type predictResponse struct {
	Predictions   map[string]float64 `json:"predictions,omitempty"`
	Probabilities []float64          `json:"probabilities,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// HTTPClient classifies tensors by posting them to a model server.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

// compile-time interface assertion
var _ emotion.Classifier = (*HTTPClient)(nil)

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// NewHTTPClient creates a classifier for the model server at endpoint.
func NewHTTPClient(endpoint string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify posts the tensor and decodes the returned scores. Deadlines come
// from ctx.
func (c *HTTPClient) Classify(ctx context.Context, t vision.Tensor) (emotion.Scores, error) {
	body, err := json.Marshal(predictRequest{Shape: t.Shape(), Image: t.Data})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var pr predictResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("model server status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if pr.Error != "" {
			return nil, fmt.Errorf("model server status %d: %s", resp.StatusCode, pr.Error)
		}
		return nil, fmt.Errorf("model server status %d", resp.StatusCode)
	}

	return pr.scores()
}

// scores converts whichever score form the server used.
func (r predictResponse) scores() (emotion.Scores, error) {
	switch {
	case r.Error != "":
		return nil, fmt.Errorf("model error: %s", r.Error)
	case len(r.Predictions) > 0:
		s := make(emotion.Scores, len(r.Predictions))
		for label, v := range r.Predictions {
			e, ok := emotion.Parse(label)
			if !ok {
				return nil, fmt.Errorf("unknown label %q", label)
			}
			s[e] = v
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return s, nil
	case len(r.Probabilities) > 0:
		return emotion.FromVector(r.Probabilities)
	default:
		return nil, fmt.Errorf("response carries no scores")
	}
}
