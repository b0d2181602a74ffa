package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/birads-report-server/internal/domain"
)

// EncoderClientConfig configures the remote embeddings client.
type EncoderClientConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	Dimension     int
	Timeout       time.Duration
	RateLimit     int
	FallbackLocal bool
}

// EncoderClient calls a remote embeddings service over HTTP. Requests are
// rate limited and guarded by a circuit breaker; when the service is down
// and FallbackLocal is set, embeddings come from a LocalEncoder so the
// similarity feature degrades instead of failing.
type EncoderClient struct {
	config   EncoderClientConfig
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	fallback *LocalEncoder
	logger   *logrus.Logger
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// NewEncoderClient creates a remote encoder client.
func NewEncoderClient(config EncoderClientConfig, logger *logrus.Logger) *EncoderClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}
	if config.Dimension <= 0 {
		config.Dimension = DefaultEmbeddingDimension
	}

	c := &EncoderClient{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit),
		breaker: newEncoderBreaker("encoder", logger),
		logger:  logger,
	}
	if config.FallbackLocal {
		c.fallback = NewLocalEncoder(config.Dimension)
	}
	return c
}

// Embed returns the embedding vector for the text.
func (c *EncoderClient) Embed(ctx context.Context, text string) ([]float64, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.embedRemote(ctx, text)
	})
	if err != nil {
		if c.fallback != nil {
			c.logger.WithError(err).Warn("Remote encoder unavailable, using local fallback")
			return c.fallback.Embed(ctx, text)
		}
		if err == gobreaker.ErrOpenState {
			return nil, domain.NewAnalysisError(domain.ErrEncoderError, "embedding service unavailable", "circuit breaker open", "")
		}
		return nil, domain.WrapAnalysisError(domain.ErrEncoderError, "embedding request failed", err)
	}
	return result.([]float64), nil
}

func (c *EncoderClient) embedRemote(ctx context.Context, text string) ([]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(embeddingRequest{
		Model: c.config.Model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.config.BaseURL + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}

	vec := parsed.Data[0].Embedding
	if len(vec) != c.config.Dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), c.config.Dimension)
	}
	return vec, nil
}

// Dimension returns the configured vector size.
func (c *EncoderClient) Dimension() int {
	return c.config.Dimension
}

// Name identifies the encoder in cache keys and stats.
func (c *EncoderClient) Name() string {
	return "remote:" + c.config.Model
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *EncoderClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}
