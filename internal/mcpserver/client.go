package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/playproofx/playproof/internal/idgen"
	"github.com/playproofx/playproof/internal/retry"
)

// DefaultAPIURL is used when PLAYPROOF_API_URL is unset.
const DefaultAPIURL = "http://localhost:8080"

// Config holds the configuration for connecting to the PlayProof API.
type Config struct {
	APIURL  string        // Base URL, e.g. "http://localhost:8080"
	Timeout time.Duration // per request; 30s when zero
	Retry   retry.Policy  // for idempotent calls; retry.DefaultPolicy when Attempts is zero
}

// PlayProofClient is a pure HTTP client for the PlayProof API.
type PlayProofClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewPlayProofClient creates a new client for the PlayProof API.
func NewPlayProofClient(cfg Config) *PlayProofClient {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.DefaultPolicy
	}
	return &PlayProofClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
// Idempotent calls are retried on transport errors and 5xx responses.
func (c *PlayProofClient) doRequest(ctx context.Context, method, path string, query url.Values, body any, idempotent bool) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var data []byte
	if body != nil {
		if data, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	policy := c.cfg.Retry
	if !idempotent {
		policy.Attempts = 1
	}

	// one id per logical call so retries correlate in the server logs
	requestID := idgen.WithPrefix("mcp_")
	var out json.RawMessage
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		var reqBody io.Reader
		if data != nil {
			reqBody = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("X-Request-ID", requestID)
		req.Header.Set("Accept", "application/json")
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		out, err = c.send(req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PlayProofClient) send(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		msg := string(respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		err := fmt.Errorf("API error (%d): %s", resp.StatusCode, msg)
		if resp.StatusCode < 500 {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	return json.RawMessage(respBody), nil
}

// Analyze classifies a session without logging it.
func (c *PlayProofClient) Analyze(ctx context.Context, session map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/sessions/analyze", nil, session, true)
}

// LogSession classifies a session and appends it to the ledger.
func (c *PlayProofClient) LogSession(ctx context.Context, session map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/blocks", nil, session, false)
}

// ListBlocks lists ledger blocks. Empty order and limit <= 0 use server defaults.
func (c *PlayProofClient) ListBlocks(ctx context.Context, order string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if order != "" {
		q.Set("order", order)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/blocks", q, nil, true)
}

// GetBlock fetches one block by id.
func (c *PlayProofClient) GetBlock(ctx context.Context, id uint64) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/blocks/"+strconv.FormatUint(id, 10), nil, nil, true)
}
