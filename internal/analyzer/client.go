package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	enginerr "verdict/internal/errors"
	"verdict/internal/logging"
)

// HTTPClient talks to an analysis backend over JSON. One POST per batch.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

// NewHTTPClient creates a client for the backend at endpoint
func NewHTTPClient(endpoint string, timeout time.Duration, logger *logging.Logger) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// analyzeResponse is the backend's wire shape
type analyzeResponse struct {
	Decisions map[string]Decision `json:"decisions"`
}

// Analyze submits one batch and decodes the per-unit decisions
func (c *HTTPClient) Analyze(ctx context.Context, req Request) (map[string]Decision, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, enginerr.New(enginerr.InternalError, "failed to encode analyze request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, enginerr.New(enginerr.InternalError, "failed to build analyze request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, enginerr.New(enginerr.AnalyzerFailure, "analyze call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, enginerr.New(enginerr.AnalyzerFailure,
			fmt.Sprintf("analyze backend returned %d: %s", resp.StatusCode, snippet), nil)
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, enginerr.New(enginerr.AnalyzerFailure, "failed to decode analyze response", err)
	}

	c.logger.Debug("analyze batch complete", map[string]interface{}{
		"batchId":  req.BatchID,
		"units":    len(req.Units),
		"returned": len(decoded.Decisions),
		"ms":       time.Since(start).Milliseconds(),
	})
	return decoded.Decisions, nil
}
