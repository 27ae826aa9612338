package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/hazyhaar/designaudit/design"
)

// maxResponse caps the bytes read from the inference server.
const maxResponse = 1 << 20

type httpClient struct {
	endpoint string
	token    string
	size     int
	client   *http.Client
	logger   *slog.Logger
}

func newHTTPClient(cfg Config) *httpClient {
	return &httpClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		token:    cfg.Token,
		size:     cfg.InputSize,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   cfg.Logger,
	}
}

func (c *httpClient) Name() string { return c.endpoint }

func (c *httpClient) Classify(ctx context.Context, image []byte) ([]design.ClassificationResult, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", design.ErrClassificationFailed)
	}

	body, err := Prepare(image, c.size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", design.ErrClassificationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", design.ErrClassificationFailed, err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: POST %s: %w", design.ErrClassificationFailed, c.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", design.ErrClassificationFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s: %s",
			design.ErrClassificationFailed, resp.StatusCode, c.endpoint, snippet(raw))
	}

	results, err := ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", design.ErrClassificationFailed, err)
	}

	c.logger.Debug("classify: screenshot labelled", "endpoint", c.endpoint, "results", len(results))
	return results, nil
}

// ParseResponse decodes an inference response, validates scores, sorts by
// score descending and keeps the top design.TopK. Both the flat array and the
// batched [[...]] shape are accepted.
func ParseResponse(raw []byte) ([]design.ClassificationResult, error) {
	var results []design.ClassificationResult
	if err := json.Unmarshal(raw, &results); err != nil {
		var batched [][]design.ClassificationResult
		if err2 := json.Unmarshal(raw, &batched); err2 != nil || len(batched) == 0 {
			return nil, fmt.Errorf("classify: decode response: %w", err)
		}
		results = batched[0]
	}

	for i, r := range results {
		if r.Score < 0 || r.Score > 1 {
			return nil, fmt.Errorf("classify: result %d (%q): score %v outside [0,1]", i, r.Label, r.Score)
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > design.TopK {
		results = results[:design.TopK]
	}
	if results == nil {
		results = []design.ClassificationResult{}
	}
	return results, nil
}

func snippet(b []byte) string {
	if len(b) > 512 {
		b = b[:512]
	}
	return strings.TrimSpace(string(b))
}
