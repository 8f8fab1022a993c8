package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
	apperrors "github.com/gametriol/InductionMainPage2k25/pkg/errors"
	"github.com/gametriol/InductionMainPage2k25/pkg/httpclient"
	"github.com/gametriol/InductionMainPage2k25/pkg/logger"
	"github.com/gametriol/InductionMainPage2k25/pkg/metrics"
	"go.uber.org/zap"
)

// ApplicationsPath is appended to the API base URL
const ApplicationsPath = "/api/applications"

const maxErrorBody = 512

// Client creates application records on the backend
type Client struct {
	endpoint   string
	httpClient httpclient.Client
}

// NewClient creates a record client for apiBase; trailing slashes are ignored
func NewClient(apiBase string, httpClient httpclient.Client) *Client {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	endpoint := ""
	if base != "" {
		endpoint = base + ApplicationsPath
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// Endpoint returns the URL records are posted to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Create posts the payload as JSON. Any non-2xx answer is a failure carrying
// the status and the response body.
func (c *Client) Create(ctx context.Context, payload models.ApplicationPayload) error {
	if c.endpoint == "" {
		return apperrors.ConfigurationError("API_BASE", "Application backend")
	}

	start := time.Now()
	status, err := c.create(ctx, payload)
	duration := metrics.MeasureDuration(start)

	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.RecordRequestDuration.WithLabelValues(result).Observe(duration)
	metrics.RecordRequestTotal.WithLabelValues(result).Inc()

	if err != nil {
		logger.LogAPICall("records", "createApplication", result, duration,
			zap.Error(err),
			zap.Int("status_code", status),
		)
		return err
	}

	logger.LogAPICall("records", "createApplication", result, duration,
		zap.Int("status_code", status),
		zap.Bool("with_image", payload.ImageURL != ""),
	)
	return nil
}

func (c *Client) create(ctx context.Context, payload models.ApplicationPayload) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal application: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, apperrors.TransportError("Could not reach the application server", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, apperrors.TransportError("Could not reach the application server", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+1))
	text := strings.TrimSpace(string(raw))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}

	return resp.StatusCode, apperrors.TransportError(
		fmt.Sprintf("Server responded with %d: %s", resp.StatusCode, text), nil)
}
