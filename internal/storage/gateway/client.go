// Package gateway uploads payloads to an HTTP bundler-style storage gateway.
// Each upload is a single POST; pacing is enforced client side with a token
// bucket so bursts of publications do not trip the gateway's own limits.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pixelmint/internal/encoder"
	"pixelmint/internal/logging"
	"pixelmint/internal/record"
	"pixelmint/internal/services"
)

const (
	userAgent          = "pixelmint/0.1.0"
	defaultTimeout     = 60 * time.Second
	maxResponseBytes   = 64 << 10
	defaultUploadsPerM = 30
)

// Options configures a gateway client.
type Options struct {
	UploadURL        string
	PublicURL        string
	Token            string
	Timeout          time.Duration
	UploadsPerMinute int
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Client talks to the storage gateway.
type Client struct {
	uploadURL string
	publicURL string
	token     string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

type uploadResponse struct {
	ID string `json:"id"`
}

// New constructs a gateway client.
func New(opts Options) (*Client, error) {
	uploadURL := strings.TrimRight(strings.TrimSpace(opts.UploadURL), "/")
	publicURL := strings.TrimRight(strings.TrimSpace(opts.PublicURL), "/")
	if uploadURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gateway", "init", "upload url is required", nil)
	}
	if publicURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gateway", "init", "public url is required", nil)
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	perMinute := opts.UploadsPerMinute
	if perMinute <= 0 {
		perMinute = defaultUploadsPerM
	}
	return &Client{
		uploadURL: uploadURL,
		publicURL: publicURL,
		token:     strings.TrimSpace(opts.Token),
		http:      client,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 2),
		logger:    logging.NewComponentLogger(opts.Logger, "gateway"),
	}, nil
}

// Connect confirms the gateway is reachable.
func (c *Client) Connect(ctx context.Context) error {
	return c.HealthCheck(ctx)
}

// HealthCheck issues GET <upload url>/info and expects a 2xx response.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uploadURL+"/info", nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "gateway", "health", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "gateway", "health", "storage gateway unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.HTTPStatusMarker(resp.StatusCode), "gateway", "health",
			fmt.Sprintf("storage gateway returned %d", resp.StatusCode), nil)
	}
	return nil
}

// PublishAsset uploads an encoded image.
func (c *Client) PublishAsset(ctx context.Context, asset encoder.Asset, displayName string) (string, error) {
	return c.upload(ctx, "upload asset", asset.Data, asset.MediaType, displayName)
}

// PublishRecord uploads an encoded description record.
func (c *Client) PublishRecord(ctx context.Context, doc record.Document) (string, error) {
	return c.upload(ctx, "upload record", doc.Body, doc.ContentType, doc.Record.Name)
}

func (c *Client) upload(ctx context.Context, operation string, data []byte, contentType, displayName string) (string, error) {
	if len(data) == 0 {
		return "", services.Wrap(services.ErrValidation, "gateway", operation, "empty payload", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", services.Wrap(services.ErrTransient, "gateway", operation, "upload rate limit wait", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/tx", bytes.NewReader(data))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "gateway", operation, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType)
	if displayName = strings.TrimSpace(displayName); displayName != "" {
		req.Header.Set("X-Display-Name", displayName)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "gateway", operation, "storage upload request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "gateway", operation, "read storage response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.HTTPStatusMarker(resp.StatusCode), "gateway", operation,
			fmt.Sprintf("storage gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var decoded uploadResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrRejected, "gateway", operation, "decode storage response", err)
	}
	id := strings.TrimSpace(decoded.ID)
	if id == "" {
		return "", services.Wrap(services.ErrRejected, "gateway", operation, "storage gateway returned no id", nil)
	}

	c.logger.Debug("gateway upload complete",
		logging.String("operation", operation),
		logging.String("tx_id", id),
		logging.Int("bytes", len(data)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return c.publicURL + "/" + id, nil
}
