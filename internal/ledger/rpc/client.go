// Package rpc exposes the ledger over HTTP. The client signs locally and
// submits the signed bytes; the server verifies and records them through a
// local registry.
package rpc

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

	"pixelmint/internal/identity"
	"pixelmint/internal/ledger"
	"pixelmint/internal/logging"
	"pixelmint/internal/services"
)

const (
	userAgent        = "pixelmint/0.1.0"
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 64 << 10
)

// Client submits registrations to a remote ledger.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient constructs a ledger client for baseURL.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ledger-rpc", "init", "ledger url is required", nil)
	}
	if httpClient == nil {
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logging.NewComponentLogger(logger, "ledger-rpc"),
	}, nil
}

// Connect confirms the ledger is reachable.
func (c *Client) Connect(ctx context.Context) error {
	return c.HealthCheck(ctx)
}

// HealthCheck issues GET /health.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "ledger-rpc", "health", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "ledger-rpc", "health", "ledger unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.HTTPStatusMarker(resp.StatusCode), "ledger-rpc", "health",
			fmt.Sprintf("ledger returned %d", resp.StatusCode), nil)
	}
	return nil
}

// Commit signs reg and submits it.
func (c *Client) Commit(ctx context.Context, reg ledger.Registration, signer identity.Signer) (ledger.Receipt, error) {
	sub, err := ledger.Sign(ctx, reg, signer)
	if err != nil {
		return ledger.Receipt{}, err
	}
	return c.Submit(ctx, sub)
}

// Submit posts a signed registration.
func (c *Client) Submit(ctx context.Context, sub ledger.Submission) (ledger.Receipt, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return ledger.Receipt{}, services.Wrap(services.ErrValidation, "ledger-rpc", "submit", "encode submission", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/registrations", bytes.NewReader(body))
	if err != nil {
		return ledger.Receipt{}, services.Wrap(services.ErrConfiguration, "ledger-rpc", "submit", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ledger.Receipt{}, services.Wrap(services.ErrTransient, "ledger-rpc", "submit", "ledger request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ledger.Receipt{}, services.Wrap(services.ErrTransient, "ledger-rpc", "submit", "read ledger response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ledger.Receipt{}, services.Wrap(services.HTTPStatusMarker(resp.StatusCode), "ledger-rpc", "submit",
			fmt.Sprintf("ledger returned %d: %s", resp.StatusCode, errorMessage(payload)), nil)
	}

	var receipt ledger.Receipt
	if err := json.Unmarshal(payload, &receipt); err != nil {
		return ledger.Receipt{}, services.Wrap(services.ErrRejected, "ledger-rpc", "submit", "decode ledger response", err)
	}
	if strings.TrimSpace(receipt.ID) == "" {
		return ledger.Receipt{}, services.Wrap(services.ErrRejected, "ledger-rpc", "submit", "ledger returned no id", nil)
	}
	c.logger.Debug("registration submitted", logging.String("registration_id", receipt.ID))
	return receipt, nil
}

func errorMessage(body []byte) string {
	var decoded struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}
	return strings.TrimSpace(string(body))
}
