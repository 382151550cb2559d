// Package license talks to the external licensing service that gates the
// capture workflow per account.
package license

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/billhound/docstage/internal/common"
	"github.com/billhound/docstage/internal/entity"
)

// Client fetches license records over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, http: httpClient, logger: logger}
}

// Fetch retrieves the license record for an account.
func (c *Client) Fetch(ctx context.Context, accountID string) (*entity.License, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: license service url is empty", common.ErrNotConfigured)
	}
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is empty", common.ErrInvalidInput)
	}

	u := fmt.Sprintf("%s?accountID=%s", c.baseURL, url.QueryEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("license.fetch.send_error", "account_id", accountID, "error", err)
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("license.fetch.body_close_error", "error", err)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	c.logger.Info("license.fetch.response",
		"account_id", accountID,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: no license for account %s", common.ErrNotFound, accountID)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("license service returned status %d", resp.StatusCode)
	}

	var lic entity.License
	if err := json.Unmarshal(raw, &lic); err != nil {
		return nil, fmt.Errorf("decode license: %w", err)
	}
	return &lic, nil
}

// Authorize fetches the account's license and checks it is effectively
// active right now. The stored status flag is never trusted on its own;
// expiry is recomputed against the clock on every call.
func (c *Client) Authorize(ctx context.Context, accountID string) (*entity.License, error) {
	lic, err := c.Fetch(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !lic.EffectiveActive(time.Now().UTC()) {
		c.logger.Warn("license.authorize.inactive",
			"account_id", accountID,
			"status", lic.LicenseStatus,
			"end_date", lic.EndDate,
			"expired_flag", lic.ExpiredLicense,
		)
		return nil, fmt.Errorf("%w: license for account %s is not active", common.ErrUnauthorized, accountID)
	}
	return lic, nil
}
