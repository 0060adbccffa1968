// Package esi is the remote fact fetcher: a typed HTTP client for the EVE
// Swagger Interface with client-side rate limiting, bounded retries for
// transient failures, and X-Pages pagination.
package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/eve-companion/internal/config"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/retry"
	"github.com/eve-companion/internal/syncerr"
	"golang.org/x/time/rate"
)

// maxResponseBytes caps a single page body. ESI pages are small; anything
// larger indicates a broken response.
const maxResponseBytes = 16 << 20

// Client talks to the ESI. All methods return errors classified through the
// syncerr taxonomy so callers can distinguish credential, transient and
// permanent failures without inspecting status codes.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	retryCfg  *retry.Config
}

// NewClient creates an ESI client from configuration.
func NewClient(cfg *config.ESIConfig) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		retryCfg:  retry.DefaultConfig(),
	}
}

// page is one fetched page plus the total page count from the X-Pages
// response header (1 when the header is absent).
type page struct {
	body  []byte
	pages int
}

// getPage performs one rate-limited GET. token may be empty for public
// endpoints. characterID is used only for error attribution.
func (c *Client) getPage(ctx context.Context, characterID int64, operation, path, token string, pageNum int) (*page, error) {
	var result *page

	err := retry.Do(ctx, c.retryCfg, isRetryable, func(ctx context.Context, _ int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return syncerr.NewTransientError(characterID, operation, err)
		}

		url := c.baseURL + path
		if pageNum > 1 {
			sep := "?"
			if strings.Contains(path, "?") {
				sep = "&"
			}
			url = fmt.Sprintf("%s%spage=%d", url, sep, pageNum)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return syncerr.NewPermanentError(characterID, operation, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return syncerr.NewTransientError(characterID, operation, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return syncerr.NewTransientError(characterID, operation, err)
		}

		if err := classifyStatus(characterID, operation, resp.StatusCode); err != nil {
			logging.FromContext(ctx).WithFields(map[string]interface{}{
				"operation": operation,
				"status":    resp.StatusCode,
				"page":      pageNum,
			}).Debug("ESI request failed")
			return err
		}

		pages := 1
		if h := resp.Header.Get("X-Pages"); h != "" {
			if n, err := strconv.Atoi(h); err == nil && n > 0 {
				pages = n
			}
		}

		result = &page{body: body, pages: pages}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// classifyStatus maps an HTTP status to the error taxonomy. 420 is the ESI
// error-rate limit and clears on its own, so it counts as transient.
func classifyStatus(characterID int64, operation string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return syncerr.NewCredentialError(characterID, operation,
			fmt.Errorf("status %d", status))
	case status == 420 || status == http.StatusTooManyRequests || status >= 500:
		return syncerr.NewTransientError(characterID, operation,
			fmt.Errorf("status %d", status))
	default:
		return syncerr.NewPermanentError(characterID, operation,
			fmt.Errorf("status %d", status))
	}
}

// isRetryable gates the in-request retry loop. Only transient failures are
// worth another attempt; credential and permanent errors never are.
func isRetryable(err error) bool {
	return syncerr.KindOf(err) == syncerr.KindTransient
}

// getJSON fetches a single-page endpoint and decodes it into out.
func (c *Client) getJSON(ctx context.Context, characterID int64, operation, path, token string, out interface{}) error {
	p, err := c.getPage(ctx, characterID, operation, path, token, 1)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(p.body, out); err != nil {
		return syncerr.NewPermanentError(characterID, operation,
			fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// getPaginated fetches every page of a paginated endpoint and hands each
// decoded page body to collect. The whole call fails if any page fails:
// partial results never reach the caller.
func getPaginated[T any](ctx context.Context, c *Client, characterID int64, operation, path, token string, collect func([]T)) error {
	first, err := c.getPage(ctx, characterID, operation, path, token, 1)
	if err != nil {
		return err
	}

	decode := func(body []byte, pageNum int) error {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return syncerr.NewPermanentError(characterID, operation,
				fmt.Errorf("decode page %d: %w", pageNum, err))
		}
		collect(items)
		return nil
	}

	if err := decode(first.body, 1); err != nil {
		return err
	}

	for pageNum := 2; pageNum <= first.pages; pageNum++ {
		p, err := c.getPage(ctx, characterID, operation, path, token, pageNum)
		if err != nil {
			return err
		}
		if err := decode(p.body, pageNum); err != nil {
			return err
		}
	}

	return nil
}
