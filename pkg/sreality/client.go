package sreality

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"

	"github.com/nik-panekin/s-reality-scraper/pkg/config"
	"github.com/nik-panekin/s-reality-scraper/pkg/errors"
	"github.com/nik-panekin/s-reality-scraper/pkg/logger"
	"github.com/nik-panekin/s-reality-scraper/pkg/ratelimit"
)

// Client talks to the sreality catalog API. All calls go through the same
// bounded-retry, fixed-settle-delay policy: the contract is strictly
// sequential, every request consumes the settle delay even on success.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	throttle   ratelimit.Limiter
	attempts   int
	apiURL     string
	logger     logger.Logger
}

// NewClient creates a catalog API client. When TOR is enabled all traffic is
// routed through the configured SOCKS5 proxy so identity rotation affects
// every subsequent request.
func NewClient(cfg *config.Config, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	transport := &http.Transport{}
	if cfg.Tor.Enabled {
		dialer, err := proxy.SOCKS5("tcp", cfg.Tor.SocksAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Fetch.Timeout,
			Transport: transport,
		},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "cs-CZ,cs;q=0.9,en;q=0.8",
		},
		throttle: ratelimit.NewFixedInterval(cfg.Fetch.SettleDelay),
		attempts: cfg.Fetch.Attempts,
		apiURL:   cfg.Catalog.APIURL,
		logger:   log,
	}, nil
}

// SetHeader sets a custom header for the client.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Get performs a GET request with bounded retries. A non-2xx status or a
// transport error counts as a failed attempt; exhausting the attempts yields
// a transport error carrying the URL and the last status observed.
func (c *Client) Get(rawURL string, params url.Values) ([]byte, error) {
	requestURL := rawURL
	if len(params) > 0 {
		requestURL = rawURL + "?" + params.Encode()
	}

	var lastErr *errors.Error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			c.logger.WarnWithFields("retrying request", map[string]interface{}{
				"url":     rawURL,
				"attempt": attempt,
				"error":   lastErr.Error(),
			})
		}

		c.throttle.Wait()
		body, err := c.doRequest(requestURL)
		c.throttle.Settle()

		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	c.logger.ErrorWithFields("max attempts exceeded", map[string]interface{}{
		"url":      rawURL,
		"attempts": c.attempts,
		"error":    lastErr.Error(),
	})

	return nil, lastErr
}

// doRequest performs a single GET attempt.
func (c *Client) doRequest(requestURL string) ([]byte, *errors.Error) {
	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &errors.Error{
			Kind:    errors.KindTransport,
			Message: fmt.Sprintf("failed to create request: %v", err),
			URL:     requestURL,
		}
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errors.Error{
			Kind:    errors.KindTransport,
			Message: fmt.Sprintf("network error: %v", err),
			URL:     requestURL,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &errors.Error{
			Kind:    errors.KindTransport,
			Message: fmt.Sprintf("server returned status %d", resp.StatusCode),
			Code:    resp.StatusCode,
			URL:     requestURL,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.Error{
			Kind:    errors.KindTransport,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
			URL:     requestURL,
		}
	}

	return body, nil
}

// GetJSON performs a GET request and decodes the JSON response. Malformed
// payloads are a decode error and are never retried.
func (c *Client) GetJSON(rawURL string, params url.Values, target interface{}) error {
	body, err := c.Get(rawURL, params)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &errors.Error{
			Kind:    errors.KindDecode,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			URL:     rawURL,
		}
	}

	return nil
}

// ListCategory fetches one page of the category search.
func (c *Client) ListCategory(page, perPage int, today bool) (*ListingResponse, error) {
	var listing ListingResponse
	if err := c.GetJSON(c.apiURL, CategoryParams(page, perPage, today), &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// FetchEstate fetches the raw detail payload for one item. The unmodified
// bytes are returned so the caller can persist them verbatim.
func (c *Client) FetchEstate(hashID int64) ([]byte, error) {
	return c.Get(EstateURL(c.apiURL, hashID), EstateParams())
}

// DownloadImage fetches one image by its absolute href.
func (c *Client) DownloadImage(href string) ([]byte, error) {
	return c.Get(href, nil)
}

// CheckIP returns the outbound IP as seen by the given echo endpoint. Used
// by the identity rotator to confirm a rotation took effect.
func (c *Client) CheckIP(checkURL string) (string, error) {
	body, err := c.Get(checkURL, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
