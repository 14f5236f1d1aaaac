package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

var (
	// ErrLookup means the service rejected the location. Retrying will not
	// help; the user has to enter a different city or country.
	ErrLookup = errors.New("calendar lookup failed")

	// ErrTransport means the service could not be reached or answered with a
	// server error. The request is safe to retry later.
	ErrTransport = errors.New("calendar service unreachable")
)

// Client communicates with the Al Adhan calendar API.
type Client struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	// Exported for testing with httptest.
	BaseURL string
	// Method and School select the calculation parameters; -1 leaves the
	// choice to the API.
	Method int
	School int
	// MaxRetries bounds how often a transport failure is retried.
	MaxRetries uint64
	// RetryBase is the first backoff interval; it doubles on every retry.
	RetryBase time.Duration
}

// NewClient creates a new API client with sensible defaults.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		BaseURL:    defaultBaseURL,
		Method:     -1,
		School:     -1,
		MaxRetries: 3,
		RetryBase:  500 * time.Millisecond,
	}
}

// FetchCalendarByCity fetches a whole month of prayer times for the given
// city and country. The verbatim response body is returned so callers can
// persist it unchanged.
//
// Errors wrap ErrLookup or ErrTransport. Context cancellation is returned as
// the context's own error and is never retried.
func (c *Client) FetchCalendarByCity(ctx context.Context, city, country string, year int, month time.Month) ([]byte, error) {
	params := url.Values{}
	params.Set("city", city)
	params.Set("country", country)
	params.Set("month", strconv.Itoa(int(month)))
	params.Set("year", strconv.Itoa(year))
	if c.Method >= 0 {
		params.Set("method", strconv.Itoa(c.Method))
	}
	if c.School >= 0 {
		params.Set("school", strconv.Itoa(c.School))
	}
	reqURL := fmt.Sprintf("%s/calendarByCity?%s", c.BaseURL, params.Encode())

	backoff := retry.WithMaxRetries(c.MaxRetries, retry.NewExponential(c.retryBase()))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		b, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if errors.Is(err, ErrTransport) && ctx.Err() == nil {
				return retry.RetryableError(err)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	return body, nil
}

func (c *Client) retryBase() time.Duration {
	if c.RetryBase <= 0 {
		return time.Millisecond
	}
	return c.RetryBase
}

func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: API request failed: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read API response: %w", ErrTransport, err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: API returned status %d", ErrTransport, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: API returned status %d: %s", ErrLookup, resp.StatusCode, string(body))
	}

	var envelope struct {
		Code   int             `json:"code"`
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: failed to decode API response: %w", ErrTransport, err)
	}
	if envelope.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: API error: code=%d status=%s", ErrLookup, envelope.Code, envelope.Status)
	}

	return body, nil
}
