// Package geo resolves the user's city and country from their public IP
// address, for the "use current location" option.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/smokyabdulrahman/athany/internal/api"
	"github.com/smokyabdulrahman/athany/internal/cache"
)

// Location is the detected place. Country is the ISO 3166 code, which the
// calendar service accepts in place of a country name.
type Location struct {
	City     string `json:"city"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
}

// CacheLocation converts l into the key used by the calendar cache.
func (l *Location) CacheLocation() cache.Location {
	return cache.Location{City: l.City, Country: l.Country}
}

// ipInfoResponse maps the response from ipinfo.io.
type ipInfoResponse struct {
	City     string `json:"city"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
	Bogon    bool   `json:"bogon"`
	Error    *struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"error"`
}

// geoAPIURL is the geolocation API endpoint. It is a variable (not a constant)
// so that tests can override it with an httptest server URL.
var geoAPIURL = "https://ipinfo.io/json"

var httpClient = &http.Client{Timeout: 10 * time.Second}

// DetectLocation asks ipinfo.io where the public IP is. Network problems wrap
// api.ErrTransport; an answer without a city and country wraps
// api.ErrLookup so the caller asks the user to type a location instead.
func DetectLocation(ctx context.Context) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, geoAPIURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: geolocation request failed: %w", api.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: geolocation API returned status %d", api.ErrTransport, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: geolocation API returned status %d", api.ErrLookup, resp.StatusCode)
	}

	var result ipInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode geolocation response: %w", api.ErrTransport, err)
	}

	switch {
	case result.Error != nil:
		return nil, fmt.Errorf("%w: geolocation failed: %s", api.ErrLookup, result.Error.Message)
	case result.Bogon:
		return nil, fmt.Errorf("%w: geolocation failed: address is in a reserved range", api.ErrLookup)
	case result.City == "" || result.Country == "":
		return nil, fmt.Errorf("%w: geolocation returned no city or country", api.ErrLookup)
	}

	return &Location{
		City:     result.City,
		Country:  result.Country,
		Timezone: result.Timezone,
	}, nil
}

// IsUnavailable reports whether err means the location could not be detected
// (as opposed to a cancelled request).
func IsUnavailable(err error) bool {
	return errors.Is(err, api.ErrLookup) || errors.Is(err, api.ErrTransport)
}
