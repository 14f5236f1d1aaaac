package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smokyabdulrahman/athany/internal/api"
)

// serve points geoAPIURL at handler for the duration of the test.
func serve(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	origURL := geoAPIURL
	geoAPIURL = server.URL
	t.Cleanup(func() { geoAPIURL = origURL })
}

func TestDetectLocation_Success(t *testing.T) {
	serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ip":"41.33.0.1","city":"Cairo","region":"Cairo","country":"EG","loc":"30.0626,31.2497","timezone":"Africa/Cairo"}`))
	})

	loc, err := DetectLocation(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.City != "Cairo" {
		t.Errorf("City = %q, want %q", loc.City, "Cairo")
	}
	if loc.Country != "EG" {
		t.Errorf("Country = %q, want %q", loc.Country, "EG")
	}
	if loc.Timezone != "Africa/Cairo" {
		t.Errorf("Timezone = %q, want %q", loc.Timezone, "Africa/Cairo")
	}
	if got := loc.CacheLocation(); got.City != "Cairo" || got.Country != "EG" {
		t.Errorf("CacheLocation() = %+v", got)
	}
}

func TestDetectLocation_LookupFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error object", http.StatusOK, `{"error":{"title":"Wrong ip","message":"Please provide a valid IP address"}}`, "valid IP"},
		{"bogon", http.StatusOK, `{"ip":"10.0.0.1","bogon":true}`, "reserved range"},
		{"no city", http.StatusOK, `{"ip":"1.1.1.1","country":"AU"}`, "no city"},
		{"rate limited", http.StatusTooManyRequests, `{}`, "429"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := DetectLocation(context.Background())
			if !errors.Is(err, api.ErrLookup) {
				t.Fatalf("expected ErrLookup, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error should contain %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestDetectLocation_HTTPError(t *testing.T) {
	serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, err := DetectLocation(context.Background())
	if !errors.Is(err, api.ErrTransport) {
		t.Fatalf("expected ErrTransport for HTTP 500, got %v", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should mention 500, got: %v", err)
	}
}

func TestDetectLocation_InvalidJSON(t *testing.T) {
	serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	_, err := DetectLocation(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("error should mention decode, got: %v", err)
	}
}

func TestDetectLocation_ConnectionRefused(t *testing.T) {
	origURL := geoAPIURL
	geoAPIURL = "http://127.0.0.1:1" // nothing listening
	defer func() { geoAPIURL = origURL }()

	_, err := DetectLocation(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("expected a transport failure, got %v", err)
	}
}

func TestDetectLocation_Cancelled(t *testing.T) {
	serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := DetectLocation(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if IsUnavailable(err) {
		t.Error("cancellation must not be reported as an unavailable location")
	}
}
