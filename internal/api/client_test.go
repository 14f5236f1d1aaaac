package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// sampleCalendar returns a minimal valid calendarByCity response for testing.
func sampleCalendar() CalendarResponse {
	day := Data{
		Timings: Timings{
			Fajr:    "04:21 (EET)",
			Sunrise: "05:49 (EET)",
			Dhuhr:   "11:58 (EET)",
			Asr:     "15:27 (EET)",
			Maghrib: "18:07 (EET)",
			Isha:    "19:24 (EET)",
		},
		Meta: Meta{Timezone: "Africa/Cairo"},
	}
	resp := CalendarResponse{Code: 200, Status: "OK"}
	for i := 0; i < 31; i++ {
		resp.Data = append(resp.Data, day)
	}
	return resp
}

// newTestClient returns a client pointed at url with retries kept fast.
func newTestClient(url string) *Client {
	c := NewClient()
	c.BaseURL = url
	c.RetryBase = time.Millisecond
	return c
}

func TestNewClient(t *testing.T) {
	c := NewClient()
	if c == nil {
		t.Fatal("NewClient returned nil")
	}
	if c.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL, defaultBaseURL)
	}
	if c.Method != -1 || c.School != -1 {
		t.Errorf("Method/School = %d/%d, want -1/-1", c.Method, c.School)
	}
}

func TestFetchCalendarByCity_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendarByCity" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("city") != "Cairo" {
			t.Errorf("city = %q, want %q", q.Get("city"), "Cairo")
		}
		if q.Get("country") != "Egypt" {
			t.Errorf("country = %q, want %q", q.Get("country"), "Egypt")
		}
		if q.Get("month") != "3" {
			t.Errorf("month = %q, want %q", q.Get("month"), "3")
		}
		if q.Get("year") != "2024" {
			t.Errorf("year = %q, want %q", q.Get("year"), "2024")
		}
		if q.Get("method") != "" || q.Get("school") != "" {
			t.Errorf("method/school should not be set, got %q/%q", q.Get("method"), q.Get("school"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sampleCalendar())
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	body, err := c.FetchCalendarByCity(context.Background(), "Cairo", "Egypt", 2024, time.March)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got CalendarResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("returned body is not valid JSON: %v", err)
	}
	if len(got.Data) != 31 {
		t.Errorf("len(Data) = %d, want 31", len(got.Data))
	}
	if got.Data[0].Timings.Isha != "19:24 (EET)" {
		t.Errorf("Isha = %q, want verbatim %q", got.Data[0].Timings.Isha, "19:24 (EET)")
	}
}

func TestFetchCalendarByCity_MethodAndSchool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("method") != "5" {
			t.Errorf("method = %q, want %q", q.Get("method"), "5")
		}
		if q.Get("school") != "1" {
			t.Errorf("school = %q, want %q", q.Get("school"), "1")
		}
		json.NewEncoder(w).Encode(sampleCalendar())
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.Method = 5
	c.School = 1

	if _, err := c.FetchCalendarByCity(context.Background(), "Cairo", "Egypt", 2024, time.March); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchCalendarByCity_BadRequestIsLookupFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"code":400,"status":"Unable to find city"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	_, err := c.FetchCalendarByCity(context.Background(), "Atlantis", "Nowhere", 2024, time.March)
	if !errors.Is(err, ErrLookup) {
		t.Fatalf("error = %v, want ErrLookup", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Errorf("lookup failure must not also be a transport failure: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("lookup failures must not be retried, got %d calls", calls.Load())
	}
}

func TestFetchCalendarByCity_APIErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CalendarResponse{Code: 400, Status: "Bad Request"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	_, err := c.FetchCalendarByCity(context.Background(), "Cairo", "Egypt", 2024, time.March)
	if !errors.Is(err, ErrLookup) {
		t.Fatalf("error = %v, want ErrLookup", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error should mention 400, got: %v", err)
	}
}

func TestFetchCalendarByCity_ServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(sampleCalendar())
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	if _, err := c.FetchCalendarByCity(context.Background(), "Cairo", "Egypt", 2024, time.March); err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchCalendarByCity_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.MaxRetries = 2

	_, err := c.FetchCalendarByCity(context.Background(), "Cairo", "Egypt", 2024, time.March)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should mention 503, got: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls.Load())
	}
}

func TestFetchCalendarByCity_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.MaxRetries = 0

	_, err := c.FetchCalendarByCity(context.Background(), "Cairo", "Egypt", 2024, time.March)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Errorf("error should mention decode, got: %v", err)
	}
}

func TestFetchCalendarByCity_ConnectionRefused(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1") // nothing listening
	c.MaxRetries = 1

	_, err := c.FetchCalendarByCity(context.Background(), "Cairo", "Egypt", 2024, time.March)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestFetchCalendarByCity_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchCalendarByCity(ctx, "Cairo", "Egypt", 2024, time.March)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
}
