package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestNominatimProvider(t *testing.T) {
	var (
		mu                       sync.Mutex
		gotUA, gotQuery, gotPath string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		mu.Unlock()

		switch r.URL.Query().Get("q") {
		case "Madrid":
			_, _ = w.Write([]byte(`[{"place_id":1,"lat":"40.4168","lon":"-3.7038","display_name":"Madrid"}]`))
		case "Atlantis":
			_, _ = w.Write([]byte(`[]`))
		case "busy":
			w.WriteHeader(http.StatusTooManyRequests)
		case "slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	provider, err := NewNominatimProvider(NominatimOptions{
		Endpoint:  server.URL,
		UserAgent: "dodm-test",
		Timeout:   50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewNominatimProvider failed: %v", err)
	}
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		lon, lat, err := provider.Geocode(ctx, "Madrid")
		if err != nil {
			t.Fatalf("Geocode failed: %v", err)
		}
		if lon != -3.7038 || lat != 40.4168 {
			t.Errorf("Expected (-3.7038, 40.4168), got (%v, %v)", lon, lat)
		}
		mu.Lock()
		defer mu.Unlock()
		if gotUA != "dodm-test" || gotPath != "/search" || gotQuery != "Madrid" {
			t.Errorf("Unexpected request: ua=%q path=%q q=%q", gotUA, gotPath, gotQuery)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, _, err := provider.Geocode(ctx, "Atlantis"); !errors.Is(err, ErrAddressNotFound) {
			t.Errorf("Expected ErrAddressNotFound, got %v", err)
		}
	})

	t.Run("RateLimited", func(t *testing.T) {
		_, _, err := provider.Geocode(ctx, "busy")
		if !errors.Is(err, ErrProviderTimeout) || !isTimeout(err) {
			t.Errorf("Expected a timeout-class error, got %v", err)
		}
	})

	t.Run("ClientTimeout", func(t *testing.T) {
		_, _, err := provider.Geocode(ctx, "slow")
		if err == nil || !isTimeout(err) {
			t.Errorf("Expected a timeout-class error, got %v", err)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		_, _, err := provider.Geocode(ctx, "other")
		if err == nil || isTimeout(err) || errors.Is(err, ErrAddressNotFound) {
			t.Errorf("Expected a plain error, got %v", err)
		}
	})
}

func TestNominatimRequiresUserAgent(t *testing.T) {
	if _, err := NewNominatimProvider(NominatimOptions{}); err == nil {
		t.Error("Expected an error without user agent")
	}
}
