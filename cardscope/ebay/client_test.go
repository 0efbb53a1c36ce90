package ebay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cardscope/cardscope/cardscope/cache"
	"github.com/cardscope/cardscope/cardscope/comps"
	"github.com/cardscope/cardscope/cardscope/ratelimit"
)

const findingBody = `{
	"findCompletedItemsResponse": [{
		"ack": ["Success"],
		"searchResult": [{
			"item": [
				{
					"title": ["2023 Topps Chrome Jacob Wilson #BDC-121 RC"],
					"viewItemURL": ["https://ebay.example/item/1"],
					"sellingStatus": [{"currentPrice": [{"__value__": "12.50", "@currencyId": "USD"}]}],
					"listingInfo": [{"endTime": ["2024-05-01T16:03:21.000Z"]}]
				},
				{
					"title": ["Free item listing"],
					"viewItemURL": ["https://ebay.example/item/2"],
					"sellingStatus": [{"currentPrice": [{"__value__": "0.00", "@currencyId": "USD"}]}],
					"listingInfo": [{"endTime": ["2024-05-02T10:00:00.000Z"]}]
				}
			]
		}]
	}]
}`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		AppID:      "test-app",
		FindingURL: srv.URL,
		BrowseURL:  srv.URL,
		CategoryID: "261328",
		Cooldown:   10 * time.Minute,
	}
	limiter := ratelimit.New(100, time.Second)
	store := cache.New(64, 5*time.Minute, 30*time.Minute)
	return NewClient(cfg, srv.Client(), limiter, store, nil), srv
}

func TestSearchSoldParsesListings(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("OPERATION-NAME"); got != "findCompletedItems" {
			t.Errorf("OPERATION-NAME = %q", got)
		}
		if got := r.URL.Query().Get("categoryId"); got != "261328" {
			t.Errorf("categoryId = %q", got)
		}
		w.Write([]byte(findingBody))
	}))

	listings, err := client.SearchSold(context.Background(), "2023 topps chrome", comps.SearchOptions{CategoryID: "261328"})
	if err != nil {
		t.Fatalf("SearchSold: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1 (zero-price item dropped)", len(listings))
	}

	l := listings[0]
	if l.Price != 12.50 || l.Currency != "USD" {
		t.Errorf("price = %v %s", l.Price, l.Currency)
	}
	if l.SoldDate != "2024-05-01" {
		t.Errorf("sold date = %q, want 2024-05-01", l.SoldDate)
	}
	if l.Source != "ebay" {
		t.Errorf("source = %q", l.Source)
	}
}

func TestSearchSoldUsesCache(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(findingBody))
	}))

	for i := 0; i < 3; i++ {
		if _, err := client.SearchSold(context.Background(), "cached query", comps.SearchOptions{}); err != nil {
			t.Fatalf("SearchSold call %d: %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
	if !client.HasCached("cached query") {
		t.Error("HasCached = false after successful search")
	}
}

func TestSearchSoldQuotaExceeded(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errorMessage": [{"error": [{"errorId": ["10001"], "message": ["Service call has exceeded the number of times the operation is allowed to be called"]}]}]}`))
	}))

	_, err := client.SearchSold(context.Background(), "any", comps.SearchOptions{})
	rle, limited := comps.IsRateLimited(err)
	if !limited {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if rle.RetryAfter != 10*time.Minute {
		t.Errorf("RetryAfter = %v, want cooldown of 10m", rle.RetryAfter)
	}
}

func TestSearchSoldAckFailureReturnsEmpty(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"findCompletedItemsResponse": [{"ack": ["Failure"], "searchResult": []}]}`))
	}))

	listings, err := client.SearchSold(context.Background(), "any", comps.SearchOptions{})
	if err != nil {
		t.Fatalf("SearchSold: %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("got %d listings, want 0", len(listings))
	}
}

func TestSearchSoldRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(findingBody))
	}))

	listings, err := client.SearchSold(context.Background(), "flaky", comps.SearchOptions{})
	if err != nil {
		t.Fatalf("SearchSold: %v", err)
	}
	if len(listings) != 1 {
		t.Errorf("got %d listings after retry, want 1", len(listings))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestSearchSoldMissingAppID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called without an app id")
	}))
	client.cfg.AppID = ""

	_, err := client.SearchSold(context.Background(), "any", comps.SearchOptions{})
	if !errors.Is(err, comps.ErrMissingConfig) {
		t.Fatalf("error = %v, want ErrMissingConfig", err)
	}
}
