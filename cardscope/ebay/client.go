package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cardscope/cardscope/cardscope/cache"
	"github.com/cardscope/cardscope/cardscope/comps"
	"github.com/cardscope/cardscope/cardscope/logger"
	"github.com/cardscope/cardscope/cardscope/ratelimit"
)

// retryDelay is the pause before the single retry on an upstream 5xx.
const retryDelay = 250 * time.Millisecond

// Config carries the marketplace endpoints and identifiers. Zero values for
// the credential fields make the matching surface report missing
// configuration instead of failing mid-request.
type Config struct {
	AppID          string
	FindingURL     string
	BrowseURL      string
	MarketplaceID  string
	CategoryID     string
	EntriesPerPage int
	Cooldown       time.Duration
}

// Client talks to the eBay Finding and Browse APIs behind the shared rate
// limiter and result cache. Identical concurrent queries are collapsed into
// one upstream call.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *cache.Cache
	tokens     *TokenProvider
	group      singleflight.Group
}

func NewClient(cfg Config, httpClient *http.Client, limiter *ratelimit.Limiter, c *cache.Cache, tokens *TokenProvider) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.EntriesPerPage <= 0 {
		cfg.EntriesPerPage = 20
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 10 * time.Minute
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    limiter,
		cache:      c,
		tokens:     tokens,
	}
}

// HasCached reports whether a fresh result for this query is already cached,
// without touching the rate limiter.
func (c *Client) HasCached(query string) bool {
	return c.cache.Contains(cacheKey(query, ""))
}

// SearchSold finds completed sales for a query. Results are cached per
// query+category; a cache miss costs one rate-limit slot.
func (c *Client) SearchSold(ctx context.Context, query string, opts comps.SearchOptions) ([]comps.Listing, error) {
	if c.cfg.AppID == "" {
		return nil, fmt.Errorf("finding api app id: %w", comps.ErrMissingConfig)
	}

	key := cacheKey(query, opts.CategoryID)
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]comps.Listing), nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have filled
		// the cache while this one waited.
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}

		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, &comps.RateLimitError{RetryAfter: c.limiter.RetryAfter()}
		}

		start := time.Now()
		listings, err := c.findCompleted(ctx, query, opts)
		logger.LogSearch(query, len(listings), time.Since(start), err)
		if err != nil {
			return nil, err
		}

		c.cache.Set(key, listings)
		return listings, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]comps.Listing), nil
}

func cacheKey(query, categoryID string) string {
	if categoryID == "" {
		return query
	}
	return query + "|cat:" + categoryID
}

// findingEnvelope mirrors the Finding API's everything-is-an-array JSON
// shape.
type findingEnvelope struct {
	ErrorMessage []struct {
		Error []struct {
			ErrorID []string `json:"errorId"`
			Message []string `json:"message"`
		} `json:"error"`
	} `json:"errorMessage"`
	Response []struct {
		Ack          []string `json:"ack"`
		SearchResult []struct {
			Item []findingItem `json:"item"`
		} `json:"searchResult"`
	} `json:"findCompletedItemsResponse"`
}

type findingItem struct {
	Title        []string `json:"title"`
	ViewItemURL  []string `json:"viewItemURL"`
	SellingState []struct {
		CurrentPrice []struct {
			Value      string `json:"__value__"`
			CurrencyID string `json:"@currencyId"`
		} `json:"currentPrice"`
	} `json:"sellingStatus"`
	ListingInfo []struct {
		EndTime []string `json:"endTime"`
	} `json:"listingInfo"`
}

func (c *Client) findCompleted(ctx context.Context, query string, opts comps.SearchOptions) ([]comps.Listing, error) {
	params := url.Values{
		"OPERATION-NAME":       {"findCompletedItems"},
		"SERVICE-VERSION":      {"1.13.0"},
		"SECURITY-APPNAME":     {c.cfg.AppID},
		"RESPONSE-DATA-FORMAT": {"JSON"},
		"REST-PAYLOAD":         {""},
		"keywords":             {query},
		"itemFilter(0).name":   {"SoldItemsOnly"},
		"itemFilter(0).value":  {"true"},
		"sortOrder":            {"EndTimeSoonest"},
	}
	params.Set("paginationInput.entriesPerPage", strconv.Itoa(c.cfg.EntriesPerPage))
	if opts.CategoryID != "" {
		params.Set("categoryId", opts.CategoryID)
	}

	body, status, err := c.get(ctx, c.cfg.FindingURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status >= 500 {
		// Finding service 5xx responses are usually transient; one retry
		// after a short pause.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
		body, status, err = c.get(ctx, c.cfg.FindingURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("finding api returned %d", status)
	}

	var envelope findingEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode finding response: %w", err)
	}

	if id, msg, found := envelope.topError(); found {
		// Error 10001 is the application call quota; everything else is a
		// plain failure.
		if id == "10001" {
			return nil, &comps.RateLimitError{RetryAfter: c.cfg.Cooldown}
		}
		return nil, fmt.Errorf("finding api error %s: %s", id, msg)
	}

	for _, resp := range envelope.Response {
		if len(resp.Ack) > 0 && resp.Ack[0] != "Success" {
			logger.LogSystem("Finding API ack " + resp.Ack[0] + ", returning no listings")
			return nil, nil
		}
		for _, sr := range resp.SearchResult {
			return parseFindingItems(sr.Item), nil
		}
	}
	return nil, nil
}

func (e *findingEnvelope) topError() (id, message string, found bool) {
	for _, em := range e.ErrorMessage {
		for _, errEntry := range em.Error {
			if len(errEntry.ErrorID) > 0 {
				id = errEntry.ErrorID[0]
			}
			if len(errEntry.Message) > 0 {
				message = errEntry.Message[0]
			}
			return id, message, true
		}
	}
	return "", "", false
}

func parseFindingItems(items []findingItem) []comps.Listing {
	listings := make([]comps.Listing, 0, len(items))
	for _, item := range items {
		l := comps.Listing{Source: "ebay"}
		if len(item.Title) > 0 {
			l.Title = item.Title[0]
		}
		if len(item.ViewItemURL) > 0 {
			l.URL = item.ViewItemURL[0]
		}
		for _, ss := range item.SellingState {
			for _, cp := range ss.CurrentPrice {
				if v, err := strconv.ParseFloat(cp.Value, 64); err == nil {
					l.Price = v
				}
				l.Currency = cp.CurrencyID
			}
		}
		for _, li := range item.ListingInfo {
			if len(li.EndTime) > 0 {
				l.SoldDate = soldDate(li.EndTime[0])
			}
		}
		if l.Price <= 0 {
			continue
		}
		listings = append(listings, l)
	}
	return listings
}

// soldDate trims a Finding API end time to YYYY-MM-DD.
func soldDate(endTime string) string {
	if t, err := time.Parse(time.RFC3339, endTime); err == nil {
		return t.Format("2006-01-02")
	}
	if idx := strings.IndexByte(endTime, 'T'); idx > 0 {
		return endTime[:idx]
	}
	return endTime
}

func (c *Client) get(ctx context.Context, rawURL string, header http.Header) ([]byte, int, error) {
	body, status, _, err := c.getWithRetryAfter(ctx, rawURL, header)
	return body, status, err
}

func (c *Client) getWithRetryAfter(ctx context.Context, rawURL string, header http.Header) ([]byte, int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read response: %w", err)
	}

	var retryAfter time.Duration
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, convErr := strconv.Atoi(ra); convErr == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
	}
	return body, resp.StatusCode, retryAfter, nil
}
