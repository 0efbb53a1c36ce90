package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cardscope/cardscope/cardscope/comps"
)

// ActiveListing is a live (not yet sold) marketplace listing, used for
// connectivity checks and active-market context.
type ActiveListing struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	ItemID   string  `json:"item_id"`
}

type browseResponse struct {
	Total         int `json:"total"`
	ItemSummaries []struct {
		ItemID string `json:"itemId"`
		Title  string `json:"title"`
		Price  struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"price"`
		ItemWebURL string `json:"itemWebUrl"`
	} `json:"itemSummaries"`
}

// SearchActive queries the Browse API for live listings. It needs an OAuth
// token and shares the client's rate limiter.
func (c *Client) SearchActive(ctx context.Context, query string, limit int) ([]ActiveListing, error) {
	if c.tokens == nil {
		return nil, fmt.Errorf("browse api token provider: %w", comps.ErrMissingConfig)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, &comps.RateLimitError{RetryAfter: c.limiter.RetryAfter()}
	}

	if limit <= 0 {
		limit = c.cfg.EntriesPerPage
	}
	params := url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(limit)},
	}
	if c.cfg.CategoryID != "" {
		params.Set("category_ids", c.cfg.CategoryID)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("X-EBAY-C-MARKETPLACE-ID", c.cfg.MarketplaceID)

	body, status, retryAfter, err := c.getWithRetryAfter(ctx, c.cfg.BrowseURL+"/item_summary/search?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests {
		if retryAfter <= 0 {
			retryAfter = c.cfg.Cooldown
		}
		return nil, &comps.RateLimitError{RetryAfter: retryAfter}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("browse api returned %d", status)
	}

	var resp browseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode browse response: %w", err)
	}

	listings := make([]ActiveListing, 0, len(resp.ItemSummaries))
	for _, item := range resp.ItemSummaries {
		price, _ := strconv.ParseFloat(item.Price.Value, 64)
		listings = append(listings, ActiveListing{
			Title:    item.Title,
			URL:      item.ItemWebURL,
			Price:    price,
			Currency: item.Price.Currency,
			ItemID:   item.ItemID,
		})
	}
	return listings, nil
}

// TokenHealth reports whether an application token can be minted, with a
// redacted preview for the health endpoint.
type TokenHealth struct {
	OK           bool   `json:"ok"`
	TokenPreview string `json:"token_preview,omitempty"`
	Error        string `json:"error,omitempty"`
	CheckedAt    string `json:"checked_at"`
}

// CheckToken exercises the OAuth flow end to end.
func (c *Client) CheckToken(ctx context.Context) TokenHealth {
	health := TokenHealth{CheckedAt: time.Now().UTC().Format(time.RFC3339)}
	if c.tokens == nil {
		health.Error = "token provider not configured"
		return health
	}
	preview, err := c.tokens.Preview(ctx)
	if err != nil {
		health.Error = err.Error()
		return health
	}
	health.OK = true
	health.TokenPreview = preview
	return health
}
