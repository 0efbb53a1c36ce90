package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cardscope/cardscope/cardscope/comps"
)

// tokenSkew refreshes tokens this long before their stated expiry so
// in-flight requests never carry a token that dies mid-call.
const tokenSkew = 60 * time.Second

// TokenProvider fetches and caches an OAuth application token via the
// client-credentials grant.
type TokenProvider struct {
	mu           sync.Mutex
	clientID     string
	clientSecret string
	tokenURL     string
	scope        string
	httpClient   *http.Client
	now          func() time.Time

	token     string
	expiresAt time.Time
}

func NewTokenProvider(clientID, clientSecret, tokenURL string, httpClient *http.Client) *TokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		scope:        "https://api.ebay.com/oauth/api_scope",
		httpClient:   httpClient,
		now:          time.Now,
	}
}

// Token returns a valid application token, refreshing when the cached one is
// within the skew of expiry.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.clientID == "" || p.clientSecret == "" {
		return "", fmt.Errorf("oauth credentials: %w", comps.ErrMissingConfig)
	}
	if p.token != "" && p.now().Add(tokenSkew).Before(p.expiresAt) {
		return p.token, nil
	}
	return p.refresh(ctx)
}

// Preview returns a redacted token for health reporting: the first few
// characters and an ellipsis, never the full credential.
func (p *TokenProvider) Preview(ctx context.Context) (string, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return "", err
	}
	if len(token) <= 12 {
		return token + "…", nil
	}
	return token[:12] + "…", nil
}

func (p *TokenProvider) refresh(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {p.scope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access_token")
	}

	p.token = payload.AccessToken
	p.expiresAt = p.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return p.token, nil
}
