package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cardscope/cardscope/cardscope/cache"
	"github.com/cardscope/cardscope/cardscope/comps"
	"github.com/cardscope/cardscope/cardscope/database"
	"github.com/cardscope/cardscope/cardscope/ebay"
	"github.com/cardscope/cardscope/cardscope/ratelimit"
	"github.com/cardscope/cardscope/cardscope/services"
)

// API bundles the handler dependencies.
type API struct {
	Scans   *services.ScanService
	Limiter *ratelimit.Limiter
	Cache   *cache.Cache
	Ebay    *ebay.Client
	DB      *database.DB
	Version string
}

// Register mounts all routes on the app.
func (a *API) Register(app *fiber.App) {
	app.Get("/api/health", a.Health)
	app.Get("/api/health/ebay/token", a.EbayTokenHealth)
	app.Get("/api/usage", a.Usage)
	app.Get("/api/scans", a.RecentScans)
	app.Get("/api/active", a.ActiveListings)

	app.Post("/api/analyze", a.Analyze)
	app.Post("/api/comps", a.Comps)
	app.Post("/api/scan", a.Scan)
}

type analyzeRequest struct {
	Text      string `json:"text"`
	PageTitle string `json:"page_title"`
}

// Analyze resolves scan text to an identity and query set without touching
// the marketplace.
func (a *API) Analyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}

	id, queries, err := a.Scans.Analyze(c.Context(), req.Text, req.PageTitle)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"identity":    id,
		"query":       queries.Primary,
		"alt_queries": queries.Alternatives,
	})
}

type compsRequest struct {
	Query      string   `json:"query"`
	AltQueries []string `json:"alt_queries"`
}

// Comps aggregates comparable sales for a pre-built query set.
func (a *API) Comps(c *fiber.Ctx) error {
	var req compsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query is required")
	}

	result, err := a.Scans.Comps(c.Context(), req.Query, req.AltQueries)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"comps":   result,
	})
}

// Scan runs the full pipeline: identity, queries, comparables.
func (a *API) Scan(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}

	result, err := a.Scans.Scan(c.Context(), req.Text, req.PageTitle)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"result":  result,
	})
}

// Usage reports limiter saturation and cache effectiveness with plain
// recommendations.
func (a *API) Usage(c *fiber.Ctx) error {
	limiterStatus := a.Limiter.Status()
	cacheStats := a.Cache.Statistics()

	var recommendations []string
	if limiterStatus.Used >= limiterStatus.Max {
		recommendations = append(recommendations,
			"Rate limit saturated; space out scans by at least "+limiterStatus.Window.String()+".")
	}
	if total := cacheStats.Hits + cacheStats.Misses; total >= 20 {
		if ratio := float64(cacheStats.Hits) / float64(total); ratio < 0.2 {
			recommendations = append(recommendations,
				"Cache hit ratio is low; repeated scans of the same card within a few minutes are cheaper.")
		}
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Usage is healthy.")
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"rate_limiter":    limiterStatus,
		"cache":           cacheStats,
		"scans_today":     a.Scans.ScansSince(c.Context(), time.Now().Add(-24*time.Hour)),
		"recommendations": recommendations,
	})
}

// RecentScans returns persisted scan history; empty when persistence is off.
func (a *API) RecentScans(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	scans, err := a.Scans.History(c.Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"scans":   scans,
	})
}

// ActiveListings searches live marketplace listings for market context.
func (a *API) ActiveListings(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}
	limit, _ := strconv.Atoi(c.Query("limit", "0"))

	listings, err := a.Ebay.SearchActive(c.Context(), q, limit)
	if err != nil {
		if _, limited := comps.IsRateLimited(err); limited {
			return err
		}
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"listings": listings,
	})
}

// Health reports process and database health.
func (a *API) Health(c *fiber.Ctx) error {
	status := fiber.Map{
		"success": true,
		"status":  "ok",
		"version": a.Version,
	}

	if a.DB != nil {
		if err := a.DB.Ping(c.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
		} else {
			status["database"] = "ok"
		}
	}

	return c.JSON(status)
}

// EbayTokenHealth exercises the OAuth flow and reports a redacted token.
func (a *API) EbayTokenHealth(c *fiber.Ctx) error {
	return c.JSON(a.Ebay.CheckToken(c.Context()))
}
