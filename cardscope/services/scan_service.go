package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/cardscope/cardscope/cardscope/cache"
	"github.com/cardscope/cardscope/cardscope/comps"
	"github.com/cardscope/cardscope/cardscope/database/models"
	"github.com/cardscope/cardscope/cardscope/database/repositories"
	"github.com/cardscope/cardscope/cardscope/identity"
	"github.com/cardscope/cardscope/cardscope/query"
)

// CachedSource answers whether a query already has a fresh cached result
// without spending a rate-limit slot.
type CachedSource interface {
	HasCached(query string) bool
}

// ScanResult is the full pipeline output for one piece of scan text.
type ScanResult struct {
	Identity   identity.CardIdentity `json:"identity"`
	Query      string                `json:"query"`
	AltQueries []string              `json:"alt_queries"`
	Comps      comps.Result          `json:"comps"`
	Suppressed bool                  `json:"suppressed"`
}

// ScanService wires identity extraction, query generation and comparable
// aggregation into the scan pipeline.
type ScanService struct {
	extractor  *identity.Extractor
	enricher   identity.Enricher
	aggregator *comps.Aggregator
	cache      *cache.Cache
	source     CachedSource
	scans      repositories.ScanRepository
}

// NewScanService builds the pipeline. enricher, source and scans are
// optional; nil disables the corresponding step.
func NewScanService(
	extractor *identity.Extractor,
	enricher identity.Enricher,
	aggregator *comps.Aggregator,
	c *cache.Cache,
	source CachedSource,
	scans repositories.ScanRepository,
) *ScanService {
	return &ScanService{
		extractor:  extractor,
		enricher:   enricher,
		aggregator: aggregator,
		cache:      c,
		source:     source,
		scans:      scans,
	}
}

// Analyze resolves scan text into a card identity and its search queries,
// without touching the marketplace.
func (s *ScanService) Analyze(ctx context.Context, text, pageTitle string) (identity.CardIdentity, query.QuerySet, error) {
	id := s.extractor.ExtractWithTitle(text, pageTitle)

	if s.enricher != nil && id.Confidence < 70 {
		enriched, err := s.enricher.Enrich(ctx, text, id)
		if err != nil {
			slog.Warn("Identity enrichment failed, keeping rule-based result",
				slog.Any("error", err))
		} else {
			id = enriched
		}
	}

	return id, query.Build(id), nil
}

// Comps aggregates comparable sales for an already-built query set.
func (s *ScanService) Comps(ctx context.Context, primary string, alternatives []string) (comps.Result, error) {
	return s.aggregator.Aggregate(ctx, primary, alternatives)
}

// Scan runs the full pipeline. Text seen inside the fingerprint TTL whose
// primary query is no longer cached is suppressed: the identity still comes
// back, but no marketplace quota is spent re-fetching comparables that just
// expired.
func (s *ScanService) Scan(ctx context.Context, text, pageTitle string) (ScanResult, error) {
	if strings.TrimSpace(text) == "" {
		return ScanResult{}, fmt.Errorf("empty scan text")
	}

	id, queries, err := s.Analyze(ctx, text, pageTitle)
	if err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{
		Identity:   id,
		Query:      queries.Primary,
		AltQueries: queries.Alternatives,
	}

	fp := cache.Fingerprint(text)
	if s.cache.SeenText(fp) && s.source != nil && !s.source.HasCached(queries.Primary) {
		result.Suppressed = true
		s.record(ctx, fp, result)
		return result, nil
	}

	compsResult, err := s.aggregator.Aggregate(ctx, queries.Primary, queries.Alternatives)
	if err != nil {
		return result, err
	}
	result.Comps = compsResult

	s.cache.MarkText(fp)
	s.record(ctx, fp, result)
	return result, nil
}

// record persists the scan for history; failures are logged, never fatal.
func (s *ScanService) record(ctx context.Context, fingerprint string, r ScanResult) {
	if s.scans == nil {
		return
	}

	scan := &models.Scan{
		Fingerprint:  fingerprint,
		Player:       r.Identity.Player,
		SetName:      r.Identity.Set,
		CardNumber:   r.Identity.CardNumber,
		Year:         r.Identity.Year,
		Grade:        r.Identity.Grade,
		Confidence:   r.Identity.Confidence,
		Query:        r.Query,
		ListingCount: r.Comps.Stats.Count,
		Suppressed:   r.Suppressed,
		CreatedAt:    time.Now(),
	}
	if r.Comps.Stats.Median != nil {
		scan.MedianPrice = *r.Comps.Stats.Median
	}

	if err := s.scans.Create(ctx, scan); err != nil {
		slog.Error("Failed to record scan history",
			slog.String("type", "db"),
			slog.Any("error", err))
	}
}

// History returns recent scans when persistence is configured.
func (s *ScanService) History(ctx context.Context, limit int) ([]*models.Scan, error) {
	if s.scans == nil {
		return nil, nil
	}
	return s.scans.GetRecent(ctx, limit)
}

// ScansSince counts recorded scans for the usage endpoint; zero when
// persistence is off.
func (s *ScanService) ScansSince(ctx context.Context, since time.Time) int {
	if s.scans == nil {
		return 0
	}
	n, err := s.scans.CountSince(ctx, since)
	if err != nil {
		return 0
	}
	return n
}
