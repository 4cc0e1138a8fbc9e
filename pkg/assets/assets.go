// Package assets talks to the tenant's external assets service (catalog of
// sellable items) with a tenant-scoped cache and local keyword ranking.
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/solyn-ai/solyn/pkg/cache"
	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/version"
)

// Keyword match weights: a hit in the asset name outranks content, which
// outranks the remark.
const (
	nameWeight    = 5
	contentWeight = 4
	remarkWeight  = 3
)

// Service fetches and ranks tenant asset catalogs. The cache is optional;
// with a nil cache every Catalog call hits the upstream service.
type Service struct {
	httpClient *http.Client
	baseURL    string
	cache      *cache.Client
	cacheTTL   time.Duration
}

// NewService creates an assets Service.
func NewService(cfg *config.AssetsConfig, c *cache.Client) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cache:      c,
		cacheTTL:   cfg.CacheTTL,
	}
}

type catalogResponse struct {
	Assets []models.Asset `json:"assets"`
}

// Catalog returns the tenant's asset catalog, cached for the configured TTL
// (one day by default).
func (s *Service) Catalog(ctx context.Context, tenantID string) ([]models.Asset, error) {
	if s.cache != nil {
		var cached []models.Asset
		if ok, err := s.cache.GetJSON(ctx, cache.AssetsKey(tenantID), &cached); err != nil {
			slog.Warn("Assets cache read failed", "tenant_id", tenantID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	assets, err := s.fetch(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.AssetsKey(tenantID), assets, s.cacheTTL); err != nil {
			slog.Warn("Failed to cache assets", "tenant_id", tenantID, "error", err)
		}
	}
	return assets, nil
}

func (s *Service) fetch(ctx context.Context, tenantID string) ([]models.Asset, error) {
	endpoint := fmt.Sprintf("%s/api/v1/tenants/%s/assets", s.baseURL, url.PathEscape(tenantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build assets request: %w", err)
	}
	req.Header.Set("User-Agent", version.Full())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assets service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assets service returned status %d", resp.StatusCode)
	}
	var payload catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode assets response: %w", err)
	}
	return payload.Assets, nil
}

// Rank scores assets by keyword overlap (case-insensitive substring match)
// and returns the top k with a positive score, highest first. Ties keep
// catalog order.
func Rank(assets []models.Asset, keywords []string, topK int) []models.Asset {
	type scored struct {
		asset models.Asset
		score int
	}
	var hits []scored
	for _, a := range assets {
		name := strings.ToLower(a.Name)
		content := strings.ToLower(a.Content)
		remark := strings.ToLower(a.Remark)

		score := 0
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(name, kw) {
				score += nameWeight
			}
			if strings.Contains(content, kw) {
				score += contentWeight
			}
			if strings.Contains(remark, kw) {
				score += remarkWeight
			}
		}
		if score > 0 {
			hits = append(hits, scored{asset: a, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]models.Asset, len(hits))
	for i, h := range hits {
		out[i] = h.asset
	}
	return out
}
